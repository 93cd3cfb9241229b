package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(pgx.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, mapError(fmt.Errorf("scan: %w", pgx.ErrNoRows)), ErrNotFound)
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "23505"}), ErrDuplicate)

	other := errors.New("connection reset")
	assert.Equal(t, other, mapError(other))
	fk := &pgconn.PgError{Code: "23503"}
	assert.Equal(t, error(fk), mapError(fk))
}

func TestTaskFilterNormalize(t *testing.T) {
	tests := []struct {
		name       string
		in         TaskFilter
		wantLimit  int
		wantOffset int
	}{
		{name: "defaults", in: TaskFilter{}, wantLimit: 20},
		{name: "capped", in: TaskFilter{Limit: 1000, Offset: 40}, wantLimit: 100, wantOffset: 40},
		{name: "negative offset", in: TaskFilter{Limit: 5, Offset: -3}, wantLimit: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			assert.Equal(t, tt.wantLimit, got.Limit)
			assert.Equal(t, tt.wantOffset, got.Offset)
		})
	}
}

func TestTaskWhere(t *testing.T) {
	done := true
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 23, 59, 59, 999999999, time.UTC)
	str := func(s string) *string { return &s }

	tests := []struct {
		name      string
		filter    TaskFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "owner only",
			filter:    TaskFilter{UserID: "u1"},
			wantWhere: "user_id=$1",
			wantArgs:  []any{"u1"},
		},
		{
			name:      "blank search is ignored",
			filter:    TaskFilter{UserID: "u1", Search: str("   ")},
			wantWhere: "user_id=$1",
			wantArgs:  []any{"u1"},
		},
		{
			name:      "search shares one placeholder",
			filter:    TaskFilter{UserID: "u1", Search: str("  Groceries ")},
			wantWhere: `user_id=$1 AND (LOWER(title) LIKE $2 ESCAPE '\' OR LOWER(description) LIKE $2 ESCAPE '\')`,
			wantArgs:  []any{"u1", "%groceries%"},
		},
		{
			name:      "search wildcards match literally",
			filter:    TaskFilter{UserID: "u1", Search: str(`100%_done\`)},
			wantWhere: `user_id=$1 AND (LOWER(title) LIKE $2 ESCAPE '\' OR LOWER(description) LIKE $2 ESCAPE '\')`,
			wantArgs:  []any{"u1", `%100\%\_done\\%`},
		},
		{
			name:      "inclusive updated range",
			filter:    TaskFilter{UserID: "u1", UpdatedFrom: &from, UpdatedTo: &to},
			wantWhere: "user_id=$1 AND updated_at >= $2 AND updated_at <= $3",
			wantArgs:  []any{"u1", from, to},
		},
		{
			name:      "placeholders follow clause order",
			filter:    TaskFilter{UserID: "u1", Done: &done, Search: str("x"), UpdatedFrom: &from, UpdatedTo: &to},
			wantWhere: `user_id=$1 AND done=$2 AND (LOWER(title) LIKE $3 ESCAPE '\' OR LOWER(description) LIKE $3 ESCAPE '\') AND updated_at >= $4 AND updated_at <= $5`,
			wantArgs:  []any{"u1", true, "%x%", from, to},
		},
		{
			name:      "end bound only",
			filter:    TaskFilter{UserID: "u1", Done: &done, UpdatedTo: &to},
			wantWhere: "user_id=$1 AND done=$2 AND updated_at <= $3",
			wantArgs:  []any{"u1", true, to},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := taskWhere(tt.filter)
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestValidTaskIDs(t *testing.T) {
	a := "0b7c5a3e-5d1f-4c55-9a55-1f0d1b1f7a01"
	b := "0b7c5a3e-5d1f-4c55-9a55-1f0d1b1f7a02"

	assert.Equal(t, []string{a, b}, validTaskIDs([]string{a, "42", "", b, "not-a-uuid"}))
	assert.Equal(t, []string{}, validTaskIDs([]string{"1", "2"}))
	assert.Equal(t, []string{}, validTaskIDs(nil))
}
