package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentityStore struct {
	ids   map[string]bool
	err   error
	delay time.Duration
	calls int
}

func (s *fakeIdentityStore) Exists(ctx context.Context, id string) (bool, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	if s.err != nil {
		return false, s.err
	}
	return s.ids[id], nil
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "case insensitive scheme", header: "bearer abc", want: "abc"},
		{name: "missing", header: "", wantErr: true},
		{name: "no scheme", header: "abc.def.ghi", wantErr: true},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", wantErr: true},
		{name: "empty token", header: "Bearer   ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BearerToken(tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnauthenticated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	clock := &testClock{now: time.Now()}
	tm := newTestTokenManager(t, clock)
	token, _, err := tm.IssueAccessToken(alice)
	require.NoError(t, err)
	refresh, _, err := tm.IssueRefreshToken(alice)
	require.NoError(t, err)

	t.Run("existing identity", func(t *testing.T) {
		store := &fakeIdentityStore{ids: map[string]bool{"u1": true}}
		a := NewAuthenticator(tm, store, time.Second, nil)

		got, err := a.Authenticate(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, alice, got)
		assert.Equal(t, 1, store.calls)
	})

	t.Run("deleted identity with unexpired token", func(t *testing.T) {
		store := &fakeIdentityStore{ids: map[string]bool{}}
		a := NewAuthenticator(tm, store, time.Second, nil)

		_, err := a.Authenticate(context.Background(), token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("store failure is not a pass", func(t *testing.T) {
		store := &fakeIdentityStore{err: errors.New("connection refused")}
		a := NewAuthenticator(tm, store, time.Second, nil)

		_, err := a.Authenticate(context.Background(), token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("store timeout is not a pass", func(t *testing.T) {
		store := &fakeIdentityStore{ids: map[string]bool{"u1": true}, delay: time.Second}
		a := NewAuthenticator(tm, store, 20*time.Millisecond, nil)

		_, err := a.Authenticate(context.Background(), token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("empty credential skips the store", func(t *testing.T) {
		store := &fakeIdentityStore{ids: map[string]bool{"u1": true}}
		a := NewAuthenticator(tm, store, time.Second, nil)

		_, err := a.Authenticate(context.Background(), "  ")
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.Zero(t, store.calls)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		store := &fakeIdentityStore{ids: map[string]bool{"u1": true}}
		a := NewAuthenticator(tm, store, time.Second, nil)

		_, err := a.Authenticate(context.Background(), refresh)
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.Zero(t, store.calls)
	})

	t.Run("expired token", func(t *testing.T) {
		expiredClock := &testClock{now: time.Now().Add(-2 * time.Hour)}
		old := newTestTokenManager(t, expiredClock)
		expired, _, err := old.IssueAccessToken(alice)
		require.NoError(t, err)

		store := &fakeIdentityStore{ids: map[string]bool{"u1": true}}
		a := NewAuthenticator(tm, store, time.Second, nil)

		_, err = a.Authenticate(context.Background(), expired)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFrom(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), alice)
	got, ok := IdentityFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, alice, got)
}
