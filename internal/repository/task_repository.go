package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/task-gateway/internal/domain"
)

const (
	defaultTaskLimit = 20
	maxTaskLimit     = 100
)

// TaskFilter narrows a user's task listing.
type TaskFilter struct {
	UserID string
	Done   *bool
	Search *string
	// UpdatedFrom and UpdatedTo bound updated_at, inclusive.
	UpdatedFrom *time.Time
	UpdatedTo   *time.Time
	Limit       int
	Offset      int
}

// Normalize clamps paging values to the supported range.
func (f TaskFilter) Normalize() TaskFilter {
	if f.Limit <= 0 {
		f.Limit = defaultTaskLimit
	}
	if f.Limit > maxTaskLimit {
		f.Limit = maxTaskLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// TaskRepository defines persistence access for tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	Update(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, userID, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, int, error)
	DeleteMany(ctx context.Context, userID string, ids []string) ([]string, error)
	TitleTaken(ctx context.Context, userID, title, exceptID string) (bool, error)
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

const taskColumns = `id, user_id, title, description, done, created_at, updated_at`

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	const query = `
        INSERT INTO tasks (user_id, title, description, done)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		task.UserID,
		task.Title,
		task.Description,
		task.Done,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	return mapError(err)
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	const query = `
        UPDATE tasks SET title=$1, description=$2, done=$3, updated_at=NOW()
        WHERE id=$4 AND user_id=$5
        RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		task.Title,
		task.Description,
		task.Done,
		task.ID,
		task.UserID,
	).Scan(&task.UpdatedAt)
	return mapError(err)
}

func (r *taskRepository) GetByID(ctx context.Context, userID, id string) (*domain.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=$1 AND user_id=$2`, id, userID)

	var task domain.Task
	if err := scanTask(row, &task); err != nil {
		return nil, mapError(err)
	}
	return &task, nil
}

// List returns one page of tasks together with the total match count.
func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]domain.Task, int, error) {
	filter = filter.Normalize()

	where, args := taskWhere(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		taskColumns, where, filter.Limit, filter.Offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0, filter.Limit)
	for rows.Next() {
		var task domain.Task
		if err := scanTask(rows, &task); err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, task)
	}
	return tasks, total, rows.Err()
}

// DeleteMany removes the caller's tasks among ids and returns the ids that
// were actually deleted.
func (r *taskRepository) DeleteMany(ctx context.Context, userID string, ids []string) ([]string, error) {
	valid := validTaskIDs(ids)
	if len(valid) == 0 {
		return []string{}, nil
	}

	rows, err := r.pool.Query(ctx,
		`DELETE FROM tasks WHERE user_id=$1 AND id = ANY($2::uuid[]) RETURNING id`,
		userID, valid,
	)
	if err != nil {
		return nil, err
	}
	deleted, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// taskWhere renders the filter as a WHERE clause with numbered placeholders.
// UpdatedFrom and UpdatedTo are both inclusive.
func taskWhere(filter TaskFilter) (string, []any) {
	clauses := []string{"user_id=$1"}
	args := []any{filter.UserID}

	if filter.Done != nil {
		args = append(args, *filter.Done)
		clauses = append(clauses, fmt.Sprintf("done=$%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(strings.TrimSpace(*filter.Search)))+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(`(LOWER(title) LIKE %s ESCAPE '\' OR LOWER(description) LIKE %s ESCAPE '\')`, placeholder, placeholder))
	}
	if filter.UpdatedFrom != nil {
		args = append(args, *filter.UpdatedFrom)
		clauses = append(clauses, fmt.Sprintf("updated_at >= $%d", len(args)))
	}
	if filter.UpdatedTo != nil {
		args = append(args, *filter.UpdatedTo)
		clauses = append(clauses, fmt.Sprintf("updated_at <= $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

// likeEscaper makes a search term match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// validTaskIDs drops ids that cannot be task ids, keeping order.
func validTaskIDs(ids []string) []string {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	return valid
}

func (r *taskRepository) TitleTaken(ctx context.Context, userID, title, exceptID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM tasks WHERE user_id=$1 AND LOWER(title)=LOWER($2))`
	args := []any{userID, title}
	if _, err := uuid.Parse(exceptID); err == nil {
		query = `SELECT EXISTS(SELECT 1 FROM tasks WHERE user_id=$1 AND LOWER(title)=LOWER($2) AND id <> $3)`
		args = append(args, exceptID)
	}
	var taken bool
	err := r.pool.QueryRow(ctx, query, args...).Scan(&taken)
	return taken, err
}

func scanTask(row pgx.Row, task *domain.Task) error {
	return row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.Done,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
}
