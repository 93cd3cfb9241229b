package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/task-gateway/internal/domain"
	"github.com/spec-kit/task-gateway/internal/events"
	"github.com/spec-kit/task-gateway/internal/repository"
	apperrors "github.com/spec-kit/task-gateway/pkg/util/errorutil"
)

// TaskInput carries task fields for create and update.
type TaskInput struct {
	Title       string
	Description string
	Done        *bool
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Items  []domain.Task
	Total  int
	Limit  int
	Offset int
}

// TaskService implements task workflows. Every successful write raises an
// event for the owner's live connection.
type TaskService struct {
	tasks  repository.TaskRepository
	events publisher
	logger *zap.Logger
}

// NewTaskService constructs the service.
func NewTaskService(tasks repository.TaskRepository, dispatcher events.Dispatcher, logger *zap.Logger) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{
		tasks:  tasks,
		events: publisher{dispatcher: dispatcher, logger: logger},
		logger: logger,
	}
}

// Create adds a task. Titles are unique per owner.
func (s *TaskService) Create(ctx context.Context, owner domain.Identity, in TaskInput) (*domain.Task, error) {
	if err := s.ensureTitleFree(ctx, owner.ID, in.Title, ""); err != nil {
		return nil, err
	}

	task := &domain.Task{
		UserID:      owner.ID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
	}
	if in.Done != nil {
		task.Done = *in.Done
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, repoError(err, "task")
	}

	s.events.publish(ctx, events.KindTaskCreated, owner, events.AudiencePrivate, *task)
	return task, nil
}

// Update replaces a task's fields.
func (s *TaskService) Update(ctx context.Context, owner domain.Identity, id string, in TaskInput) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, owner.ID, id)
	if err != nil {
		return nil, repoError(err, "task")
	}

	title := strings.TrimSpace(in.Title)
	if !strings.EqualFold(title, task.Title) {
		if err := s.ensureTitleFree(ctx, owner.ID, title, task.ID); err != nil {
			return nil, err
		}
	}

	task.Title = title
	task.Description = in.Description
	if in.Done != nil {
		task.Done = *in.Done
	}
	return s.save(ctx, owner, task)
}

// SetDone marks a task done or not done. A nil value toggles it.
func (s *TaskService) SetDone(ctx context.Context, owner domain.Identity, id string, done *bool) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, owner.ID, id)
	if err != nil {
		return nil, repoError(err, "task")
	}
	if done == nil {
		task.Done = !task.Done
	} else {
		task.Done = *done
	}
	return s.save(ctx, owner, task)
}

// Delete removes the owner's tasks among ids and returns the removed ids.
func (s *TaskService) Delete(ctx context.Context, owner domain.Identity, ids []string) ([]string, error) {
	deleted, err := s.tasks.DeleteMany(ctx, owner.ID, ids)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if len(deleted) > 0 {
		s.events.publish(ctx, events.KindTasksDeleted, owner, events.AudiencePrivate,
			events.TasksDeletedPayload{IDs: deleted, Count: len(deleted)})
	}
	return deleted, nil
}

// Get returns one of the owner's tasks.
func (s *TaskService) Get(ctx context.Context, owner domain.Identity, id string) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, owner.ID, id)
	if err != nil {
		return nil, repoError(err, "task")
	}
	return task, nil
}

// List pages through the owner's tasks.
func (s *TaskService) List(ctx context.Context, owner domain.Identity, filter repository.TaskFilter) (TaskPage, error) {
	filter.UserID = owner.ID
	filter = filter.Normalize()

	items, total, err := s.tasks.List(ctx, filter)
	if err != nil {
		return TaskPage{}, apperrors.NewInternalError(err)
	}
	return TaskPage{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (s *TaskService) save(ctx context.Context, owner domain.Identity, task *domain.Task) (*domain.Task, error) {
	if err := s.tasks.Update(ctx, task); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, titleConflict()
		}
		return nil, repoError(err, "task")
	}
	s.events.publish(ctx, events.KindTaskUpdated, owner, events.AudiencePrivate, *task)
	return task, nil
}

func (s *TaskService) ensureTitleFree(ctx context.Context, userID, title, exceptID string) error {
	taken, err := s.tasks.TitleTaken(ctx, userID, strings.TrimSpace(title), exceptID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if taken {
		return titleConflict()
	}
	return nil
}

func titleConflict() error {
	return apperrors.NewConflict("a task with this title already exists", map[string]any{"field": "title"})
}
