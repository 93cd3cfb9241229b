package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/task-gateway/internal/api/dto"
	"github.com/spec-kit/task-gateway/internal/domain"
	"github.com/spec-kit/task-gateway/internal/repository"
	"github.com/spec-kit/task-gateway/internal/service"
	apperrors "github.com/spec-kit/task-gateway/pkg/util/errorutil"
)

// TaskService is the task workflow used by TasksHandler.
type TaskService interface {
	Create(ctx context.Context, owner domain.Identity, in service.TaskInput) (*domain.Task, error)
	Update(ctx context.Context, owner domain.Identity, id string, in service.TaskInput) (*domain.Task, error)
	SetDone(ctx context.Context, owner domain.Identity, id string, done *bool) (*domain.Task, error)
	Delete(ctx context.Context, owner domain.Identity, ids []string) ([]string, error)
	Get(ctx context.Context, owner domain.Identity, id string) (*domain.Task, error)
	List(ctx context.Context, owner domain.Identity, filter repository.TaskFilter) (service.TaskPage, error)
}

// TasksHandler manages the caller's tasks.
type TasksHandler struct {
	tasks TaskService
}

// NewTasksHandler constructs handler.
func NewTasksHandler(tasks TaskService) *TasksHandler {
	return &TasksHandler{tasks: tasks}
}

// Create handles POST /tasks.
func (h *TasksHandler) Create(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.TaskRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	task, err := h.tasks.Create(c.UserContext(), identity, req.Input())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(data(dto.NewTaskResponse(task)))
}

// Update handles PUT /tasks/:id.
func (h *TasksHandler) Update(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	id, err := taskID(c)
	if err != nil {
		return err
	}
	var req dto.TaskRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	task, err := h.tasks.Update(c.UserContext(), identity, id, req.Input())
	if err != nil {
		return err
	}
	return c.JSON(data(dto.NewTaskResponse(task)))
}

// SetDone handles PATCH /tasks/:id?done=true|false. Without done the task
// is toggled.
func (h *TasksHandler) SetDone(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	id, err := taskID(c)
	if err != nil {
		return err
	}
	var done *bool
	if raw := c.Query("done"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return apperrors.NewValidationError("request validation failed", map[string]any{"done": "must be true or false"})
		}
		done = &parsed
	}
	task, err := h.tasks.SetDone(c.UserContext(), identity, id, done)
	if err != nil {
		return err
	}
	return c.JSON(data(dto.NewTaskResponse(task)))
}

// Delete handles DELETE /tasks with a list of ids in the body.
func (h *TasksHandler) Delete(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var req dto.DeleteTasksRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	deleted, err := h.tasks.Delete(c.UserContext(), identity, req.TaskIDs)
	if err != nil {
		return err
	}
	return c.JSON(data(dto.DeleteTasksResponse{Deleted: deleted, Count: len(deleted)}))
}

// Get handles GET /tasks/:id.
func (h *TasksHandler) Get(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	id, err := taskID(c)
	if err != nil {
		return err
	}
	task, err := h.tasks.Get(c.UserContext(), identity, id)
	if err != nil {
		return err
	}
	return c.JSON(data(dto.NewTaskResponse(task)))
}

// List handles GET /tasks.
func (h *TasksHandler) List(c *fiber.Ctx) error {
	identity, err := currentIdentity(c)
	if err != nil {
		return err
	}
	var query dto.TaskListQuery
	if err := bindQuery(c, &query); err != nil {
		return err
	}
	page, err := h.tasks.List(c.UserContext(), identity, query.Filter())
	if err != nil {
		return err
	}
	return c.JSON(data(dto.NewTaskListResponse(page)))
}

// taskID rejects ids that cannot name a task.
func taskID(c *fiber.Ctx) (string, error) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", apperrors.NewNotFound("task", nil)
	}
	return id, nil
}
