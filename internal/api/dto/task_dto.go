package dto

import (
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/task-gateway/internal/domain"
	"github.com/spec-kit/task-gateway/internal/repository"
	"github.com/spec-kit/task-gateway/internal/service"
)

const dateLayout = "2006-01-02"

// TaskRequest payload for creating or replacing a task.
type TaskRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Done        *bool  `json:"done"`
}

// Input maps the request onto the service input.
func (r TaskRequest) Input() service.TaskInput {
	return service.TaskInput{Title: strings.TrimSpace(r.Title), Description: r.Description, Done: r.Done}
}

// DeleteTasksRequest names the tasks to remove.
type DeleteTasksRequest struct {
	TaskIDs []string `json:"taskIds" validate:"required,min=1,max=100,dive,uuid"`
}

// TaskListQuery captures the listing filters.
type TaskListQuery struct {
	Search    string `query:"search" validate:"max=200"`
	Done      string `query:"done" validate:"omitempty,boolean"`
	StartDate string `query:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `query:"endDate" validate:"omitempty,datetime=2006-01-02"`
	Limit     int    `query:"limit" validate:"gte=0,lte=100"`
	Offset    int    `query:"offset" validate:"gte=0"`
}

// Filter converts a validated query to a repository filter. The end date
// covers the whole day.
func (q TaskListQuery) Filter() repository.TaskFilter {
	filter := repository.TaskFilter{Limit: q.Limit, Offset: q.Offset}
	if s := strings.TrimSpace(q.Search); s != "" {
		filter.Search = &s
	}
	if done, err := strconv.ParseBool(q.Done); err == nil {
		filter.Done = &done
	}
	if from, err := time.Parse(dateLayout, q.StartDate); err == nil {
		filter.UpdatedFrom = &from
	}
	if to, err := time.Parse(dateLayout, q.EndDate); err == nil {
		end := to.Add(24*time.Hour - time.Nanosecond)
		filter.UpdatedTo = &end
	}
	return filter
}

// TaskResponse is the wire form of a task.
type TaskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Done        bool      `json:"done"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewTaskResponse builds the response for t.
func NewTaskResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Done:        t.Done,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// TaskListResponse is one page of tasks.
type TaskListResponse struct {
	Items  []TaskResponse `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// NewTaskListResponse builds the response for a page.
func NewTaskListResponse(page service.TaskPage) TaskListResponse {
	items := make([]TaskResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, NewTaskResponse(&page.Items[i]))
	}
	return TaskListResponse{Items: items, Total: page.Total, Limit: page.Limit, Offset: page.Offset}
}

// DeleteTasksResponse reports which tasks were removed.
type DeleteTasksResponse struct {
	Deleted []string `json:"deleted"`
	Count   int      `json:"count"`
}
