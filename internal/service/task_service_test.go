package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/task-gateway/internal/domain"
	"github.com/spec-kit/task-gateway/internal/events"
	"github.com/spec-kit/task-gateway/internal/repository"
)

var (
	owner    = domain.Identity{ID: "owner-1", DisplayName: "alice"}
	stranger = domain.Identity{ID: "owner-2", DisplayName: "bob"}
)

func boolPtr(b bool) *bool { return &b }

func TestCreateTaskPublishesPrivateEvent(t *testing.T) {
	repo := newFakeTaskRepo()
	dispatcher := &recordingDispatcher{}
	svc := NewTaskService(repo, dispatcher, nil)

	task, err := svc.Create(context.Background(), owner, TaskInput{Title: "  buy milk ", Description: "2 litres"})
	require.NoError(t, err)
	assert.Equal(t, "buy milk", task.Title)
	assert.Equal(t, owner.ID, task.UserID)
	assert.False(t, task.Done)

	require.Equal(t, []events.Kind{events.KindTaskCreated}, dispatcher.kinds())
	e := dispatcher.last()
	assert.Equal(t, owner, e.Subject)
	assert.Equal(t, events.AudiencePrivate, e.Audience)
	assert.Equal(t, *task, e.Data)
}

func TestCreateTaskTitleConflict(t *testing.T) {
	repo := newFakeTaskRepo()
	dispatcher := &recordingDispatcher{}
	svc := NewTaskService(repo, dispatcher, nil)

	_, err := svc.Create(context.Background(), owner, TaskInput{Title: "Report"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), owner, TaskInput{Title: "report"})
	assert.Equal(t, "CONFLICT", errorCode(t, err))

	// titles are scoped to their owner
	_, err = svc.Create(context.Background(), stranger, TaskInput{Title: "report"})
	assert.NoError(t, err)
	assert.Len(t, dispatcher.kinds(), 2)
}

func TestUpdateAndToggle(t *testing.T) {
	repo := newFakeTaskRepo()
	dispatcher := &recordingDispatcher{}
	svc := NewTaskService(repo, dispatcher, nil)

	task, err := svc.Create(context.Background(), owner, TaskInput{Title: "draft"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), owner, task.ID, TaskInput{Title: "final", Description: "v2", Done: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Title)
	assert.True(t, updated.Done)

	toggled, err := svc.SetDone(context.Background(), owner, task.ID, nil)
	require.NoError(t, err)
	assert.False(t, toggled.Done)

	set, err := svc.SetDone(context.Background(), owner, task.ID, boolPtr(false))
	require.NoError(t, err)
	assert.False(t, set.Done)

	assert.Equal(t, []events.Kind{
		events.KindTaskCreated,
		events.KindTaskUpdated,
		events.KindTaskUpdated,
		events.KindTaskUpdated,
	}, dispatcher.kinds())

	_, err = svc.Update(context.Background(), stranger, task.ID, TaskInput{Title: "mine"})
	assert.Equal(t, "NOT_FOUND", errorCode(t, err))
}

func TestDeleteTasks(t *testing.T) {
	repo := newFakeTaskRepo()
	dispatcher := &recordingDispatcher{}
	svc := NewTaskService(repo, dispatcher, nil)

	a, err := svc.Create(context.Background(), owner, TaskInput{Title: "a"})
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), owner, TaskInput{Title: "b"})
	require.NoError(t, err)
	foreign, err := svc.Create(context.Background(), stranger, TaskInput{Title: "c"})
	require.NoError(t, err)

	deleted, err := svc.Delete(context.Background(), owner, []string{a.ID, b.ID, foreign.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, deleted)

	e := dispatcher.last()
	assert.Equal(t, events.KindTasksDeleted, e.Kind)
	payload, ok := e.Data.(events.TasksDeletedPayload)
	require.True(t, ok)
	assert.Equal(t, 2, payload.Count)

	// nothing removed, nothing announced
	before := len(dispatcher.kinds())
	deleted, err = svc.Delete(context.Background(), owner, []string{a.ID})
	require.NoError(t, err)
	assert.Empty(t, deleted)
	assert.Len(t, dispatcher.kinds(), before)
}

func TestListTasks(t *testing.T) {
	repo := newFakeTaskRepo()
	svc := NewTaskService(repo, nil, nil)

	for _, title := range []string{"one", "two", "three"} {
		_, err := svc.Create(context.Background(), owner, TaskInput{Title: title, Done: boolPtr(title == "two")})
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), stranger, TaskInput{Title: "other"})
	require.NoError(t, err)

	page, err := svc.List(context.Background(), owner, repository.TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, 20, page.Limit)

	page, err = svc.List(context.Background(), owner, repository.TaskFilter{Done: boolPtr(true)})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "two", page.Items[0].Title)

	// the owner always comes from the identity
	page, err = svc.List(context.Background(), owner, repository.TaskFilter{UserID: stranger.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	repo := newFakeTaskRepo()
	dispatcher := &recordingDispatcher{err: errors.New("queue full")}
	svc := NewTaskService(repo, dispatcher, nil)

	task, err := svc.Create(context.Background(), owner, TaskInput{Title: "still saved"})
	require.NoError(t, err)

	stored, err := svc.Get(context.Background(), owner, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "still saved", stored.Title)
}

func TestPublishSurvivesCancelledRequest(t *testing.T) {
	repo := newFakeTaskRepo()
	dispatcher := &recordingDispatcher{}
	svc := NewTaskService(repo, dispatcher, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Create(ctx, owner, TaskInput{Title: "late"})
	require.NoError(t, err)
	assert.Equal(t, []events.Kind{events.KindTaskCreated}, dispatcher.kinds())
}
