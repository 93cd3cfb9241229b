package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/task-gateway/internal/auth"
	"github.com/spec-kit/task-gateway/internal/config"
	"github.com/spec-kit/task-gateway/internal/domain"
	"github.com/spec-kit/task-gateway/internal/events"
	"github.com/spec-kit/task-gateway/internal/repository"
)

func testConfig() config.Config {
	return config.Config{
		App: config.AppConfig{FrontendURL: "http://app.test"},
		Auth: config.AuthConfig{
			AccessSecret:          "access-secret-for-tests",
			RefreshSecret:         "refresh-secret-for-tests",
			LinkSecret:            "link-secret-for-tests",
			Issuer:                "task-gateway-test",
			AccessTokenTTLMinutes: 60,
			RefreshTokenTTLHours:  24,
			LinkTokenTTLHours:     24,
			BcryptCost:            4,
		},
	}
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[string]domain.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) || strings.EqualFold(existing.Username, u.Username) {
			return repository.ErrDuplicate
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	u.UpdatedAt = time.Now()
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) find(match func(domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id })
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return strings.EqualFold(u.Username, username) })
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *fakeUserRepo) Exists(_ context.Context, id string) (bool, error) {
	_, err := r.find(func(u domain.User) bool { return u.ID == id })
	return err == nil, nil
}

func (r *fakeUserRepo) UsernameTaken(_ context.Context, username, exceptID string) (bool, error) {
	_, err := r.find(func(u domain.User) bool { return strings.EqualFold(u.Username, username) && u.ID != exceptID })
	return err == nil, nil
}

func (r *fakeUserRepo) EmailTaken(_ context.Context, email, exceptID string) (bool, error) {
	_, err := r.find(func(u domain.User) bool { return strings.EqualFold(u.Email, email) && u.ID != exceptID })
	return err == nil, nil
}

func (r *fakeUserRepo) get(id string) domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id]
}

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]domain.Task
}

func newFakeTaskRepo() *fakeTaskRepo { return &fakeTaskRepo{tasks: map[string]domain.Task{}} }

func (r *fakeTaskRepo) Create(_ context.Context, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	r.tasks[t.ID] = *t
	return nil
}

func (r *fakeTaskRepo) Update(_ context.Context, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.tasks[t.ID]
	if !ok || existing.UserID != t.UserID {
		return repository.ErrNotFound
	}
	t.UpdatedAt = time.Now()
	r.tasks[t.ID] = *t
	return nil
}

func (r *fakeTaskRepo) GetByID(_ context.Context, userID, id string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || t.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *fakeTaskRepo) List(_ context.Context, f repository.TaskFilter) ([]domain.Task, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Task
	for _, t := range r.tasks {
		if t.UserID != f.UserID {
			continue
		}
		if f.Done != nil && t.Done != *f.Done {
			continue
		}
		out = append(out, t)
	}
	total := len(out)
	if f.Offset >= len(out) {
		return []domain.Task{}, total, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (r *fakeTaskRepo) DeleteMany(_ context.Context, userID string, ids []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := []string{}
	for _, id := range ids {
		if t, ok := r.tasks[id]; ok && t.UserID == userID {
			delete(r.tasks, id)
			deleted = append(deleted, id)
		}
	}
	return deleted, nil
}

func (r *fakeTaskRepo) TitleTaken(_ context.Context, userID, title, exceptID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.UserID == userID && strings.EqualFold(t.Title, title) && t.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

type fakeTokenStore struct {
	mu   sync.Mutex
	used map[string]bool
	err  error
}

func newFakeTokenStore() *fakeTokenStore { return &fakeTokenStore{used: map[string]bool{}} }

func (s *fakeTokenStore) Consume(_ context.Context, jti string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if s.used[jti] {
		return false, nil
	}
	s.used[jti] = true
	return true, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []Mail
}

func (m *recordingMailer) Send(_ context.Context, mail Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail)
	return nil
}

func (m *recordingMailer) last() Mail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return Mail{}
	}
	return m.sent[len(m.sent)-1]
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type recordingDispatcher struct {
	mu        sync.Mutex
	published []events.Event
	err       error
}

func (d *recordingDispatcher) Publish(_ context.Context, e events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.published = append(d.published, e)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.Kind, events.EventHandler) {}

func (d *recordingDispatcher) kinds() []events.Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.Kind, 0, len(d.published))
	for _, e := range d.published {
		out = append(out, e.Kind)
	}
	return out
}

func (d *recordingDispatcher) last() events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.published[len(d.published)-1]
}

func newTokenManager() *auth.TokenManager {
	tm, err := auth.NewTokenManager(testConfig().Auth)
	if err != nil {
		panic(err)
	}
	return tm
}

func mustHash(password string) string {
	hash, err := auth.HashPassword(password, 4)
	if err != nil {
		panic(err)
	}
	return hash
}

// codeFrom extracts the link token from a mailed URL.
func codeFrom(body string) string {
	idx := strings.Index(body, "?code=")
	if idx < 0 {
		return ""
	}
	rest := body[idx+len("?code="):]
	if end := strings.IndexAny(rest, "\n "); end >= 0 {
		rest = rest[:end]
	}
	return rest
}
