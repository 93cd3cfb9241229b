package gateway

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/task-gateway/internal/domain"
)

type fakeConn struct {
	id     string
	mu     sync.Mutex
	frames []Frame
	full   bool
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Push(f Frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return false
	}
	c.frames = append(c.frames, f)
	return true
}

func (c *fakeConn) Frames() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Frame(nil), c.frames...)
}

func (c *fakeConn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

var (
	alice = domain.Identity{ID: "u1", DisplayName: "alice"}
	bob   = domain.Identity{ID: "u2", DisplayName: "bob"}
)

func general(msg string) Frame { return Frame{Channel: ChannelGeneral, Payload: msg} }

func TestRegistryRegisterLookupUnregister(t *testing.T) {
	r := NewRegistry(nil, nil)
	h := newFakeConn("h1")

	_, ok := r.Lookup("u1")
	assert.False(t, ok)

	assert.Nil(t, r.Register(alice, h))
	got, ok := r.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, h, got)

	identity, removed := r.Unregister(h)
	assert.True(t, removed)
	assert.Equal(t, alice, identity)

	_, ok = r.Lookup("u1")
	assert.False(t, ok)
	assert.Zero(t, r.Count())
}

func TestRegistryJoinAnnouncementReachesEveryone(t *testing.T) {
	r := NewRegistry(nil, nil)
	ha, hb := newFakeConn("ha"), newFakeConn("hb")

	r.Register(alice, ha)
	assert.Equal(t, []Frame{general("alice has joined")}, ha.Frames())

	r.Register(bob, hb)
	assert.Equal(t, []Frame{general("alice has joined"), general("bob has joined")}, ha.Frames())
	assert.Equal(t, []Frame{general("bob has joined")}, hb.Frames())
}

func TestRegistryLeaveAnnouncedOnlyOnRemoval(t *testing.T) {
	r := NewRegistry(nil, nil)
	ha, hb := newFakeConn("ha"), newFakeConn("hb")
	r.Register(alice, ha)
	r.Register(bob, hb)
	hb.Reset()

	_, removed := r.Unregister(ha)
	require.True(t, removed)
	assert.Equal(t, []Frame{general("alice has left")}, hb.Frames())

	// double disconnect is silent
	_, removed = r.Unregister(ha)
	assert.False(t, removed)
	assert.Len(t, hb.Frames(), 1)

	// never registered
	_, removed = r.Unregister(newFakeConn("stranger"))
	assert.False(t, removed)
	assert.Len(t, hb.Frames(), 1)
}

func TestRegistryReplaceIsLastWriterWins(t *testing.T) {
	r := NewRegistry(nil, nil)
	ha, hb := newFakeConn("ha"), newFakeConn("hb")

	r.Register(alice, ha)
	prev := r.Register(alice, hb)
	assert.Same(t, ha, prev)
	assert.Equal(t, 1, r.Count())

	got, ok := r.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, hb, got)

	// the superseded handle no longer owns an entry
	ha.Reset()
	_, removed := r.Unregister(ha)
	assert.False(t, removed)
	got, ok = r.Lookup("u1")
	require.True(t, ok)
	assert.Same(t, hb, got)
	assert.Empty(t, ha.Frames())
}

func TestRegistryAnnouncementSkipsFullQueues(t *testing.T) {
	metrics := newFakeMetrics()
	r := NewRegistry(nil, metrics)
	slow := newFakeConn("slow")
	slow.full = true
	r.Register(bob, slow)

	h := newFakeConn("h")
	r.Register(alice, h)
	assert.Equal(t, []Frame{general("alice has joined")}, h.Frames())
	assert.Equal(t, 2, metrics.count("dropped"))
}

func TestRegistryConcurrentDistinctIdentities(t *testing.T) {
	r := NewRegistry(nil, nil)
	const n = 50

	conns := make([]*fakeConn, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		conns[i] = newFakeConn(fmt.Sprintf("h%d", i))
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := domain.Identity{ID: fmt.Sprintf("u%d", i), DisplayName: fmt.Sprintf("user%d", i)}
			r.Register(id, conns[i])
		}(i)
	}
	wg.Wait()
	assert.Equal(t, n, r.Count())

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, removed := r.Unregister(conns[i])
			assert.True(t, removed)
		}(i)
	}
	wg.Wait()
	assert.Zero(t, r.Count())
}
