package gateway

import "sync"

type fakeMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{counts: map[string]int{}} }

func (m *fakeMetrics) inc(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
}

func (m *fakeMetrics) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

func (m *fakeMetrics) ConnectionOpened()       { m.inc("opened") }
func (m *fakeMetrics) ConnectionClosed()       { m.inc("closed") }
func (m *fakeMetrics) Handshake(result string) { m.inc("handshake_" + result) }
func (m *fakeMetrics) Pushed(channel string)   { m.inc("pushed_" + channel) }
func (m *fakeMetrics) FrameDropped()           { m.inc("dropped") }
