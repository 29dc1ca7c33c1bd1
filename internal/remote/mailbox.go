package remote

import "sync"

// mailbox is an unbounded FIFO of tasks for the worker goroutine. Pushing
// never blocks, so backend callbacks cannot stall on a busy worker.
type mailbox struct {
	mu     sync.Mutex
	tasks  []func()
	signal chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{signal: make(chan struct{}, 1)}
}

func (m *mailbox) push(task func()) {
	m.mu.Lock()
	m.tasks = append(m.tasks, task)
	m.mu.Unlock()
	select {
	case m.signal <- struct{}{}:
	default:
	}
}

func (m *mailbox) drain() []func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	tasks := m.tasks
	m.tasks = nil
	return tasks
}
