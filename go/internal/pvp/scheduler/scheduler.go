package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Kind names a class of periodic task. At most one task per kind runs.
type Kind string

// Tasks owns cancellable periodic tasks keyed by kind.
type Tasks struct {
	clock clockwork.Clock

	mu     sync.Mutex
	active map[Kind]*task
}

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func New(clock clockwork.Clock) *Tasks {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tasks{
		clock:  clock,
		active: make(map[Kind]*task),
	}
}

// Start runs fn now and then every interval until stopped. Any existing task
// of the same kind is stopped first and has fully exited before fn first runs.
func (t *Tasks) Start(ctx context.Context, kind Kind, interval time.Duration, fn func(ctx context.Context)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked(kind)

	taskCtx, cancel := context.WithCancel(ctx)
	tk := &task{cancel: cancel, done: make(chan struct{})}
	t.active[kind] = tk

	ticker := t.clock.NewTicker(interval)
	go func() {
		defer close(tk.done)
		defer ticker.Stop()

		fn(taskCtx)
		for {
			select {
			case <-taskCtx.Done():
				return
			case <-ticker.Chan():
				if taskCtx.Err() != nil {
					return
				}
				fn(taskCtx)
			}
		}
	}()

	log.Debug().Str("kind", string(kind)).Dur("interval", interval).Msg("started periodic task")
}

// Stop cancels the task of kind, if any, and waits for it to exit.
func (t *Tasks) Stop(kind Kind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked(kind)
}

func (t *Tasks) stopLocked(kind Kind) {
	tk, ok := t.active[kind]
	if !ok {
		return
	}
	delete(t.active, kind)
	tk.cancel()
	<-tk.done
	log.Debug().Str("kind", string(kind)).Msg("stopped periodic task")
}

// Running reports whether a task of kind is active.
func (t *Tasks) Running(kind Kind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[kind]
	return ok
}

// StopAll cancels every task.
func (t *Tasks) StopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for kind := range t.active {
		t.stopLocked(kind)
	}
}

// Reset stops every task; tasks are attached to the session for logout.
func (t *Tasks) Reset() {
	t.StopAll()
}
