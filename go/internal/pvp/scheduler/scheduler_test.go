package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectTick(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		assert.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("no %s tick", want)
	}
}

func expectQuiet(t *testing.T, ch <-chan string) {
	t.Helper()
	select {
	case got := <-ch:
		t.Fatalf("unexpected tick from %s", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTasks_RunsImmediatelyThenPeriodically(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	tasks := New(clock)
	t.Cleanup(tasks.StopAll)

	ticks := make(chan string, 8)
	tasks.Start(ctx, "stats", 5*time.Second, func(context.Context) { ticks <- "stats" })
	expectTick(t, ticks, "stats")

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(4 * time.Second)
	expectQuiet(t, ticks)

	clock.Advance(time.Second)
	expectTick(t, ticks, "stats")
}

func TestTasks_StartReplacesSameKind(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	tasks := New(clock)
	t.Cleanup(tasks.StopAll)

	ticks := make(chan string, 8)
	tasks.Start(ctx, "panel", 5*time.Second, func(context.Context) { ticks <- "old" })
	expectTick(t, ticks, "old")

	tasks.Start(ctx, "panel", 5*time.Second, func(context.Context) { ticks <- "new" })
	expectTick(t, ticks, "new")

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(5 * time.Second)
	expectTick(t, ticks, "new")
	expectQuiet(t, ticks)
}

func TestTasks_StopCancelsContext(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tasks := New(clock)

	cancelled := make(chan struct{})
	tasks.Start(context.Background(), "stats", time.Second, func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	})
	assert.True(t, tasks.Running("stats"))

	tasks.Stop("stats")
	assert.False(t, tasks.Running("stats"))
	select {
	case <-cancelled:
	default:
		t.Fatal("task context not cancelled before Stop returned")
	}

	// Stopping twice is harmless.
	tasks.Stop("stats")
	tasks.Reset()
}
