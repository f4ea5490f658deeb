package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/olympiad/go/internal/pvp/controller"
)

func TestPublisher_DedupesIdenticalViews(t *testing.T) {
	p := NewPublisher()
	_, version := p.Latest()
	assert.Zero(t, version)

	frame := tracking(activeMatch(), viewer(1), nil)
	p.Render(frame)
	p.Render(frame)

	view, version := p.Latest()
	assert.Equal(t, uint64(1), version)
	assert.Equal(t, ScreenMatch, view.Screen)

	p.Render(controller.Frame{Viewer: viewer(1)})
	_, version = p.Latest()
	assert.Equal(t, uint64(2), version)
}

func TestPublisher_SubscribersGetNewestView(t *testing.T) {
	p := NewPublisher()
	p.Render(tracking(waitingMatch(), viewer(1), nil))

	views, cancel := p.Subscribe()
	defer cancel()

	first := <-views
	assert.Equal(t, ScreenWaiting, first.Screen)

	// Two renders without a read: only the newest is pending.
	p.Render(tracking(activeMatch(), viewer(1), nil))
	p.Render(controller.Frame{Viewer: viewer(1)})

	latest := <-views
	assert.Equal(t, ScreenMatchList, latest.Screen)
	select {
	case v := <-views:
		t.Fatalf("unexpected extra view %s", v.Screen)
	default:
	}

	cancel()
	p.Render(tracking(activeMatch(), viewer(1), nil))
	select {
	case <-views:
		t.Fatal("cancelled subscriber still receives views")
	default:
	}
	require.NotPanics(t, cancel)
}
