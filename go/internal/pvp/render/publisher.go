package render

import (
	"reflect"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/olympiad/go/internal/pvp/controller"
)

// Publisher is the controller's sink. It keeps the latest view and fans it
// out to subscribers, skipping frames that project to an identical view.
type Publisher struct {
	mu      sync.RWMutex
	latest  View
	version uint64
	subs    map[chan View]struct{}
}

func NewPublisher() *Publisher {
	return &Publisher{
		latest: View{Screen: ScreenLogin},
		subs:   make(map[chan View]struct{}),
	}
}

func (p *Publisher) Render(frame controller.Frame) {
	view := Project(frame)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.version > 0 && reflect.DeepEqual(view, p.latest) {
		return
	}
	p.latest = view
	p.version++

	for ch := range p.subs {
		offer(ch, view)
	}
	log.Debug().
		Str("screen", string(view.Screen)).
		Int64("match_id", view.MatchID).
		Uint64("version", p.version).
		Msg("view updated")
}

// offer replaces a pending undelivered view so slow subscribers only ever
// see the newest one.
func offer(ch chan View, view View) {
	for {
		select {
		case ch <- view:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Latest returns the current view and its version. Version 0 means nothing
// has been rendered yet.
func (p *Publisher) Latest() (View, uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.version
}

// Subscribe returns a channel carrying every new view, starting with the
// current one, and a function that ends the subscription.
func (p *Publisher) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 1)

	p.mu.Lock()
	p.subs[ch] = struct{}{}
	if p.version > 0 {
		ch <- p.latest
	}
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, ch)
			p.mu.Unlock()
		})
	}
}
