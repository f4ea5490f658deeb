package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/olympiad/go/clients/olympiad_client"
	"github.com/mcdev12/olympiad/go/internal/pvp/match"
	"github.com/mcdev12/olympiad/go/internal/pvp/session"
	"github.com/mcdev12/olympiad/go/internal/pvp/transport"
)

// ErrStopped is returned when the controller loop is no longer running.
var ErrStopped = errors.New("controller stopped")

// Controller is the match lifecycle state machine. All state is owned by the
// goroutine running Run; network calls run in their own goroutines and post
// their results back to the inbox.
type Controller struct {
	session  *session.Context
	fetcher  SnapshotFetcher
	backend  Backend
	notifier Notifier
	sink     Sink
	clock    clockwork.Clock

	inbox   chan message
	started chan struct{}
	stopped chan struct{}

	// Owned by the loop goroutine.
	ctx         context.Context
	state       State
	gen         uint64
	epoch       uint64
	submitting  bool
	activeSince time.Time

	mu        sync.RWMutex
	published State
}

func New(sess *session.Context, f SnapshotFetcher, backend Backend, notifier Notifier, sink Sink, clock clockwork.Clock) *Controller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if sink == nil {
		sink = SinkFunc(func(Frame) {})
	}
	return &Controller{
		session:  sess,
		fetcher:  f,
		backend:  backend,
		notifier: notifier,
		sink:     sink,
		clock:    clock,
		inbox:    make(chan message, 64),
		started:  make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Run processes messages until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	close(c.started)
	defer close(c.stopped)

	log.Info().Msg("match controller started")
	c.publish()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("match controller shutting down")
			return nil
		case msg := <-c.inbox:
			c.handle(msg)
		}
	}
}

// State returns the most recently published state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.published.clone()
}

// CreateMatch creates a match on the backend and starts tracking it.
func (c *Controller) CreateMatch(ctx context.Context) (match.ID, error) {
	user, ok := c.session.User()
	if !ok {
		return 0, fmt.Errorf("create match: %w: login required", match.ErrForbidden)
	}

	resp, err := c.backend.CreateMatch(ctx, user.ID)
	if err != nil {
		c.post(actionFailedMsg{err: err})
		return 0, err
	}

	log.Info().Int64("match_id", int64(resp.MatchID)).Int64("user_id", int64(user.ID)).Msg("match created")
	return resp.MatchID, c.Open(ctx, resp.MatchID)
}

// JoinMatch takes the free seat of id and starts tracking it.
func (c *Controller) JoinMatch(ctx context.Context, id match.ID) error {
	if id <= 0 {
		return match.Invalid("match id must be positive, got %d", id)
	}
	user, ok := c.session.User()
	if !ok {
		return fmt.Errorf("join match: %w: login required", match.ErrForbidden)
	}

	if err := c.backend.JoinMatch(ctx, user.ID, id); err != nil {
		c.post(actionFailedMsg{err: err})
		return err
	}

	log.Info().Int64("match_id", int64(id)).Int64("user_id", int64(user.ID)).Msg("joined match")
	return c.Open(ctx, id)
}

// Open tracks id, as a participant or a spectator, and fetches it.
func (c *Controller) Open(ctx context.Context, id match.ID) error {
	if id <= 0 {
		return match.Invalid("match id must be positive, got %d", id)
	}
	done := make(chan struct{})
	return c.call(ctx, openMsg{id: id, done: done}, done)
}

// NavigateAway stops tracking the current match. In-flight fetches are
// discarded when they complete.
func (c *Controller) NavigateAway(ctx context.Context) error {
	done := make(chan struct{})
	return c.call(ctx, navigateMsg{done: done}, done)
}

// Reset returns to NoMatch unconditionally. It is attached to the session
// and runs on logout.
func (c *Controller) Reset() {
	done := make(chan struct{})
	msg := navigateMsg{reset: true, done: done}

	select {
	case <-c.started:
	default:
		// Not running yet: queue behind anything already sent and return.
		select {
		case c.inbox <- msg:
		default:
			log.Warn().Msg("controller inbox full, reset dropped before start")
		}
		return
	}

	if err := c.call(context.Background(), msg, done); err != nil {
		log.Debug().Err(err).Msg("controller reset skipped")
	}
}

// Refresh re-fetches the tracked match. It is the explicit retry out of
// the error state.
func (c *Controller) Refresh(ctx context.Context) error {
	done := make(chan struct{})
	return c.call(ctx, refreshMsg{done: done}, done)
}

// HandlePush feeds one push event. Events only ever trigger fetches.
func (c *Controller) HandlePush(event transport.Event) {
	c.post(pushMsg{event: event})
}

// Submit sends the viewer's answer for the tracked match and blocks until
// the backend has answered.
func (c *Controller) Submit(ctx context.Context, answer string) error {
	if strings.TrimSpace(answer) == "" {
		return match.Invalid("answer must not be empty")
	}

	reply := make(chan error, 1)
	if err := c.send(ctx, submitMsg{answer: answer, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return ErrStopped
	}
}

func (c *Controller) call(ctx context.Context, msg message, done chan struct{}) error {
	if err := c.send(ctx, msg); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return ErrStopped
	}
}

func (c *Controller) send(ctx context.Context, msg message) error {
	select {
	case c.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return ErrStopped
	}
}

func (c *Controller) post(msg message) {
	select {
	case c.inbox <- msg:
	case <-c.stopped:
	}
}

func (c *Controller) handle(msg message) {
	switch m := msg.(type) {
	case openMsg:
		c.open(m.id)
		close(m.done)
	case navigateMsg:
		c.clear(m.reset)
		close(m.done)
	case refreshMsg:
		if id, ok := c.session.TrackedMatch(); ok {
			c.fetch(id)
		}
		close(m.done)
	case pushMsg:
		c.onPush(m.event)
	case actionFailedMsg:
		c.state.ActionErr = m.err
		c.publish()
	case submitMsg:
		c.submit(m)
	case fetchResultMsg:
		c.onFetchResult(m)
	case submitResultMsg:
		c.onSubmitResult(m)
	default:
		log.Error().Str("message", fmt.Sprintf("%T", msg)).Msg("unknown controller message")
	}
}

func (c *Controller) open(id match.ID) {
	c.session.SetTrackedMatch(&id)
	c.epoch++
	c.submitting = false
	c.activeSince = time.Time{}
	c.state = State{Kind: KindLoading, MatchID: id}
	log.Info().Int64("match_id", int64(id)).Msg("tracking match")
	c.fetch(id)
}

func (c *Controller) clear(reset bool) {
	c.session.SetTrackedMatch(nil)
	c.gen++
	c.epoch++
	c.submitting = false
	c.activeSince = time.Time{}

	notice := c.state.Notice
	if reset {
		notice = ""
	}
	c.state = State{Kind: KindNoMatch, Notice: notice}
	c.publish()
}

// fetch issues a new fetch; only the newest generation is ever applied.
func (c *Controller) fetch(id match.ID) {
	c.gen++
	gen := c.gen

	prev := c.state
	c.state = State{
		Kind:      KindLoading,
		MatchID:   id,
		Spectator: prev.Spectator,
		ActionErr: prev.ActionErr,
	}
	if prev.MatchID == id {
		c.state.Match = prev.Match
		c.state.Canonical = prev.Canonical
	}
	c.publish()

	log.Debug().Int64("match_id", int64(id)).Uint64("generation", gen).Msg("fetching match snapshot")
	ctx := c.ctx
	go func() {
		snap, err := c.fetcher.FetchSnapshot(ctx, id)
		c.post(fetchResultMsg{gen: gen, id: id, snap: snap, err: err})
	}()
}

func (c *Controller) onFetchResult(m fetchResultMsg) {
	if m.gen != c.gen {
		log.Debug().
			Int64("match_id", int64(m.id)).
			Uint64("generation", m.gen).
			Uint64("current_generation", c.gen).
			Msg("discarding stale snapshot")
		return
	}

	if m.err != nil {
		log.Warn().Err(m.err).Int64("match_id", int64(m.id)).Msg("match fetch failed")
		c.state = State{
			Kind:      KindError,
			MatchID:   m.id,
			Match:     c.state.Match,
			Canonical: c.state.Canonical,
			Spectator: c.state.Spectator,
			Err:       m.err,
		}
		c.publish()
		return
	}

	prev := c.state.Match
	if prev != nil && prev.ID != m.id {
		prev = nil
	}
	merged := match.Merge(prev, m.snap.Match)

	canonical := m.snap.CanonicalAnswer
	if canonical == nil && prev != nil {
		canonical = c.state.Canonical
	}

	spectator := true
	if user, ok := c.session.User(); ok {
		spectator = merged.SeatOf(user.ID) == match.SeatNone
	}

	if merged.Status == match.StatusActive && c.activeSince.IsZero() {
		c.activeSince = c.clock.Now()
	}

	c.state = State{
		Kind:      KindTracking,
		MatchID:   m.id,
		Match:     merged,
		Canonical: canonical,
		Spectator: spectator,
		ActionErr: c.state.ActionErr,
	}
	log.Debug().
		Int64("match_id", int64(m.id)).
		Str("status", string(merged.Status)).
		Bool("spectator", spectator).
		Msg("applied match snapshot")
	c.publish()

	c.notifier.Announce()
}

func (c *Controller) onPush(event transport.Event) {
	id := event.Match()
	logger := log.With().Str("event_type", string(event.Type())).Int64("match_id", int64(id)).Logger()

	switch e := event.(type) {
	case transport.PlayerLeft:
		if !c.session.ClearTrackedIf(id) {
			logger.Debug().Msg("ignoring player_left for untracked match")
			return
		}
		logger.Info().Str("username", e.Username).Msg("opponent left tracked match")
		c.gen++
		c.epoch++
		c.submitting = false
		c.activeSince = time.Time{}
		c.state = State{Kind: KindNoMatch, Notice: opponentLeftNotice}
		c.publish()
		return

	case transport.MatchStarted:
		if !c.session.IsTracked(id) {
			user, ok := c.session.User()
			if !ok || !e.Names(user.ID) || !c.session.TrackIfIdle(id) {
				logger.Debug().Msg("ignoring match_started for untracked match")
				return
			}
			logger.Info().Msg("adopting started match")
			c.epoch++
			c.submitting = false
			c.activeSince = time.Time{}
			c.state = State{Kind: KindLoading, MatchID: id}
		}

	case transport.Chat:
		logger.Debug().Msg("ignoring chat message")
		return

	default:
		if !c.session.IsTracked(id) {
			logger.Debug().Msg("ignoring push for untracked match")
			return
		}
	}

	c.fetch(id)
}

func (c *Controller) submit(m submitMsg) {
	err := c.checkSubmit()
	if err != nil {
		if errors.Is(err, match.ErrForbidden) && c.state.Match != nil {
			c.state.Spectator = true
			c.publish()
		}
		m.reply <- err
		return
	}

	user, _ := c.session.User()
	req := olympiad_client.SubmitAnswerRequest{
		UserID:    user.ID,
		MatchID:   c.state.MatchID,
		Answer:    m.answer,
		TimeSpent: c.elapsedSeconds(),
	}

	c.submitting = true
	c.state.ActionErr = nil
	c.publish()

	epoch := c.epoch
	ctx := c.ctx
	go func() {
		resp, err := c.backend.SubmitMatchAnswer(ctx, req)
		c.post(submitResultMsg{
			epoch:   epoch,
			matchID: req.MatchID,
			userID:  req.UserID,
			resp:    resp,
			err:     err,
			reply:   m.reply,
		})
	}()
}

func (c *Controller) checkSubmit() error {
	user, ok := c.session.User()
	if !ok {
		return fmt.Errorf("submit: %w: login required", match.ErrForbidden)
	}
	// A refetch in progress keeps the last snapshot; the answer form stays
	// usable against it.
	tracked := c.state.Kind == KindTracking || c.state.Kind == KindLoading
	if !tracked || c.state.Match == nil || c.state.Match.ID != c.state.MatchID {
		return fmt.Errorf("submit: %w: no tracked match", match.ErrConflict)
	}
	if c.submitting {
		return fmt.Errorf("submit: %w: submission in flight", match.ErrConflict)
	}

	m := c.state.Match
	seat := m.SeatOf(user.ID)
	if seat == match.SeatNone {
		return fmt.Errorf("submit: %w: not a participant of match %d", match.ErrForbidden, m.ID)
	}
	if m.Status != match.StatusActive {
		return fmt.Errorf("submit: %w: match %d is %s", match.ErrConflict, m.ID, m.Status)
	}
	if m.Answer(seat) != nil {
		return fmt.Errorf("submit: %w: answer already submitted", match.ErrConflict)
	}
	return nil
}

func (c *Controller) onSubmitResult(m submitResultMsg) {
	defer func() { m.reply <- m.err }()

	if m.epoch != c.epoch {
		log.Debug().Int64("match_id", int64(m.matchID)).Msg("discarding submit result after navigation")
		return
	}
	c.submitting = false

	if m.err != nil {
		log.Warn().Err(m.err).Int64("match_id", int64(m.matchID)).Msg("answer submission failed")
		c.state.ActionErr = m.err
		if errors.Is(m.err, match.ErrForbidden) {
			c.state.Spectator = true
		}
		c.publish()
		return
	}

	log.Info().
		Int64("match_id", int64(m.matchID)).
		Int64("user_id", int64(m.userID)).
		Bool("match_finished", m.resp != nil && m.resp.MatchFinished).
		Msg("answer submitted")

	c.notifier.AnswerSubmitted(m.matchID, m.userID)
	c.fetch(m.matchID)
}

// elapsedSeconds is the time since the match was first seen active, at
// least one second.
func (c *Controller) elapsedSeconds() int {
	if c.activeSince.IsZero() {
		return 1
	}
	secs := int(c.clock.Since(c.activeSince) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

func (c *Controller) publish() {
	c.state.Submitting = c.submitting
	snapshot := c.state.clone()

	c.mu.Lock()
	c.published = snapshot
	c.mu.Unlock()

	frame := Frame{State: snapshot.clone()}
	if user, ok := c.session.User(); ok {
		frame.Viewer = &user
	}
	if snapshot.Match != nil {
		var viewer match.UserID
		if frame.Viewer != nil {
			viewer = frame.Viewer.ID
		}
		d := Derive(snapshot.Match, viewer, snapshot.Canonical)
		frame.Derived = &d
	}
	c.sink.Render(frame)
}
