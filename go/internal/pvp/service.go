package pvp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/olympiad/go/clients/olympiad_client"
	"github.com/mcdev12/olympiad/go/internal/pvp/config"
	"github.com/mcdev12/olympiad/go/internal/pvp/controller"
	"github.com/mcdev12/olympiad/go/internal/pvp/fetcher"
	"github.com/mcdev12/olympiad/go/internal/pvp/match"
	"github.com/mcdev12/olympiad/go/internal/pvp/render"
	"github.com/mcdev12/olympiad/go/internal/pvp/scheduler"
	"github.com/mcdev12/olympiad/go/internal/pvp/session"
	"github.com/mcdev12/olympiad/go/internal/pvp/transport"
)

// API is the REST surface the client consumes.
type API interface {
	fetcher.MatchSource
	controller.Backend
	Login(ctx context.Context, username, password string) (*olympiad_client.User, error)
	ListActiveMatches(ctx context.Context) ([]olympiad_client.MatchSummary, error)
	GetPlatformStats(ctx context.Context) (*olympiad_client.PlatformStats, error)
	GetUserStats(ctx context.Context, userID match.UserID) (*olympiad_client.UserStats, error)
}

// Panel is the top-level screen the user is on.
type Panel string

const (
	PanelHome  Panel = "home"
	PanelPvP   Panel = "pvp"
	PanelStats Panel = "stats"
)

func (p Panel) Valid() bool {
	switch p {
	case PanelHome, PanelPvP, PanelStats:
		return true
	}
	return false
}

const panelPoll scheduler.Kind = "panel"

// Stats is the last successful poll of the statistics panel.
type Stats struct {
	Platform  *olympiad_client.PlatformStats `json:"platform,omitempty"`
	User      *olympiad_client.UserStats     `json:"user,omitempty"`
	UpdatedAt time.Time                      `json:"updated_at"`
}

// Overview is everything an external renderer needs in one read.
type Overview struct {
	Panel         Panel                          `json:"panel"`
	User          *session.User                  `json:"user,omitempty"`
	View          render.View                    `json:"view"`
	ViewVersion   uint64                         `json:"view_version"`
	Matches       []olympiad_client.MatchSummary `json:"matches"`
	Stats         *Stats                         `json:"stats,omitempty"`
	PushConnected bool                           `json:"push_connected"`
}

// Service wires the session, push channel, lifecycle controller and view
// publisher together and owns the panel state around them.
type Service struct {
	config     config.Config
	api        API
	clock      clockwork.Clock
	session    *session.Context
	push       *transport.Client
	controller *controller.Controller
	publisher  *render.Publisher
	tasks      *scheduler.Tasks
	listDirty  chan struct{}

	mu      sync.RWMutex
	runCtx  context.Context
	panel   Panel
	matches []olympiad_client.MatchSummary
	stats   *Stats
}

func NewService(cfg config.Config, api API, dialer transport.Dialer, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	sess := session.New()
	publisher := render.NewPublisher()

	pushConfig := transport.DefaultConfig()
	pushConfig.ReconnectInterval = cfg.Push.ReconnectInterval
	push := transport.NewClient(dialer, sess, clock, pushConfig)

	ctrl := controller.New(sess, fetcher.New(api), api, push, publisher, clock)

	s := &Service{
		config:     cfg,
		api:        api,
		clock:      clock,
		session:    sess,
		push:       push,
		controller: ctrl,
		publisher:  publisher,
		tasks:      scheduler.New(clock),
		listDirty:  make(chan struct{}, 1),
		runCtx:     context.Background(),
		panel:      PanelHome,
	}
	sess.Attach(push, ctrl, s.tasks, session.ResetFunc(s.clearPanels))
	return s
}

// Run drives the controller, the push connection and event dispatch until
// ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.controller.Run(ctx) })
	g.Go(func() error { return s.push.Run(ctx) })
	g.Go(func() error {
		s.dispatch()
		return nil
	})
	g.Go(func() error {
		s.refreshLoop(ctx)
		return nil
	})

	log.Info().Str("transport", s.config.Push.Transport).Msg("pvp service started")
	err := g.Wait()
	s.tasks.StopAll()
	log.Info().Msg("pvp service stopped")
	return err
}

// dispatch feeds every push event to the controller. Any event also marks
// the public match list stale while it is on screen.
func (s *Service) dispatch() {
	for stream := range s.push.Streams() {
		for event := range stream.Events() {
			s.controller.HandlePush(event)
			if s.Panel() == PanelPvP {
				s.markListDirty()
			}
		}
	}
}

// markListDirty never blocks; pending refreshes collapse into one.
func (s *Service) markListDirty() {
	select {
	case s.listDirty <- struct{}{}:
	default:
	}
}

func (s *Service) refreshLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.listDirty:
			s.refreshMatches(ctx)
		}
	}
}

func (s *Service) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return match.Invalid("username and password are required")
	}

	user, err := s.api.Login(ctx, username, password)
	if err != nil {
		return err
	}
	s.session.Login(session.User{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
		Rating:   user.Rating,
	})
	s.push.Announce()

	// Re-render so the view leaves the login screen.
	if err := s.controller.NavigateAway(ctx); err != nil {
		return err
	}
	return s.ShowPanel(ctx, PanelPvP)
}

// Logout is an unconditional reset of every attached component.
func (s *Service) Logout() {
	s.session.Logout()
}

func (s *Service) CreateMatch(ctx context.Context) (match.ID, error) {
	return s.controller.CreateMatch(ctx)
}

func (s *Service) JoinMatch(ctx context.Context, id match.ID) error {
	return s.controller.JoinMatch(ctx, id)
}

func (s *Service) OpenMatch(ctx context.Context, id match.ID) error {
	return s.controller.Open(ctx, id)
}

func (s *Service) SubmitAnswer(ctx context.Context, answer string) error {
	return s.controller.Submit(ctx, answer)
}

func (s *Service) Refresh(ctx context.Context) error {
	return s.controller.Refresh(ctx)
}

// LeaveMatch stops tracking the current match and returns to the match list.
func (s *Service) LeaveMatch(ctx context.Context) error {
	if err := s.controller.NavigateAway(ctx); err != nil {
		return err
	}
	return s.ShowPanel(ctx, PanelPvP)
}

// ShowPanel switches panels. The previous panel's poll is cancelled before
// the new one starts.
func (s *Service) ShowPanel(ctx context.Context, panel Panel) error {
	if !panel.Valid() {
		return match.Invalid("unknown panel %q", panel)
	}

	s.tasks.Stop(panelPoll)

	s.mu.Lock()
	s.panel = panel
	runCtx := s.runCtx
	s.mu.Unlock()

	log.Debug().Str("panel", string(panel)).Msg("panel shown")

	switch panel {
	case PanelPvP:
		s.refreshMatches(ctx)
	case PanelStats:
		s.tasks.Start(runCtx, panelPoll, s.config.StatsInterval, s.pollStats)
	}
	return nil
}

func (s *Service) refreshMatches(ctx context.Context) {
	matches, err := s.api.ListActiveMatches(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load active matches")
		return
	}
	s.mu.Lock()
	s.matches = matches
	s.mu.Unlock()
}

func (s *Service) pollStats(ctx context.Context) {
	platform, err := s.api.GetPlatformStats(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load platform stats")
		return
	}

	stats := &Stats{Platform: platform, UpdatedAt: s.clock.Now()}
	if user, ok := s.session.User(); ok {
		userStats, err := s.api.GetUserStats(ctx, user.ID)
		if err != nil {
			log.Warn().Err(err).Int64("user_id", int64(user.ID)).Msg("failed to load user stats")
		} else {
			stats.User = userStats
		}
	}

	if ctx.Err() != nil {
		return
	}
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
}

func (s *Service) clearPanels() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panel = PanelHome
	s.matches = nil
	s.stats = nil
}

func (s *Service) Panel() Panel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.panel
}

func (s *Service) State() controller.State {
	return s.controller.State()
}

// Subscribe streams view updates; see render.Publisher.
func (s *Service) Subscribe() (<-chan render.View, func()) {
	return s.publisher.Subscribe()
}

func (s *Service) Overview() Overview {
	view, version := s.publisher.Latest()

	s.mu.RLock()
	o := Overview{
		Panel:         s.panel,
		View:          view,
		ViewVersion:   version,
		Matches:       append([]olympiad_client.MatchSummary(nil), s.matches...),
		PushConnected: s.push.Connected(),
	}
	if s.stats != nil {
		st := *s.stats
		o.Stats = &st
	}
	s.mu.RUnlock()

	if user, ok := s.session.User(); ok {
		o.User = &user
	}
	return o
}

func (s *Service) String() string {
	return fmt.Sprintf("pvp service (%s push)", s.config.Push.Transport)
}
