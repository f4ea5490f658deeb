package controller

import (
	"context"

	"github.com/mcdev12/olympiad/go/clients/olympiad_client"
	"github.com/mcdev12/olympiad/go/internal/pvp/fetcher"
	"github.com/mcdev12/olympiad/go/internal/pvp/match"
	"github.com/mcdev12/olympiad/go/internal/pvp/session"
)

// Kind is the lifecycle state of the tracked match.
type Kind int

const (
	KindNoMatch Kind = iota
	KindLoading
	KindTracking
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindTracking:
		return "tracking"
	case KindError:
		return "error"
	default:
		return "no_match"
	}
}

// State is an immutable copy of the controller state. Match is the last
// applied snapshot and survives into Loading so a refresh does not blank the
// view.
type State struct {
	Kind       Kind
	MatchID    match.ID
	Match      *match.Match
	Canonical  *string
	Spectator  bool
	Submitting bool
	// Err is the fetch failure behind KindError.
	Err error
	// ActionErr is the last failed user action (create, join, submit).
	ActionErr error
	Notice    string
}

func (s State) clone() State {
	s.Match = s.Match.Clone()
	if s.Canonical != nil {
		v := *s.Canonical
		s.Canonical = &v
	}
	return s
}

// Frame is what the render sink receives: state plus the viewer it is for.
type Frame struct {
	State   State
	Viewer  *session.User
	Derived *Derived
}

// Sink consumes frames. Render is called from the controller goroutine and
// must not call back into the controller.
type Sink interface {
	Render(frame Frame)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Frame)

func (f SinkFunc) Render(frame Frame) { f(frame) }

// SnapshotFetcher pulls authoritative match state.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, id match.ID) (*fetcher.Snapshot, error)
}

// Backend is the set of participant actions performed over REST.
type Backend interface {
	CreateMatch(ctx context.Context, userID match.UserID) (*olympiad_client.CreateMatchResponse, error)
	JoinMatch(ctx context.Context, userID match.UserID, matchID match.ID) error
	SubmitMatchAnswer(ctx context.Context, req olympiad_client.SubmitAnswerRequest) (*olympiad_client.SubmitAnswerResponse, error)
}

// Notifier is the outbound half of the push channel.
type Notifier interface {
	Announce()
	AnswerSubmitted(matchID match.ID, userID match.UserID)
}

const opponentLeftNotice = "Ваш соперник покинул матч. Создайте новый или присоединитесь к существующему."
