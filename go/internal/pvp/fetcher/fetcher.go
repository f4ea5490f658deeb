package fetcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/olympiad/go/clients/olympiad_client"
	"github.com/mcdev12/olympiad/go/internal/pvp/match"
)

// MatchSource is the subset of the REST client the fetcher reads from.
type MatchSource interface {
	GetMatch(ctx context.Context, matchID match.ID) (*match.Match, error)
	GetProblem(ctx context.Context, problemID int64) (*olympiad_client.Problem, error)
}

// Snapshot is one pulled view of a match. CanonicalAnswer is set only once
// correctness has to be derived locally. CanonicalErr records a failed problem
// lookup; the match itself is still valid.
type Snapshot struct {
	Match           *match.Match
	CanonicalAnswer *string
	CanonicalErr    error
}

// Fetcher pulls full match snapshots. Nothing is cached: every call hits the
// backend.
type Fetcher struct {
	source MatchSource
}

func New(source MatchSource) *Fetcher {
	return &Fetcher{source: source}
}

// FetchSnapshot returns the current snapshot of id. Errors are classified as
// match.ErrNotFound or match.ErrTransport and refer to the match only.
func (f *Fetcher) FetchSnapshot(ctx context.Context, id match.ID) (*Snapshot, error) {
	m, err := f.source.GetMatch(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	if m.ID == 0 {
		m.ID = id
	}
	if err := m.Validate(); err != nil {
		log.Warn().Err(err).Int64("match_id", int64(id)).Msg("match snapshot violates invariants")
	}

	snap := &Snapshot{Match: m}
	if !m.NeedsCanonicalAnswer() {
		return snap, nil
	}

	problem, err := f.source.GetProblem(ctx, m.ProblemID)
	if err != nil {
		snap.CanonicalErr = fmt.Errorf("canonical answer for match %d: %w", id, classify(err))
		log.Warn().
			Err(snap.CanonicalErr).
			Int64("match_id", int64(id)).
			Int64("problem_id", m.ProblemID).
			Msg("showing match without canonical answer")
		return snap, nil
	}
	answer := problem.Answer
	snap.CanonicalAnswer = &answer
	return snap, nil
}

// classify folds every error outside the two fetch kinds into ErrTransport.
func classify(err error) error {
	if errors.Is(err, match.ErrNotFound) || errors.Is(err, match.ErrTransport) {
		return err
	}
	return fmt.Errorf("%w: %w", match.ErrTransport, err)
}
