package olympiad_client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mcdev12/olympiad/go/internal/pvp/match"
)

type CreateMatchResponse struct {
	MatchID match.ID `json:"match_id"`
	Message string   `json:"message"`
}

type MatchResponse struct {
	Match *match.Match `json:"match"`
}

type SubmitAnswerRequest struct {
	UserID    match.UserID `json:"user_id"`
	MatchID   match.ID     `json:"match_id"`
	Answer    string       `json:"answer"`
	TimeSpent int          `json:"time_spent"`
}

type SubmitAnswerResponse struct {
	Message        string        `json:"message"`
	MatchFinished  bool          `json:"match_finished"`
	WinnerID       *match.UserID `json:"winner_id,omitempty"`
	Player1Correct *bool         `json:"player1_correct,omitempty"`
	Player2Correct *bool         `json:"player2_correct,omitempty"`
}

// MatchSummary is a row of the public active-match list.
type MatchSummary struct {
	ID        match.ID     `json:"id"`
	Status    match.Status `json:"status"`
	StartedAt string       `json:"started_at"`
	Player1   string       `json:"player1"`
	Player2   string       `json:"player2"`
	Problem   string       `json:"problem"`
}

type activeMatchesResponse struct {
	Matches []MatchSummary `json:"matches"`
}

func (c *OlympiadClient) CreateMatch(ctx context.Context, userID match.UserID) (*CreateMatchResponse, error) {
	var resp CreateMatchResponse
	payload := map[string]interface{}{"user_id": userID}
	if err := c.call(ctx, http.MethodPost, CreateMatchEndpoint, payload, match.ErrRejected, &resp); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	return &resp, nil
}

func (c *OlympiadClient) JoinMatch(ctx context.Context, userID match.UserID, matchID match.ID) error {
	payload := map[string]interface{}{"user_id": userID, "match_id": matchID}
	if err := c.call(ctx, http.MethodPost, JoinMatchEndpoint, payload, match.ErrRejected, nil); err != nil {
		return fmt.Errorf("failed to join match %d: %w", matchID, err)
	}
	return nil
}

// GetMatch fetches the full snapshot. A failed envelope means the match is absent.
func (c *OlympiadClient) GetMatch(ctx context.Context, matchID match.ID) (*match.Match, error) {
	var resp MatchResponse
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf(MatchEndpoint, matchID), nil, match.ErrNotFound, &resp); err != nil {
		return nil, fmt.Errorf("failed to get match %d: %w", matchID, err)
	}
	if resp.Match == nil {
		return nil, fmt.Errorf("failed to get match %d: %w", matchID, match.ErrNotFound)
	}
	return resp.Match, nil
}

func (c *OlympiadClient) SubmitMatchAnswer(ctx context.Context, req SubmitAnswerRequest) (*SubmitAnswerResponse, error) {
	var resp SubmitAnswerResponse
	if err := c.call(ctx, http.MethodPost, SubmitMatchEndpoint, req, match.ErrRejected, &resp); err != nil {
		return nil, fmt.Errorf("failed to submit answer for match %d: %w", req.MatchID, err)
	}
	return &resp, nil
}

func (c *OlympiadClient) ListActiveMatches(ctx context.Context) ([]MatchSummary, error) {
	var resp activeMatchesResponse
	if err := c.call(ctx, http.MethodGet, ActiveMatchesEndpoint, nil, match.ErrRejected, &resp); err != nil {
		return nil, fmt.Errorf("failed to list active matches: %w", err)
	}
	return resp.Matches, nil
}
