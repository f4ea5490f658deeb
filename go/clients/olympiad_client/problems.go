package olympiad_client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mcdev12/olympiad/go/internal/pvp/match"
)

type Problem struct {
	ID             int64    `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Answer         string   `json:"answer"`
	Difficulty     int      `json:"difficulty"`
	DifficultyText string   `json:"difficulty_text"`
	Category       string   `json:"category"`
	Tags           []string `json:"tags"`
}

type problemResponse struct {
	Problem *Problem `json:"problem"`
}

func (c *OlympiadClient) GetProblem(ctx context.Context, problemID int64) (*Problem, error) {
	var resp problemResponse
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf(ProblemEndpoint, problemID), nil, match.ErrNotFound, &resp); err != nil {
		return nil, fmt.Errorf("failed to get problem %d: %w", problemID, err)
	}
	if resp.Problem == nil {
		return nil, fmt.Errorf("failed to get problem %d: %w", problemID, match.ErrNotFound)
	}
	return resp.Problem, nil
}
