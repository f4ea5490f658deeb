package olympiad_client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mcdev12/olympiad/go/internal/pvp/match"
)

type User struct {
	ID       match.UserID `json:"id"`
	Username string       `json:"username"`
	Rating   int          `json:"rating"`
	Role     string       `json:"role"`
}

type PlatformStats struct {
	UsersCount       int `json:"users_count"`
	ProblemsCount    int `json:"problems_count"`
	CorrectSolutions int `json:"correct_solutions"`
	MatchesPlayed    int `json:"matches_played"`
}

type CategoryStats struct {
	Category string  `json:"category"`
	Total    int     `json:"total"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

type UserStats struct {
	ID         match.UserID    `json:"id"`
	Username   string          `json:"username"`
	Rating     int             `json:"rating"`
	Role       string          `json:"role"`
	XP         int             `json:"xp"`
	Level      int             `json:"level"`
	Categories []CategoryStats `json:"categories"`
	Stats      struct {
		TotalProblems  int     `json:"total_problems"`
		CorrectAnswers int     `json:"correct_answers"`
		Accuracy       float64 `json:"accuracy"`
		AvgTime        float64 `json:"avg_time"`
		PvPMatches     int     `json:"pvp_matches"`
		PvPWins        int     `json:"pvp_wins"`
		PvPWinrate     float64 `json:"pvp_winrate"`
	} `json:"stats"`
}

type loginResponse struct {
	User *User `json:"user"`
}

type platformStatsResponse struct {
	Stats PlatformStats `json:"stats"`
}

type userStatsResponse struct {
	User *UserStats `json:"user"`
}

func (c *OlympiadClient) Login(ctx context.Context, username, password string) (*User, error) {
	var resp loginResponse
	payload := map[string]string{"username": username, "password": password}
	if err := c.call(ctx, http.MethodPost, LoginEndpoint, payload, match.ErrForbidden, &resp); err != nil {
		return nil, fmt.Errorf("failed to login %q: %w", username, err)
	}
	if resp.User == nil {
		return nil, fmt.Errorf("failed to login %q: %w: empty user", username, match.ErrTransport)
	}
	return resp.User, nil
}

func (c *OlympiadClient) GetPlatformStats(ctx context.Context) (*PlatformStats, error) {
	var resp platformStatsResponse
	if err := c.call(ctx, http.MethodGet, PlatformStatsEndpoint, nil, match.ErrRejected, &resp); err != nil {
		return nil, fmt.Errorf("failed to get platform stats: %w", err)
	}
	return &resp.Stats, nil
}

func (c *OlympiadClient) GetUserStats(ctx context.Context, userID match.UserID) (*UserStats, error) {
	var resp userStatsResponse
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf(UserStatsEndpoint, userID), nil, match.ErrNotFound, &resp); err != nil {
		return nil, fmt.Errorf("failed to get stats for user %d: %w", userID, err)
	}
	if resp.User == nil {
		return nil, fmt.Errorf("failed to get stats for user %d: %w", userID, match.ErrNotFound)
	}
	return resp.User, nil
}
