package olympiad_client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mcdev12/olympiad/go/clients"
	"github.com/mcdev12/olympiad/go/internal/pvp/match"
)

// OlympiadClient talks to the quiz platform REST backend. Every response uses
// the `{success: bool, error?: string, ...}` envelope.
type OlympiadClient struct {
	*clients.BaseClient
}

func NewOlympiadClient(baseURL string) *OlympiadClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &OlympiadClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// call performs one request and decodes the envelope into out. A failed
// envelope is reported as a *match.APIError; its kind comes from the optional
// code field or a known message, falling back to onFailure.
func (c *OlympiadClient) call(ctx context.Context, method, endpoint string, payload interface{}, onFailure error, out interface{}) error {
	var (
		body []byte
		err  error
	)
	if method == http.MethodGet {
		body, err = c.Get(ctx, endpoint)
	} else {
		body, err = c.Post(ctx, endpoint, payload)
	}
	if err != nil {
		return classifyRequestError(err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: failed to unmarshal envelope: %w", match.ErrTransport, err)
	}
	if !env.Success {
		return &match.APIError{Kind: kindFor(env.Code, env.Error, onFailure), Message: env.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: failed to unmarshal response: %w, raw response: %s", match.ErrTransport, err, string(body))
	}
	return nil
}

func classifyRequestError(err error) error {
	var statusErr *clients.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", match.ErrNotFound, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %w", match.ErrForbidden, err)
		}
	}
	return fmt.Errorf("%w: %w", match.ErrTransport, err)
}

// kindFor classifies a failed envelope. The backend omits the code for
// participant checks, so that message is matched directly.
func kindFor(code, message string, fallback error) error {
	if code == "" && message == MessageNotParticipant {
		return match.ErrForbidden
	}
	switch code {
	case CodeNotFound:
		return match.ErrNotFound
	case CodeForbidden:
		return match.ErrForbidden
	case CodeInvalid:
		return match.ErrValidation
	}
	if fallback == nil {
		return match.ErrRejected
	}
	return fallback
}
