package olympiad_client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/olympiad/go/clients"
	"github.com/mcdev12/olympiad/go/internal/pvp/match"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OlympiadClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOlympiadClient(srv.URL)
}

func TestGetMatch_DecodesSnapshot(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/match/7", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get(clients.RequestIDHeader))
		w.Write([]byte(`{"success":true,"match":{"id":7,"status":"active","problem_id":3,
			"player1_id":1,"player2_id":2,"player1":"alice","player2":"bob",
			"player1_answer":"42","player2_answer":null,"player1_time":31,"player2_time":null,
			"problem":{"title":"Life","description":"?","difficulty":1,"category":"math"}}}`))
	})

	m, err := client.GetMatch(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, match.StatusActive, m.Status)
	assert.Equal(t, match.UserID(2), *m.Player2ID)
	assert.Equal(t, "42", *m.Player1Answer)
	assert.Nil(t, m.Player2Answer)
	assert.Equal(t, 31, *m.Player1Time)
	assert.Equal(t, "Life", m.Problem.Title)
}

func TestGetMatch_FailedEnvelopeIsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"Матч не найден"}`))
	})

	_, err := client.GetMatch(context.Background(), 404)
	require.Error(t, err)
	assert.ErrorIs(t, err, match.ErrNotFound)

	var apiErr *match.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Матч не найден", apiErr.Message)
}

func TestCall_ServerErrorIsTransport(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := client.GetMatch(context.Background(), 1)
	assert.ErrorIs(t, err, match.ErrTransport)
}

func TestCall_UnreachableIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewOlympiadClient(url).GetProblem(context.Background(), 1)
	assert.ErrorIs(t, err, match.ErrTransport)
}

func TestCall_ErrorCodeOverridesFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"Вы не участник этого матча","code":"forbidden"}`))
	})

	_, err := client.SubmitMatchAnswer(context.Background(), SubmitAnswerRequest{MatchID: 7, UserID: 9, Answer: "x"})
	assert.ErrorIs(t, err, match.ErrForbidden)
}

func TestSubmitMatchAnswer_NotParticipantWithoutCodeIsForbidden(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"Вы не участник этого матча"}`))
	})

	_, err := client.SubmitMatchAnswer(context.Background(), SubmitAnswerRequest{MatchID: 7, UserID: 9, Answer: "x"})
	assert.ErrorIs(t, err, match.ErrForbidden)

	var apiErr *match.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, MessageNotParticipant, apiErr.Message)
}

func TestJoinMatch_RejectedByDefault(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"Матч уже начат или завершен"}`))
	})

	err := client.JoinMatch(context.Background(), 2, 7)
	assert.ErrorIs(t, err, match.ErrRejected)
}

func TestSubmitMatchAnswer_SendsPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req SubmitAnswerRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, SubmitAnswerRequest{UserID: 1, MatchID: 7, Answer: "42", TimeSpent: 40}, req)

		w.Write([]byte(`{"success":true,"message":"Матч завершен!","match_finished":true,"winner_id":1}`))
	})

	resp, err := client.SubmitMatchAnswer(context.Background(), SubmitAnswerRequest{UserID: 1, MatchID: 7, Answer: "42", TimeSpent: 40})
	require.NoError(t, err)
	assert.True(t, resp.MatchFinished)
	assert.Equal(t, match.UserID(1), *resp.WinnerID)
}

func TestCreateMatchAndLogin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case LoginEndpoint:
			w.Write([]byte(`{"success":true,"user":{"id":1,"username":"alice","rating":1000,"role":"user"}}`))
		case CreateMatchEndpoint:
			w.Write([]byte(`{"success":true,"match_id":7,"message":"Матч создан"}`))
		default:
			http.NotFound(w, r)
		}
	})

	user, err := client.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	created, err := client.CreateMatch(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, match.ID(7), created.MatchID)

	_, err = client.GetPlatformStats(context.Background())
	assert.ErrorIs(t, err, match.ErrNotFound)
}
