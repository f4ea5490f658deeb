package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/olympiad/go/internal/pvp/match"
	"github.com/mcdev12/olympiad/go/internal/pvp/session"
)

type fakeConn struct {
	in     chan []byte
	sent   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 16),
		sent:   make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Read() ([]byte, error) {
	select {
	case data := <-c.in:
		return data, nil
	case <-c.closed:
		return nil, ErrClosed
	}
}

func (c *fakeConn) Write(data []byte) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	c.sent <- data
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type dialResult struct {
	conn Conn
	err  error
}

type fakeDialer struct {
	attempts chan struct{}
	results  chan dialResult
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{
		attempts: make(chan struct{}, 16),
		results:  make(chan dialResult, 16),
	}
}

func (d *fakeDialer) Dial(ctx context.Context) (Conn, error) {
	d.attempts <- struct{}{}
	select {
	case r := <-d.results:
		return r.conn, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting")
	}
	var zero T
	return zero
}

func startClient(t *testing.T, dialer Dialer, announcer Announcer) (*Client, *clockwork.FakeClock, context.Context) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	client := NewClient(dialer, announcer, clock, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		client.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return client, clock, ctx
}

func TestClient_ReconnectsAtFixedInterval(t *testing.T) {
	dialer := newFakeDialer()
	_, clock, ctx := startClient(t, dialer, nil)

	waitFor(t, dialer.attempts)
	dialer.results <- dialResult{err: errors.New("connection refused")}

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(4 * time.Second)
	select {
	case <-dialer.attempts:
		t.Fatal("redialed before the reconnect interval")
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(time.Second)
	waitFor(t, dialer.attempts)

	// Failures never exhaust the retry loop.
	dialer.results <- dialResult{err: errors.New("still down")}
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(5 * time.Second)
	waitFor(t, dialer.attempts)
}

func TestClient_StreamPerConnection(t *testing.T) {
	dialer := newFakeDialer()
	client, clock, ctx := startClient(t, dialer, nil)

	first := newFakeConn()
	waitFor(t, dialer.attempts)
	dialer.results <- dialResult{conn: first}

	stream := waitFor(t, client.Streams())
	assert.True(t, client.Connected())

	first.in <- []byte(`{"type":"answer_submitted","match_id":7,"user_id":2}`)
	first.in <- []byte(`{"type":"bogus"}`)
	first.in <- []byte(`{"type":"player_left","match_id":7,"user_id":2,"username":"bob"}`)

	assert.Equal(t, AnswerSubmitted{MatchID: 7, UserID: 2}, waitFor(t, stream.Events()))
	assert.Equal(t, PlayerLeft{MatchID: 7, UserID: 2, Username: "bob"}, waitFor(t, stream.Events()))

	client.Drop()
	_, open := <-stream.Events()
	assert.False(t, open)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.False(t, client.Connected())
	clock.Advance(5 * time.Second)

	second := newFakeConn()
	waitFor(t, dialer.attempts)
	dialer.results <- dialResult{conn: second}

	next := waitFor(t, client.Streams())
	assert.NotEqual(t, stream.ID, next.ID)
}

func TestClient_AnnouncesOnEveryConnect(t *testing.T) {
	sess := session.New()
	sess.Login(session.User{ID: 1, Username: "alice"})
	id := match.ID(7)
	sess.SetTrackedMatch(&id)

	dialer := newFakeDialer()
	client, clock, ctx := startClient(t, dialer, sess)

	for i := 0; i < 2; i++ {
		conn := newFakeConn()
		waitFor(t, dialer.attempts)
		dialer.results <- dialResult{conn: conn}

		auth := waitFor(t, conn.sent)
		assert.JSONEq(t, `{"type":"auth","user_id":1,"match_id":7}`, string(auth))

		stream := waitFor(t, client.Streams())
		conn.Close()
		for range stream.Events() {
		}
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(5 * time.Second)
	}
}

func TestClient_SendWithoutConnectionIsDropped(t *testing.T) {
	client := NewClient(newFakeDialer(), nil, clockwork.NewFakeClock(), DefaultConfig())
	assert.False(t, client.Connected())
	client.AnswerSubmitted(7, 1)
	client.Drop()
}

func TestClient_AnswerSubmittedWire(t *testing.T) {
	dialer := newFakeDialer()
	client, _, _ := startClient(t, dialer, nil)

	conn := newFakeConn()
	waitFor(t, dialer.attempts)
	dialer.results <- dialResult{conn: conn}
	waitFor(t, client.Streams())

	client.AnswerSubmitted(7, 2)
	assert.JSONEq(t, `{"type":"answer_submitted","match_id":7,"user_id":2}`, string(waitFor(t, conn.sent)))
}

func TestWebSocketDialer_RoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan []byte, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, auth, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- auth
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"match_started","match_id":7,"player1_id":1,"player2_id":2}`))
		conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)

	sess := session.New()
	sess.Login(session.User{ID: 1})

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, _ := startClient(t, NewWebSocketDialer(DefaultWebSocketConfig(url)), sess)

	stream := waitFor(t, client.Streams())
	var auth AuthMessage
	require.NoError(t, json.Unmarshal(waitFor(t, received), &auth))
	assert.Equal(t, match.UserID(1), auth.UserID)
	assert.Nil(t, auth.MatchID)

	event := waitFor(t, stream.Events())
	started, ok := event.(MatchStarted)
	require.True(t, ok)
	assert.True(t, started.Names(1))
	assert.False(t, started.Names(3))
}

func TestPublishSubject(t *testing.T) {
	subject, err := publishSubject("pvp.client", []byte(`{"type":"auth","user_id":1}`))
	require.NoError(t, err)
	assert.Equal(t, "pvp.client.auth", subject)

	_, err = publishSubject("pvp.client", []byte(`{"user_id":1}`))
	assert.Error(t, err)
}
