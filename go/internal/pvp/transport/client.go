package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/olympiad/go/internal/pvp/match"
	"github.com/mcdev12/olympiad/go/internal/pvp/session"
)

// Announcer supplies the auth payload sent on every (re)connect.
type Announcer interface {
	Announcement() (session.Announcement, bool)
}

// Config holds configuration for the push client
type Config struct {
	ReconnectInterval time.Duration
	EventBuffer       int
}

// DefaultConfig returns default push client configuration
func DefaultConfig() Config {
	return Config{
		ReconnectInterval: 5 * time.Second,
		EventBuffer:       64,
	}
}

// Stream is the event sequence of one connection. Events is closed when the
// connection drops; the next connection gets a new Stream.
type Stream struct {
	ID     string
	events chan Event
}

func (s *Stream) Events() <-chan Event {
	return s.events
}

// Client maintains a single push connection and reconnects forever at a
// fixed interval. Sends are fire-and-forget.
type Client struct {
	dialer    Dialer
	announcer Announcer
	clock     clockwork.Clock
	config    Config

	streams chan *Stream

	mu     sync.Mutex
	conn   Conn
	connID string
}

func NewClient(dialer Dialer, announcer Announcer, clock clockwork.Clock, config Config) *Client {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Client{
		dialer:    dialer,
		announcer: announcer,
		clock:     clock,
		config:    config,
		streams:   make(chan *Stream),
	}
}

// Streams yields one Stream per established connection. It is closed when
// Run returns.
func (c *Client) Streams() <-chan *Stream {
	return c.streams
}

// Run dials, serves and re-dials until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.streams)
	log.Info().Dur("reconnect_interval", c.config.ReconnectInterval).Msg("push client started")

	for {
		conn, err := c.dialer.Dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Msg("push connection failed")
		} else {
			c.serve(ctx, conn)
		}

		if ctx.Err() != nil {
			log.Info().Msg("push client shutting down")
			return nil
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("push client shutting down")
			return nil
		case <-c.clock.After(c.config.ReconnectInterval):
		}
	}
}

func (c *Client) serve(ctx context.Context, conn Conn) {
	stream := &Stream{
		ID:     uuid.NewString(),
		events: make(chan Event, c.config.EventBuffer),
	}
	defer close(stream.events)

	c.mu.Lock()
	c.conn = conn
	c.connID = stream.ID
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
			c.connID = ""
		}
		c.mu.Unlock()
		conn.Close()
		log.Info().Str("conn_id", stream.ID).Msg("push connection closed")
	}()

	log.Info().Str("conn_id", stream.ID).Msg("push connection established")
	c.Announce()

	select {
	case c.streams <- stream:
	case <-ctx.Done():
		return
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		data, err := conn.Read()
		if err != nil {
			if ctx.Err() == nil {
				log.Warn().Err(err).Str("conn_id", stream.ID).Msg("push connection dropped")
			}
			return
		}

		event, err := ParseEvent(data)
		if err != nil {
			log.Warn().Err(err).Str("conn_id", stream.ID).Msg("ignoring push message")
			continue
		}

		select {
		case stream.events <- event:
		case <-ctx.Done():
			return
		}
	}
}

// Connected reports whether a push connection is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Send writes msg to the current connection. With no connection the message
// is dropped; failures are logged and never surfaced.
func (c *Client) Send(msg interface{}) {
	c.mu.Lock()
	conn, connID := c.conn, c.connID
	c.mu.Unlock()

	if conn == nil {
		log.Debug().Interface("message", msg).Msg("no push connection, dropping message")
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal push message")
		return
	}
	if err := conn.Write(data); err != nil {
		log.Warn().Err(err).Str("conn_id", connID).Msg("failed to send push message")
	}
}

// Announce sends the auth message for the current session, if logged in.
func (c *Client) Announce() {
	if c.announcer == nil {
		return
	}
	a, ok := c.announcer.Announcement()
	if !ok {
		return
	}
	c.Send(NewAuthMessage(a.UserID, a.MatchID))
}

// AnswerSubmitted relays a local submission to the opponent.
func (c *Client) AnswerSubmitted(matchID match.ID, userID match.UserID) {
	c.Send(NewAnswerSubmittedMessage(matchID, userID))
}

// Drop closes the current connection. Run reconnects after the usual
// interval.
func (c *Client) Drop() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// Reset drops the connection so the next one re-announces from scratch.
func (c *Client) Reset() {
	c.Drop()
}
