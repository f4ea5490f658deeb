package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NATSConfig holds configuration for the NATS push channel
type NATSConfig struct {
	URL           string
	Name          string
	SubjectFilter string // e.g., "pvp.events.>"
	PublishPrefix string // client messages go to <prefix>.<type>
	BufferSize    int
}

// DefaultNATSConfig returns default NATS push configuration
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Name:          "pvp-client",
		SubjectFilter: "pvp.events.>",
		PublishPrefix: "pvp.client",
		BufferSize:    64,
	}
}

// NATSDialer treats one NATS connection as one push connection. Library
// reconnects are disabled so the Client's fixed retry interval applies.
type NATSDialer struct {
	config NATSConfig
}

func NewNATSDialer(config NATSConfig) *NATSDialer {
	return &NATSDialer{config: config}
}

func (d *NATSDialer) Dial(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := &natsConn{
		msgs:   make(chan *nats.Msg, d.config.BufferSize),
		closed: make(chan struct{}),
		prefix: d.config.PublishPrefix,
	}

	opts := []nats.Option{
		nats.Name(d.config.Name),
		nats.NoReconnect(),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS push channel disconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			c.markClosed()
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(d.config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	c.nc = nc

	sub, err := nc.ChanSubscribe(d.config.SubjectFilter, c.msgs)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", d.config.SubjectFilter, err)
	}
	c.sub = sub
	return c, nil
}

type natsConn struct {
	nc     *nats.Conn
	sub    *nats.Subscription
	msgs   chan *nats.Msg
	closed chan struct{}
	once   sync.Once
	prefix string
}

func (c *natsConn) markClosed() {
	c.once.Do(func() { close(c.closed) })
}

func (c *natsConn) Read() ([]byte, error) {
	select {
	case msg := <-c.msgs:
		return msg.Data, nil
	case <-c.closed:
		return nil, ErrClosed
	}
}

func (c *natsConn) Write(data []byte) error {
	subject, err := publishSubject(c.prefix, data)
	if err != nil {
		return err
	}
	return c.nc.Publish(subject, data)
}

func (c *natsConn) Close() error {
	if c.sub != nil {
		c.sub.Unsubscribe()
	}
	c.nc.Close()
	c.markClosed()
	return nil
}

// publishSubject derives the subject for a client message from its type tag.
func publishSubject(prefix string, data []byte) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", fmt.Errorf("unmarshal client message: %w", err)
	}
	if head.Type == "" {
		return "", fmt.Errorf("client message without type")
	}
	return prefix + "." + head.Type, nil
}
