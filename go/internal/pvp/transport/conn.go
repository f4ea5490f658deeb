package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by Read once the connection has been torn down.
var ErrClosed = errors.New("push connection closed")

// Conn is one live push connection. Read blocks until a message arrives or
// the connection drops. Write must be safe to call concurrently with Read.
type Conn interface {
	Read() ([]byte, error)
	Write(data []byte) error
	Close() error
}

// Dialer opens push connections. A failed dial is retried by the Client.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context) (Conn, error) { return f(ctx) }
