package viewserver

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Config holds the view server settings.
type Config struct {
	Addr            string
	WriteTimeout    time.Duration
	PingInterval    time.Duration
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConfig returns the defaults for a local view server on addr.
func DefaultConfig(addr string) Config {
	return Config{
		Addr:            addr,
		WriteTimeout:    10 * time.Second,
		PingInterval:    30 * time.Second,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

func (c Config) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  c.ReadBufferSize,
		WriteBufferSize: c.WriteBufferSize,
		CheckOrigin:     c.CheckOrigin,
	}
}

// NewServer builds the HTTP server: routes, CORS and cleartext HTTP/2.
func NewServer(engine Engine, config Config) *http.Server {
	mux := http.NewServeMux()
	NewHandler(engine, config).RegisterRoutes(mux)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	return &http.Server{
		Addr:    config.Addr,
		Handler: h2c.NewHandler(c.Handler(mux), &http2.Server{}),
	}
}
