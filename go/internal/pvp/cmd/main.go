package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/olympiad/go/clients/olympiad_client"
	"github.com/mcdev12/olympiad/go/internal/pvp"
	"github.com/mcdev12/olympiad/go/internal/pvp/config"
	"github.com/mcdev12/olympiad/go/internal/pvp/transport"
	"github.com/mcdev12/olympiad/go/internal/pvp/viewserver"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults to $PVP_CONFIG)")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	log.Info().
		Str("api_url", cfg.APIURL).
		Str("push_transport", cfg.Push.Transport).
		Str("view_addr", cfg.ViewAddr).
		Msg("starting pvp client")

	api := olympiad_client.NewOlympiadClient(cfg.APIURL)
	service := pvp.NewService(cfg, api, newDialer(cfg.Push), nil)
	server := viewserver.NewServer(service, viewserver.DefaultConfig(cfg.ViewAddr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return service.Run(ctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("view server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("view server shutdown failed")
		}
		return nil
	})

	if cfg.Username != "" {
		g.Go(func() error {
			autoLogin(ctx, service, cfg)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("pvp client failed")
	}
	log.Info().Msg("pvp client shutdown complete")
}

func newDialer(cfg config.PushConfig) transport.Dialer {
	if cfg.Transport == config.TransportNATS {
		natsConfig := transport.DefaultNATSConfig()
		natsConfig.URL = cfg.NATSURL
		return transport.NewNATSDialer(natsConfig)
	}
	return transport.NewWebSocketDialer(transport.DefaultWebSocketConfig(cfg.URL))
}

// autoLogin signs in with configured credentials once the service is up.
func autoLogin(ctx context.Context, service *pvp.Service, cfg config.Config) {
	loginCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := service.Login(loginCtx, cfg.Username, cfg.Password); err != nil {
		log.Error().Err(err).Str("username", cfg.Username).Msg("auto login failed")
		return
	}
	log.Info().Str("username", cfg.Username).Msg("auto login succeeded")
}
