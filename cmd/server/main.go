package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/metrorail/fleet-console/fleet"
	"github.com/metrorail/fleet-console/internal/config"
	"github.com/metrorail/fleet-console/server"
	"github.com/metrorail/fleet-console/sessions"
	"github.com/metrorail/fleet-console/upstream"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("config.New: %w", err)
	}
	initLogging(cfg.GetEnv())
	displayAppname(cfg.GetAppName())

	sessionRepo, err := newSessionRepo(cfg)
	if err != nil {
		return fmt.Errorf("session repo: %w", err)
	}

	apiClient := upstream.NewClient(cfg.GetUpstreamBaseURL(), cfg.GetUpstreamTimeout())
	fleetService := fleet.NewService(apiClient)

	srv, err := server.New(cfg, apiClient, fleetService, sessionRepo)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: cfg.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

// newSessionRepo picks Redis when an address is configured, otherwise the
// in-memory store. The in-memory store is fine for a single instance; use
// Redis when running more than one.
func newSessionRepo(cfg config.Config) (sessions.Repo, error) {
	if addr := cfg.GetRedisAddr(); addr != "" {
		log.Info().Str("addr", addr).Msg("Using Redis session store")
		return sessions.NewRedisRepo(context.Background(), addr)
	}
	log.Info().Msg("Using in-memory session store")
	return sessions.NewInMemoryRepo(), nil
}

func initLogging(env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if env == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func listenAndServe(httpServer *http.Server) error {
	log.Info().Str("addr", httpServer.Addr).Msg("Server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
