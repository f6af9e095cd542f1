package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spotify-relay-go/config"
	"spotify-relay-go/logcolors"

	log "github.com/sirupsen/logrus"
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)
}

func main() {
	if err := run(config.Get()); err != nil {
		log.Fatalf("%s %v", logcolors.LogServer, err)
	}
}

func run(cfg config.Config) error {
	if level, err := log.ParseLevel(cfg.Configuration.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.Warnf("%s Unknown LOG_LEVEL %q, keeping info", logcolors.LogConfig, cfg.Configuration.LogLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openCredentialStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	logStartupWarnings(ctx, cfg, store)
	srv := newServer(cfg, store)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Configuration.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("%s Listening on port %s", logcolors.LogServer, cfg.Configuration.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Infof("%s Shutting down", logcolors.LogServer)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Configuration.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
