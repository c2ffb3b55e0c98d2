// Command server answers 2048 move requests over HTTP and websockets.
//
//	POST /move   {"board": [[2,2,0,0],[0,0,0,0],[0,0,0,0],[0,0,0,0]]}
//	          -> {"move": "left", "scores": {...}, "depth": 4, ...}
//	GET  /ws     stream of {"type":"board","payload":{"board":[...]}} frames
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brensch/twenty48/config"
	"github.com/brensch/twenty48/server"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	listen := fs.String("listen", config.GetEnvOrDefault("LISTEN", ":8080"), "HTTP listen address")
	shutdownTimeout := fs.Duration("shutdown-timeout", config.GetEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 5*time.Second), "Grace period for in-flight requests on shutdown")
	engineFlags := config.RegisterEngine(fs)
	logFlags := config.RegisterLogging(fs)

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	logger, err := logFlags.Logger(os.Stderr)
	if err != nil {
		slog.Error("logging setup", "error", err)
		os.Exit(2)
	}

	srv, err := server.New(engineFlags.Config(nil), logger, version)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              *listen,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("move server listening",
			"addr", *listen,
			"evaluator", engineFlags.Evaluator,
			"depth", engineFlags.Depth,
			"memo_limit", engineFlags.MemoLimit,
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), *shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}
}
