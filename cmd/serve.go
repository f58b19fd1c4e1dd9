package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/meetingbaas/settings/internal/server"
	"github.com/meetingbaas/settings/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the email preferences page until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if h := cmd.String("host"); h != "" {
		cfg.Host = h
	}
	if p := cmd.Int("port"); p > 0 {
		cfg.Port = p
	}

	engine, machine, err := r.machine(ctx)
	if err != nil {
		return err
	}

	handler := server.NewUnsubscribeHandler(machine, engine, r.logger)
	defer handler.Close()

	router := server.NewPreferencesRouter(handler, r.logger)
	srv := server.NewHTTPServer(cfg.Address(), router)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go r.logResults(ctx, handler.Results())

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("serving email preferences", "addr", "http://"+cfg.Address()+"/email-preferences/")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (r *Runner) logResults(ctx context.Context, results <-chan server.UnsubscribeResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-results:
			if !ok {
				return
			}
			switch {
			case res.Cancelled:
				r.logger.Info("unsubscribe cancelled", "target", res.Target.Label)
			case res.Err != nil:
				r.logger.Warn("unsubscribe failed", "target", res.Target.Label, "error", res.Err)
			default:
				r.logger.Info("unsubscribed", "target", res.Target.Label)
			}
		}
	}
}
