package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	httptransport "github.com/example/daylink/internal/http"
	"github.com/example/daylink/internal/identity"
	"github.com/example/daylink/internal/notify"
)

const shutdownTimeout = 10 * time.Second

// daemon is the wired HTTP API plus the midnight reminder re-arm.
type daemon struct {
	handler http.Handler
	rearm   *notify.DailyRearm
}

// newDaemon follows the profile lifecycle with the reminder scheduler,
// restores a saved session and builds the router.
func (a *app) newDaemon(ctx context.Context) (*daemon, error) {
	a.profiles.Observe(a.reminders)

	if restored, err := a.profiles.Restore(ctx); err != nil {
		a.logger.WarnContext(ctx, "session restore failed", "error", err)
	} else if restored {
		a.logger.InfoContext(ctx, "session restored at start-up")
	}

	rearm, err := notify.NewDailyRearm(a.reminders, a.profiles, a.cfg.Notify.RearmCron, a.logger)
	if err != nil {
		return nil, err
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Session:       httptransport.NewSessionHandler(a.profiles, identity.GeneratePhrase, a.logger),
		Profile:       httptransport.NewProfileHandler(a.profiles, a.logger),
		Meetings:      httptransport.NewMeetingHandler(a.meetings, a.logger),
		Agenda:        httptransport.NewAgendaHandler(a.profiles, a.now, a.logger),
		Calendar:      httptransport.NewCalendarHandler(a.profiles, a.meetings, a.now, a.logger),
		Notifications: httptransport.NewNotificationHandler(a.reminders, a.profiles, a.prompter, a.logger),
		Auth:          httptransport.RequireSession(a.profiles, a.logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.Recoverer(a.logger),
			httptransport.RequestLogger(a.logger),
		},
	})
	return &daemon{handler: router, rearm: rearm}, nil
}

func runServe(ctx context.Context, a *app, args []string) error {
	fs := a.flags("serve")
	listen := fs.String("listen", a.cfg.Listen, "address to listen on")
	if rest, err := parseArgs(fs, args); err != nil || len(rest) > 0 {
		return errUsage
	}

	d, err := a.newDaemon(ctx)
	if err != nil {
		return err
	}
	listener, err := net.Listen("tcp", *listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", *listen, err)
	}
	return a.serve(ctx, d, listener)
}

// serve runs the API on listener and the re-arm loop until ctx is cancelled
// or either of them fails.
func (a *app) serve(ctx context.Context, d *daemon, listener net.Listener) error {
	server := &http.Server{
		Handler:           d.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.InfoContext(gctx, "daylink API listening", "addr", listener.Addr().String())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return d.rearm.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("failed to shutdown server", "error", err)
			return err
		}
		a.logger.Info("daylink API stopped")
		return nil
	})
	return g.Wait()
}
