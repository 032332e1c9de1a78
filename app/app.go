package app

import (
	"context"

	"log/slog"

	"github.com/driftlabs/waitlist-api/config"
	httpapi "github.com/driftlabs/waitlist-api/internal/api/http"
	"github.com/driftlabs/waitlist-api/internal/crypt"
	"github.com/driftlabs/waitlist-api/internal/dependency"
	"github.com/driftlabs/waitlist-api/internal/mail"
	"github.com/driftlabs/waitlist-api/internal/ratelimit"
	"github.com/driftlabs/waitlist-api/internal/store"
)

// App is the main application
type App struct {
	hs     *httpapi.Server
	db     dependency.Repository
	mailer dependency.Mailer
	c      *config.Config
	done   chan struct{}
}

// New returns a new instance of App
func New(c *config.Config) *App {
	return &App{
		c:    c,
		done: make(chan struct{}),
	}
}

// Start starts the app
func (a *App) Start(ctx context.Context) error {
	var err error
	slog.Default().InfoContext(ctx, "starting waitlist api")

	a.db, err = store.New(ctx, a.c.DB)
	if err != nil {
		slog.Default().ErrorContext(ctx, "couldn't connect to mysql", slog.String("err", err.Error()))
		return err
	}

	ec, err := crypt.New(&a.c.Crypto)
	if err != nil {
		slog.Default().ErrorContext(ctx, "can't init crypto helpers", slog.String("err", err.Error()))
		return err
	}

	limiter := ratelimit.New(ratelimit.NewCounterStore(ctx, &a.c.Redis))

	a.mailer, err = mail.New(&a.c.Mailer, a.db.MailLog(), ec)
	if err != nil {
		slog.Default().ErrorContext(ctx, "can't init mailer", slog.String("err", err.Error()))
		return err
	}
	if err := a.mailer.Start(ctx); err != nil {
		slog.Default().ErrorContext(ctx, "can't start mail worker", slog.String("err", err.Error()))
		return err
	}

	a.hs = httpapi.New(&a.c.HTTP)
	if err = a.hs.Start(ctx, a.db, a.mailer, limiter, ec); err != nil {
		slog.Default().ErrorContext(ctx, "cannot start http server", slog.String("err", err.Error()))
		return err
	}

	return nil
}

// Stop stops the application and waits for all services to exit
func (a *App) Stop(ctx context.Context) {
	if a.mailer != nil {
		_ = a.mailer.Stop()
	}
	if a.hs != nil {
		a.hs.Stop(ctx)
	}
	if a.db != nil {
		a.db.Close()
	}
	close(a.done)
}

// Done returns a channel that is closed after the application has exited
func (a *App) Done() chan struct{} {
	return a.done
}
