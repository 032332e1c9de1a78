package main

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/driftlabs/waitlist-api/config"
	"github.com/driftlabs/waitlist-api/internal/crypt"
	"github.com/driftlabs/waitlist-api/internal/dependency"
	"github.com/driftlabs/waitlist-api/internal/mail"
	"github.com/driftlabs/waitlist-api/internal/store"
	"github.com/spf13/cobra"
)

// notifyLaunchCmd sends the launch notification to every verified, still
// subscribed signup. It is meant to be run once, by an operator, at launch.
var notifyLaunchCmd = &cobra.Command{
	Use:   "notify-launch",
	Short: "Send the launch notification email to all verified active signups",
	RunE:  notifyLaunch,
}

func notifyLaunch(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("cannot load a config %v", err.Error())
	}
	ctx := cmd.Context()

	rep, err := store.New(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("couldn't connect to mysql: %w", err)
	}
	defer rep.Close()

	ec, err := crypt.New(&cfg.Crypto)
	if err != nil {
		return fmt.Errorf("can't init crypto helpers: %w", err)
	}

	mailer, err := mail.New(&cfg.Mailer, rep.MailLog(), ec)
	if err != nil {
		return fmt.Errorf("can't init mailer: %w", err)
	}

	signups, err := rep.Waitlist().ListVerifiedActive(ctx)
	if err != nil {
		return fmt.Errorf("can't list verified signups: %w", err)
	}

	var sent, failed int
	for _, s := range signups {
		if err := notifyOne(ctx, mailer, ec, s.EmailEncrypted, s.UnsubscribeToken); err != nil {
			failed++
			slog.Default().ErrorContext(ctx, "can't send launch notification",
				slog.String("email_hash", s.EmailHash),
				slog.String("err", err.Error()),
			)
			continue
		}
		sent++
	}

	slog.Default().InfoContext(ctx, "launch notification run finished",
		slog.Int("sent", sent),
		slog.Int("failed", failed),
	)
	return nil
}

func notifyOne(ctx context.Context, mailer dependency.Mailer, ec *crypt.Crypt, emailEncrypted, unsubscribeToken string) error {
	email, err := ec.DecryptEmail(emailEncrypted)
	if err != nil {
		return fmt.Errorf("can't decrypt email: %w", err)
	}
	return mailer.SendLaunchNotification(ctx, email, unsubscribeToken)
}
