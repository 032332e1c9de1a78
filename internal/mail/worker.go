package mail

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/driftlabs/waitlist-api/internal/entity"
)

// Start starts the retry worker
func (m *Mailer) Start(ctx context.Context) error {
	if m.ctx != nil && m.cancel != nil {
		return fmt.Errorf("mailer already started")
	}

	m.ctx, m.cancel = context.WithCancel(ctx)
	go m.worker(m.ctx)
	return nil
}

// Stop stops the worker gracefully
func (m *Mailer) Stop() error {
	if m.cancel == nil {
		return fmt.Errorf("mailer already stopped or not started")
	}

	m.cancel()
	m.cancel = nil
	return nil
}

func (m *Mailer) worker(ctx context.Context) {
	ticker := time.NewTicker(m.c.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.handleUnsent(ctx); err != nil {
				slog.Default().ErrorContext(ctx, "can't handle unsent mails",
					slog.String("err", err.Error()),
				)
			}
		case <-ctx.Done():
			return
		}
	}
}

// handleUnsent retries every message whose send has not yet succeeded.
func (m *Mailer) handleUnsent(ctx context.Context) error {
	unsent, err := m.mailLog.GetAllUnsent(ctx)
	if err != nil {
		return fmt.Errorf("can't get unsent mails: %w", err)
	}

	for _, sel := range unsent {
		if err := ctx.Err(); err != nil {
			return err
		}

		to, err := m.ec.DecryptEmail(sel.ToEncrypted)
		if err != nil {
			slog.Default().ErrorContext(ctx, "can't decrypt recipient for retry",
				slog.Int("mail_log_id", sel.ID),
				slog.String("err", err.Error()),
			)
			continue
		}

		e := &entity.Email{
			To:      to,
			Subject: sel.Subject,
			HTML:    sel.HTML,
			Text:    sel.Text,
		}

		if err := m.trySend(ctx, sel.ID, e); err != nil {
			slog.Default().WarnContext(ctx, "retry send failed",
				slog.Int("mail_log_id", sel.ID),
				slog.String("to_hash", sel.ToHash),
				slog.String("err", err.Error()),
			)
		}
	}

	return nil
}
