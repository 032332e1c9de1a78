package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/driftlabs/waitlist-api/internal/dependency"
	"github.com/driftlabs/waitlist-api/internal/entity"
)

type mailLogStore struct {
	*MYSQLStore
}

// MailLog returns an object implementing the MailLog interface
func (ms *MYSQLStore) MailLog() dependency.MailLog {
	return &mailLogStore{
		MYSQLStore: ms,
	}
}

func (ms *MYSQLStore) Add(ctx context.Context, sel *entity.SendEmailLog) (int, error) {
	query := `
	INSERT INTO
	send_email_log
		(to_encrypted, to_hash, template, subject, html, text, sent, sent_at)
	VALUES
		(:toEncrypted, :toHash, :template, :subject, :html, :text, :sent, :sentAt)
	`
	params := map[string]any{
		"toEncrypted": sel.ToEncrypted,
		"toHash":      sel.ToHash,
		"template":    sel.Template,
		"subject":     sel.Subject,
		"html":        sel.HTML,
		"text":        sel.Text,
		"sent":        sel.Sent,
	}
	if sel.Sent {
		params["sentAt"] = sql.NullTime{Time: time.Now(), Valid: true}
	} else {
		params["sentAt"] = sql.NullTime{Valid: false}
	}

	id, err := ExecNamedLastId(ctx, ms.DB(), query, params)
	if err != nil {
		return 0, fmt.Errorf("failed to add mail log: %w", err)
	}

	return id, nil
}

func (ms *MYSQLStore) UpdateSent(ctx context.Context, id int, provider string) error {
	query := `UPDATE send_email_log SET sent = true, sent_at = :sentAt, provider = :provider, error_msg = NULL WHERE id = :id`
	err := ExecNamed(ctx, ms.DB(), query, map[string]any{
		"id":       id,
		"provider": provider,
		"sentAt":   sql.NullTime{Time: time.Now(), Valid: true},
	})
	if err != nil {
		return fmt.Errorf("failed to update sent: %w", err)
	}
	return nil
}

func (ms *MYSQLStore) AddError(ctx context.Context, id int, errMsg string) error {
	query := `UPDATE send_email_log SET error_msg = :err WHERE id = :id`
	err := ExecNamed(ctx, ms.DB(), query, map[string]any{
		"id":  id,
		"err": errMsg,
	})
	if err != nil {
		return fmt.Errorf("failed to record send error: %w", err)
	}
	return nil
}

func (ms *MYSQLStore) GetAllUnsent(ctx context.Context) ([]entity.SendEmailLog, error) {
	query := `SELECT * FROM send_email_log WHERE sent = false`
	sels, err := QueryListNamed[entity.SendEmailLog](ctx, ms.DB(), query, map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("failed to get unsent mail: %w", err)
	}
	return sels, nil
}
