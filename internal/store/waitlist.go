package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/driftlabs/waitlist-api/internal/dependency"
	"github.com/driftlabs/waitlist-api/internal/entity"
	gerr "github.com/driftlabs/waitlist-api/internal/errors"
)

type waitlistStore struct {
	*MYSQLStore
}

// Waitlist returns an object implementing the Waitlist interface
func (ms *MYSQLStore) Waitlist() dependency.Waitlist {
	return &waitlistStore{
		MYSQLStore: ms,
	}
}

func (ms *MYSQLStore) FindByHash(ctx context.Context, emailHash string) (*entity.WaitlistSignup, error) {
	return ms.findBy(ctx, "email_hash", emailHash)
}

func (ms *MYSQLStore) FindByVerificationToken(ctx context.Context, token string) (*entity.WaitlistSignup, error) {
	return ms.findBy(ctx, "verification_token", token)
}

func (ms *MYSQLStore) FindByUnsubscribeToken(ctx context.Context, token string) (*entity.WaitlistSignup, error) {
	return ms.findBy(ctx, "unsubscribe_token", token)
}

func (ms *MYSQLStore) findBy(ctx context.Context, column, value string) (*entity.WaitlistSignup, error) {
	query := fmt.Sprintf(`SELECT * FROM waitlist_signup WHERE %s = :value`, column)
	signup, err := QueryNamedOne[entity.WaitlistSignup](ctx, ms.DB(), query, map[string]any{
		"value": value,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find signup by %s: %w", column, err)
	}
	return &signup, nil
}

// Insert creates a new waitlist signup. The unique key on email_hash is the
// only dedup guard: a duplicate entry error means a concurrent submission
// won the race and is translated to gerr.ErrAlreadyOnWaitlist so the caller
// can re-run the lookup path.
func (ms *MYSQLStore) Insert(ctx context.Context, ins *entity.WaitlistSignupInsert) (*entity.WaitlistSignup, error) {
	query := `
	INSERT INTO waitlist_signup
		(id, email_encrypted, email_hash, verified, verification_token, unsubscribe_token,
		source, referrer, utm_source, utm_medium, utm_campaign, utm_term, utm_content,
		ab_test_variant, metadata)
	VALUES
		(:id, :emailEncrypted, :emailHash, :verified, :verificationToken, :unsubscribeToken,
		:source, :referrer, :utmSource, :utmMedium, :utmCampaign, :utmTerm, :utmContent,
		:abTestVariant, :metadata)
	`
	params := map[string]any{
		"id":                ins.ID,
		"emailEncrypted":    ins.EmailEncrypted,
		"emailHash":         ins.EmailHash,
		"verified":          ins.Verified,
		"verificationToken": nullString(ins.VerificationToken),
		"unsubscribeToken":  ins.UnsubscribeToken,
		"source":            nullString(ins.Source),
		"referrer":          nullString(ins.Referrer),
		"utmSource":         nullString(ins.UTMSource),
		"utmMedium":         nullString(ins.UTMMedium),
		"utmCampaign":       nullString(ins.UTMCampaign),
		"utmTerm":           nullString(ins.UTMTerm),
		"utmContent":        nullString(ins.UTMContent),
		"abTestVariant":     nullString(ins.ABTestVariant),
		"metadata":          nullString(ins.Metadata),
	}

	if err := ExecNamed(ctx, ms.DB(), query, params); err != nil {
		if isErrDuplicateEntry(err) || strings.Contains(err.Error(), "Duplicate entry") {
			return nil, gerr.ErrAlreadyOnWaitlist
		}
		return nil, fmt.Errorf("failed to insert signup: %w", err)
	}

	signup, err := ms.FindByHash(ctx, ins.EmailHash)
	if err != nil {
		return nil, err
	}
	if signup == nil {
		return nil, fmt.Errorf("signup not found after insert")
	}
	return signup, nil
}

// UpdateVerificationToken replaces the pending verification token, e.g. on
// a resend.
func (ms *MYSQLStore) UpdateVerificationToken(ctx context.Context, id string, token string) error {
	query := `UPDATE waitlist_signup SET verification_token = :token WHERE id = :id`
	err := ExecNamed(ctx, ms.DB(), query, map[string]any{
		"id":    id,
		"token": token,
	})
	if err != nil {
		return fmt.Errorf("failed to update verification token: %w", err)
	}
	return nil
}

// MarkVerified sets verified and clears the pending token. Verified is a
// one-way flag; it never reverts.
func (ms *MYSQLStore) MarkVerified(ctx context.Context, id string) error {
	query := `UPDATE waitlist_signup SET verified = true, verification_token = NULL WHERE id = :id`
	err := ExecNamed(ctx, ms.DB(), query, map[string]any{
		"id": id,
	})
	if err != nil {
		return fmt.Errorf("failed to mark verified: %w", err)
	}
	return nil
}

// MarkUnsubscribed flips the terminal unsubscribed flag.
func (ms *MYSQLStore) MarkUnsubscribed(ctx context.Context, id string) error {
	query := `UPDATE waitlist_signup SET unsubscribed = true, unsubscribed_at = NOW() WHERE id = :id`
	err := ExecNamed(ctx, ms.DB(), query, map[string]any{
		"id": id,
	})
	if err != nil {
		return fmt.Errorf("failed to mark unsubscribed: %w", err)
	}
	return nil
}

// CountVerifiedActive returns the number of verified, still subscribed
// signups. Shown publicly and used as the waitlist position of a new signup.
func (ms *MYSQLStore) CountVerifiedActive(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM waitlist_signup WHERE verified = true AND unsubscribed = false`
	count, err := QueryCountNamed(ctx, ms.DB(), query, map[string]any{})
	if err != nil {
		return 0, fmt.Errorf("failed to count verified signups: %w", err)
	}
	return count, nil
}

// ListVerifiedActive returns all verified, still subscribed signups. Used
// by the launch notification run.
func (ms *MYSQLStore) ListVerifiedActive(ctx context.Context) ([]entity.WaitlistSignup, error) {
	query := `SELECT * FROM waitlist_signup WHERE verified = true AND unsubscribed = false`
	signups, err := QueryListNamed[entity.WaitlistSignup](ctx, ms.DB(), query, map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("failed to list verified signups: %w", err)
	}
	return signups, nil
}

// StatsBase returns the minimal projection for aggregate reporting.
func (ms *MYSQLStore) StatsBase(ctx context.Context) ([]entity.StatsRow, error) {
	query := `SELECT verified, created_at, source, unsubscribed FROM waitlist_signup`
	rows, err := QueryListNamed[entity.StatsRow](ctx, ms.DB(), query, map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("failed to get stats base: %w", err)
	}
	return rows, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
