package dependency

import (
	"context"
	"database/sql"
	"time"

	"github.com/driftlabs/waitlist-api/internal/entity"
	"github.com/jmoiron/sqlx"
)

type (
	// DB is the narrow sqlx surface the store helpers need.
	DB interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
		QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
		QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
	}

	// Waitlist holds the persisted signup operations. FindBy* methods
	// return (nil, nil) when no matching row exists.
	Waitlist interface {
		FindByHash(ctx context.Context, emailHash string) (*entity.WaitlistSignup, error)
		FindByVerificationToken(ctx context.Context, token string) (*entity.WaitlistSignup, error)
		FindByUnsubscribeToken(ctx context.Context, token string) (*entity.WaitlistSignup, error)
		// Insert creates a new signup. A concurrent insert racing on the
		// same email hash surfaces as gerr.ErrAlreadyOnWaitlist.
		Insert(ctx context.Context, ins *entity.WaitlistSignupInsert) (*entity.WaitlistSignup, error)
		UpdateVerificationToken(ctx context.Context, id string, token string) error
		MarkVerified(ctx context.Context, id string) error
		MarkUnsubscribed(ctx context.Context, id string) error
		CountVerifiedActive(ctx context.Context) (int, error)
		ListVerifiedActive(ctx context.Context) ([]entity.WaitlistSignup, error)
		StatsBase(ctx context.Context) ([]entity.StatsRow, error)
	}

	// MailLog records every outbound send attempt so failed sends can be
	// retried by the mail worker.
	MailLog interface {
		Add(ctx context.Context, sel *entity.SendEmailLog) (int, error)
		UpdateSent(ctx context.Context, id int, provider string) error
		AddError(ctx context.Context, id int, errMsg string) error
		GetAllUnsent(ctx context.Context) ([]entity.SendEmailLog, error)
	}

	Repository interface {
		Waitlist() Waitlist
		MailLog() MailLog
		Ping(ctx context.Context) error
		Close()
	}

	// CounterStore is the rate limiter backend: an atomic
	// increment-and-expire counter per key.
	CounterStore interface {
		Incr(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
	}

	// EmailCrypt covers the identity helpers used across the pipeline.
	EmailCrypt interface {
		HashEmail(email string) string
		EncryptEmail(email string) (string, error)
		DecryptEmail(ciphertext string) (string, error)
		NewToken() (string, error)
	}

	Mailer interface {
		Start(ctx context.Context) error
		Stop() error
		SendVerification(ctx context.Context, to, verificationToken string) error
		SendWelcome(ctx context.Context, to string, position int, unsubscribeToken string) error
		SendLaunchNotification(ctx context.Context, to, unsubscribeToken string) error
	}

	// Provider is one transactional email vendor in the fallback chain.
	Provider interface {
		Name() string
		IsConfigured() bool
		Send(ctx context.Context, e *entity.Email) error
		TestConnection(ctx context.Context) error
	}
)
