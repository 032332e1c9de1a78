package entity

import (
	"database/sql"
	"time"
)

// SignupPolicy selects what happens on a first-time submission: either the
// user must confirm via a verification email before being counted, or the
// record is verified immediately and a welcome email is sent.
type SignupPolicy string

const (
	RequireEmailVerification SignupPolicy = "require_verification"
	VerifyImmediately        SignupPolicy = "verify_immediately"
)

// WaitlistSignup represents one email's registration of interest.
// The raw address is stored reversibly encrypted; EmailHash is the
// uniqueness key for dedup lookups.
type WaitlistSignup struct {
	ID                string         `db:"id"`
	EmailEncrypted    string         `db:"email_encrypted"`
	EmailHash         string         `db:"email_hash"`
	Verified          bool           `db:"verified"`
	VerificationToken sql.NullString `db:"verification_token"`
	UnsubscribeToken  string         `db:"unsubscribe_token"`
	Unsubscribed      bool           `db:"unsubscribed"`
	UnsubscribedAt    sql.NullTime   `db:"unsubscribed_at"`
	Source            sql.NullString `db:"source"`
	Referrer          sql.NullString `db:"referrer"`
	UTMSource         sql.NullString `db:"utm_source"`
	UTMMedium         sql.NullString `db:"utm_medium"`
	UTMCampaign       sql.NullString `db:"utm_campaign"`
	UTMTerm           sql.NullString `db:"utm_term"`
	UTMContent        sql.NullString `db:"utm_content"`
	ABTestVariant     sql.NullString `db:"ab_test_variant"`
	Metadata          sql.NullString `db:"metadata"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

// WaitlistSignupInsert carries the fields set at creation. Attribution
// fields are captured once and never mutated afterwards.
type WaitlistSignupInsert struct {
	ID                string
	EmailEncrypted    string
	EmailHash         string
	Verified          bool
	VerificationToken string
	UnsubscribeToken  string
	Source            string
	Referrer          string
	UTMSource         string
	UTMMedium         string
	UTMCampaign       string
	UTMTerm           string
	UTMContent        string
	ABTestVariant     string
	Metadata          string
}

// StatsRow is the minimal projection used for aggregate reporting.
// All aggregation is computed by the caller, not the store.
type StatsRow struct {
	Verified     bool           `db:"verified"`
	CreatedAt    time.Time      `db:"created_at"`
	Source       sql.NullString `db:"source"`
	Unsubscribed bool           `db:"unsubscribed"`
}
