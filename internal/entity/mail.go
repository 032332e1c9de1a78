package entity

import (
	"database/sql"
	"time"
)

// Email is a fully built outbound message handed to a provider.
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
	Tags    []string
}

// SendEmailLog is one row of the outbound mail log. The recipient is kept
// encrypted so the retry worker can rebuild the message without plaintext
// at rest.
type SendEmailLog struct {
	ID          int            `db:"id"`
	ToEncrypted string         `db:"to_encrypted"`
	ToHash      string         `db:"to_hash"`
	Template    string         `db:"template"`
	Subject     string         `db:"subject"`
	HTML        string         `db:"html"`
	Text        string         `db:"text"`
	Provider    sql.NullString `db:"provider"`
	Sent        bool           `db:"sent"`
	SentAt      sql.NullTime   `db:"sent_at"`
	ErrMsg      sql.NullString `db:"error_msg"`
	CreatedAt   time.Time      `db:"created_at"`
}
