package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/driftlabs/waitlist-api/internal/entity"
	gerr "github.com/driftlabs/waitlist-api/internal/errors"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var signupColumns = []string{
	"id", "email_encrypted", "email_hash", "verified", "verification_token",
	"unsubscribe_token", "unsubscribed", "unsubscribed_at", "source", "referrer",
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"ab_test_variant", "metadata", "created_at", "updated_at",
}

func signupRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(signupColumns).AddRow(
		"id-1", "enc", "hash-1", true, nil,
		"unsub-tok", false, nil, "landing_page", nil,
		nil, nil, nil, nil, nil,
		nil, nil, now, now,
	)
}

func newMockStore(t *testing.T) (*MYSQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &MYSQLStore{db: sqlx.NewDb(db, "mysql")}, mock
}

func TestFindByHash(t *testing.T) {
	ms, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM waitlist_signup WHERE email_hash = \?`).
		WithArgs("hash-1").
		WillReturnRows(signupRow())

	signup, err := ms.FindByHash(context.Background(), "hash-1")
	require.NoError(t, err)
	require.NotNil(t, signup)
	assert.Equal(t, "id-1", signup.ID)
	assert.True(t, signup.Verified)
	assert.Equal(t, "landing_page", signup.Source.String)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByHashNotFound(t *testing.T) {
	ms, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM waitlist_signup WHERE email_hash = \?`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(signupColumns))

	signup, err := ms.FindByHash(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, signup, "absent row must be (nil, nil), not an error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByVerificationToken(t *testing.T) {
	ms, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM waitlist_signup WHERE verification_token = \?`).
		WithArgs("tok").
		WillReturnRows(signupRow())

	signup, err := ms.FindByVerificationToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.NotNil(t, signup)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertDuplicateTranslated(t *testing.T) {
	ms, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO waitlist_signup`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'hash-1' for key 'uq_waitlist_email_hash'"})

	_, err := ms.Insert(context.Background(), &entity.WaitlistSignupInsert{
		ID:               "id-2",
		EmailEncrypted:   "enc",
		EmailHash:        "hash-1",
		UnsubscribeToken: "unsub-tok",
	})
	assert.ErrorIs(t, err, gerr.ErrAlreadyOnWaitlist)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReturnsStoredRow(t *testing.T) {
	ms, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO waitlist_signup`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM waitlist_signup WHERE email_hash = \?`).
		WithArgs("hash-1").
		WillReturnRows(signupRow())

	signup, err := ms.Insert(context.Background(), &entity.WaitlistSignupInsert{
		ID:               "id-1",
		EmailEncrypted:   "enc",
		EmailHash:        "hash-1",
		UnsubscribeToken: "unsub-tok",
		Source:           "landing_page",
	})
	require.NoError(t, err)
	assert.Equal(t, "id-1", signup.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkVerified(t *testing.T) {
	ms, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE waitlist_signup SET verified = true, verification_token = NULL WHERE id = \?`).
		WithArgs("id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, ms.MarkVerified(context.Background(), "id-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkUnsubscribed(t *testing.T) {
	ms, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE waitlist_signup SET unsubscribed = true, unsubscribed_at = NOW\(\) WHERE id = \?`).
		WithArgs("id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, ms.MarkUnsubscribed(context.Background(), "id-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountVerifiedActive(t *testing.T) {
	ms, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM waitlist_signup WHERE verified = true AND unsubscribed = false`).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(42))

	count, err := ms.CountVerifiedActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsBase(t *testing.T) {
	ms, mock := newMockStore(t)

	now := time.Now()
	mock.ExpectQuery(`SELECT verified, created_at, source, unsubscribed FROM waitlist_signup`).
		WillReturnRows(sqlmock.NewRows([]string{"verified", "created_at", "source", "unsubscribed"}).
			AddRow(true, now, "landing_page", false).
			AddRow(false, now, nil, false))

	rows, err := ms.StatsBase(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Verified)
	assert.False(t, rows[1].Source.Valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsErrDuplicateEntry(t *testing.T) {
	assert.True(t, isErrDuplicateEntry(&mysql.MySQLError{Number: 1062}))
	assert.False(t, isErrDuplicateEntry(&mysql.MySQLError{Number: 1045}))
	assert.False(t, isErrDuplicateEntry(assert.AnError))
}
