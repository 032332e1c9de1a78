package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/driftlabs/waitlist-api/internal/dependency"
	"github.com/driftlabs/waitlist-api/internal/entity"
	"github.com/driftlabs/waitlist-api/internal/ratelimit"
	"github.com/stretchr/testify/require"
)

type fakeWaitlist struct {
	byHash       map[string]*entity.WaitlistSignup
	byVerToken   map[string]*entity.WaitlistSignup
	byUnsubToken map[string]*entity.WaitlistSignup
	inserted     []*entity.WaitlistSignupInsert
	insertErr    error
	// raceWinner, when set, becomes visible via FindByHash once Insert
	// has failed, modeling a concurrent submit winning the unique key.
	raceWinner *entity.WaitlistSignup
	findErr    error
	tokenUpdates map[string]string
	verifiedIDs  []string
	unsubbedIDs  []string
	count        int
	countErr     error
	statsRows    []entity.StatsRow
	statsErr     error
}

func newFakeWaitlist() *fakeWaitlist {
	return &fakeWaitlist{
		byHash:       map[string]*entity.WaitlistSignup{},
		byVerToken:   map[string]*entity.WaitlistSignup{},
		byUnsubToken: map[string]*entity.WaitlistSignup{},
		tokenUpdates: map[string]string{},
	}
}

func (f *fakeWaitlist) FindByHash(_ context.Context, hash string) (*entity.WaitlistSignup, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.byHash[hash], nil
}

func (f *fakeWaitlist) FindByVerificationToken(_ context.Context, token string) (*entity.WaitlistSignup, error) {
	return f.byVerToken[token], nil
}

func (f *fakeWaitlist) FindByUnsubscribeToken(_ context.Context, token string) (*entity.WaitlistSignup, error) {
	return f.byUnsubToken[token], nil
}

func (f *fakeWaitlist) Insert(_ context.Context, ins *entity.WaitlistSignupInsert) (*entity.WaitlistSignup, error) {
	if f.insertErr != nil {
		if f.raceWinner != nil {
			f.byHash[ins.EmailHash] = f.raceWinner
		}
		return nil, f.insertErr
	}
	f.inserted = append(f.inserted, ins)
	signup := &entity.WaitlistSignup{
		ID:               ins.ID,
		EmailEncrypted:   ins.EmailEncrypted,
		EmailHash:        ins.EmailHash,
		Verified:         ins.Verified,
		UnsubscribeToken: ins.UnsubscribeToken,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	if ins.VerificationToken != "" {
		signup.VerificationToken.String = ins.VerificationToken
		signup.VerificationToken.Valid = true
	}
	f.byHash[ins.EmailHash] = signup
	return signup, nil
}

func (f *fakeWaitlist) UpdateVerificationToken(_ context.Context, id string, token string) error {
	f.tokenUpdates[id] = token
	return nil
}

func (f *fakeWaitlist) MarkVerified(_ context.Context, id string) error {
	f.verifiedIDs = append(f.verifiedIDs, id)
	return nil
}

func (f *fakeWaitlist) MarkUnsubscribed(_ context.Context, id string) error {
	f.unsubbedIDs = append(f.unsubbedIDs, id)
	return nil
}

func (f *fakeWaitlist) CountVerifiedActive(context.Context) (int, error) {
	return f.count, f.countErr
}

func (f *fakeWaitlist) ListVerifiedActive(context.Context) ([]entity.WaitlistSignup, error) {
	return nil, nil
}

func (f *fakeWaitlist) StatsBase(context.Context) ([]entity.StatsRow, error) {
	return f.statsRows, f.statsErr
}

type fakeMailLog struct{}

func (fakeMailLog) Add(context.Context, *entity.SendEmailLog) (int, error) { return 1, nil }
func (fakeMailLog) UpdateSent(context.Context, int, string) error          { return nil }
func (fakeMailLog) AddError(context.Context, int, string) error            { return nil }
func (fakeMailLog) GetAllUnsent(context.Context) ([]entity.SendEmailLog, error) {
	return nil, nil
}

type fakeRepo struct {
	wl      *fakeWaitlist
	pingErr error
}

func (f *fakeRepo) Waitlist() dependency.Waitlist { return f.wl }
func (f *fakeRepo) MailLog() dependency.MailLog   { return fakeMailLog{} }
func (f *fakeRepo) Ping(context.Context) error    { return f.pingErr }
func (f *fakeRepo) Close()                        {}

type sentWelcome struct {
	to       string
	position int
	token    string
}

type fakeMailer struct {
	err           error
	verifications []string // "to/token"
	welcomes      []sentWelcome
	launches      []string
}

func (f *fakeMailer) Start(context.Context) error { return nil }
func (f *fakeMailer) Stop() error                 { return nil }

func (f *fakeMailer) SendVerification(_ context.Context, to, token string) error {
	if f.err != nil {
		return f.err
	}
	f.verifications = append(f.verifications, to+"/"+token)
	return nil
}

func (f *fakeMailer) SendWelcome(_ context.Context, to string, position int, token string) error {
	if f.err != nil {
		return f.err
	}
	f.welcomes = append(f.welcomes, sentWelcome{to: to, position: position, token: token})
	return nil
}

func (f *fakeMailer) SendLaunchNotification(_ context.Context, to, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.launches = append(f.launches, to)
	return nil
}

type fakeCounter struct {
	counts map[string]int64
	fixed  int64
	err    error
}

func (f *fakeCounter) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	if f.fixed > 0 {
		return f.fixed, window, nil
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return f.counts[key], window, nil
}

type fakeCrypt struct {
	tokens int
}

func (f *fakeCrypt) HashEmail(email string) string { return "h:" + email }

func (f *fakeCrypt) EncryptEmail(email string) (string, error) { return "enc:" + email, nil }

func (f *fakeCrypt) DecryptEmail(ciphertext string) (string, error) {
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

func (f *fakeCrypt) NewToken() (string, error) {
	f.tokens++
	return fmt.Sprintf("tok-%d", f.tokens), nil
}

type testEnv struct {
	h       http.Handler
	wl      *fakeWaitlist
	repo    *fakeRepo
	mailer  *fakeMailer
	counter *fakeCounter
	cfg     *Config
}

func newTestEnv(t *testing.T, policy entity.SignupPolicy) *testEnv {
	t.Helper()

	wl := newFakeWaitlist()
	repo := &fakeRepo{wl: wl}
	mailer := &fakeMailer{}
	counter := &fakeCounter{}
	cfg := &Config{CountFallback: 1200}

	s := &Server{
		c:       cfg,
		policy:  policy,
		rep:     repo,
		mailer:  mailer,
		limiter: ratelimit.New(counter),
		ec:      &fakeCrypt{},
		done:    make(chan struct{}),
	}

	return &testEnv{
		h:       s.router(),
		wl:      wl,
		repo:    repo,
		mailer:  mailer,
		counter: counter,
		cfg:     cfg,
	}
}

// browserRequest builds a request that passes the bot checks.
func browserRequest(method, target, body string) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	r.Header.Set("Accept", "application/json")
	r.Header.Set("Accept-Language", "en-US,en;q=0.9")
	r.Header.Set("Accept-Encoding", "gzip, deflate, br")
	r.RemoteAddr = "203.0.113.7:51234"
	return r
}

func (env *testEnv) do(r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	env.h.ServeHTTP(w, r)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var e envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&e))
	return e
}

func dataField(t *testing.T, e envelope, key string) any {
	t.Helper()
	data, ok := e.Data.(map[string]any)
	require.True(t, ok, "response data is not an object")
	return data[key]
}
