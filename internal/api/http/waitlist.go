package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"log/slog"

	"github.com/driftlabs/waitlist-api/internal/botcheck"
	"github.com/driftlabs/waitlist-api/internal/crypt"
	"github.com/driftlabs/waitlist-api/internal/entity"
	gerr "github.com/driftlabs/waitlist-api/internal/errors"
	"github.com/driftlabs/waitlist-api/internal/middleware"
	"github.com/driftlabs/waitlist-api/internal/ratelimit"
	"github.com/driftlabs/waitlist-api/internal/validate"
)

const (
	msgJoined        = "You're on the waitlist!"
	msgAlreadyOn     = "You're already on the waitlist"
	msgResent        = "Verification email resent, check your inbox"
	msgTooMany       = "Too many requests, please try again later"
	msgUnsubscribed  = "This email was previously unsubscribed"
	msgInternalError = "Something went wrong, please try again"
)

// handleSubmit is the submission pipeline: rate limit, decode, honeypot,
// structural validation, advanced email validation, bot detection, dedup,
// insert, email dispatch. Bot-shaped traffic gets a success-shaped reply
// with no side effects.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := slog.Default()

	policy := ratelimit.PolicySubmission
	bypass := s.debugBypassed(r)
	if bypass {
		policy = ratelimit.PolicyAdmin
	}
	res := s.limiter.Check(ctx, middleware.GetClientIP(ctx), policy)
	setRateHeaders(w, res)
	if !res.Allowed {
		writeError(w, http.StatusTooManyRequests, msgTooMany)
		return
	}

	var sub validate.Submission
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !bypass {
		if botcheck.HoneypotTripped(sub.Website) {
			l.InfoContext(ctx, "honeypot tripped", slog.String("ip", middleware.GetClientIP(ctx)))
			s.fakeSuccess(w, sub.Email)
			return
		}
	}

	if err := sub.Structure(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if vr := validate.EmailAdvanced(sub.Email); !vr.Valid {
		writeValidationError(w, vr.Reason, vr.Suggestions)
		return
	}

	if !bypass {
		if botcheck.DetectBot(r.UserAgent(), r.Header) {
			l.InfoContext(ctx, "bot detected", slog.String("ip", middleware.GetClientIP(ctx)))
			s.fakeSuccess(w, sub.Email)
			return
		}
	}

	emailHash := s.ec.HashEmail(sub.Email)

	existing, err := s.rep.Waitlist().FindByHash(ctx, emailHash)
	if err != nil {
		l.ErrorContext(ctx, "can't look up signup", slog.String("err", err.Error()))
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	if existing != nil {
		s.respondExisting(w, r, sub.Email, existing)
		return
	}

	signup, err := s.insertSignup(r, &sub, emailHash)
	if errors.Is(err, gerr.ErrAlreadyOnWaitlist) {
		// Lost the unique-key race to a concurrent submit; treat it as
		// a duplicate of whatever won.
		existing, ferr := s.rep.Waitlist().FindByHash(ctx, emailHash)
		if ferr != nil || existing == nil {
			l.ErrorContext(ctx, "can't re-fetch signup after duplicate", slog.String("hash", emailHash))
			writeError(w, http.StatusInternalServerError, msgInternalError)
			return
		}
		s.respondExisting(w, r, sub.Email, existing)
		return
	}
	if err != nil {
		l.ErrorContext(ctx, "can't insert signup", slog.String("err", err.Error()))
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	// Email dispatch failures never fail the submission; the outbox
	// worker retries them.
	if s.policy == entity.RequireEmailVerification {
		if err := s.mailer.SendVerification(ctx, sub.Email, signup.VerificationToken.String); err != nil {
			l.ErrorContext(ctx, "can't send verification email", slog.String("err", err.Error()))
		}
	} else {
		position, cerr := s.rep.Waitlist().CountVerifiedActive(ctx)
		if cerr != nil {
			l.ErrorContext(ctx, "can't count signups for welcome email", slog.String("err", cerr.Error()))
			position = 0
		}
		if err := s.mailer.SendWelcome(ctx, sub.Email, position, signup.UnsubscribeToken); err != nil {
			l.ErrorContext(ctx, "can't send welcome email", slog.String("err", err.Error()))
		}
	}

	writeSuccess(w, http.StatusCreated, msgJoined, submitData{
		ID:                   signup.ID,
		Email:                sub.Email,
		VerificationRequired: s.policy == entity.RequireEmailVerification,
	})
}

// insertSignup builds the row for a brand new submission, minting the id
// and tokens. Under verify_immediately the row is born verified.
func (s *Server) insertSignup(r *http.Request, sub *validate.Submission, emailHash string) (*entity.WaitlistSignup, error) {
	encrypted, err := s.ec.EncryptEmail(sub.Email)
	if err != nil {
		return nil, err
	}
	unsubToken, err := s.ec.NewToken()
	if err != nil {
		return nil, err
	}

	ins := &entity.WaitlistSignupInsert{
		ID:               crypt.NewID(),
		EmailEncrypted:   encrypted,
		EmailHash:        emailHash,
		UnsubscribeToken: unsubToken,
		Source:           sub.Source,
		Referrer:         sub.Referrer,
		UTMSource:        sub.UTMSource,
		UTMMedium:        sub.UTMMedium,
		UTMCampaign:      sub.UTMCampaign,
		UTMTerm:          sub.UTMTerm,
		UTMContent:       sub.UTMContent,
		ABTestVariant:    sub.ABTestVariant,
		Metadata:         sub.Metadata,
	}

	if s.policy == entity.RequireEmailVerification {
		verToken, err := s.ec.NewToken()
		if err != nil {
			return nil, err
		}
		ins.VerificationToken = verToken
	} else {
		ins.Verified = true
	}

	return s.rep.Waitlist().Insert(r.Context(), ins)
}

// respondExisting handles a submission whose email hash is already on the
// list: unsubscribed, verified and pending records each get their own
// outcome.
func (s *Server) respondExisting(w http.ResponseWriter, r *http.Request, email string, existing *entity.WaitlistSignup) {
	ctx := r.Context()
	l := slog.Default()

	if existing.Unsubscribed {
		writeError(w, http.StatusBadRequest, msgUnsubscribed)
		return
	}

	if existing.Verified {
		if s.policy == entity.VerifyImmediately {
			writeError(w, http.StatusConflict, msgAlreadyOn)
			return
		}
		writeSuccess(w, http.StatusOK, msgAlreadyOn, submitData{
			ID:                   existing.ID,
			Email:                email,
			VerificationRequired: false,
		})
		return
	}

	// Pending verification: rotate the token and resend.
	token, err := s.ec.NewToken()
	if err != nil {
		l.ErrorContext(ctx, "can't mint verification token", slog.String("err", err.Error()))
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	if err := s.rep.Waitlist().UpdateVerificationToken(ctx, existing.ID, token); err != nil {
		l.ErrorContext(ctx, "can't rotate verification token", slog.String("err", err.Error()))
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	if err := s.mailer.SendVerification(ctx, email, token); err != nil {
		l.ErrorContext(ctx, "can't resend verification email", slog.String("err", err.Error()))
	}

	writeSuccess(w, http.StatusOK, msgResent, submitData{
		ID:                   existing.ID,
		Email:                email,
		VerificationRequired: true,
	})
}

// fakeSuccess mimics the real created response so bots can't tell they
// were filtered. Nothing is persisted and no email goes out. The echoed
// email gets the same normalization a persisted one would; a raw echo
// would be a one-request oracle for the honeypot.
func (s *Server) fakeSuccess(w http.ResponseWriter, email string) {
	writeSuccess(w, http.StatusCreated, msgJoined, submitData{
		ID:                   crypt.NewID(),
		Email:                strings.ToLower(strings.TrimSpace(email)),
		VerificationRequired: s.policy == entity.RequireEmailVerification,
	})
}

// handleCount returns the public signup count. Store failures degrade to
// the configured fallback value instead of an error.
func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	res := s.limiter.Check(ctx, middleware.GetClientIP(ctx), ratelimit.PolicyGeneral)
	setRateHeaders(w, res)
	if !res.Allowed {
		writeError(w, http.StatusTooManyRequests, msgTooMany)
		return
	}

	count, err := s.rep.Waitlist().CountVerifiedActive(ctx)
	if err != nil {
		slog.Default().ErrorContext(ctx, "can't count signups", slog.String("err", err.Error()))
		count = s.c.CountFallback
	}

	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}
