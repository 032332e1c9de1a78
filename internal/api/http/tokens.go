package httpapi

import (
	"net/http"

	"log/slog"

	"github.com/driftlabs/waitlist-api/internal/middleware"
	"github.com/driftlabs/waitlist-api/internal/ratelimit"
)

const (
	msgInvalidLink       = "Invalid or expired link"
	msgVerified          = "Email verified, you're on the waitlist"
	msgUnsubscribeDone   = "You've been unsubscribed"
	msgAlreadyUnsubbed   = "You were already unsubscribed"
	msgAlreadyVerifiedOK = "Email already verified"
)

// handleVerify consumes a verification token. Tokens are single use: the
// token column is cleared when the record is marked verified, so replays
// fall into the invalid-link branch.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := slog.Default()

	res := s.limiter.Check(ctx, middleware.GetClientIP(ctx), ratelimit.PolicyVerification)
	setRateHeaders(w, res)
	if !res.Allowed {
		writeError(w, http.StatusTooManyRequests, msgTooMany)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, msgInvalidLink)
		return
	}

	signup, err := s.rep.Waitlist().FindByVerificationToken(ctx, token)
	if err != nil {
		l.ErrorContext(ctx, "can't look up verification token", slog.String("err", err.Error()))
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	if signup == nil {
		writeError(w, http.StatusBadRequest, msgInvalidLink)
		return
	}
	if signup.Unsubscribed {
		writeError(w, http.StatusBadRequest, msgUnsubscribed)
		return
	}
	if signup.Verified {
		writeSuccess(w, http.StatusOK, msgAlreadyVerifiedOK, nil)
		return
	}

	if err := s.rep.Waitlist().MarkVerified(ctx, signup.ID); err != nil {
		l.ErrorContext(ctx, "can't mark signup verified", slog.String("err", err.Error()))
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	position, err := s.rep.Waitlist().CountVerifiedActive(ctx)
	if err != nil {
		l.ErrorContext(ctx, "can't count signups for welcome email", slog.String("err", err.Error()))
		position = 0
	}

	email, err := s.ec.DecryptEmail(signup.EmailEncrypted)
	if err != nil {
		l.ErrorContext(ctx, "can't decrypt signup email", slog.String("err", err.Error()))
	} else if err := s.mailer.SendWelcome(ctx, email, position, signup.UnsubscribeToken); err != nil {
		l.ErrorContext(ctx, "can't send welcome email", slog.String("err", err.Error()))
	}

	writeSuccess(w, http.StatusOK, msgVerified, map[string]int{"position": position})
}

// handleUnsubscribe consumes an unsubscribe token. Idempotent: repeating
// the request keeps returning success.
func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := slog.Default()

	res := s.limiter.Check(ctx, middleware.GetClientIP(ctx), ratelimit.PolicyGeneral)
	setRateHeaders(w, res)
	if !res.Allowed {
		writeError(w, http.StatusTooManyRequests, msgTooMany)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, msgInvalidLink)
		return
	}

	signup, err := s.rep.Waitlist().FindByUnsubscribeToken(ctx, token)
	if err != nil {
		l.ErrorContext(ctx, "can't look up unsubscribe token", slog.String("err", err.Error()))
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	if signup == nil {
		writeError(w, http.StatusBadRequest, msgInvalidLink)
		return
	}
	if signup.Unsubscribed {
		writeSuccess(w, http.StatusOK, msgAlreadyUnsubbed, nil)
		return
	}

	if err := s.rep.Waitlist().MarkUnsubscribed(ctx, signup.ID); err != nil {
		l.ErrorContext(ctx, "can't mark signup unsubscribed", slog.String("err", err.Error()))
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	writeSuccess(w, http.StatusOK, msgUnsubscribeDone, nil)
}
