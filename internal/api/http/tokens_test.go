package httpapi

import (
	"net/http"
	"testing"

	"github.com/driftlabs/waitlist-api/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	env := newTestEnv(t, entity.RequireEmailVerification)
	env.wl.byVerToken["ver-tok"] = existingSignup("id-1", false, false)
	env.wl.count = 12

	w := env.do(browserRequest(http.MethodGet, "/api/waitlist/verify?token=ver-tok", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	e := decodeEnvelope(t, w)
	assert.True(t, e.Success)
	assert.Equal(t, float64(12), dataField(t, e, "position"))

	assert.Equal(t, []string{"id-1"}, env.wl.verifiedIDs)
	require.Len(t, env.mailer.welcomes, 1)
	assert.Equal(t, "user@example.com", env.mailer.welcomes[0].to)
	assert.Equal(t, 12, env.mailer.welcomes[0].position)
	assert.Equal(t, "unsub-tok", env.mailer.welcomes[0].token)

	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
}

func TestVerifyInvalidToken(t *testing.T) {
	env := newTestEnv(t, entity.RequireEmailVerification)

	w := env.do(browserRequest(http.MethodGet, "/api/waitlist/verify?token=nope", ""))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, decodeEnvelope(t, w).Success)
	assert.Empty(t, env.wl.verifiedIDs)
}

func TestVerifyMissingToken(t *testing.T) {
	env := newTestEnv(t, entity.RequireEmailVerification)

	w := env.do(browserRequest(http.MethodGet, "/api/waitlist/verify", ""))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyUnsubscribedRejected(t *testing.T) {
	env := newTestEnv(t, entity.RequireEmailVerification)
	env.wl.byVerToken["ver-tok"] = existingSignup("id-1", false, true)

	w := env.do(browserRequest(http.MethodGet, "/api/waitlist/verify?token=ver-tok", ""))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.wl.verifiedIDs)
}

func TestVerifyAlreadyVerified(t *testing.T) {
	env := newTestEnv(t, entity.RequireEmailVerification)
	env.wl.byVerToken["ver-tok"] = existingSignup("id-1", true, false)

	w := env.do(browserRequest(http.MethodGet, "/api/waitlist/verify?token=ver-tok", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, env.wl.verifiedIDs, "no second mark for an already verified record")
	assert.Empty(t, env.mailer.welcomes)
}

func TestVerifyRateLimited(t *testing.T) {
	env := newTestEnv(t, entity.RequireEmailVerification)
	env.counter.fixed = 11 // over the verification policy max of 10

	w := env.do(browserRequest(http.MethodGet, "/api/waitlist/verify?token=ver-tok", ""))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestUnsubscribe(t *testing.T) {
	env := newTestEnv(t, entity.RequireEmailVerification)
	env.wl.byUnsubToken["unsub-tok"] = existingSignup("id-1", true, false)

	w := env.do(browserRequest(http.MethodGet, "/api/waitlist/unsubscribe?token=unsub-tok", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeEnvelope(t, w).Success)
	assert.Equal(t, []string{"id-1"}, env.wl.unsubbedIDs)
}

func TestUnsubscribeIdempotent(t *testing.T) {
	env := newTestEnv(t, entity.RequireEmailVerification)
	env.wl.byUnsubToken["unsub-tok"] = existingSignup("id-1", true, true)

	w := env.do(browserRequest(http.MethodGet, "/api/waitlist/unsubscribe?token=unsub-tok", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeEnvelope(t, w).Success)
	assert.Empty(t, env.wl.unsubbedIDs, "already unsubscribed records are not re-marked")
}

func TestUnsubscribeInvalidToken(t *testing.T) {
	env := newTestEnv(t, entity.RequireEmailVerification)

	w := env.do(browserRequest(http.MethodGet, "/api/waitlist/unsubscribe?token=nope", ""))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.wl.unsubbedIDs)
}
