package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/billingsync/pkg/auth"
	"github.com/angelmondragon/billingsync/pkg/config"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer"}

func mintTestToken(t *testing.T, userID uuid.UUID, email string) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), time.Hour, auth.AccessTokenPayload{UserID: userID, Email: email})
	require.NoError(t, err)
	return token
}

type seenPrincipal struct {
	called bool
	userID string
	email  string
}

func serveAuth(header string) (*httptest.ResponseRecorder, *seenPrincipal) {
	seen := &seenPrincipal{}
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.called = true
		seen.userID = UserIDFromContext(r.Context())
		seen.email = EmailFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/billing/subscription", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp, seen
}

func TestAuthRejectsBadCredentials(t *testing.T) {
	for name, header := range map[string]string{
		"missing":      "",
		"empty bearer": "Bearer   ",
		"garbage":      "Bearer not-a-jwt",
	} {
		resp, seen := serveAuth(header)
		assert.Equal(t, http.StatusUnauthorized, resp.Code, name)
		assert.False(t, seen.called, name)
	}
}

func TestAuthSeedsPrincipal(t *testing.T) {
	userID := uuid.New()
	resp, seen := serveAuth("Bearer " + mintTestToken(t, userID, "buyer@example.com"))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, userID.String(), seen.userID)
	assert.Equal(t, "buyer@example.com", seen.email)
}

func TestAuthAcceptsLowercaseSchemeAndBareToken(t *testing.T) {
	token := mintTestToken(t, uuid.New(), "")

	resp, seen := serveAuth("bearer " + token)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, seen.email)

	resp, _ = serveAuth(token)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("  BEARER   abc "))
	assert.Equal(t, "abc", bearerToken("abc"))
	assert.Equal(t, "", bearerToken("Bearer "))
}
