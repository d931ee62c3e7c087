package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
)

const secret = "test-secret"

func TestJWTVerifierRoundTrip(t *testing.T) {
	token, err := IssueToken(secret, Identity{UserID: "u-1", Email: "ana@example.com"}, time.Minute)
	require.NoError(t, err)

	identity, err := NewJWTVerifier(secret).Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", identity.UserID)
	assert.Equal(t, "ana", identity.DisplayName())
}

func TestJWTVerifierRejects(t *testing.T) {
	verifier := NewJWTVerifier(secret)

	expired, err := IssueToken(secret, Identity{UserID: "u-1"}, -time.Minute)
	require.NoError(t, err)
	_, err = verifier.Verify(context.Background(), expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongKey, err := IssueToken("other", Identity{UserID: "u-1"}, time.Minute)
	require.NoError(t, err)
	_, err = verifier.Verify(context.Background(), wrongKey)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = verifier.Verify(context.Background(), noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	handler := Middleware(NewJWTVerifier(secret), pkgApp.NopLogger{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := FromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(identity.UserID))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"unauthenticated"`)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := IssueToken(secret, Identity{UserID: "u-9"}, time.Minute)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-9", rec.Body.String())
}

func TestDisplayNameFallbacks(t *testing.T) {
	assert.Equal(t, "u-1", Identity{UserID: "u-1"}.DisplayName())
	assert.Equal(t, "weird", Identity{UserID: "u-1", Email: "weird"}.DisplayName())
}
