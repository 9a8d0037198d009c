package authn_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"user_auth/internal/config"
	jwtlib "user_auth/internal/lib/jwt"
	"user_auth/internal/middleware/authn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager() *jwtlib.TokenManager {
	return jwtlib.NewTokenManager(config.Tokens{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    time.Hour,
	})
}

func protectedEcho(t *testing.T, tokens *jwtlib.TokenManager) http.Handler {
	t.Helper()

	log := slog.New(slog.DiscardHandler)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, ok := authn.UserID(r.Context())
		require.True(t, ok)
		require.Equal(t, int64(42), uid)

		w.WriteHeader(http.StatusOK)
	})

	return authn.New(log, tokens)(next)
}

func TestAuthn_ValidToken(t *testing.T) {
	t.Parallel()

	tokens := newManager()
	handler := protectedEcho(t, tokens)

	accessToken, err := tokens.NewAccessToken(42)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthn_Rejections(t *testing.T) {
	t.Parallel()

	tokens := newManager()

	refreshManager := newManager()
	_, refreshToken, err := refreshManager.NewPair(42)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"empty bearer", "Bearer "},
		{"garbage token", "Bearer garbage"},
		{"refresh token used as access", "Bearer " + refreshToken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := protectedEcho(t, tokens)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
