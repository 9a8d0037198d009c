package profile_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"user_auth/internal/auth"
	"user_auth/internal/auth/authtest"
	"user_auth/internal/config"
	"user_auth/internal/http_server/handlers/profile"
	jwtlib "user_auth/internal/lib/jwt"
	"user_auth/internal/middleware/authn"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*auth.Auth, *jwtlib.TokenManager, *authtest.Publisher, http.Handler) {
	t.Helper()

	store := authtest.NewStore()
	pub := &authtest.Publisher{}

	tokens := jwtlib.NewTokenManager(config.Tokens{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    time.Hour,
	})

	log := slog.New(slog.DiscardHandler)
	authService := auth.New(log, store, store, tokens, pub, 10*time.Minute, "http://localhost:8080")

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(authn.New(log, tokens))
		r.Get("/profile", profile.New(log, authService))
	})

	return authService, tokens, pub, r
}

func doProfile(t *testing.T, handler http.Handler, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	return rec
}

func TestProfile_Success(t *testing.T) {
	t.Parallel()

	a, _, pub, handler := setup(t)

	_, err := a.Signup(context.Background(), "Jane Doe", "jane@x.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, a.VerifyEmail(context.Background(), pub.LastToken()))

	_, tokens, err := a.Login(context.Background(), "jane@x.com", "secret1")
	require.NoError(t, err)

	rec := doProfile(t, handler, tokens.AccessToken)

	require.Equal(t, http.StatusOK, rec.Code)

	var body profile.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "Jane Doe", body.FullName)
	assert.Equal(t, "jane@x.com", body.Email)
	assert.Equal(t, "user", body.Role)
}

func TestProfile_NoToken(t *testing.T) {
	t.Parallel()

	_, _, _, handler := setup(t)

	rec := doProfile(t, handler, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfile_BadToken(t *testing.T) {
	t.Parallel()

	_, _, _, handler := setup(t)

	rec := doProfile(t, handler, "garbage")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfile_UnknownUser(t *testing.T) {
	t.Parallel()

	_, tokens, _, handler := setup(t)

	// Token is valid but no such user exists in the store.
	accessToken, err := tokens.NewAccessToken(999)
	require.NoError(t, err)

	rec := doProfile(t, handler, accessToken)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
