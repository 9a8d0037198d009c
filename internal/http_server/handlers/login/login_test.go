package login_test

import (
	"bytes"
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
	"user_auth/internal/http_server/handlers/login"
	jwtlib "user_auth/internal/lib/jwt"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*auth.Auth, *authtest.Publisher, http.HandlerFunc) {
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

	return authService, pub, login.New(log, validator.New(), authService)
}

func doLogin(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	return rec
}

func signupJane(t *testing.T, a *auth.Auth, pub *authtest.Publisher, verify bool) {
	t.Helper()

	_, err := a.Signup(context.Background(), "Jane Doe", "jane@x.com", "secret1")
	require.NoError(t, err)

	if verify {
		require.NoError(t, a.VerifyEmail(context.Background(), pub.LastToken()))
	}
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	a, pub, handler := setup(t)
	signupJane(t, a, pub, true)

	rec := doLogin(t, handler, `{"email":"jane@x.com","password":"secret1"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var body login.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "jane@x.com", body.Email)
	assert.Equal(t, "Jane Doe", body.FullName)
	assert.Equal(t, "user", body.Role)
	assert.NotEmpty(t, body.AccessToken)
	assert.NotEmpty(t, body.RefreshToken)
}

func TestLogin_UnknownEmailAndWrongPassword_SameResponse(t *testing.T) {
	t.Parallel()

	a, pub, handler := setup(t)
	signupJane(t, a, pub, true)

	unknown := doLogin(t, handler, `{"email":"nobody@x.com","password":"secret1"}`)
	wrongPass := doLogin(t, handler, `{"email":"jane@x.com","password":"wrong-password"}`)

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	assert.Equal(t, unknown.Body.String(), wrongPass.Body.String(),
		"responses must not reveal whether the email exists")
}

func TestLogin_Unverified(t *testing.T) {
	t.Parallel()

	a, pub, handler := setup(t)
	signupJane(t, a, pub, false)

	rec := doLogin(t, handler, `{"email":"jane@x.com","password":"secret1"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLogin_Validation(t *testing.T) {
	t.Parallel()

	_, _, handler := setup(t)

	cases := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"bad email", `{"email":"not-an-email","password":"secret1"}`},
		{"missing password", `{"email":"jane@x.com"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doLogin(t, handler, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
