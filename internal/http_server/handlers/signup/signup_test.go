package signup_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"user_auth/internal/auth"
	"user_auth/internal/auth/authtest"
	"user_auth/internal/config"
	"user_auth/internal/http_server/handlers/signup"
	jwtlib "user_auth/internal/lib/jwt"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*authtest.Publisher, http.HandlerFunc) {
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

	return pub, signup.New(log, validator.New(), authService)
}

func doSignup(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/signup", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	return rec
}

func TestSignup_Success(t *testing.T) {
	t.Parallel()

	pub, handler := setup(t)

	rec := doSignup(t, handler, `{"fullName":"Jane Doe","email":"jane@x.com","password":"secret1"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "Registration successful")
	require.Len(t, pub.Sent(), 1)
	assert.Equal(t, "jane@x.com", pub.Sent()[0].Email)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	t.Parallel()

	_, handler := setup(t)

	rec := doSignup(t, handler, `{"fullName":"Jane Doe","email":"jane@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doSignup(t, handler, `{"fullName":"Jane Doe","email":"jane@x.com","password":"secret2"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already exists")
}

func TestSignup_Validation(t *testing.T) {
	t.Parallel()

	pub, handler := setup(t)

	cases := []struct {
		name string
		body string
	}{
		{"short password", `{"fullName":"Jane Doe","email":"jane@x.com","password":"short"}`},
		{"bad email", `{"fullName":"Jane Doe","email":"nope","password":"secret1"}`},
		{"missing full name", `{"email":"jane@x.com","password":"secret1"}`},
		{"malformed json", `{`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doSignup(t, handler, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	assert.Empty(t, pub.Sent(), "no email may be sent for rejected signups")
}
