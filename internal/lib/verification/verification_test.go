package verification

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"user_auth/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	sent []models.Message
	err  error
}

func (p *fakePublisher) SendMessage(_ context.Context, msg models.Message) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, msg)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNewToken(t *testing.T) {
	t.Parallel()

	token, err := NewToken(10 * time.Minute)
	require.NoError(t, err)

	assert.Len(t, token.Raw, 64)
	assert.Equal(t, HashToken(token.Raw), token.Hash)
	assert.NotEqual(t, token.Raw, token.Hash)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), token.ExpiresAt, time.Minute)
}

func TestNewToken_Unique(t *testing.T) {
	t.Parallel()

	a, err := NewToken(time.Minute)
	require.NoError(t, err)

	b, err := NewToken(time.Minute)
	require.NoError(t, err)

	assert.NotEqual(t, a.Raw, b.Raw)
	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestHashToken_Deterministic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
}

func TestSendVerificationEmail(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}

	err := SendVerificationEmail(
		context.Background(),
		discardLogger(),
		pub,
		"http://localhost:8080",
		"jane@x.com",
		"Jane Doe",
		"raw-token",
	)
	require.NoError(t, err)

	require.Len(t, pub.sent, 1)
	msg := pub.sent[0]
	assert.Equal(t, "jane@x.com", msg.Email)
	assert.Equal(t, "Jane Doe", msg.Name)
	assert.Equal(t, "http://localhost:8080/verify-email?token=raw-token", msg.Link)
}

func TestSendVerificationEmail_PublisherError(t *testing.T) {
	t.Parallel()

	pubErr := errors.New("broker down")
	pub := &fakePublisher{err: pubErr}

	err := SendVerificationEmail(
		context.Background(),
		discardLogger(),
		pub,
		"http://localhost:8080",
		"jane@x.com",
		"Jane Doe",
		"raw-token",
	)
	require.ErrorIs(t, err, pubErr)
}
