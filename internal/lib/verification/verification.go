package verification

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"user_auth/internal/models"
)

const rawTokenBytes = 32

// Token is a one-time email-verification credential. Raw is handed to the
// user inside the emailed link and is never persisted; only Hash and
// ExpiresAt are stored on the user record.
type Token struct {
	Raw       string
	Hash      string
	ExpiresAt time.Time
}

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

func NewToken(ttl time.Duration) (Token, error) {
	const op = "verification.NewToken"

	buf := make([]byte, rawTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return Token{}, fmt.Errorf("%s: %w", op, err)
	}

	raw := hex.EncodeToString(buf)

	return Token{
		Raw:       raw,
		Hash:      HashToken(raw),
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// HashToken maps a raw token to its stored form. Verification recomputes
// this over the client-supplied value and compares digests, so the raw
// token never needs to be stored or logged.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))

	return hex.EncodeToString(sum[:])
}

func SendVerificationEmail(
	ctx context.Context,
	log *slog.Logger,
	pub Publisher,
	baseURL, email, fullName, rawToken string,
) error {
	verifyLink := fmt.Sprintf("%s/verify-email?token=%s", baseURL, rawToken)

	msg := models.Message{
		Email:   email,
		Name:    fullName,
		Link:    verifyLink,
		Subject: "Account Verification",
	}

	if err := pub.SendMessage(ctx, msg); err != nil {
		log.Error("failed to publish verification email", slog.Any("err", err))

		return err
	}

	return nil
}
