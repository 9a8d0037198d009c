package jwt

import (
	"errors"
	"fmt"
	"time"

	"user_auth/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenManager issues and parses access/refresh JWT pairs. The two token
// types are signed with independent secrets so that leaking one cannot be
// used to forge the other.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenManager(cfg config.Tokens) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
	}
}

// NewPair issues a short-lived access token and a long-lived refresh token,
// both carrying the user id as the sole claim.
func (m *TokenManager) NewPair(userID int64) (accessToken, refreshToken string, err error) {
	accessToken, err = m.NewAccessToken(userID)
	if err != nil {
		return "", "", err
	}

	refreshToken, err = newToken(userID, m.refreshSecret, m.refreshTTL)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (m *TokenManager) NewAccessToken(userID int64) (string, error) {
	return newToken(userID, m.accessSecret, m.accessTTL)
}

func (m *TokenManager) ParseAccessToken(tokenStr string) (int64, error) {
	return parseToken(tokenStr, m.accessSecret)
}

func (m *TokenManager) ParseRefreshToken(tokenStr string) (int64, error) {
	return parseToken(tokenStr, m.refreshSecret)
}

func newToken(userID int64, secret []byte, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(secret)
}

func parseToken(tokenStr string, secret []byte) (int64, error) {
	const op = "jwt.parseToken"

	claims := jwt.MapClaims{}

	parsedToken, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%s: unexpected signing method", op)
		}
		return secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if !parsedToken.Valid {
		return 0, ErrInvalidToken
	}

	subFloat, ok := claims["sub"].(float64)
	if !ok {
		return 0, fmt.Errorf("%s: missing sub claim", op)
	}

	return int64(subFloat), nil
}
