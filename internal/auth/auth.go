package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	jwtlib "user_auth/internal/lib/jwt"
	sl "user_auth/internal/lib/logger"
	"user_auth/internal/lib/verification"
	"user_auth/internal/models"
	"user_auth/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrUserExists               = errors.New("user already exists")
	ErrEmailNotVerified         = errors.New("email not verified")
	ErrInvalidVerificationToken = errors.New("invalid or expired verification token")
	ErrInvalidRefreshToken      = errors.New("invalid refresh token")
	ErrUserNotFound             = errors.New("user not found")
)

type Auth struct {
	log             *slog.Logger
	usrSaver        UserSaver
	usrProvider     UserProvider
	tokens          *jwtlib.TokenManager
	pub             verification.Publisher
	verificationTTL time.Duration
	baseURL         string
}

type UserSaver interface {
	SaveUser(ctx context.Context, user models.User) (uid int64, err error)
	UpdateVerificationToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	VerifyByTokenHash(ctx context.Context, tokenHash string) (int64, error)

	AppendRefreshToken(ctx context.Context, userID int64, tokenHash string) error
	ClearRefreshTokens(ctx context.Context, userID int64) error
}

type UserProvider interface {
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id int64) (models.User, error)
	HasRefreshToken(ctx context.Context, userID int64, tokenHash string) (bool, error)
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	tokens *jwtlib.TokenManager,
	pub verification.Publisher,
	verificationTTL time.Duration,
	baseURL string,
) *Auth {
	return &Auth{
		log:             log,
		usrSaver:        userSaver,
		usrProvider:     userProvider,
		tokens:          tokens,
		pub:             pub,
		verificationTTL: verificationTTL,
		baseURL:         baseURL,
	}
}

// Signup создает нового пользователя и отправляет письмо для подтверждения
// почты. Password hashing happens here, before the record is constructed,
// never as a storage-side hook.
func (a *Auth) Signup(
	ctx context.Context,
	fullName, email, password string,
) (int64, error) {
	const op = "auth.Signup"

	log := a.log.With(slog.String("op", op))

	log.Info("registering new user")

	email = NormalizeEmail(email)

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	token, err := verification.NewToken(a.verificationTTL)
	if err != nil {
		log.Error("failed to generate verification token", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	user := models.User{
		Email:                    email,
		FullName:                 fullName,
		PassHash:                 passHash,
		VerificationTokenHash:    &token.Hash,
		VerificationTokenExpires: &token.ExpiresAt,
	}

	id, err := a.usrSaver.SaveUser(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists")

			return 0, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		log.Error("failed to save user", sl.Err(err))

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	// Email failure surfaces to the caller, no retry.
	err = verification.SendVerificationEmail(ctx, log, a.pub, a.baseURL, email, fullName, token.Raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.Int64("uid", id))

	return id, nil
}

// Login проверяет учетные данные и возвращает пару токенов. Unknown email
// and wrong password both map to ErrInvalidCredentials so the response
// cannot be used to probe which emails are registered.
func (a *Auth) Login(
	ctx context.Context,
	email, password string,
) (models.User, models.TokenPair, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return models.User{}, models.TokenPair{}, ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return models.User{}, models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))
		return models.User{}, models.TokenPair{}, ErrInvalidCredentials
	}

	if !user.IsVerified {
		return models.User{}, models.TokenPair{}, ErrEmailNotVerified
	}

	accessToken, refreshToken, err := a.tokens.NewPair(user.ID)
	if err != nil {
		log.Error("failed to generate tokens", sl.Err(err))
		return models.User{}, models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	err = a.usrSaver.AppendRefreshToken(ctx, user.ID, verification.HashToken(refreshToken))
	if err != nil {
		log.Error("failed to save refresh token", sl.Err(err))
		return models.User{}, models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully", slog.Int64("uid", user.ID))

	return user, models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// VerifyEmail completes registration. The stored hash is cleared in the
// same update that sets the flag, so a raw token verifies at most once.
func (a *Auth) VerifyEmail(ctx context.Context, rawToken string) error {
	const op = "auth.VerifyEmail"

	log := a.log.With(slog.String("op", op))

	uid, err := a.usrSaver.VerifyByTokenHash(ctx, verification.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, storage.ErrVerificationTokenInvalid) {
			log.Warn("invalid or expired verification token")

			return ErrInvalidVerificationToken
		}

		log.Error("failed to verify email", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("email verified successfully", slog.Int64("uid", uid))

	return nil
}

// Refresh обменивает refresh токен на новый access токен. The refresh
// token itself is not rotated.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (string, error) {
	const op = "auth.Refresh"

	log := a.log.With(slog.String("op", op))

	uid, err := a.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		log.Warn("refresh token failed verification", sl.Err(err))
		return "", ErrInvalidRefreshToken
	}

	ok, err := a.usrProvider.HasRefreshToken(ctx, uid, verification.HashToken(refreshToken))
	if err != nil {
		log.Error("failed to check refresh token", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if !ok {
		log.Warn("refresh token revoked or unknown", slog.Int64("uid", uid))
		return "", ErrInvalidRefreshToken
	}

	accessToken, err := a.tokens.NewAccessToken(uid)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("refresh successful", slog.Int64("uid", uid))

	return accessToken, nil
}

// Logout revokes every stored refresh token of the user the presented
// token resolves to. It is best-effort and never reports failure: an
// unverifiable token means there is no session left to revoke anyway.
func (a *Auth) Logout(ctx context.Context, refreshToken string) {
	const op = "auth.Logout"

	log := a.log.With(slog.String("op", op))

	uid, err := a.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		log.Warn("refresh token failed verification on logout", sl.Err(err))
		return
	}

	if err := a.usrSaver.ClearRefreshTokens(ctx, uid); err != nil {
		log.Error("failed to clear refresh tokens", sl.Err(err))
		return
	}

	log.Info("logout successful", slog.Int64("uid", uid))
}

// ResendVerification issues a fresh token and re-sends the email for an
// unverified user. A verified user is a silent no-op so the endpoint does
// not disclose verification state.
func (a *Auth) ResendVerification(ctx context.Context, email string) error {
	const op = "auth.ResendVerification"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if user.IsVerified {
		return nil
	}

	token, err := verification.NewToken(a.verificationTTL)
	if err != nil {
		log.Error("failed to generate verification token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	err = a.usrSaver.UpdateVerificationToken(ctx, user.ID, token.Hash, token.ExpiresAt)
	if err != nil {
		log.Error("failed to update verification token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	err = verification.SendVerificationEmail(ctx, log, a.pub, a.baseURL, user.Email, user.FullName, token.Raw)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("verification email resent", slog.Int64("uid", user.ID))

	return nil
}

// Profile возвращает публичные данные пользователя.
func (a *Auth) Profile(ctx context.Context, userID int64) (models.User, error) {
	const op = "auth.Profile"

	user, err := a.usrProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
