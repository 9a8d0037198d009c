package storage

import "errors"

var (
	ErrUserExists               = errors.New("user already exists")
	ErrUserNotFound             = errors.New("user not found")
	ErrVerificationTokenInvalid = errors.New("verification token not found or expired")
)
