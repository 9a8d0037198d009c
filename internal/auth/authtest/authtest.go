// Package authtest provides in-memory fakes for the auth orchestrator's
// storage and publisher dependencies.
package authtest

import (
	"context"
	"strings"
	"sync"
	"time"

	"user_auth/internal/models"
	"user_auth/internal/storage"
)

type Store struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*models.User
	tokens map[int64][]string

	SaveErr  error
	ClearErr error
}

func NewStore() *Store {
	return &Store{
		users:  make(map[int64]*models.User),
		tokens: make(map[int64][]string),
	}
}

func (s *Store) SaveUser(_ context.Context, user models.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SaveErr != nil {
		return 0, s.SaveErr
	}

	for _, u := range s.users {
		if u.Email == user.Email {
			return 0, storage.ErrUserExists
		}
	}

	s.nextID++
	user.ID = s.nextID
	user.Role = models.RoleUser
	s.users[user.ID] = &user

	return user.ID, nil
}

func (s *Store) UpdateVerificationToken(_ context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok || u.IsVerified {
		return storage.ErrUserNotFound
	}

	u.VerificationTokenHash = &tokenHash
	u.VerificationTokenExpires = &expiresAt

	return nil
}

func (s *Store) VerifyByTokenHash(_ context.Context, tokenHash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.VerificationTokenHash == nil || *u.VerificationTokenHash != tokenHash {
			continue
		}
		if u.VerificationTokenExpires.Before(time.Now()) {
			break
		}

		u.IsVerified = true
		u.VerificationTokenHash = nil
		u.VerificationTokenExpires = nil

		return u.ID, nil
	}

	return 0, storage.ErrVerificationTokenInvalid
}

func (s *Store) AppendRefreshToken(_ context.Context, userID int64, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[userID] = append(s.tokens[userID], tokenHash)

	return nil
}

func (s *Store) ClearRefreshTokens(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ClearErr != nil {
		return s.ClearErr
	}

	delete(s.tokens, userID)

	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return *u, nil
		}
	}

	return models.User{}, storage.ErrUserNotFound
}

func (s *Store) UserByID(_ context.Context, id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return *u, nil
}

func (s *Store) HasRefreshToken(_ context.Context, userID int64, tokenHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range s.tokens[userID] {
		if h == tokenHash {
			return true, nil
		}
	}

	return false, nil
}

// RefreshTokenCount reports how many refresh tokens the user currently has.
func (s *Store) RefreshTokenCount(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.tokens[userID])
}

type Publisher struct {
	mu   sync.Mutex
	sent []models.Message

	Err error
}

func (p *Publisher) SendMessage(_ context.Context, msg models.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return p.Err
	}

	p.sent = append(p.sent, msg)

	return nil
}

func (p *Publisher) Sent() []models.Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]models.Message(nil), p.sent...)
}

// LastToken extracts the raw verification token from the most recently
// emailed link. Empty string when nothing was sent.
func (p *Publisher) LastToken() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.sent) == 0 {
		return ""
	}

	_, token, _ := strings.Cut(p.sent[len(p.sent)-1].Link, "token=")

	return token
}
