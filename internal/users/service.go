package users

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopd/shopd/internal/apperr"
	"github.com/shopd/shopd/internal/audit"
)

const bcryptCost = 10

type Store interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// AuditRecorder persists login attempts. Implemented by audit.Repo.
type AuditRecorder interface {
	Record(ctx context.Context, e *audit.Entry) error
}

type Service struct {
	store Store
	audit AuditRecorder
	log   *slog.Logger
}

func NewService(store Store, rec AuditRecorder, log *slog.Logger) *Service {
	return &Service{store: store, audit: rec, log: log}
}

func (s *Service) Register(ctx context.Context, name, email, password string) (*User, error) {
	if name == "" || email == "" || password == "" {
		return nil, apperr.Invalid("name, email and password are required")
	}
	if len(password) < 6 {
		return nil, apperr.Invalid("password must be at least 6 characters")
	}
	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return nil, apperr.Invalid("user already exists")
	} else if apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, apperr.Internal(err, "hash password")
	}
	u := &User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// LoginMeta carries request metadata into the audit trail.
type LoginMeta struct {
	IPAddress string
	UserAgent string
}

// Login checks credentials and records every attempt, successful or not.
// The failure response is deliberately generic so callers cannot probe
// which emails are registered.
func (s *Service) Login(ctx context.Context, email, password string, meta LoginMeta) (*User, error) {
	if email == "" || password == "" {
		return nil, apperr.Invalid("email and password are required")
	}

	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			s.recordAttempt(ctx, nil, email, false, "user does not exist", meta)
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.recordAttempt(ctx, u, email, false, "wrong password", meta)
		return nil, apperr.Unauthorized("invalid credentials")
	}

	s.recordAttempt(ctx, u, email, true, "login successful", meta)
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.store.GetByID(ctx, id)
}

// recordAttempt never fails the login flow; audit write errors are logged
// and swallowed.
func (s *Service) recordAttempt(ctx context.Context, u *User, email string, success bool, details string, meta LoginMeta) {
	e := &audit.Entry{
		UserEmail: email,
		UserName:  "unknown",
		Action:    audit.ActionLogin,
		Success:   success,
		Details:   details,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if u != nil {
		e.UserID = u.ID
		e.UserName = u.Name
	}
	if err := s.audit.Record(ctx, e); err != nil {
		s.log.Error("record login audit", "email", email, "err", err)
	}
}
