package repository

import (
	"context"
	"errors"
	"time"

	"medqueue-portal/internal/domain/entity"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository stores portal sessions. Update applies fn atomically
// with respect to other writers of the same session.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session, ttl time.Duration) error
	FindByID(ctx context.Context, id string) (*entity.Session, error)
	Update(ctx context.Context, id string, fn func(*entity.Session) error) (*entity.Session, error)
	Delete(ctx context.Context, id string) error
}
