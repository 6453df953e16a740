package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medqueue-portal/internal/domain/entity"
	domainRepo "medqueue-portal/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

const (
	SessionKeyPrefix = "portal:session:"

	// optimistic transaction retries for concurrent Update calls
	sessionUpdateRetries = 5
)

type sessionRepository struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) domainRepo.SessionRepository {
	return &sessionRepository{client: client}
}

func sessionKey(id string) string {
	return SessionKeyPrefix + id
}

func (r *sessionRepository) Create(ctx context.Context, session *entity.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return r.client.Set(ctx, sessionKey(session.ID), data, ttl).Err()
}

func (r *sessionRepository) FindByID(ctx context.Context, id string) (*entity.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domainRepo.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeSession(data)
}

// Update reads, mutates and writes the session inside WATCH/MULTI so that
// concurrent requests of one session do not lose each other's writes. The
// key TTL is preserved.
func (r *sessionRepository) Update(ctx context.Context, id string, fn func(*entity.Session) error) (*entity.Session, error) {
	key := sessionKey(id)
	var updated *entity.Session

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domainRepo.ErrSessionNotFound
		}
		if err != nil {
			return err
		}

		session, err := decodeSession(data)
		if err != nil {
			return err
		}
		if err := fn(session); err != nil {
			return err
		}

		encoded, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, redis.KeepTTL)
			return nil
		})
		if err == nil {
			updated = session
		}
		return err
	}

	for i := 0; i < sessionUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("session %s: too many concurrent updates", id)
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, sessionKey(id)).Err()
}

func decodeSession(data []byte) (*entity.Session, error) {
	var session entity.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}
