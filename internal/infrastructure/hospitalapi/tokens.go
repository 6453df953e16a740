package hospitalapi

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens is the upstream simplejwt credential pair.
type Tokens struct {
	Access  string
	Refresh string
}

// TokenStore persists upstream credentials for one caller. The portal keeps
// them in the Redis session; tests use MemoryTokenStore.
type TokenStore interface {
	Tokens(ctx context.Context) (Tokens, error)
	SaveTokens(ctx context.Context, tokens Tokens) error
	ClearTokens(ctx context.Context) error
}

type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens Tokens
}

func NewMemoryTokenStore(tokens Tokens) *MemoryTokenStore {
	return &MemoryTokenStore{tokens: tokens}
}

func (s *MemoryTokenStore) Tokens(ctx context.Context) (Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens, nil
}

func (s *MemoryTokenStore) SaveTokens(ctx context.Context, tokens Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = tokens
	return nil
}

func (s *MemoryTokenStore) ClearTokens(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = Tokens{}
	return nil
}

// tokenExpired inspects the exp claim without verifying the signature; the
// portal never holds the upstream signing key. Tokens that are not JWTs or
// carry no exp are treated as valid and left to the 401 path.
func tokenExpired(access string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time.Add(-expirySkew))
}

const expirySkew = 5 * time.Second
