package usecase

import (
	"context"
	"sync"
	"time"

	"medqueue-portal/internal/domain/entity"
	"medqueue-portal/internal/domain/repository"
	"medqueue-portal/internal/infrastructure/hospitalapi"
	"medqueue-portal/internal/service"
	"medqueue-portal/pkg/validator"

	"github.com/sirupsen/logrus"
)

// sessionTokenStore keeps upstream tokens inside the Redis session so every
// portal replica sees refreshed credentials.
type sessionTokenStore struct {
	sessionID   string
	sessionRepo repository.SessionRepository
}

func NewSessionTokenStore(sessionID string, sessionRepo repository.SessionRepository) hospitalapi.TokenStore {
	return &sessionTokenStore{sessionID: sessionID, sessionRepo: sessionRepo}
}

func (s *sessionTokenStore) Tokens(ctx context.Context) (hospitalapi.Tokens, error) {
	session, err := s.sessionRepo.FindByID(ctx, s.sessionID)
	if err != nil {
		return hospitalapi.Tokens{}, err
	}
	return hospitalapi.Tokens{Access: session.AccessToken, Refresh: session.RefreshToken}, nil
}

func (s *sessionTokenStore) SaveTokens(ctx context.Context, tokens hospitalapi.Tokens) error {
	_, err := s.sessionRepo.Update(ctx, s.sessionID, func(session *entity.Session) error {
		session.AccessToken = tokens.Access
		session.RefreshToken = tokens.Refresh
		return nil
	})
	return err
}

func (s *sessionTokenStore) ClearTokens(ctx context.Context) error {
	_, err := s.sessionRepo.Update(ctx, s.sessionID, func(session *entity.Session) error {
		session.AccessToken = ""
		session.RefreshToken = ""
		return nil
	})
	return err
}

// SessionScope is the in-process state of one portal session.
type SessionScope struct {
	SessionID string
	API       HospitalAPI
	Cache     DataCache
	Wizard    BookingWizard

	lastUsed time.Time
}

// SessionRegistry hands out the scope of a session, creating it on first
// use. Scopes are dropped on logout or after sitting idle.
type SessionRegistry interface {
	Scope(session *entity.Session) *SessionScope
	Drop(sessionID string)
	Sweep(now time.Time) int
}

type SessionRegistryDeps struct {
	SessionRepo repository.SessionRepository
	APIFactory  HospitalAPIFactory
	Audit       service.AuditService
	Validator   *validator.CustomValidator
	Clock       TimeProvider
	Log         *logrus.Logger
	SlotPolicy  SlotPolicy
	IdleTimeout time.Duration
}

type sessionRegistry struct {
	deps SessionRegistryDeps

	mu     sync.Mutex
	scopes map[string]*SessionScope
}

func NewSessionRegistry(deps SessionRegistryDeps) SessionRegistry {
	if deps.Clock == nil {
		deps.Clock = &RealTimeProvider{}
	}
	if deps.IdleTimeout <= 0 {
		deps.IdleTimeout = 24 * time.Hour
	}
	return &sessionRegistry{
		deps:   deps,
		scopes: make(map[string]*SessionScope),
	}
}

func (r *sessionRegistry) Scope(session *entity.Session) *SessionScope {
	r.mu.Lock()
	defer r.mu.Unlock()

	if scope, ok := r.scopes[session.ID]; ok {
		scope.lastUsed = time.Now()
		return scope
	}

	api := r.deps.APIFactory(NewSessionTokenStore(session.ID, r.deps.SessionRepo))
	cache := NewDataCache(api, r.deps.Log)
	actor := service.AuditActor{SessionID: session.ID, UserID: session.UserID, Role: session.Role}

	scope := &SessionScope{
		SessionID: session.ID,
		API:       api,
		Cache:     cache,
		lastUsed:  time.Now(),
	}
	scope.Wizard = NewBookingWizard(BookingWizardDeps{
		Cache:       cache,
		Slots:       NewSlotResolver(api, r.deps.Log, r.deps.SlotPolicy),
		Gateway:     api,
		Validator:   r.deps.Validator,
		Clock:       r.deps.Clock,
		Log:         r.deps.Log,
		OnConfirmed: r.onBookingConfirmed(session.ID, actor),
	})
	r.scopes[session.ID] = scope
	return scope
}

// onBookingConfirmed remembers the new token for the live queue screen.
func (r *sessionRegistry) onBookingConfirmed(sessionID string, actor service.AuditActor) BookingConfirmedFunc {
	return func(ctx context.Context, result entity.BookingResult) {
		_, err := r.deps.SessionRepo.Update(ctx, sessionID, func(session *entity.Session) error {
			if !result.TokenNumber.IsZero() {
				session.SetOwnToken(result.TokenNumber)
			}
			return nil
		})
		if err != nil {
			r.deps.Log.Warnf("Failed to store booked token for session %s: %+v", sessionID, err)
		}
		if r.deps.Audit != nil {
			r.deps.Audit.Record(ctx, actor, entity.AuditActionBookingCreate, entity.JSON{
				"token_number": result.TokenNumber.String(),
				"doctor_name":  result.DoctorName,
				"date":         result.Date,
				"time":         result.Time,
			})
		}
	}
}

func (r *sessionRegistry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.scopes, sessionID)
}

// Sweep drops scopes unused since now minus the idle timeout.
func (r *sessionRegistry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.deps.IdleTimeout)
	r.mu.Lock()
	defer r.mu.Unlock()

	var dropped int
	for id, scope := range r.scopes {
		if scope.lastUsed.Before(cutoff) {
			delete(r.scopes, id)
			dropped++
		}
	}
	return dropped
}
