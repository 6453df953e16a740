package service

import (
	"context"
	"errors"

	"medqueue-portal/internal/domain/entity"
	"medqueue-portal/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrAuditDisabled = errors.New("audit trail is not enabled")

// AuditActor identifies who performed an audited action.
type AuditActor struct {
	SessionID string
	UserID    entity.ID
	Role      entity.Role
}

// AuditService records portal actions. Record never fails the caller; write
// errors are logged.
type AuditService interface {
	Record(ctx context.Context, actor AuditActor, action string, metadata entity.JSON)
	History(ctx context.Context, sessionID string, limit int) ([]entity.AuditLog, error)
	Find(ctx context.Context, id int64) (*entity.AuditLog, error)
}

type auditService struct {
	db        *gorm.DB
	log       *logrus.Logger
	auditRepo repository.AuditLogRepository
}

func NewAuditService(db *gorm.DB, log *logrus.Logger, auditRepo repository.AuditLogRepository) AuditService {
	return &auditService{
		db:        db,
		log:       log,
		auditRepo: auditRepo,
	}
}

func (s *auditService) Record(ctx context.Context, actor AuditActor, action string, metadata entity.JSON) {
	auditLog := &entity.AuditLog{
		SessionID: parseSessionID(actor.SessionID),
		UserID:    actor.UserID.String(),
		Role:      string(actor.Role),
		Action:    action,
		Metadata:  metadata,
	}

	if err := s.auditRepo.Create(s.db.WithContext(ctx), auditLog); err != nil {
		s.log.Warnf("Failed to create audit log: %+v", err)
	}
}

func (s *auditService) History(ctx context.Context, sessionID string, limit int) ([]entity.AuditLog, error) {
	id := parseSessionID(sessionID)
	if id == nil {
		return []entity.AuditLog{}, nil
	}
	logs, err := s.auditRepo.FindBySession(s.db.WithContext(ctx), *id, limit)
	if err != nil {
		s.log.Warnf("Failed to find audit logs for session %s: %+v", sessionID, err)
		return nil, err
	}
	return logs, nil
}

func (s *auditService) Find(ctx context.Context, id int64) (*entity.AuditLog, error) {
	auditLog, err := s.auditRepo.FindByID(s.db.WithContext(ctx), id)
	if err != nil {
		s.log.Warnf("Failed to find audit log %d: %+v", id, err)
		return nil, err
	}
	return auditLog, nil
}

// logAuditService writes audit entries to the application log only. It is
// used when no database is configured.
type logAuditService struct {
	log *logrus.Logger
}

func NewLogAuditService(log *logrus.Logger) AuditService {
	return &logAuditService{log: log}
}

func (s *logAuditService) Record(ctx context.Context, actor AuditActor, action string, metadata entity.JSON) {
	s.log.WithFields(logrus.Fields{
		"audit":      true,
		"session_id": actor.SessionID,
		"user_id":    actor.UserID.String(),
		"role":       string(actor.Role),
		"action":     action,
		"metadata":   metadata,
	}).Info("Audit")
}

func (s *logAuditService) History(ctx context.Context, sessionID string, limit int) ([]entity.AuditLog, error) {
	return nil, ErrAuditDisabled
}

func (s *logAuditService) Find(ctx context.Context, id int64) (*entity.AuditLog, error) {
	return nil, ErrAuditDisabled
}

func parseSessionID(s string) *uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}
