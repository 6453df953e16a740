package usecase

import (
	"context"
	"errors"

	"medqueue-portal/internal/converter"
	"medqueue-portal/internal/delivery/dto"
	"medqueue-portal/internal/domain/entity"
	"medqueue-portal/internal/service"

	"github.com/sirupsen/logrus"
)

var (
	ErrAuditLogNotFound = errors.New("audit log not found")
	ErrAuditForbidden   = errors.New("audit log belongs to another user")
)

const defaultHistoryLimit = 50

type AuditLogUsecase interface {
	GetMyAuditLogs(ctx context.Context, session *entity.Session, limit int) (*dto.AuditLogListResponse, error)
	GetAuditLog(ctx context.Context, session *entity.Session, id int64) (*dto.AuditLogResponse, error)
}

type auditLogUsecase struct {
	log   *logrus.Logger
	audit service.AuditService
}

func NewAuditLogUsecase(
	log *logrus.Logger,
	audit service.AuditService,
) AuditLogUsecase {
	return &auditLogUsecase{
		log:   log,
		audit: audit,
	}
}

func (u *auditLogUsecase) GetMyAuditLogs(ctx context.Context, session *entity.Session, limit int) (*dto.AuditLogListResponse, error) {
	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}

	logs, err := u.audit.History(ctx, session.ID, limit)
	if err != nil {
		return nil, err
	}

	logResponses := converter.AuditLogsToResponses(logs)

	return &dto.AuditLogListResponse{
		Logs:  logResponses,
		Total: len(logs),
	}, nil
}

// GetAuditLog returns one entry. Admins see every entry; everyone else only
// entries of their own account.
func (u *auditLogUsecase) GetAuditLog(ctx context.Context, session *entity.Session, id int64) (*dto.AuditLogResponse, error) {
	auditLog, err := u.audit.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if auditLog == nil {
		return nil, ErrAuditLogNotFound
	}
	if session.Role != entity.RoleAdmin && auditLog.UserID != session.UserID.String() {
		u.log.Warnf("Session %s asked for audit log %d of user %s", session.ID, id, auditLog.UserID)
		return nil, ErrAuditForbidden
	}

	return converter.AuditLogToResponse(auditLog), nil
}
