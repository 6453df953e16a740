package handler

import (
	"errors"
	"net/http"
	"strconv"

	"medqueue-portal/internal/service"
	"medqueue-portal/internal/usecase"
	"medqueue-portal/pkg/response"

	"github.com/gorilla/mux"
)

type AuditLogHandler struct {
	auditLogUsecase usecase.AuditLogUsecase
}

func NewAuditLogHandler(auditLogUsecase usecase.AuditLogUsecase) *AuditLogHandler {
	return &AuditLogHandler{
		auditLogUsecase: auditLogUsecase,
	}
}

// GetMyAuditLogs lists the actions recorded for the current session
// @Summary List my activity
// @Tags Audit
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Max entries (default 50)"
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /audit-logs [get]
func (h *AuditLogHandler) GetMyAuditLogs(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "Invalid limit", nil)
			return
		}
		limit = n
	}

	auditLogs, err := h.auditLogUsecase.GetMyAuditLogs(r.Context(), session, limit)
	if err != nil {
		writeAuditError(w, err, "Failed to get audit logs")
		return
	}

	response.Success(w, http.StatusOK, "Audit logs retrieved successfully", auditLogs)
}

func (h *AuditLogHandler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	auditLogID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid audit log ID", nil)
		return
	}

	auditLog, err := h.auditLogUsecase.GetAuditLog(r.Context(), session, auditLogID)
	if err != nil {
		writeAuditError(w, err, "Failed to get audit log")
		return
	}

	response.Success(w, http.StatusOK, "Audit log retrieved successfully", auditLog)
}

func writeAuditError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, usecase.ErrAuditLogNotFound):
		response.NotFound(w, "Audit log not found")
	case errors.Is(err, usecase.ErrAuditForbidden):
		response.Forbidden(w, "")
	case errors.Is(err, service.ErrAuditDisabled):
		response.Error(w, http.StatusServiceUnavailable, "Audit trail is not enabled", nil)
	default:
		response.InternalServerError(w, fallback)
	}
}
