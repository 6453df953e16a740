package handler

import (
	"errors"
	"net/http"

	"medqueue-portal/internal/delivery/dto"
	"medqueue-portal/internal/domain/entity"
	"medqueue-portal/internal/usecase"
	"medqueue-portal/pkg/response"
	"medqueue-portal/pkg/validator"

	"github.com/gorilla/mux"
)

type QueueManagementHandler struct {
	queueUsecase usecase.QueueManagementUsecase
	validator    *validator.CustomValidator
}

func NewQueueManagementHandler(queueUsecase usecase.QueueManagementUsecase, validator *validator.CustomValidator) *QueueManagementHandler {
	return &QueueManagementHandler{
		queueUsecase: queueUsecase,
		validator:    validator,
	}
}

// GetQueue lists today's appointments with queue counters
// @Summary Get managed queue
// @Tags Queue Management
// @Security BearerAuth
// @Produce json
// @Param search query string false "Filter by patient name or token"
// @Success 200 {object} response.Response
// @Router /doctor/queue [get]
func (h *QueueManagementHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	view, err := h.queueUsecase.GetQueue(r.Context(), session, r.URL.Query().Get("search"))
	if err != nil {
		writeUpstreamError(w, err, "Failed to load queue")
		return
	}

	response.Success(w, http.StatusOK, "Queue retrieved successfully", view)
}

func (h *QueueManagementHandler) Move(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req dto.MoveTokenRequest
	if !decodeBody(w, r, h.validator, &req) {
		return
	}

	view, err := h.queueUsecase.Move(r.Context(), session, req.Token, usecase.MoveDirection(req.Direction))
	if err != nil {
		writeQueueError(w, err, "Failed to move token")
		return
	}

	response.Success(w, http.StatusOK, "Queue order updated", view)
}

func (h *QueueManagementHandler) SetPaused(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req dto.PauseQueueRequest
	if !decodeBody(w, r, h.validator, &req) {
		return
	}

	view, err := h.queueUsecase.SetPaused(r.Context(), session, *req.Paused)
	if err != nil {
		writeQueueError(w, err, "Failed to update queue")
		return
	}

	message := "Queue resumed"
	if view.Paused {
		message = "Queue paused"
	}
	response.Success(w, http.StatusOK, message, view)
}

// StartConsultation moves an appointment into consultation
// @Summary Start consultation
// @Tags Queue Management
// @Security BearerAuth
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /doctor/queue/appointments/{id}/start [post]
func (h *QueueManagementHandler) StartConsultation(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	appointment, err := h.queueUsecase.StartConsultation(r.Context(), session, appointmentIDFromPath(r))
	if err != nil {
		writeQueueError(w, err, "Failed to start consultation")
		return
	}

	response.Success(w, http.StatusOK, "Consultation started", appointment)
}

func (h *QueueManagementHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req dto.ReassignRequest
	if !decodeBody(w, r, h.validator, &req) {
		return
	}

	appointment, err := h.queueUsecase.Reassign(r.Context(), session, appointmentIDFromPath(r), req.DoctorID)
	if err != nil {
		writeQueueError(w, err, "Failed to reassign appointment")
		return
	}

	response.Success(w, http.StatusOK, "Appointment reassigned", appointment)
}

func (h *QueueManagementHandler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	appointment, err := h.queueUsecase.MarkNoShow(r.Context(), session, appointmentIDFromPath(r))
	if err != nil {
		writeQueueError(w, err, "Failed to mark no-show")
		return
	}

	response.Success(w, http.StatusOK, "Marked as no-show", appointment)
}

func (h *QueueManagementHandler) AddWalkIn(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	if err := h.queueUsecase.AddWalkIn(r.Context(), session); err != nil {
		writeQueueError(w, err, "Failed to add walk-in")
		return
	}

	response.Success(w, http.StatusCreated, "Walk-in added", nil)
}

func appointmentIDFromPath(r *http.Request) entity.ID {
	return entity.ID(mux.Vars(r)["id"])
}

func writeQueueError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, usecase.ErrAppointmentNotFound), errors.Is(err, usecase.ErrTokenNotInQueue):
		response.NotFound(w, err.Error())
	case errors.Is(err, usecase.ErrDoctorNotFound):
		response.NotFound(w, "Doctor not found")
	case errors.Is(err, usecase.ErrInvalidMoveDirection):
		response.BadRequest(w, err.Error())
	case errors.Is(err, usecase.ErrCannotMove), errors.Is(err, usecase.ErrReassignSameDoctor):
		response.Conflict(w, err.Error())
	case errors.Is(err, usecase.ErrWalkInUnsupported):
		response.Error(w, http.StatusNotImplemented, usecase.WalkInUnsupportedMessage, nil)
	default:
		writeUpstreamError(w, err, fallback)
	}
}
