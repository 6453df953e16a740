package handler

import (
	"errors"
	"net/http"

	"medqueue-portal/internal/delivery/dto"
	"medqueue-portal/internal/domain/entity"
	"medqueue-portal/internal/usecase"
	"medqueue-portal/pkg/response"
	"medqueue-portal/pkg/validator"
)

type DoctorDashboardHandler struct {
	dashboardUsecase usecase.DoctorDashboardUsecase
	validator        *validator.CustomValidator
}

func NewDoctorDashboardHandler(dashboardUsecase usecase.DoctorDashboardUsecase, validator *validator.CustomValidator) *DoctorDashboardHandler {
	return &DoctorDashboardHandler{
		dashboardUsecase: dashboardUsecase,
		validator:        validator,
	}
}

// Watch returns the latest poll of the doctor dashboard
// @Summary Get doctor dashboard
// @Description Starts polling on first call and returns the last snapshot with its update time
// @Tags Doctor
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /doctor/dashboard [get]
func (h *DoctorDashboardHandler) Watch(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	snapshot, err := h.dashboardUsecase.Watch(r.Context(), session)
	if err != nil {
		writeUpstreamError(w, err, "Failed to load dashboard")
		return
	}

	response.Success(w, http.StatusOK, "Dashboard retrieved successfully", snapshot)
}

func (h *DoctorDashboardHandler) StopWatch(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	stopped := h.dashboardUsecase.StopWatch(r.Context(), session.ID)
	response.Success(w, http.StatusOK, "Dashboard polling stopped", map[string]bool{"stopped": stopped})
}

// CallNext starts the consultation of the next waiting patient
// @Summary Call next patient
// @Tags Doctor
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /doctor/dashboard/call-next [post]
func (h *DoctorDashboardHandler) CallNext(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	result, err := h.dashboardUsecase.CallNext(r.Context(), session)
	if err != nil {
		writeDashboardError(w, err, "Failed to call next patient")
		return
	}

	response.Success(w, http.StatusOK, result.Message, result)
}

func (h *DoctorDashboardHandler) EndConsultation(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	result, err := h.dashboardUsecase.EndConsultation(r.Context(), session)
	if err != nil {
		writeDashboardError(w, err, "Failed to end consultation")
		return
	}

	response.Success(w, http.StatusOK, result.Message, result)
}

func (h *DoctorDashboardHandler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	result, err := h.dashboardUsecase.MarkNoShow(r.Context(), session)
	if err != nil {
		writeDashboardError(w, err, "Failed to mark no-show")
		return
	}

	response.Success(w, http.StatusOK, result.Message, result)
}

// SetAvailability changes the doctor's status for today
// @Summary Set availability
// @Tags Doctor
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.AvailabilityRequest true "Availability Request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /doctor/dashboard/availability [put]
func (h *DoctorDashboardHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req dto.AvailabilityRequest
	if !decodeBody(w, r, h.validator, &req) {
		return
	}

	view, err := h.dashboardUsecase.SetAvailability(r.Context(), session, entity.AvailabilityStatus(req.Status))
	if err != nil {
		writeDashboardError(w, err, "Failed to update availability")
		return
	}

	response.Success(w, http.StatusOK, "Availability updated", view)
}

func (h *DoctorDashboardHandler) PauseTokens(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	result, err := h.dashboardUsecase.PauseTokens(r.Context(), session)
	if err != nil {
		writeDashboardError(w, err, "Failed to pause tokens")
		return
	}

	response.Success(w, http.StatusOK, result.Message, result)
}

func writeDashboardError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, usecase.ErrNoNextPatient):
		response.NotFound(w, "No patients waiting")
	case errors.Is(err, usecase.ErrNoActiveConsultation), errors.Is(err, usecase.ErrNoActivePatient):
		response.Conflict(w, err.Error())
	case errors.Is(err, usecase.ErrInvalidAvailabilityStatus):
		response.BadRequest(w, err.Error())
	default:
		writeUpstreamError(w, err, fallback)
	}
}
