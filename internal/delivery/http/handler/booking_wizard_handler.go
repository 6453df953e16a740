package handler

import (
	"errors"
	"net/http"

	"medqueue-portal/internal/converter"
	"medqueue-portal/internal/delivery/dto"
	"medqueue-portal/internal/domain/entity"
	"medqueue-portal/internal/infrastructure/hospitalapi"
	"medqueue-portal/internal/usecase"
	"medqueue-portal/pkg/response"
	"medqueue-portal/pkg/validator"
)

// BookingWizardHandler serves the catalog and the booking wizard of the
// caller's session.
type BookingWizardHandler struct {
	registry  usecase.SessionRegistry
	validator *validator.CustomValidator
}

func NewBookingWizardHandler(registry usecase.SessionRegistry, validator *validator.CustomValidator) *BookingWizardHandler {
	return &BookingWizardHandler{
		registry:  registry,
		validator: validator,
	}
}

func (h *BookingWizardHandler) scope(w http.ResponseWriter, r *http.Request) (*usecase.SessionScope, bool) {
	session, ok := currentSession(w, r)
	if !ok {
		return nil, false
	}
	return h.registry.Scope(session), true
}

func (h *BookingWizardHandler) decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	return decodeBody(w, r, h.validator, req)
}

// writeState answers a wizard call. Failures still carry the wizard state.
func writeState(w http.ResponseWriter, state usecase.WizardState, err error, message string) {
	if err == nil {
		response.Success(w, http.StatusOK, message, state)
		return
	}

	var apiErr *hospitalapi.APIError
	switch {
	case errors.Is(err, usecase.ErrBookingRejected):
		status := http.StatusBadGateway
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			status = apiErr.Status
		}
		if errors.Is(err, hospitalapi.ErrUnauthenticated) {
			status = http.StatusUnauthorized
		}
		response.ErrorWithData(w, status, state.Error, state)
	case errors.Is(err, usecase.ErrDoctorNotFound):
		response.ErrorWithData(w, http.StatusNotFound, err.Error(), state)
	case errors.Is(err, usecase.ErrSubmissionInProgress),
		errors.Is(err, usecase.ErrBookingConfirmed),
		errors.Is(err, usecase.ErrNotAtDateTimeStep):
		response.ErrorWithData(w, http.StatusConflict, err.Error(), state)
	default:
		response.ErrorWithData(w, http.StatusBadRequest, err.Error(), state)
	}
}

// GetDepartments lists departments
// @Summary List departments
// @Tags Catalog
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /catalog/departments [get]
func (h *BookingWizardHandler) GetDepartments(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	departments := scope.Cache.FetchDepartments(r.Context())
	response.Success(w, http.StatusOK, "Departments retrieved successfully", dto.CatalogResponse{
		Departments: departments,
		Failed:      scope.Cache.Failure().Departments,
	})
}

// GetDoctors lists doctors, optionally of one department
// @Summary List doctors
// @Tags Catalog
// @Security BearerAuth
// @Produce json
// @Param department_id query string false "Department ID"
// @Success 200 {object} response.Response
// @Router /catalog/doctors [get]
func (h *BookingWizardHandler) GetDoctors(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}

	departmentID := entity.ID(r.URL.Query().Get("department_id"))
	doctors := scope.Cache.FetchDoctors(r.Context(), departmentID)
	response.Success(w, http.StatusOK, "Doctors retrieved successfully", dto.CatalogResponse{
		Doctors: doctors,
		Failed:  scope.Cache.Failure().Doctors,
	})
}

// GetState returns the wizard state
// @Summary Get booking wizard state
// @Tags Booking
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /booking [get]
func (h *BookingWizardHandler) GetState(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	writeState(w, scope.Wizard.Snapshot(r.Context()), nil, "Booking state retrieved successfully")
}

func (h *BookingWizardHandler) SetPatientMode(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req dto.PatientModeRequest
	if !h.decode(w, r, &req) {
		return
	}

	state, err := scope.Wizard.SetPatientMode(entity.PatientMode(req.Mode))
	writeState(w, state, err, "Patient mode updated")
}

func (h *BookingWizardHandler) SetPatientDetails(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req dto.PatientDetailsRequest
	if !h.decode(w, r, &req) {
		return
	}

	state, err := scope.Wizard.SetPatientDetails(converter.PatientDetailsFromRequest(&req))
	writeState(w, state, err, "Patient details updated")
}

func (h *BookingWizardHandler) SelectMethod(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req dto.BookingMethodRequest
	if !h.decode(w, r, &req) {
		return
	}

	state, err := scope.Wizard.SelectMethod(r.Context(), converter.BookingMethodFromRequest(&req))
	writeState(w, state, err, "Booking method selected")
}

func (h *BookingWizardHandler) SelectDepartment(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req dto.SelectDepartmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	state, err := scope.Wizard.SelectDepartment(r.Context(), req.DepartmentID)
	writeState(w, state, err, "Department selected")
}

func (h *BookingWizardHandler) SelectDoctor(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req dto.SelectDoctorRequest
	if !h.decode(w, r, &req) {
		return
	}

	state, err := scope.Wizard.SelectDoctor(r.Context(), req.DoctorID)
	writeState(w, state, err, "Doctor selected")
}

func (h *BookingWizardHandler) SelectDate(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	var req dto.SelectDateRequest
	if !h.decode(w, r, &req) {
		return
	}

	state, err := scope.Wizard.SelectDate(r.Context(), req.Date)
	writeState(w, state, err, "Date selected")
}

func (h *BookingWizardHandler) Next(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	state, err := scope.Wizard.Next(r.Context())
	writeState(w, state, err, "Moved to next step")
}

func (h *BookingWizardHandler) Back(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	writeState(w, scope.Wizard.Back(), nil, "Moved to previous step")
}

// Submit books the appointment
// @Summary Submit booking
// @Description Create the appointment from the wizard selection
// @Tags Booking
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /booking/submit [post]
func (h *BookingWizardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	state, err := scope.Wizard.Submit(r.Context())
	writeState(w, state, err, "Appointment booked successfully")
}

func (h *BookingWizardHandler) Reset(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	writeState(w, scope.Wizard.Reset(), nil, "Booking reset")
}

func (h *BookingWizardHandler) PrevMonth(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	writeState(w, scope.Wizard.PrevMonth(), nil, "Calendar updated")
}

func (h *BookingWizardHandler) NextMonth(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.scope(w, r)
	if !ok {
		return
	}
	writeState(w, scope.Wizard.NextMonth(), nil, "Calendar updated")
}
