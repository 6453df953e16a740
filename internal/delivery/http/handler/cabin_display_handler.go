package handler

import (
	"errors"
	"net/http"
	"strconv"

	"medqueue-portal/internal/delivery/dto"
	"medqueue-portal/internal/usecase"
	"medqueue-portal/pkg/response"
	"medqueue-portal/pkg/validator"
)

type CabinDisplayHandler struct {
	cabinUsecase usecase.CabinDisplayUsecase
	validator    *validator.CustomValidator
}

func NewCabinDisplayHandler(cabinUsecase usecase.CabinDisplayUsecase, validator *validator.CustomValidator) *CabinDisplayHandler {
	return &CabinDisplayHandler{
		cabinUsecase: cabinUsecase,
		validator:    validator,
	}
}

// Watch returns the latest poll of the cabin display
// @Summary Get cabin display
// @Tags Cabin
// @Security BearerAuth
// @Produce json
// @Param anonymize query bool false "Show initials instead of full names"
// @Success 200 {object} response.Response
// @Router /doctor/cabin [get]
func (h *CabinDisplayHandler) Watch(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	var opts usecase.CabinOptions
	if raw := r.URL.Query().Get("anonymize"); raw != "" {
		anonymize, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(w, "Invalid anonymize flag")
			return
		}
		opts.Anonymize = anonymize
	}

	snapshot, err := h.cabinUsecase.Watch(r.Context(), session, opts)
	if err != nil {
		writeUpstreamError(w, err, "Failed to load cabin display")
		return
	}

	response.Success(w, http.StatusOK, "Cabin display retrieved successfully", snapshot)
}

func (h *CabinDisplayHandler) StopWatch(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	stopped := h.cabinUsecase.StopWatch(r.Context(), session.ID)
	response.Success(w, http.StatusOK, "Cabin display polling stopped", map[string]bool{"stopped": stopped})
}

func (h *CabinDisplayHandler) GetQuickMessages(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "Quick messages retrieved successfully", dto.AnnouncementResponse{
		QuickMessages: usecase.CabinQuickMessages,
	})
}

// SetAnnouncement shows a message on the cabin display
// @Summary Set cabin announcement
// @Tags Cabin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.AnnouncementRequest true "Announcement Request"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /doctor/cabin/announcement [put]
func (h *CabinDisplayHandler) SetAnnouncement(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req dto.AnnouncementRequest
	if !decodeBody(w, r, h.validator, &req) {
		return
	}

	message, err := h.cabinUsecase.SetAnnouncement(r.Context(), session.ID, req.Message)
	if err != nil {
		if errors.Is(err, usecase.ErrEmptyAnnouncement) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalServerError(w, "Failed to set announcement")
		return
	}

	response.Success(w, http.StatusOK, "Announcement updated", dto.AnnouncementResponse{Message: message})
}

func (h *CabinDisplayHandler) ClearAnnouncement(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	if err := h.cabinUsecase.ClearAnnouncement(r.Context(), session.ID); err != nil {
		response.InternalServerError(w, "Failed to clear announcement")
		return
	}

	response.Success(w, http.StatusOK, "Announcement cleared", nil)
}
