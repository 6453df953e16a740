package handler

import (
	"net/http"

	"medqueue-portal/internal/domain/entity"
	"medqueue-portal/internal/usecase"
	"medqueue-portal/pkg/response"

	"github.com/gorilla/mux"
)

type LiveQueueHandler struct {
	liveQueueUsecase usecase.LiveQueueUsecase
}

func NewLiveQueueHandler(liveQueueUsecase usecase.LiveQueueUsecase) *LiveQueueHandler {
	return &LiveQueueHandler{
		liveQueueUsecase: liveQueueUsecase,
	}
}

// GetLiveQueue returns the latest poll of the patient's live queue
// @Summary Get live queue
// @Description Starts polling on first call. Reminders raised since the last read are returned once in notices.
// @Tags Queue
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /queue/live [get]
func (h *LiveQueueHandler) GetLiveQueue(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	result, err := h.liveQueueUsecase.LiveQueue(r.Context(), session)
	if err != nil {
		writeUpstreamError(w, err, "Failed to load live queue")
		return
	}

	response.Success(w, http.StatusOK, "Live queue retrieved successfully", result)
}

// StopLiveQueue stops polling the live queue for this session
func (h *LiveQueueHandler) StopLiveQueue(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	stopped := h.liveQueueUsecase.StopLiveQueue(r.Context(), session.ID)
	response.Success(w, http.StatusOK, "Live queue polling stopped", map[string]bool{"stopped": stopped})
}

// GetDoctorQueue returns the latest poll of one doctor's queue
// @Summary Get doctor queue
// @Tags Queue
// @Security BearerAuth
// @Produce json
// @Param doctorId path string true "Doctor ID"
// @Success 200 {object} response.Response
// @Router /queue/doctors/{doctorId} [get]
func (h *LiveQueueHandler) GetDoctorQueue(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	doctorID := entity.ID(mux.Vars(r)["doctorId"])
	if doctorID.IsZero() {
		response.BadRequest(w, "Invalid doctor ID")
		return
	}

	result, err := h.liveQueueUsecase.DoctorQueue(r.Context(), session, doctorID)
	if err != nil {
		writeUpstreamError(w, err, "Failed to load doctor queue")
		return
	}

	response.Success(w, http.StatusOK, "Doctor queue retrieved successfully", result)
}

func (h *LiveQueueHandler) StopDoctorQueue(w http.ResponseWriter, r *http.Request) {
	session, ok := currentSession(w, r)
	if !ok {
		return
	}

	doctorID := entity.ID(mux.Vars(r)["doctorId"])
	stopped := h.liveQueueUsecase.StopDoctorQueue(r.Context(), session.ID, doctorID)
	response.Success(w, http.StatusOK, "Doctor queue polling stopped", map[string]bool{"stopped": stopped})
}
