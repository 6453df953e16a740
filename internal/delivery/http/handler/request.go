package handler

import (
	"encoding/json"
	"net/http"

	"medqueue-portal/internal/delivery/http/middleware"
	"medqueue-portal/internal/domain/entity"
	"medqueue-portal/pkg/response"
	"medqueue-portal/pkg/validator"
)

func currentSession(w http.ResponseWriter, r *http.Request) (*entity.Session, bool) {
	session, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Invalid token")
		return nil, false
	}
	return session, true
}

// decodeBody reads a JSON body into req and validates it. It writes the
// error response itself and reports whether the handler may continue.
func decodeBody(w http.ResponseWriter, r *http.Request, v *validator.CustomValidator, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return false
	}
	if err := v.Validate(req); err != nil {
		response.ValidationError(w, v.FormatValidationErrors(err))
		return false
	}
	return true
}
