package handler

import (
	"context"
	"errors"
	"net/http"

	"medqueue-portal/internal/infrastructure/hospitalapi"
	"medqueue-portal/internal/service"
	"medqueue-portal/pkg/response"
)

// writeUpstreamError reports a hospital API failure. Client errors keep the
// API's status and message so the user sees what the server said.
func writeUpstreamError(w http.ResponseWriter, err error, fallback string) {
	var apiErr *hospitalapi.APIError
	switch {
	case errors.Is(err, hospitalapi.ErrUnauthenticated):
		response.Unauthorized(w, "Session expired, please log in again")
	case errors.Is(err, service.ErrActionInProgress):
		response.Conflict(w, "Another action is in progress, please retry")
	case errors.Is(err, service.ErrWatchHubClosed):
		response.Error(w, http.StatusServiceUnavailable, "Server is shutting down", nil)
	case errors.Is(err, context.DeadlineExceeded):
		response.Error(w, http.StatusGatewayTimeout, "Hospital service timed out", nil)
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		response.Error(w, apiErr.Status, apiErr.Message, nil)
	case errors.As(err, &apiErr):
		response.BadGateway(w, apiErr.Message)
	case errors.Is(err, hospitalapi.ErrInvalidResponse), errors.Is(err, hospitalapi.ErrInternal):
		response.BadGateway(w, fallback)
	default:
		response.InternalServerError(w, fallback)
	}
}
