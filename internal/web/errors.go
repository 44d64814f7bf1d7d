package web

// errors.go turns service errors into JSON responses. The technical error
// is logged with the request id; the client gets the mapped user message
// and its support code.

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/cubetab/internal/core"
	"github.com/JonMunkholm/cubetab/internal/cube"
	"github.com/JonMunkholm/cubetab/internal/export"
	"github.com/JonMunkholm/cubetab/internal/logging"
	"github.com/JonMunkholm/cubetab/internal/table"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error     string `json:"error"`
	Action    string `json:"action,omitempty"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, cube.ErrUnknownDataAccess):
		return http.StatusNotFound
	case errors.Is(err, cube.ErrInvalidParameter),
		errors.Is(err, core.ErrInvalidSort),
		errors.Is(err, export.ErrUnknownFormat),
		errors.Is(err, table.ErrInvalidRow),
		errors.Is(err, table.ErrInvalidColumn):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyQueries):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its user message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)
	requestID := middleware.GetReqID(r.Context())

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSONStatus(w, status, ErrorResponse{
		Error:     userMsg.Message,
		Action:    userMsg.Action,
		Code:      userMsg.Code,
		RequestID: requestID,
	})
}
