// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/apperr"
	"github.com/pragyaDixit-coder/taskflow-task-manager-sub000/internal/app/system/jsonio"
	"go.uber.org/zap"
)

// Body is the JSON shape of every error response.
type Body struct {
	Error string `json:"error"`
}

// ErrorLogger turns errors into JSON responses and logs the ones that are
// the server's fault.
type ErrorLogger struct {
	Log *zap.Logger
}

// NewErrorLogger returns an ErrorLogger writing to logger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{Log: logger}
}

// Write maps err to a status through its apperr kind and writes {"error": msg}.
// Internal failures are logged with the request id and reported generically.
func (e *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.StatusOf(err)
	if status >= http.StatusInternalServerError {
		e.Log.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	} else {
		e.Log.Debug("request rejected",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	jsonio.Write(w, status, Body{Error: apperr.MessageOf(err)})
}

// Unauthorized writes a 401 with msg.
func Unauthorized(w http.ResponseWriter, msg string) {
	jsonio.Write(w, http.StatusUnauthorized, Body{Error: msg})
}

// Forbidden writes a 403 with msg.
func Forbidden(w http.ResponseWriter, msg string) {
	jsonio.Write(w, http.StatusForbidden, Body{Error: msg})
}

// NotFound is the router's fallback for unknown paths.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	jsonio.Write(w, http.StatusNotFound, Body{Error: "not found"})
}

// MethodNotAllowed is the router's fallback for known paths with the wrong verb.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	jsonio.Write(w, http.StatusMethodNotAllowed, Body{Error: "method not allowed"})
}
