package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/radake/rada-ke/internal/application/command"
	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/internal/interface/http/handlers"
	"github.com/radake/rada-ke/pkg/logger"
)

// genericErrorMessage is all a client learns about an unexpected failure.
const genericErrorMessage = "An unexpected error occurred"

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse represents a standard JSON response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      any           `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
	Limit     int       `json:"limit,omitempty"`
	Offset    int       `json:"offset,omitempty"`
	Total     int       `json:"total,omitempty"`
	HasMore   bool      `json:"has_more,omitempty"`
}

// writeJSON writes a success envelope.
func writeJSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, JSONResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
		Meta:    &ResponseMeta{Timestamp: time.Now().UTC(), Version: "v1"},
	})
}

// writeJSONWithMeta writes a success envelope with paging metadata.
func writeJSONWithMeta(w http.ResponseWriter, r *http.Request, status int, data any, meta *ResponseMeta) {
	if meta == nil {
		meta = &ResponseMeta{}
	}
	meta.Timestamp = time.Now().UTC()
	meta.Version = "v1"
	writeEnvelope(w, status, JSONResponse{
		Success:   status >= 200 && status < 300,
		Data:      data,
		Meta:      meta,
		RequestID: getRequestID(r.Context()),
	})
}

// writeJSONError writes an error envelope.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeEnvelope(w, status, JSONResponse{
		Error: &APIError{Code: code, Message: message},
		Meta:  &ResponseMeta{Timestamp: time.Now().UTC()},
	})
}

func writeEnvelope(w http.ResponseWriter, status int, body JSONResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// statusFor maps an error kind to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case shared.IsValidation(err):
		return http.StatusBadRequest, "invalid_request"
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case shared.IsConflict(err):
		return http.StatusConflict, "conflict"
	case shared.IsUnauthorized(err),
		errors.Is(err, handlers.ErrInvalidCredentials),
		errors.Is(err, handlers.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, shared.ErrServiceUnavailable), errors.Is(err, handlers.ErrAuthDisabled):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError answers with the mapped status. Domain messages are passed
// through; anything else is logged and replaced by a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)

	message := genericErrorMessage
	switch {
	case status == http.StatusInternalServerError:
		logger.FromContext(r.Context()).Error("request failed",
			logger.Err(err),
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
		)
	case status == http.StatusUnauthorized:
		message = "Authentication required"
	default:
		message = shared.PublicMessage(err, http.StatusText(status))
	}

	writeEnvelope(w, status, JSONResponse{
		Error:     &APIError{Code: code, Message: message},
		Meta:      &ResponseMeta{Timestamp: time.Now().UTC()},
		RequestID: getRequestID(r.Context()),
	})
}

func (s *Server) denyUnauthorized(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, err)
}

// writeAction answers an action endpoint and logs the award it granted.
func writeAction(w http.ResponseWriter, r *http.Request, status int, res *command.ActionResult) {
	logAward(r, res.Award)
	writeJSON(w, status, presentAction(res))
}

func logAward(r *http.Request, res *command.AwardXPResult) {
	if res == nil || res.Transaction == nil {
		return
	}
	tr := res.Transaction
	logger.FromContext(r.Context()).Info("xp awarded",
		logger.UserID(tr.UserID),
		logger.ActionKind(string(tr.Kind)),
		logger.XPAmount(tr.Amount),
		logger.Int("total_xp", res.NewXP),
	)
}

func notConfigured(w http.ResponseWriter) {
	writeJSONError(w, http.StatusNotImplemented, "not_implemented", "This endpoint is not configured")
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeJSON reads the body into dst. Unknown fields are rejected so typos
// in admin payloads do not silently drop data.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return shared.Validationf("http", "Decode", "request body is empty")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return shared.Validationf("http", "Decode", "request body exceeds %d bytes", maxErr.Limit)
		}
		return shared.Validationf("http", "Decode", "malformed JSON: %s", jsonProblem(err))
	}
	return nil
}

func jsonProblem(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("syntax error at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field %q has the wrong type", typeErr.Field)
	default:
		return err.Error()
	}
}

func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

// getQueryParamInt extracts an integer query parameter with a default value.
func getQueryParamInt(r *http.Request, key string, defaultValue int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return defaultValue
	}
	return v
}

// pageFromQuery reads limit/offset and clamps them.
func pageFromQuery(r *http.Request) shared.Page {
	return shared.NewPage(getQueryParamInt(r, "limit", 20), getQueryParamInt(r, "offset", 0))
}
