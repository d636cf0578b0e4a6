package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/price-intel/internal/async"
	"github.com/joseph-ayodele/price-intel/internal/common"
)

const maxJSONBody = 1 << 20

type successEnvelope struct {
	Data any `json:"data"`
}

type apiError struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Details common.ValidationErrors `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successEnvelope{Data: data})
}

// writeError maps err onto the AppError table. Anything unclassified is INTERNAL.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, async.ErrQueueFull) || errors.Is(err, async.ErrQueueClosed) {
		writeJSON(w, http.StatusServiceUnavailable, errorEnvelope{Error: apiError{
			Code:    common.CodeDependency,
			Message: err.Error(),
		}})
		return
	}

	appErr, ok := common.AsAppError(err)
	if !ok {
		appErr = common.NewInternalError("unexpected error", err)
	}
	status := appErr.HTTPStatus()
	payload := errorEnvelope{Error: apiError{Code: appErr.Code, Message: appErr.PublicMessage()}}
	var verrs common.ValidationErrors
	if errors.As(appErr, &verrs) {
		payload.Error.Details = verrs
	}

	fields := []zap.Field{
		zap.String("request_id", common.RequestIDFromContext(r.Context())),
		zap.String("path", r.URL.Path),
		zap.String("code", appErr.Code),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("http.request.error", fields...)
	} else {
		s.logger.Debug("http.request.rejected", fields...)
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON reads a single JSON object and runs its validate tags.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return common.NewValidationError("request body is empty", err)
		}
		return common.NewValidationError("malformed JSON body", err)
	}
	return common.ValidateStruct(dst)
}
