package api_helpers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/yebrai/skillswap/internal/apperror"
)

// RespondWithJSON sends a JSON response with the given status code and payload.
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal JSON response", "error", err)
		http.Error(w, `{"code":"INTERNAL","message":"Failed to marshal JSON response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		slog.Debug("write JSON response", "error", err)
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    apperror.Code `json:"code"`
	Message string        `json:"message"`
}

// RespondWithError sends a JSON error response with the given status code and message.
func RespondWithError(w http.ResponseWriter, code int, errCode apperror.Code, message string) {
	RespondWithJSON(w, code, ErrorResponse{Code: errCode, Message: message})
}

// RespondWithAppError translates err into a status code and body. Errors
// that are not AppErrors are logged and answered with a generic 500.
func RespondWithAppError(w http.ResponseWriter, logger *slog.Logger, err error) {
	appErr := apperror.From(err)
	status := appErr.Code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	}
	RespondWithError(w, status, appErr.Code, appErr.Message)
}

// DecodeJSONBody attempts to decode the request body into the provided value.
// Unknown fields are rejected. An empty or malformed body is an INVALID_ARGUMENT error.
func DecodeJSONBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return apperror.InvalidArg("request body is empty")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.InvalidArg("request body is empty")
		}
		return apperror.Wrap(apperror.CodeInvalidArgument, "Invalid request payload", err)
	}
	return nil
}
