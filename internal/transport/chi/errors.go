package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kailas-cloud/dishdex/internal/domain"
)

type errorMapping struct {
	sentinel error
	status   int
	code     ErrorCode
}

// errorMappings is checked in order. ErrExtractorError comes first because a bad
// extractor output also carries ErrDimensionMismatch.
var errorMappings = []errorMapping{
	{domain.ErrExtractorError, http.StatusBadGateway, ErrorCodeExtractorError},
	{domain.ErrDimensionMismatch, http.StatusBadRequest, ErrorCodeVectorDimMismatch},
	{domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeValidationFailed},
	{domain.ErrUnknownSpace, http.StatusNotFound, ErrorCodeUnknownSpace},
	{domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound},
	{domain.ErrEmptyStore, http.StatusServiceUnavailable, ErrorCodeEmptyStore},
	{domain.ErrStoreLoad, http.StatusServiceUnavailable, ErrorCodeStoreLoadFailed},
}

// classify returns the code and status the handler chain would use for err.
func classify(err error) (ErrorCode, int) {
	for _, m := range errorMappings {
		if errors.Is(err, m.sentinel) {
			return m.code, m.status
		}
	}
	return ErrorCodeInternalError, http.StatusInternalServerError
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// safeDomainMessage returns a client-safe message without exposing internals.
// Dimension mismatches keep their detail, it is the caller's input.
func safeDomainMessage(err error) string {
	var dme *domain.DimensionMismatchError
	if errors.As(err, &dme) && !errors.Is(err, domain.ErrExtractorError) {
		return dme.Error()
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.sentinel) {
			return m.sentinel.Error()
		}
	}
	return "internal error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
