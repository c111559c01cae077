package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/Clark-Hu/movie-importer/internal/domain"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// failureResponse is the body returned for a domain.Failure.
type failureResponse struct {
	FailureKind string `json:"failureKind"`
	Message     string `json:"message"`
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error().Err(err).Msg("http: encode response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{Code: code, Message: message})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

// respondFailure renders err as {failureKind, message}. Errors that are not a
// domain.Failure become a 500 without leaking details.
func (s *Server) respondFailure(w http.ResponseWriter, err error) {
	var f *domain.Failure
	if !errors.As(err, &f) {
		s.logger.Error().Err(err).Msg("http: unexpected error")
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
		return
	}
	status := failureStatus(f.Kind)
	if status >= http.StatusInternalServerError {
		s.logger.Warn().Err(err).Str("kind", string(f.Kind)).Msg("http: request failed")
	}
	s.respondJSON(w, status, failureResponse{FailureKind: string(f.Kind), Message: f.UserMessage()})
}

func failureStatus(kind domain.Kind) int {
	switch kind {
	case domain.KindTransport:
		return http.StatusServiceUnavailable
	case domain.KindProvider, domain.KindEmptyResponse, domain.KindDecode:
		return http.StatusBadGateway
	case domain.KindInvalidRecord, domain.KindInvalidQuery:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
