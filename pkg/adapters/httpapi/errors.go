package httpapi

import (
	"errors"
	"net/http"

	"github.com/florelab/stepwise/pkg/domain"
)

// errorBody is the uniform error response shape.
type errorBody struct {
	Error  string              `json:"error"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

// writeError maps the error taxonomy onto HTTP status codes. Recoverable
// rejections get 4xx so clients retry or correct; collaborator failures get
// 502 so load balancers and clients treat them as transient; configuration
// defects get 500 and a log line loud enough to page on.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	var cfgErr *domain.ConfigurationError
	var colErr *domain.CollaboratorError

	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: vErr.Error(), Fields: vErr.Fields})
	case errors.Is(err, domain.ErrTransitionInFlight):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrNotAtStep),
		errors.Is(err, domain.ErrAtFirstStep),
		errors.Is(err, domain.ErrNotCompleted):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrJumpDisabled):
		writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrJumpRejected):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrSubmissionLocked):
		writeJSON(w, http.StatusLocked, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.As(err, &colErr):
		s.logger.Warn("collaborator failure", "err", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
	case errors.As(err, &cfgErr):
		s.logger.Error("step graph misconfiguration", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	default:
		s.logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}
