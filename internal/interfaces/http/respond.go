package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/marketsignal/decisionengine/internal/errcat"
)

// writeJSON marshals v and writes it with the given status, logging
// (never surfacing) an encode failure.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("http: failed to encode response body")
	}
}

// writeError maps err to its *errcat.Error status/body per the
// taxonomy's single source of truth (errcat.Kind.HTTPStatus), falling
// back to 500/CALCULATION_ERROR for an error the engine didn't emit.
func writeError(w http.ResponseWriter, engineVersion string, err error) {
	var ce *errcat.Error
	if !errors.As(err, &ce) {
		ce = errcat.Wrap(errcat.KindCalculationError, "unclassified error", err)
	}
	writeJSON(w, ce.Kind.HTTPStatus(), errcat.ToResponse(ce, engineVersion))
}
