// Package router implements the Source Router (C3): it dispatches an
// inbound webhook payload to the Normalizer and surfaces classified
// errors.
package router

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marketsignal/decisionengine/internal/domain/types"
	"github.com/marketsignal/decisionengine/internal/errcat"
	"github.com/marketsignal/decisionengine/internal/normalize"
)

// RoutedPayload is the Router's success output: the classified source,
// the normalized partial context, and the arrival timestamp.
type RoutedPayload struct {
	Source     types.Source
	Normalized *types.PartialContext
	Timestamp  time.Time
}

// Route classifies raw, normalizes it, and emits a structured log line
// with secrets redacted and long arrays truncated. A payload that
// isn't a JSON object, or whose source cannot be determined, yields a
// SCHEMA_VALIDATION or UNKNOWN_SOURCE *errcat.Error respectively.
func Route(raw map[string]any) (*RoutedPayload, error) {
	if raw == nil {
		return nil, errcat.New(errcat.KindSchemaValidation, "payload is not a JSON object")
	}

	source, trace := normalize.DetectSource(raw)
	if source == types.SourceUnknown {
		err := errcat.New(errcat.KindUnknownSource, "no source probe matched payload")
		for _, row := range trace.Rows {
			err.WithDetail(string(row.Source)+":"+row.Field, boolString(row.Observed))
		}
		log.Warn().
			Interface("payload", Redact(raw)).
			Msg("router: unknown source")
		return nil, err
	}

	normalized, err := normalize.Normalize(raw, source)
	if err != nil {
		return nil, errcat.Wrap(errcat.KindSchemaValidation, "normalization failed", err)
	}

	now := time.Now().UTC()
	log.Info().
		Str("source", string(source)).
		Interface("payload", Redact(raw)).
		Time("timestamp", now).
		Msg("router: routed payload")

	return &RoutedPayload{Source: source, Normalized: normalized, Timestamp: now}, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
