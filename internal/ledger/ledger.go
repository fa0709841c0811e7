// Package ledger defines the append-only decision ledger (C9): one
// entry per engine decision, with exactly-once exit/hypothetical
// follow-up and query/aggregate helpers. The interface hides the
// backing store so callers never see the underlying connection.
package ledger

import (
	"context"

	"github.com/marketsignal/decisionengine/internal/domain/types"
	"github.com/marketsignal/decisionengine/internal/errcat"
)

// QueryLimitCap is the hard ceiling on any query's result size,
// regardless of the filter's requested limit.
const QueryLimitCap = 1000

// Ledger is the append-only store the Orchestrator writes every
// decision to, and the admin API reads from.
type Ledger interface {
	// Append persists a new entry and assigns it an ID and CreatedAt.
	Append(ctx context.Context, entry types.LedgerEntry) (*types.LedgerEntry, error)
	// UpdateExit sets an entry's exit data. Only valid on an EXECUTE
	// entry that has no exit recorded yet.
	UpdateExit(ctx context.Context, id string, exit types.Exit) error
	// UpdateHypothetical sets an entry's hypothetical follow-up. Only
	// valid on a non-EXECUTE entry that has none recorded yet.
	UpdateHypothetical(ctx context.Context, id string, hypothetical types.Hypothetical) error
	// Get returns one entry by ID, or KindEntryNotFound.
	Get(ctx context.Context, id string) (*types.LedgerEntry, error)
	// Query returns entries matching filters, newest first, capped at
	// min(QueryLimitCap, filters.Limit) if filters.Limit > 0.
	Query(ctx context.Context, filters types.QueryFilters) ([]types.LedgerEntry, error)
	// CalculateAggregates summarizes entries matching filters.
	CalculateAggregates(ctx context.Context, filters types.QueryFilters) (*types.Aggregates, error)
}

// ClampLimit enforces the query cap invariant: len(query) <= min(1000, n).
// Shared by every backend's Query so the cap can't drift between them.
func ClampLimit(requested int) int {
	if requested <= 0 || requested > QueryLimitCap {
		return QueryLimitCap
	}
	return requested
}

// ValidateExit enforces the exit exclusivity invariant on the write
// path, independent of storage backend. Backends that can express the
// same check atomically in the store itself (a conditional UPDATE) may
// skip this and report KindInvalidUpdate/KindOverwriteNotAllowed from
// the store response instead, but the Kind used must match.
func ValidateExit(entry types.LedgerEntry) error {
	if entry.Decision != types.ActionExecute {
		return errcat.New(errcat.KindInvalidUpdate, "exit may only be set on an EXECUTE entry")
	}
	if entry.ExitData != nil {
		return errcat.New(errcat.KindOverwriteNotAllowed, "exit already recorded for this entry")
	}
	return nil
}

// ValidateHypothetical enforces the hypothetical exclusivity invariant
// on the write path, independent of storage backend.
func ValidateHypothetical(entry types.LedgerEntry) error {
	if entry.Decision == types.ActionExecute {
		return errcat.New(errcat.KindInvalidUpdate, "hypothetical may only be set on a non-EXECUTE entry")
	}
	if entry.Hypothetical != nil {
		return errcat.New(errcat.KindOverwriteNotAllowed, "hypothetical already recorded for this entry")
	}
	return nil
}
