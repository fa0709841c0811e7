// Package postgres implements the Ledger (C9) atop PostgreSQL: one
// append per decision, JSONB columns for the nested sections, and
// conditional UPDATEs that enforce the exit/hypothetical
// exactly-once invariant directly in SQL rather than via a
// read-then-write race.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/marketsignal/decisionengine/internal/domain/types"
	"github.com/marketsignal/decisionengine/internal/errcat"
	"github.com/marketsignal/decisionengine/internal/ledger"
)

type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

var _ ledger.Ledger = (*Store)(nil)

func New(db *sqlx.DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

// row is the JSONB-marshaled shape the table actually stores; sqlx
// scans into it directly via db tags, then Get/Query re-hydrate the
// typed LedgerEntry.
type row struct {
	ID                string          `db:"id"`
	CreatedAt         time.Time       `db:"created_at"`
	EngineVersion     string          `db:"engine_version"`
	Signal            json.RawMessage `db:"signal"`
	PhaseContext      json.RawMessage `db:"phase_context"`
	Decision          string          `db:"decision"`
	DecisionReason    string          `db:"decision_reason"`
	DecisionBreakdown json.RawMessage `db:"decision_breakdown"`
	ConfluenceScore   float64         `db:"confluence_score"`
	Execution         json.RawMessage `db:"execution"`
	ExitData          json.RawMessage `db:"exit_data"`
	Regime            json.RawMessage `db:"regime"`
	Hypothetical      json.RawMessage `db:"hypothetical"`
	GateResults       json.RawMessage `db:"gate_results"`
	ReceiptID         sql.NullString  `db:"receipt_id"`
}

func (s *Store) Append(ctx context.Context, entry types.LedgerEntry) (*types.LedgerEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	signal, err := json.Marshal(entry.Signal)
	if err != nil {
		return nil, errcat.Wrap(errcat.KindCalculationError, "marshal signal", err)
	}
	phaseContext, _ := json.Marshal(entry.PhaseContext)
	breakdown, err := json.Marshal(entry.DecisionBreakdown)
	if err != nil {
		return nil, errcat.Wrap(errcat.KindCalculationError, "marshal decision breakdown", err)
	}
	execution, _ := json.Marshal(entry.Execution)
	regime, err := json.Marshal(entry.Regime)
	if err != nil {
		return nil, errcat.Wrap(errcat.KindCalculationError, "marshal regime", err)
	}
	gateResults, _ := json.Marshal(entry.GateResults)

	const query = `
		INSERT INTO ledger_entries
			(engine_version, signal, phase_context, decision, decision_reason,
			 decision_breakdown, confluence_score, execution, regime, gate_results, receipt_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`

	var receiptID sql.NullString
	if entry.ReceiptID != nil {
		receiptID = sql.NullString{String: *entry.ReceiptID, Valid: true}
	}

	err = s.db.QueryRowxContext(ctx, query,
		entry.EngineVersion, signal, phaseContext, entry.Decision, entry.DecisionReason,
		breakdown, entry.ConfluenceScore, execution, regime, gateResults, receiptID,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, errcat.Wrap(errcat.KindDatabaseError, "insert ledger entry", err)
	}

	return &entry, nil
}

func (s *Store) UpdateExit(ctx context.Context, id string, exit types.Exit) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	exitJSON, err := json.Marshal(exit)
	if err != nil {
		return errcat.Wrap(errcat.KindCalculationError, "marshal exit", err)
	}

	const query = `
		UPDATE ledger_entries
		SET exit_data = $1
		WHERE id = $2 AND decision = 'EXECUTE' AND exit_data IS NULL`

	result, err := s.db.ExecContext(ctx, query, exitJSON, id)
	if err != nil {
		return errcat.Wrap(errcat.KindDatabaseError, "update exit", err)
	}
	return s.requireSingleRowAffected(ctx, id, result)
}

func (s *Store) UpdateHypothetical(ctx context.Context, id string, hypothetical types.Hypothetical) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	hypoJSON, err := json.Marshal(hypothetical)
	if err != nil {
		return errcat.Wrap(errcat.KindCalculationError, "marshal hypothetical", err)
	}

	const query = `
		UPDATE ledger_entries
		SET hypothetical = $1
		WHERE id = $2 AND decision != 'EXECUTE' AND hypothetical IS NULL`

	result, err := s.db.ExecContext(ctx, query, hypoJSON, id)
	if err != nil {
		return errcat.Wrap(errcat.KindDatabaseError, "update hypothetical", err)
	}
	return s.requireSingleRowAffected(ctx, id, result)
}

// requireSingleRowAffected distinguishes "no such entry" from "entry
// exists but the conditional UPDATE's WHERE clause excluded it"
// (already set, or wrong decision) by re-reading the row.
func (s *Store) requireSingleRowAffected(ctx context.Context, id string, result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return errcat.Wrap(errcat.KindDatabaseError, "read rows affected", err)
	}
	if affected == 1 {
		return nil
	}

	entry, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if entry.ExitData != nil || entry.Hypothetical != nil {
		return errcat.New(errcat.KindOverwriteNotAllowed, "field already recorded for this entry")
	}
	return errcat.New(errcat.KindInvalidUpdate, "update not permitted for this entry's decision")
}

func (s *Store) Get(ctx context.Context, id string) (*types.LedgerEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	const query = `
		SELECT id, created_at, engine_version, signal, phase_context, decision,
		       decision_reason, decision_breakdown, confluence_score, execution,
		       exit_data, regime, hypothetical, gate_results, receipt_id
		FROM ledger_entries
		WHERE id = $1`

	var r row
	if err := s.db.GetContext(ctx, &r, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errcat.New(errcat.KindEntryNotFound, "no ledger entry with that id")
		}
		return nil, errcat.Wrap(errcat.KindDatabaseError, "get ledger entry", err)
	}
	return r.toEntry()
}

func (s *Store) Query(ctx context.Context, filters types.QueryFilters) ([]types.LedgerEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query, args := buildQuery(filters)
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errcat.Wrap(errcat.KindDatabaseError, "query ledger entries", err)
	}

	entries := make([]types.LedgerEntry, 0, len(rows))
	for _, r := range rows {
		entry, err := r.toEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (s *Store) CalculateAggregates(ctx context.Context, filters types.QueryFilters) (*types.Aggregates, error) {
	entries, err := s.Query(ctx, filters)
	if err != nil {
		return nil, err
	}

	agg := &types.Aggregates{CountByDecision: map[types.Action]int{}}
	var confluenceSum float64
	for _, e := range entries {
		agg.CountByDecision[e.Decision]++
		confluenceSum += e.ConfluenceScore

		if e.ExitData != nil {
			agg.WithExit++
			agg.SummedNetPnL += e.ExitData.NetPnL
			switch {
			case e.ExitData.NetPnL > 0:
				agg.Wins++
			case e.ExitData.NetPnL < 0:
				agg.Losses++
			}
		} else {
			agg.WithoutExit++
		}

		if e.Hypothetical != nil {
			agg.WithHypothetical++
		} else {
			agg.WithoutHypothetical++
		}
	}
	if len(entries) > 0 {
		agg.AverageConfluence = confluenceSum / float64(len(entries))
	}
	return agg, nil
}

// buildQuery renders a dynamic WHERE clause from non-zero filters and
// clamps the result size per the query-cap invariant.
func buildQuery(f types.QueryFilters) (string, []any) {
	query := `
		SELECT id, created_at, engine_version, signal, phase_context, decision,
		       decision_reason, decision_breakdown, confluence_score, execution,
		       exit_data, regime, hypothetical, gate_results, receipt_id
		FROM ledger_entries
		WHERE 1=1`
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Decision != "" {
		query += " AND decision = " + arg(string(f.Decision))
	}
	if f.Ticker != "" {
		query += " AND signal -> 'symbol' = to_jsonb(" + arg(f.Ticker) + "::text)"
	}
	if f.From != nil {
		query += " AND created_at >= " + arg(*f.From)
	}
	if f.To != nil {
		query += " AND created_at <= " + arg(*f.To)
	}
	if f.HasExit != nil {
		if *f.HasExit {
			query += " AND exit_data IS NOT NULL"
		} else {
			query += " AND exit_data IS NULL"
		}
	}
	if f.HasHypothetical != nil {
		if *f.HasHypothetical {
			query += " AND hypothetical IS NOT NULL"
		} else {
			query += " AND hypothetical IS NULL"
		}
	}
	if f.MinConfluence != nil {
		query += " AND confluence_score >= " + arg(*f.MinConfluence)
	}
	if f.MaxConfluence != nil {
		query += " AND confluence_score <= " + arg(*f.MaxConfluence)
	}
	if f.ExitReason != "" {
		query += " AND exit_data ->> 'reason' = " + arg(f.ExitReason)
	}

	query += " ORDER BY created_at DESC LIMIT " + arg(ledger.ClampLimit(f.Limit))
	return query, args
}

func (r row) toEntry() (*types.LedgerEntry, error) {
	entry := &types.LedgerEntry{
		ID:              r.ID,
		CreatedAt:       r.CreatedAt,
		EngineVersion:   r.EngineVersion,
		Decision:        types.Action(r.Decision),
		DecisionReason:  r.DecisionReason,
		ConfluenceScore: r.ConfluenceScore,
	}
	if r.ReceiptID.Valid {
		entry.ReceiptID = &r.ReceiptID.String
	}

	fields := []struct {
		raw json.RawMessage
		out any
	}{
		{r.Signal, &entry.Signal},
		{r.DecisionBreakdown, &entry.DecisionBreakdown},
		{r.Regime, &entry.Regime},
	}
	for _, f := range fields {
		if len(f.raw) == 0 || string(f.raw) == "null" {
			continue
		}
		if err := json.Unmarshal(f.raw, f.out); err != nil {
			return nil, errcat.Wrap(errcat.KindCalculationError, "unmarshal ledger row", err)
		}
	}

	if len(r.PhaseContext) > 0 && string(r.PhaseContext) != "null" {
		entry.PhaseContext = &types.RegimeSection{}
		if err := json.Unmarshal(r.PhaseContext, entry.PhaseContext); err != nil {
			return nil, errcat.Wrap(errcat.KindCalculationError, "unmarshal phase context", err)
		}
	}
	if len(r.Execution) > 0 && string(r.Execution) != "null" {
		entry.Execution = &types.Execution{}
		if err := json.Unmarshal(r.Execution, entry.Execution); err != nil {
			return nil, errcat.Wrap(errcat.KindCalculationError, "unmarshal execution", err)
		}
	}
	if len(r.ExitData) > 0 && string(r.ExitData) != "null" {
		entry.ExitData = &types.Exit{}
		if err := json.Unmarshal(r.ExitData, entry.ExitData); err != nil {
			return nil, errcat.Wrap(errcat.KindCalculationError, "unmarshal exit data", err)
		}
	}
	if len(r.Hypothetical) > 0 && string(r.Hypothetical) != "null" {
		entry.Hypothetical = &types.Hypothetical{}
		if err := json.Unmarshal(r.Hypothetical, entry.Hypothetical); err != nil {
			return nil, errcat.Wrap(errcat.KindCalculationError, "unmarshal hypothetical", err)
		}
	}
	if len(r.GateResults) > 0 && string(r.GateResults) != "null" {
		entry.GateResults = &types.GateResults{}
		if err := json.Unmarshal(r.GateResults, entry.GateResults); err != nil {
			return nil, errcat.Wrap(errcat.KindCalculationError, "unmarshal gate results", err)
		}
	}

	return entry, nil
}
