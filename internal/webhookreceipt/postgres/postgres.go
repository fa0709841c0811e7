// Package postgres implements webhookreceipt.Recorder atop the
// webhook_receipts table defined alongside ledger_entries in
// internal/ledger/postgres/migrations.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/marketsignal/decisionengine/internal/domain/types"
	"github.com/marketsignal/decisionengine/internal/errcat"
	"github.com/marketsignal/decisionengine/internal/webhookreceipt"
)

type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

var _ webhookreceipt.Recorder = (*Store)(nil)

func New(db *sqlx.DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

type row struct {
	ID         string          `db:"id"`
	ReceivedAt time.Time       `db:"received_at"`
	Source     string          `db:"source"`
	Symbol     sql.NullString  `db:"symbol"`
	RawPayload json.RawMessage `db:"raw_payload"`
	ErrorKind  sql.NullString  `db:"error_kind"`
}

func (s *Store) Record(ctx context.Context, r webhookreceipt.Receipt) (*webhookreceipt.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload, err := json.Marshal(r.RawPayload)
	if err != nil {
		return nil, errcat.Wrap(errcat.KindCalculationError, "marshal receipt payload", err)
	}

	var errorKind sql.NullString
	if r.ErrorKind != "" {
		errorKind = sql.NullString{String: r.ErrorKind, Valid: true}
	}

	const query = `
		INSERT INTO webhook_receipts (source, symbol, raw_payload, error_kind)
		VALUES ($1, $2, $3, $4)
		RETURNING id, received_at`

	err = s.db.QueryRowxContext(ctx, query, string(r.Source), r.Symbol, payload, errorKind).
		Scan(&r.ID, &r.ReceivedAt)
	if err != nil {
		return nil, errcat.Wrap(errcat.KindDatabaseError, "insert webhook receipt", err)
	}
	return &r, nil
}

func (s *Store) Recent(ctx context.Context, limit int) ([]webhookreceipt.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	const query = `
		SELECT id, received_at, source, symbol, raw_payload, error_kind
		FROM webhook_receipts
		ORDER BY received_at DESC
		LIMIT $1`

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, errcat.Wrap(errcat.KindDatabaseError, "query webhook receipts", err)
	}

	out := make([]webhookreceipt.Receipt, 0, len(rows))
	for _, r := range rows {
		var payload map[string]any
		if len(r.RawPayload) > 0 {
			if err := json.Unmarshal(r.RawPayload, &payload); err != nil {
				return nil, errcat.Wrap(errcat.KindCalculationError, "unmarshal receipt payload", err)
			}
		}
		out = append(out, webhookreceipt.Receipt{
			ID:         r.ID,
			ReceivedAt: r.ReceivedAt,
			Source:     types.Source(r.Source),
			Symbol:     r.Symbol.String,
			RawPayload: payload,
			ErrorKind:  r.ErrorKind.String,
		})
	}
	return out, nil
}
