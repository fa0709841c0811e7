package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsignal/decisionengine/internal/domain/types"
	"github.com/marketsignal/decisionengine/internal/errcat"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	return New(sqlxDB, time.Second), mock
}

func TestAppend_InsertsAndScansGeneratedFields(t *testing.T) {
	store, mock := newMockStore(t)

	entry := types.LedgerEntry{
		EngineVersion:   "abc123",
		Signal:          types.DecisionContext{Symbol: "BTC-USD"},
		Decision:        types.ActionExecute,
		DecisionReason:  "confidence cleared execute threshold",
		ConfluenceScore: 87.2,
		Regime:          types.RegimeSection{Phase: 2},
	}

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO ledger_entries").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("entry-1", now))

	saved, err := store.Append(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, "entry-1", saved.ID)
	assert.Equal(t, now, saved.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateExit_NoRowsAffected_ReExaminesReason(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE ledger_entries").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows := sqlmock.NewRows([]string{
		"id", "created_at", "engine_version", "signal", "phase_context", "decision",
		"decision_reason", "decision_breakdown", "confluence_score", "execution",
		"exit_data", "regime", "hypothetical", "gate_results", "receipt_id",
	}).AddRow(
		"entry-1", time.Now(), "abc123", []byte(`{"symbol":"BTC-USD"}`), nil, "EXECUTE",
		"reason", []byte(`{}`), 87.2, nil,
		[]byte(`{"price":100,"reason":"target","netPnl":10,"exitedAt":"2026-01-01T00:00:00Z"}`),
		[]byte(`{}`), nil, nil, nil,
	)
	mock.ExpectQuery("SELECT (.|\n)*FROM ledger_entries").WillReturnRows(rows)

	err := store.UpdateExit(context.Background(), "entry-1", types.Exit{Price: 200})
	require.Error(t, err)
	var ce *errcat.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, errcat.KindOverwriteNotAllowed, ce.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NoRows_ReturnsEntryNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.|\n)*FROM ledger_entries").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
	var ce *errcat.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, errcat.KindEntryNotFound, ce.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}
