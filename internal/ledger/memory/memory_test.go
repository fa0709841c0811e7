package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsignal/decisionengine/internal/domain/types"
	"github.com/marketsignal/decisionengine/internal/errcat"
)

func executeEntry() types.LedgerEntry {
	return types.LedgerEntry{
		Signal:   types.DecisionContext{Symbol: "BTC-USD"},
		Decision: types.ActionExecute,
	}
}

func TestAppend_AssignsIDAndTimestamp(t *testing.T) {
	s := New()
	saved, err := s.Append(context.Background(), executeEntry())
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	fetched, err := s.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ActionExecute, fetched.Decision)
}

func TestUpdateExit_SucceedsOnceThenRejectsOverwrite(t *testing.T) {
	s := New()
	saved, err := s.Append(context.Background(), executeEntry())
	require.NoError(t, err)

	err = s.UpdateExit(context.Background(), saved.ID, types.Exit{Price: 100, Reason: "target"})
	require.NoError(t, err)

	err = s.UpdateExit(context.Background(), saved.ID, types.Exit{Price: 110, Reason: "stop"})
	require.Error(t, err)
	var ce *errcat.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, errcat.KindOverwriteNotAllowed, ce.Kind)

	fetched, err := s.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.ExitData)
	assert.Equal(t, "target", fetched.ExitData.Reason)
}

func TestUpdateExit_RejectsOnNonExecuteEntry(t *testing.T) {
	s := New()
	saved, err := s.Append(context.Background(), types.LedgerEntry{Decision: types.ActionSkip})
	require.NoError(t, err)

	err = s.UpdateExit(context.Background(), saved.ID, types.Exit{})
	require.Error(t, err)
	var ce *errcat.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, errcat.KindInvalidUpdate, ce.Kind)
}

func TestUpdateHypothetical_RejectsOnExecuteEntry(t *testing.T) {
	s := New()
	saved, err := s.Append(context.Background(), executeEntry())
	require.NoError(t, err)

	err = s.UpdateHypothetical(context.Background(), saved.ID, types.Hypothetical{})
	require.Error(t, err)
	var ce *errcat.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, errcat.KindInvalidUpdate, ce.Kind)
}

func TestGet_UnknownID_ReturnsNotFound(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), "missing")
	require.Error(t, err)
	var ce *errcat.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, errcat.KindEntryNotFound, ce.Kind)
}

func TestQuery_CapsAtQueryLimitCap(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		_, err := s.Append(context.Background(), executeEntry())
		require.NoError(t, err)
	}

	results, err := s.Query(context.Background(), types.QueryFilters{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = s.Query(context.Background(), types.QueryFilters{})
	require.NoError(t, err)
	assert.Len(t, results, 5)
}

func TestQuery_FiltersByDecisionAndTicker(t *testing.T) {
	s := New()
	_, err := s.Append(context.Background(), executeEntry())
	require.NoError(t, err)
	_, err = s.Append(context.Background(), types.LedgerEntry{
		Signal: types.DecisionContext{Symbol: "ETH-USD"}, Decision: types.ActionSkip,
	})
	require.NoError(t, err)

	results, err := s.Query(context.Background(), types.QueryFilters{Decision: types.ActionExecute})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "BTC-USD", results[0].Signal.Symbol)

	results, err = s.Query(context.Background(), types.QueryFilters{Ticker: "ETH-USD"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, types.ActionSkip, results[0].Decision)
}

func TestCalculateAggregates_SummarizesPnLAndCounts(t *testing.T) {
	s := New()
	saved, err := s.Append(context.Background(), executeEntry())
	require.NoError(t, err)
	require.NoError(t, s.UpdateExit(context.Background(), saved.ID, types.Exit{NetPnL: 50}))

	_, err = s.Append(context.Background(), types.LedgerEntry{Decision: types.ActionSkip})
	require.NoError(t, err)

	agg, err := s.CalculateAggregates(context.Background(), types.QueryFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, agg.WithExit)
	assert.Equal(t, 1, agg.WithoutExit)
	assert.Equal(t, 1, agg.Wins)
	assert.Equal(t, 50.0, agg.SummedNetPnL)
}
