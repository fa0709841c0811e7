// Package memory implements an in-process Ledger backend: useful for
// tests and for running the engine without a configured database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marketsignal/decisionengine/internal/domain/types"
	"github.com/marketsignal/decisionengine/internal/errcat"
	"github.com/marketsignal/decisionengine/internal/ledger"
)

// Store is a mutex-guarded map of ledger entries, append-only from the
// caller's perspective: entries are only ever added or patched via
// UpdateExit/UpdateHypothetical, never removed.
type Store struct {
	mu      sync.RWMutex
	entries map[string]types.LedgerEntry
	order   []string // insertion order, newest last
	now     func() time.Time
}

var _ ledger.Ledger = (*Store)(nil)

func New() *Store {
	return &Store{
		entries: make(map[string]types.LedgerEntry),
		now:     time.Now,
	}
}

func (s *Store) Append(_ context.Context, entry types.LedgerEntry) (*types.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = uuid.NewString()
	entry.CreatedAt = s.now().UTC()

	s.entries[entry.ID] = entry
	s.order = append(s.order, entry.ID)

	saved := entry
	return &saved, nil
}

func (s *Store) UpdateExit(_ context.Context, id string, exit types.Exit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return errcat.New(errcat.KindEntryNotFound, "no ledger entry with that id")
	}
	if err := ledger.ValidateExit(entry); err != nil {
		return err
	}

	entry.ExitData = &exit
	s.entries[id] = entry
	return nil
}

func (s *Store) UpdateHypothetical(_ context.Context, id string, hypothetical types.Hypothetical) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return errcat.New(errcat.KindEntryNotFound, "no ledger entry with that id")
	}
	if err := ledger.ValidateHypothetical(entry); err != nil {
		return err
	}

	entry.Hypothetical = &hypothetical
	s.entries[id] = entry
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*types.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, errcat.New(errcat.KindEntryNotFound, "no ledger entry with that id")
	}
	return &entry, nil
}

func (s *Store) Query(_ context.Context, filters types.QueryFilters) ([]types.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []types.LedgerEntry
	for i := len(s.order) - 1; i >= 0; i-- {
		entry := s.entries[s.order[i]]
		if matches(entry, filters) {
			matched = append(matched, entry)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit := ledger.ClampLimit(filters.Limit)
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
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
			if e.ExitData.NetPnL > 0 {
				agg.Wins++
			} else if e.ExitData.NetPnL < 0 {
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

func matches(e types.LedgerEntry, f types.QueryFilters) bool {
	if f.Decision != "" && e.Decision != f.Decision {
		return false
	}
	if f.Quality != "" && e.Signal.Expert.Quality != f.Quality {
		return false
	}
	if f.TradeType != "" && tradeTypeOf(e) != f.TradeType {
		return false
	}
	if f.RegimeVol != "" && e.Regime.Volatility != f.RegimeVol {
		return false
	}
	if f.Ticker != "" && e.Signal.Symbol != f.Ticker {
		return false
	}
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.CreatedAt.After(*f.To) {
		return false
	}
	if f.HasExit != nil && (e.ExitData != nil) != *f.HasExit {
		return false
	}
	if f.HasHypothetical != nil && (e.Hypothetical != nil) != *f.HasHypothetical {
		return false
	}
	if f.MinConfluence != nil && e.ConfluenceScore < *f.MinConfluence {
		return false
	}
	if f.MaxConfluence != nil && e.ConfluenceScore > *f.MaxConfluence {
		return false
	}
	if f.ExitReason != "" && (e.ExitData == nil || e.ExitData.Reason != f.ExitReason) {
		return false
	}
	return true
}

// tradeTypeOf buckets an entry by its signal's apparent timeframe; the
// engine itself is timeframe-agnostic, so this is best-effort from the
// expert components list.
func tradeTypeOf(e types.LedgerEntry) types.TradeType {
	for _, c := range e.Signal.Expert.Components {
		switch c {
		case "scalp":
			return types.TradeScalp
		case "swing":
			return types.TradeSwing
		}
	}
	return types.TradeDay
}
