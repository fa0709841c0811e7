// Package contextstore implements the Context Store (C4): a per-symbol
// actor that merges partial contexts, tracks per-source freshness, and
// materializes a Decision Context once complete.
package contextstore

import (
	"fmt"
	"sync"
	"time"

	"github.com/marketsignal/decisionengine/internal/config"
	"github.com/marketsignal/decisionengine/internal/domain/types"
)

// symbolState is the single-writer state for one symbol, guarded by
// its own mutex — the sharded-lock policy chosen to resolve the
// production-sharding open question in favor of per-symbol isolation,
// never a bare singleton.
type symbolState struct {
	mu sync.Mutex

	symbol      string
	instrument  *types.Instrument
	regime      *types.RegimeSection
	alignment   *types.AlignmentSection
	expert      *types.ExpertSection
	expertKind  types.Source
	structure   *types.StructureSection
	lastUpdated map[types.Source]int64
}

// Store shards per-symbol state behind a map guarded by its own lock,
// used only to find-or-create a shard; all section mutation happens
// under the shard's own mutex.
type Store struct {
	cfg config.CompletenessConfig

	shardsMu sync.RWMutex
	shards   map[string]*symbolState

	now func() time.Time
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithNowFunc overrides the store's monotonic now-source, letting
// tests pin time per spec §4.3's single now-source policy.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(cfg config.CompletenessConfig, opts ...Option) *Store {
	s := &Store{
		cfg:    cfg,
		shards: make(map[string]*symbolState),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) shardFor(symbol string) *symbolState {
	s.shardsMu.RLock()
	shard, ok := s.shards[symbol]
	s.shardsMu.RUnlock()
	if ok {
		return shard
	}

	s.shardsMu.Lock()
	defer s.shardsMu.Unlock()
	if shard, ok := s.shards[symbol]; ok {
		return shard
	}
	shard = &symbolState{symbol: symbol, lastUpdated: make(map[types.Source]int64)}
	s.shards[symbol] = shard
	return shard
}

// Update merges a partial context into the symbol's state: instrument
// is merged field-wise (later wins per field); other sections replace
// wholesale. Conflicting symbols within the same partial's instrument
// and the shard's established identity are rejected — the caller is
// expected to route by symbol before calling Update.
func (s *Store) Update(symbol string, partial *types.PartialContext, source types.Source) error {
	shard := s.shardFor(symbol)
	nowMS := s.now().UnixMilli()

	shard.mu.Lock()
	defer shard.mu.Unlock()

	if partial.Instrument != nil {
		if shard.instrument == nil {
			shard.instrument = &types.Instrument{}
		}
		if partial.Instrument.Symbol != "" {
			if shard.instrument.Symbol != "" && shard.instrument.Symbol != partial.Instrument.Symbol {
				return fmt.Errorf("contextstore: conflicting symbol %q for shard %q", partial.Instrument.Symbol, symbol)
			}
			shard.instrument.Symbol = partial.Instrument.Symbol
		}
		if partial.Instrument.Exchange != "" {
			shard.instrument.Exchange = partial.Instrument.Exchange
		}
		if partial.Instrument.Price != nil {
			shard.instrument.Price = partial.Instrument.Price
		}
	}

	switch {
	case partial.Regime != nil:
		shard.regime = partial.Regime
		shard.lastUpdated[types.SourcePhase] = nowMS
	case partial.Alignment != nil:
		shard.alignment = partial.Alignment
		shard.lastUpdated[types.SourceAlignment] = nowMS
	case partial.Expert != nil:
		shard.expert = partial.Expert
		shard.expertKind = source
		shard.lastUpdated[source] = nowMS
	case partial.Structure != nil:
		shard.structure = partial.Structure
		shard.lastUpdated[types.SourceStructural] = nowMS
	}
	return nil
}

// isExpired reports whether a source's last update is older than maxAge.
func (shard *symbolState) isExpired(source types.Source, nowMS, maxAgeMS int64) bool {
	ts, ok := shard.lastUpdated[source]
	if !ok {
		return true
	}
	return nowMS-ts > maxAgeMS
}

// IsComplete evaluates the §3 completeness rule: every required source
// present and non-expired, at least one expert source present and
// non-expired, and instrument.symbol present.
func (s *Store) IsComplete(symbol string) bool {
	shard := s.shardFor(symbol)
	nowMS := s.now().UnixMilli()

	shard.mu.Lock()
	defer shard.mu.Unlock()
	return shard.isCompleteLocked(nowMS, s.cfg)
}

func (shard *symbolState) isCompleteLocked(nowMS int64, cfg config.CompletenessConfig) bool {
	if shard.instrument == nil || shard.instrument.Symbol == "" {
		return false
	}
	for _, required := range cfg.RequiredSources {
		if shard.isExpired(types.Source(required), nowMS, cfg.MaxAgeMS) {
			return false
		}
	}
	hasExpert := false
	for _, expertSrc := range cfg.ExpertSources {
		if !shard.isExpired(types.Source(expertSrc), nowMS, cfg.MaxAgeMS) {
			hasExpert = true
			break
		}
	}
	return hasExpert
}

// Build returns the materialized Decision Context, or false if the
// symbol is not yet complete.
func (s *Store) Build(symbol, engineVersion string) (*types.DecisionContext, bool) {
	shard := s.shardFor(symbol)
	nowMS := s.now().UnixMilli()

	shard.mu.Lock()
	defer shard.mu.Unlock()

	if !shard.isCompleteLocked(nowMS, s.cfg) {
		return nil, false
	}

	dc := &types.DecisionContext{
		Symbol:     shard.instrument.Symbol,
		Instrument: *shard.instrument,
		Alignment:  types.DefaultAlignment(),
		Structure:  types.DefaultStructure(),
		Meta: types.Meta{
			EngineVersion: engineVersion,
			ReceivedAt:    s.now(),
		},
	}
	if shard.regime != nil {
		dc.Regime = *shard.regime
	}
	if shard.alignment != nil {
		dc.Alignment = *shard.alignment
	}
	if shard.expert != nil {
		dc.Expert = *shard.expert
	}
	if shard.structure != nil {
		dc.Structure = *shard.structure
	}
	dc.Meta.Completeness = shard.completenessRatioLocked(nowMS, s.cfg)

	return dc, true
}

// CompletenessStats summarizes presence, age, and ratio for one symbol.
type CompletenessStats struct {
	Symbol      string
	Present     map[types.Source]bool
	AgeMS       map[types.Source]int64
	Ratio       float64
}

// GetCompletenessStats reports per-source presence/age and the overall
// non-expired-over-known ratio.
func (s *Store) GetCompletenessStats(symbol string) CompletenessStats {
	shard := s.shardFor(symbol)
	nowMS := s.now().UnixMilli()

	shard.mu.Lock()
	defer shard.mu.Unlock()

	stats := CompletenessStats{
		Symbol:  symbol,
		Present: map[types.Source]bool{},
		AgeMS:   map[types.Source]int64{},
	}
	for source, ts := range shard.lastUpdated {
		stats.Present[source] = nowMS-ts <= s.cfg.MaxAgeMS
		stats.AgeMS[source] = nowMS - ts
	}
	stats.Ratio = shard.completenessRatioLocked(nowMS, s.cfg)
	return stats
}

func (shard *symbolState) completenessRatioLocked(nowMS int64, cfg config.CompletenessConfig) float64 {
	known := len(shard.lastUpdated)
	if known == 0 {
		return 0
	}
	fresh := 0
	for source, ts := range shard.lastUpdated {
		if nowMS-ts <= cfg.MaxAgeMS {
			fresh++
		}
		_ = source
	}
	return float64(fresh) / float64(known)
}

// Snapshot is a read-only view of one symbol's current merged sections,
// for the admin API's current-phase/current-alignment lookups. ok is
// false only if the symbol has never been seen.
type Snapshot struct {
	Symbol    string
	Regime    *types.RegimeSection
	Alignment *types.AlignmentSection
	Expert    *types.ExpertSection
	Structure *types.StructureSection
	Complete  bool
}

// Snapshot returns the symbol's currently merged sections without
// requiring completeness, unlike Build.
func (s *Store) Snapshot(symbol string) (Snapshot, bool) {
	s.shardsMu.RLock()
	shard, ok := s.shards[symbol]
	s.shardsMu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}

	shard.mu.Lock()
	defer shard.mu.Unlock()
	nowMS := s.now().UnixMilli()
	return Snapshot{
		Symbol:    symbol,
		Regime:    shard.regime,
		Alignment: shard.alignment,
		Expert:    shard.expert,
		Structure: shard.structure,
		Complete:  shard.isCompleteLocked(nowMS, s.cfg),
	}, true
}

// CleanupExpired drops sections across all shards whose lastUpdated is
// older than maxAge, deleting the timestamp too.
func (s *Store) CleanupExpired() {
	nowMS := s.now().UnixMilli()

	s.shardsMu.RLock()
	shards := make([]*symbolState, 0, len(s.shards))
	for _, shard := range s.shards {
		shards = append(shards, shard)
	}
	s.shardsMu.RUnlock()

	for _, shard := range shards {
		shard.cleanupExpiredLocked(nowMS, s.cfg.MaxAgeMS)
	}
}

func (shard *symbolState) cleanupExpiredLocked(nowMS, maxAgeMS int64) {
	shard.mu.Lock()
	defer shard.mu.Unlock()

	for source, ts := range shard.lastUpdated {
		if nowMS-ts <= maxAgeMS {
			continue
		}
		delete(shard.lastUpdated, source)
		switch source {
		case types.SourcePhase:
			shard.regime = nil
		case types.SourceAlignment:
			shard.alignment = nil
		case types.SourceOptions, types.SourceRaw:
			shard.expert = nil
		case types.SourceStructural:
			shard.structure = nil
		}
	}
}

// StartSweep runs CleanupExpired on a ticker until stop is closed,
// mirroring the teacher's TTL cache cleanup goroutine
// (internal/data/cache.TTLCache.cleanup).
func (s *Store) StartSweep(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.CleanupExpired()
			case <-stop:
				return
			}
		}
	}()
}
