// Package config loads and freezes the engine's configuration: phase
// rules, volatility caps, quality boosts, decision thresholds, feed
// timeouts, and context-completeness rules.
package config

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// PhaseRule describes the allowed directions and size cap for a single
// market phase.
type PhaseRule struct {
	Name              string   `yaml:"name"`
	AllowedDirections []string `yaml:"allowed_directions"`
	SizeCap           float64  `yaml:"size_cap"`
}

// VolatilityCaps maps a volatility regime to a size multiplier cap.
type VolatilityCaps struct {
	Low    float64 `yaml:"low"`
	Normal float64 `yaml:"normal"`
	High   float64 `yaml:"high"`
}

// QualityBoosts maps an expert signal quality grade to a size multiplier.
type QualityBoosts struct {
	Extreme float64 `yaml:"extreme"`
	High    float64 `yaml:"high"`
	Medium  float64 `yaml:"medium"`
}

// SizeBounds clamps the final size multiplier.
type SizeBounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// ConfidenceThresholds gates verdict selection.
type ConfidenceThresholds struct {
	Execute float64 `yaml:"execute"`
	Wait    float64 `yaml:"wait"`
}

// ExpertThresholds gates the minimum acceptable AI score and the
// alignment bonus threshold.
type ExpertThresholds struct {
	MinAIScore         float64 `yaml:"min_ai_score"`
	BelowMinPenalty    float64 `yaml:"below_min_penalty"`
	AlignmentBonusPct  float64 `yaml:"alignment_bonus_pct"`
	AlignmentBonus     float64 `yaml:"alignment_bonus"`
}

// MarketGateConfig bounds the market microstructure gate.
type MarketGateConfig struct {
	MaxSpreadBps  float64 `yaml:"max_spread_bps"`
	MaxATRSpike   float64 `yaml:"max_atr_spike"`
	MinDepthScore float64 `yaml:"min_depth_score"`
	AssumedScore  float64 `yaml:"assumed_score"`
}

// CompletenessConfig governs Context Store completeness evaluation.
type CompletenessConfig struct {
	MaxAgeMS        int64    `yaml:"max_age_ms"`
	RequiredSources []string `yaml:"required_sources"`
	ExpertSources   []string `yaml:"expert_sources"`
}

// ConfidenceWeights are the five terms of the weighted confidence score.
type ConfidenceWeights struct {
	Regime     float64 `yaml:"regime"`
	Expert     float64 `yaml:"expert"`
	Alignment  float64 `yaml:"alignment"`
	Market     float64 `yaml:"market"`
	Structural float64 `yaml:"structural"`
}

// FeedTimeouts sets the per-provider call timeout in milliseconds.
type FeedTimeouts struct {
	OptionsMS    int `yaml:"options_ms"`
	AnalyticsMS  int `yaml:"analytics_ms"`
	LiquidityMS  int `yaml:"liquidity_ms"`
}

// CacheTTLs sets per-endpoint cache TTL in milliseconds.
type CacheTTLs struct {
	QuoteMS      int64 `yaml:"quote_ms"`
	IndicatorMS  int64 `yaml:"indicator_ms"`
	TimeSeriesMS int64 `yaml:"time_series_ms"`
	LiquidityMS  int64 `yaml:"liquidity_ms"`
}

// RetryPolicy configures the Error Handler's retry behavior.
type RetryPolicy struct {
	Attempts  int `yaml:"attempts"`
	BaseDelayMS int `yaml:"base_delay_ms"`
}

// DegradationConfig maps availability ratio bands to confidence/size
// penalties.
type DegradationConfig struct {
	MinorThreshold  float64 `yaml:"minor_threshold"`
	MajorThreshold  float64 `yaml:"major_threshold"`
	SevereThreshold float64 `yaml:"severe_threshold"`

	MinorConfidencePenalty  float64 `yaml:"minor_confidence_penalty"`
	MajorConfidencePenalty  float64 `yaml:"major_confidence_penalty"`
	SevereConfidencePenalty float64 `yaml:"severe_confidence_penalty"`

	MinorSizeReduction  float64 `yaml:"minor_size_reduction"`
	MajorSizeReduction  float64 `yaml:"major_size_reduction"`
	SevereSizeReduction float64 `yaml:"severe_size_reduction"`

	DowngradeFloor float64 `yaml:"downgrade_floor"`
}

// Engine is the full, immutable engine configuration (C1).
type Engine struct {
	Phases             map[string]PhaseRule `yaml:"phases"`
	Volatility         VolatilityCaps       `yaml:"volatility_caps"`
	Quality            QualityBoosts        `yaml:"quality_boosts"`
	SizeBounds         SizeBounds           `yaml:"size_bounds"`
	Confidence         ConfidenceThresholds `yaml:"confidence_thresholds"`
	ConfidenceWeights  ConfidenceWeights    `yaml:"confidence_weights"`
	Expert             ExpertThresholds     `yaml:"expert"`
	MarketGate         MarketGateConfig     `yaml:"market_gate"`
	Completeness       CompletenessConfig   `yaml:"completeness"`
	FeedTimeouts       FeedTimeouts         `yaml:"feed_timeouts"`
	CacheTTLs          CacheTTLs            `yaml:"cache_ttls"`
	Retry              RetryPolicy          `yaml:"retry"`
	Degradation        DegradationConfig    `yaml:"degradation"`

	hash string
}

var (
	registryOnce sync.Once
	registry     *Engine
	registryErr  error
)

// Load reads and validates the engine config from a YAML file, freezes
// it, and computes its content hash. Safe to call multiple times; only
// the first call's path takes effect (subsequent calls return the
// already-frozen registry), mirroring the teacher's provider-config
// load-then-validate idiom in providers.go.
func Load(path string) (*Engine, error) {
	registryOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			registryErr = fmt.Errorf("failed to read engine config: %w", err)
			return
		}

		var cfg Engine
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			registryErr = fmt.Errorf("failed to parse engine config: %w", err)
			return
		}

		if err := cfg.Validate(); err != nil {
			registryErr = fmt.Errorf("invalid engine config: %w", err)
			return
		}

		cfg.hash = computeHash(&cfg)
		registry = &cfg
	})

	return registry, registryErr
}

// MustLoadDefault loads the built-in default configuration. Used by
// tests and by the CLI when no config file is supplied.
func MustLoadDefault() *Engine {
	cfg := Default()
	cfg.hash = computeHash(cfg)
	return cfg
}

// Default returns the spec-mandated default configuration.
func Default() *Engine {
	return &Engine{
		Phases: map[string]PhaseRule{
			"1": {Name: "ACCUMULATION", AllowedDirections: []string{"LONG"}, SizeCap: 1.0},
			"2": {Name: "MARKUP", AllowedDirections: []string{"LONG", "SHORT"}, SizeCap: 1.2},
			"3": {Name: "DISTRIBUTION", AllowedDirections: []string{"SHORT"}, SizeCap: 1.0},
			"4": {Name: "MARKDOWN", AllowedDirections: []string{"LONG", "SHORT"}, SizeCap: 1.2},
		},
		Volatility: VolatilityCaps{Low: 1.2, Normal: 1.0, High: 0.6},
		Quality:    QualityBoosts{Extreme: 1.15, High: 1.0, Medium: 0.85},
		SizeBounds: SizeBounds{Min: 0.5, Max: 3.0},
		Confidence: ConfidenceThresholds{Execute: 80, Wait: 60},
		ConfidenceWeights: ConfidenceWeights{
			Regime: 0.30, Expert: 0.25, Alignment: 0.20, Market: 0.15, Structural: 0.10,
		},
		Expert: ExpertThresholds{
			MinAIScore: 6.0, BelowMinPenalty: 0.5, AlignmentBonusPct: 70, AlignmentBonus: 1.1,
		},
		MarketGate: MarketGateConfig{
			MaxSpreadBps: 12, MaxATRSpike: 3.0, MinDepthScore: 30, AssumedScore: 50,
		},
		Completeness: CompletenessConfig{
			MaxAgeMS:        5 * 60 * 1000,
			RequiredSources: []string{"phase"},
			ExpertSources:   []string{"options", "raw"},
		},
		FeedTimeouts: FeedTimeouts{OptionsMS: 600, AnalyticsMS: 600, LiquidityMS: 600},
		CacheTTLs: CacheTTLs{
			QuoteMS: 60_000, IndicatorMS: 300_000, TimeSeriesMS: 900_000, LiquidityMS: 60_000,
		},
		Retry: RetryPolicy{Attempts: 2, BaseDelayMS: 50},
		Degradation: DegradationConfig{
			MinorThreshold: 0.67, MajorThreshold: 0.33, SevereThreshold: 0,
			MinorConfidencePenalty: 5, MajorConfidencePenalty: 15, SevereConfidencePenalty: 30,
			MinorSizeReduction: 0.06, MajorSizeReduction: 0.15, SevereSizeReduction: 0.24,
			DowngradeFloor: 65,
		},
	}
}

// Validate ensures the configuration is internally consistent.
func (e *Engine) Validate() error {
	if len(e.Phases) == 0 {
		e.Phases = Default().Phases
	}
	if e.Volatility == (VolatilityCaps{}) {
		e.Volatility = Default().Volatility
	}
	if e.SizeBounds.Max <= 0 {
		e.SizeBounds = Default().SizeBounds
	}
	if e.SizeBounds.Min > e.SizeBounds.Max {
		return fmt.Errorf("size_bounds.min (%.2f) exceeds size_bounds.max (%.2f)", e.SizeBounds.Min, e.SizeBounds.Max)
	}
	if e.Confidence.Execute < e.Confidence.Wait {
		return fmt.Errorf("confidence_thresholds.execute (%.1f) must be >= wait (%.1f)", e.Confidence.Execute, e.Confidence.Wait)
	}
	sum := e.ConfidenceWeights.Regime + e.ConfidenceWeights.Expert + e.ConfidenceWeights.Alignment +
		e.ConfidenceWeights.Market + e.ConfidenceWeights.Structural
	if sum > 0 && (sum < 0.99 || sum > 1.01) {
		return fmt.Errorf("confidence_weights sum to %.3f, expected 1.0", sum)
	}
	return nil
}

// Hash returns the content hash computed at freeze time: the engine
// version surfaced on every decision packet.
func (e *Engine) Hash() string {
	return e.hash
}

func computeHash(cfg *Engine) string {
	clone := *cfg
	clone.hash = ""
	b, err := json.Marshal(clone)
	if err != nil {
		return "unknown"
	}
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%x", sum)[:12]
}
