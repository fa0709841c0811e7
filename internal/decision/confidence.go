package decision

import (
	"math"

	"github.com/marketsignal/decisionengine/internal/config"
	"github.com/marketsignal/decisionengine/internal/domain/types"
)

// expertScore is the confidence term for the expert section: the
// normalized AI score, further penalized when the score falls below
// the configured minimum (spec §4.6's "below minimum multiply expert
// score by 0.5 penalty").
func expertScore(e types.ExpertSection, cfg *config.Engine) float64 {
	score := normalizedAIScore(e.AIScore)
	if e.AIScore < cfg.Expert.MinAIScore {
		score *= cfg.Expert.BelowMinPenalty
	}
	return score
}

// alignmentScore is the multi-timeframe alignment percentage toward
// the candidate direction.
func alignmentScore(a types.AlignmentSection, direction types.Direction) float64 {
	switch direction {
	case types.Long:
		return a.BullishPct
	case types.Short:
		return a.BearishPct
	default:
		return math.Max(a.BullishPct, a.BearishPct)
	}
}

// alignmentBonusApplies reports whether the alignment percentage
// toward the direction clears the bonus threshold.
func alignmentBonusApplies(a types.AlignmentSection, direction types.Direction, cfg *config.Engine) bool {
	return alignmentScore(a, direction) >= cfg.Expert.AlignmentBonusPct
}

// confidenceScore computes the weighted composite score, clamped to
// [0, 100] and rounded to one decimal, per spec §4.6.
func confidenceScore(ctx types.DecisionContext, mc types.MarketContext, direction types.Direction, gates types.GateResults, cfg *config.Engine) float64 {
	w := cfg.ConfidenceWeights
	c := w.Regime*ctx.Regime.Confidence +
		w.Expert*expertScore(ctx.Expert, cfg) +
		w.Alignment*alignmentScore(ctx.Alignment, direction) +
		w.Market*gates.Market.Score +
		w.Structural*gates.Structural.Score

	c = math.Max(0, math.Min(100, c))
	return math.Round(c*10) / 10
}

// sizeMultiplier computes the final position-size multiplier per
// spec §4.6's sizing recipe.
func sizeMultiplier(ctx types.DecisionContext, confidence float64, direction types.Direction, cfg *config.Engine) float64 {
	rule := cfg.Phases[phaseKey(ctx.Regime.Phase)]

	size := confidence / 100
	size = math.Min(size, rule.SizeCap)
	size = math.Min(size, volatilityCap(ctx.Regime.Volatility, cfg))
	size *= qualityBoost(ctx.Expert.Quality, cfg)

	if alignmentBonusApplies(ctx.Alignment, direction, cfg) {
		size *= cfg.Expert.AlignmentBonus
	}

	size = math.Max(cfg.SizeBounds.Min, math.Min(cfg.SizeBounds.Max, size))
	return math.Round(size*100) / 100
}

// Breakdown reports the individual multipliers behind a size decision,
// for persistence on the ledger entry (spec's decisionBreakdown column).
func Breakdown(ctx types.DecisionContext, confidence float64, direction types.Direction, cfg *config.Engine) types.DecisionBreakdown {
	rule := cfg.Phases[phaseKey(ctx.Regime.Phase)]

	alignmentBonus := 1.0
	if alignmentBonusApplies(ctx.Alignment, direction, cfg) {
		alignmentBonus = cfg.Expert.AlignmentBonus
	}

	return types.DecisionBreakdown{
		PhaseCap:        rule.SizeCap,
		VolatilityCap:   volatilityCap(ctx.Regime.Volatility, cfg),
		QualityBoost:    qualityBoost(ctx.Expert.Quality, cfg),
		AlignmentBonus:  alignmentBonus,
		ConfidenceRatio: confidence / 100,
	}
}

func volatilityCap(v types.Volatility, cfg *config.Engine) float64 {
	switch v {
	case types.VolLow:
		return cfg.Volatility.Low
	case types.VolHigh:
		return cfg.Volatility.High
	default:
		return cfg.Volatility.Normal
	}
}

func qualityBoost(q types.Quality, cfg *config.Engine) float64 {
	switch q {
	case types.QualityExtreme:
		return cfg.Quality.Extreme
	case types.QualityMedium:
		return cfg.Quality.Medium
	default:
		return cfg.Quality.High
	}
}
