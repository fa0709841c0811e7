// Package decision implements the Decision Engine (C7): three
// deterministic gates plus a weighted confidence calculator, combined
// into a single DecisionPacket.
package decision

import (
	"fmt"
	"math"
	"strconv"

	"github.com/marketsignal/decisionengine/internal/config"
	"github.com/marketsignal/decisionengine/internal/domain/types"
)

// regimeGate passes iff the phase rule allows the candidate direction,
// regime confidence clears the WAIT threshold, and the regime's bias
// doesn't actively oppose the direction.
func regimeGate(ctx types.DecisionContext, direction types.Direction, cfg *config.Engine) types.GateResult {
	rule, ok := cfg.Phases[phaseKey(ctx.Regime.Phase)]
	if !ok {
		return types.GateResult{Passed: false, Reason: fmt.Sprintf("unknown phase %d", ctx.Regime.Phase)}
	}

	if !directionAllowed(rule, direction) {
		return types.GateResult{
			Passed: false,
			Reason: fmt.Sprintf("%s forbids direction %s", rule.Name, direction),
			Score:  0,
		}
	}

	if ctx.Regime.Confidence < cfg.Confidence.Wait {
		return types.GateResult{
			Passed: false,
			Reason: fmt.Sprintf("regime confidence %.1f below wait threshold %.1f", ctx.Regime.Confidence, cfg.Confidence.Wait),
			Score:  ctx.Regime.Confidence,
		}
	}

	if ctx.Regime.Bias != types.Neutral && ctx.Regime.Bias != direction {
		return types.GateResult{
			Passed: false,
			Reason: fmt.Sprintf("regime bias %s opposes direction %s", ctx.Regime.Bias, direction),
			Score:  ctx.Regime.Confidence,
		}
	}

	return types.GateResult{Passed: true, Reason: "regime allows direction", Score: ctx.Regime.Confidence}
}

func phaseKey(phase int) string {
	return strconv.Itoa(phase)
}

func directionAllowed(rule config.PhaseRule, direction types.Direction) bool {
	for _, allowed := range rule.AllowedDirections {
		if allowed == string(direction) {
			return true
		}
	}
	return false
}

// normalizedAIScore maps the expert's raw AI score onto 0-100, per
// spec §4.6's structural-gate definition.
func normalizedAIScore(aiScore float64) float64 {
	return math.Min(100, aiScore/10.5*100)
}

func qualityGradeScore(eq types.ExecutionQuality) float64 {
	switch eq {
	case types.ExecA:
		return 100
	case types.ExecB:
		return 75
	default:
		return 0
	}
}

// structuralGate passes iff the setup and liquidity checks pass, the
// execution grade clears C, and the AI score clears its minimum.
func structuralGate(ctx types.DecisionContext, cfg *config.Engine) types.GateResult {
	s := ctx.Structure
	e := ctx.Expert
	score := (qualityGradeScore(s.ExecutionQuality) + normalizedAIScore(e.AIScore)) / 2

	switch {
	case !s.ValidSetup:
		return types.GateResult{Passed: false, Reason: "structure invalid: no valid setup", Score: score}
	case !s.LiquidityOk:
		return types.GateResult{Passed: false, Reason: "structure invalid: liquidity not ok", Score: score}
	case s.ExecutionQuality == types.ExecC:
		return types.GateResult{Passed: false, Reason: "execution quality C is not tradable", Score: score}
	case e.AIScore < cfg.Expert.MinAIScore:
		return types.GateResult{Passed: false, Reason: fmt.Sprintf("aiScore %.1f below minimum %.1f", e.AIScore, cfg.Expert.MinAIScore), Score: score}
	default:
		return types.GateResult{Passed: true, Reason: "structure valid", Score: score}
	}
}

// marketGate runs the three microstructure sub-checks against the
// latest MarketContext. Each sub-check is skipped (scored as
// "assumed acceptable") when its section never arrived; any violation
// fails the whole gate with a reason naming the overshoot.
func marketGate(mc types.MarketContext, cfg *config.Engine) types.GateResult {
	var (
		reasons []string
		scores  []float64
		passed  = true
	)

	if mc.Liquidity != nil {
		spread := mc.Liquidity.SpreadBps
		if spread > cfg.MarketGate.MaxSpreadBps {
			passed = false
			reasons = append(reasons, fmt.Sprintf("%.0fbps > %.0fbps", spread, cfg.MarketGate.MaxSpreadBps))
			scores = append(scores, overshootScore(spread, cfg.MarketGate.MaxSpreadBps))
		} else {
			scores = append(scores, 100)
		}

		depth := mc.Liquidity.DepthScore
		if depth < cfg.MarketGate.MinDepthScore {
			passed = false
			reasons = append(reasons, fmt.Sprintf("depthScore %.0f < %.0f", depth, cfg.MarketGate.MinDepthScore))
			scores = append(scores, depth/cfg.MarketGate.MinDepthScore*100)
		} else {
			scores = append(scores, 100)
		}
	} else {
		scores = append(scores, cfg.MarketGate.AssumedScore, cfg.MarketGate.AssumedScore)
	}

	if mc.Stats != nil {
		atr := mc.Stats.ATR14
		if atr > cfg.MarketGate.MaxATRSpike {
			passed = false
			reasons = append(reasons, fmt.Sprintf("atr14 %.2f > %.2f", atr, cfg.MarketGate.MaxATRSpike))
			scores = append(scores, overshootScore(atr, cfg.MarketGate.MaxATRSpike))
		} else {
			scores = append(scores, 100)
		}
	} else {
		scores = append(scores, cfg.MarketGate.AssumedScore)
	}

	score := mean(scores)
	reason := "market conditions acceptable"
	if len(reasons) > 0 {
		reason = joinReasons(reasons)
	}
	return types.GateResult{Passed: passed, Reason: reason, Score: score}
}

// overshootScore scores a violated bound proportionally to how far it
// was exceeded: 100 at the limit, falling toward 0 as the overshoot
// doubles the limit.
func overshootScore(value, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	ratio := value / limit
	score := 100 - (ratio-1)*100
	return math.Max(0, math.Min(100, score))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func joinReasons(reasons []string) string {
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += "; " + r
	}
	return out
}
