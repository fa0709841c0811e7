package decision

import (
	"time"

	"github.com/marketsignal/decisionengine/internal/config"
	"github.com/marketsignal/decisionengine/internal/domain/types"
)

// Engine runs the three gates and confidence calculator in the fixed
// order spec §4.6 names, producing a reproducible DecisionPacket from
// stored context alone.
type Engine struct {
	cfg *config.Engine
	now func() time.Time
}

func NewEngine(cfg *config.Engine) *Engine {
	return &Engine{cfg: cfg, now: time.Now}
}

// MakeDecision evaluates the regime, structural, and market gates for
// the expert's candidate direction, then — only if all three pass —
// computes the weighted confidence score and selects a verdict.
func (e *Engine) MakeDecision(ctx types.DecisionContext, mc types.MarketContext) types.DecisionPacket {
	direction := ctx.Expert.Direction

	gates := types.GateResults{
		Regime:     regimeGate(ctx, direction, e.cfg),
		Structural: structuralGate(ctx, e.cfg),
		Market:     marketGate(mc, e.cfg),
	}

	packet := types.DecisionPacket{
		EngineVersion:  e.cfg.Hash(),
		GateResults:    gates,
		InputContext:   ctx,
		MarketSnapshot: mc,
		Timestamp:      e.now().UTC(),
	}

	if !gates.Regime.Passed || !gates.Structural.Passed || !gates.Market.Passed {
		packet.Action = types.ActionSkip
		packet.FinalSizeMultiplier = 0
		packet.Reasons = skipReasons(gates)
		return packet
	}

	confidence := confidenceScore(ctx, mc, direction, gates, e.cfg)
	packet.ConfidenceScore = confidence

	switch {
	case confidence >= e.cfg.Confidence.Execute:
		packet.Action = types.ActionExecute
		packet.Direction = &direction
		packet.FinalSizeMultiplier = sizeMultiplier(ctx, confidence, direction, e.cfg)
		packet.Reasons = []string{"all gates passed", "confidence cleared execute threshold"}
	case confidence >= e.cfg.Confidence.Wait:
		packet.Action = types.ActionWait
		packet.FinalSizeMultiplier = 0
		packet.Reasons = []string{"all gates passed", "confidence in wait band"}
	default:
		packet.Action = types.ActionSkip
		packet.FinalSizeMultiplier = 0
		packet.Reasons = []string{"all gates passed", "confidence below wait threshold"}
	}

	return packet
}

func skipReasons(gates types.GateResults) []string {
	var reasons []string
	if !gates.Regime.Passed {
		reasons = append(reasons, "regime: "+gates.Regime.Reason)
	}
	if !gates.Structural.Passed {
		reasons = append(reasons, "structural: "+gates.Structural.Reason)
	}
	if !gates.Market.Passed {
		reasons = append(reasons, "market: "+gates.Market.Reason)
	}
	return reasons
}
