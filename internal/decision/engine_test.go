package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsignal/decisionengine/internal/config"
	"github.com/marketsignal/decisionengine/internal/domain/types"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(config.Default())
	e.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return e
}

func perfectSetupContext() types.DecisionContext {
	return types.DecisionContext{
		Symbol: "BTC-USD",
		Regime: types.RegimeSection{
			Phase: 2, PhaseName: "MARKUP", Volatility: types.VolNormal,
			Confidence: 85, Bias: types.Long,
		},
		Expert: types.ExpertSection{
			Direction: types.Long, AIScore: 9.0, Quality: types.QualityExtreme,
		},
		Alignment: types.AlignmentSection{BullishPct: 80, BearishPct: 10},
		Structure: types.StructureSection{
			ValidSetup: true, LiquidityOk: true, ExecutionQuality: types.ExecA,
		},
	}
}

func perfectMarketContext() types.MarketContext {
	return types.MarketContext{
		Liquidity: &types.LiquiditySection{SpreadBps: 6, DepthScore: 70},
		Stats:     &types.StatsSection{ATR14: 1.5},
	}
}

func TestMakeDecision_PerfectSetup_Executes(t *testing.T) {
	e := testEngine(t)
	packet := e.MakeDecision(perfectSetupContext(), perfectMarketContext())

	assert.Equal(t, types.ActionExecute, packet.Action)
	require.NotNil(t, packet.Direction)
	assert.Equal(t, types.Long, *packet.Direction)
	assert.True(t, packet.ConfidenceScore >= 80)
	assert.True(t, packet.FinalSizeMultiplier >= 0.5 && packet.FinalSizeMultiplier <= 3.0)
	assert.True(t, packet.GateResults.Regime.Passed)
	assert.True(t, packet.GateResults.Structural.Passed)
	assert.True(t, packet.GateResults.Market.Passed)
}

func TestMakeDecision_PhaseForbidsDirection_Skips(t *testing.T) {
	e := testEngine(t)
	ctx := perfectSetupContext()
	ctx.Regime.Phase = 1
	ctx.Regime.PhaseName = "ACCUMULATION"
	ctx.Regime.Bias = types.Neutral
	ctx.Expert.Direction = types.Short

	packet := e.MakeDecision(ctx, perfectMarketContext())

	assert.Equal(t, types.ActionSkip, packet.Action)
	assert.Equal(t, 0.0, packet.FinalSizeMultiplier)
	assert.False(t, packet.GateResults.Regime.Passed)
	assert.Contains(t, packet.GateResults.Regime.Reason, "ACCUMULATION")
}

func TestMakeDecision_WideSpread_SkipsViaMarketGate(t *testing.T) {
	e := testEngine(t)
	mc := perfectMarketContext()
	mc.Liquidity.SpreadBps = 25

	packet := e.MakeDecision(perfectSetupContext(), mc)

	assert.Equal(t, types.ActionSkip, packet.Action)
	assert.False(t, packet.GateResults.Market.Passed)
	assert.Contains(t, packet.GateResults.Market.Reason, "25bps > 12bps")
}

func TestMakeDecision_ModerateConfidence_Waits(t *testing.T) {
	e := testEngine(t)
	ctx := perfectSetupContext()
	ctx.Regime.Confidence = 70
	ctx.Regime.Bias = types.Neutral
	ctx.Expert.AIScore = 6.5
	ctx.Expert.Quality = types.QualityMedium
	ctx.Alignment = types.AlignmentSection{BullishPct: 55, BearishPct: 45}

	packet := e.MakeDecision(ctx, perfectMarketContext())

	assert.Equal(t, types.ActionWait, packet.Action)
	assert.True(t, packet.ConfidenceScore >= 60 && packet.ConfidenceScore < 80)
	assert.Equal(t, 0.0, packet.FinalSizeMultiplier)
}

func TestMakeDecision_Deterministic(t *testing.T) {
	e := testEngine(t)
	ctx := perfectSetupContext()
	mc := perfectMarketContext()

	first := e.MakeDecision(ctx, mc)
	second := e.MakeDecision(ctx, mc)

	first.Timestamp = time.Time{}
	second.Timestamp = time.Time{}
	assert.Equal(t, first, second)
}

func TestMakeDecision_GateShortCircuit_ForcesSkipAndZeroSize(t *testing.T) {
	e := testEngine(t)
	ctx := perfectSetupContext()
	ctx.Structure.ValidSetup = false

	packet := e.MakeDecision(ctx, perfectMarketContext())

	assert.Equal(t, types.ActionSkip, packet.Action)
	assert.Equal(t, 0.0, packet.FinalSizeMultiplier)
}

func TestSizeMultiplier_AlwaysWithinBounds(t *testing.T) {
	cfg := config.Default()
	ctx := perfectSetupContext()
	for _, c := range []float64{0, 25, 50, 80, 100} {
		size := sizeMultiplier(ctx, c, types.Long, cfg)
		assert.True(t, size >= cfg.SizeBounds.Min && size <= cfg.SizeBounds.Max)
	}
}

func TestMarketGate_MissingSectionsAssumedAcceptable(t *testing.T) {
	cfg := config.Default()
	result := marketGate(types.MarketContext{}, cfg)
	assert.True(t, result.Passed)
	assert.Equal(t, cfg.MarketGate.AssumedScore, result.Score)
}

func TestStructuralGate_ExecutionQualityCFails(t *testing.T) {
	cfg := config.Default()
	ctx := perfectSetupContext()
	ctx.Structure.ExecutionQuality = types.ExecC

	result := structuralGate(ctx, cfg)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Reason, "execution quality C")
}
