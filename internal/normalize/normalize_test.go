package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsignal/decisionengine/internal/domain/types"
)

func TestDetectSource_Phase(t *testing.T) {
	raw := map[string]any{
		"symbol":     "BTC-USD",
		"phase":      2.0,
		"volatility": "NORMAL",
		"confidence": 85.0,
	}
	src, trace := DetectSource(raw)
	assert.Equal(t, types.SourcePhase, src)
	require.NotEmpty(t, trace.Rows)
	assert.True(t, trace.Rows[0].Observed)
}

func TestDetectSource_Alignment(t *testing.T) {
	raw := map[string]any{
		"symbol": "BTC-USD",
		"tfStates": map[string]any{
			"5m": "BULLISH",
			"1h": "BULLISH",
		},
	}
	src, _ := DetectSource(raw)
	assert.Equal(t, types.SourceAlignment, src)
}

func TestDetectSource_RawSignal(t *testing.T) {
	raw := map[string]any{
		"symbol":    "BTC-USD",
		"aiScore":   7.5,
		"direction": "LONG",
	}
	src, _ := DetectSource(raw)
	assert.Equal(t, types.SourceRaw, src)
}

func TestDetectSource_Options(t *testing.T) {
	raw := map[string]any{
		"symbol":  "BTC-USD",
		"aiScore": 9.0,
		"quality": "EXTREME",
	}
	src, _ := DetectSource(raw)
	assert.Equal(t, types.SourceOptions, src)
}

func TestDetectSource_Structural(t *testing.T) {
	raw := map[string]any{
		"symbol":      "BTC-USD",
		"validSetup":  true,
		"liquidityOk": true,
	}
	src, _ := DetectSource(raw)
	assert.Equal(t, types.SourceStructural, src)
}

func TestDetectSource_ContradictoryMarkers_PrecedenceWins(t *testing.T) {
	raw := map[string]any{
		"symbol":     "BTC-USD",
		"phase":      2.0,
		"volatility": "NORMAL",
		"aiScore":    9.0,
		"quality":    "EXTREME",
	}
	src, _ := DetectSource(raw)
	assert.Equal(t, types.SourcePhase, src, "earlier entry in the precedence list wins")
}

func TestDetectSource_Unknown(t *testing.T) {
	raw := map[string]any{"symbol": "BTC-USD", "noise": true}
	src, trace := DetectSource(raw)
	assert.Equal(t, types.SourceUnknown, src)
	for _, row := range trace.Rows {
		assert.False(t, row.Observed)
	}
}

func TestNormalize_Phase(t *testing.T) {
	raw := map[string]any{
		"symbol":     "ETH-USD",
		"phase":      1.0,
		"phaseName":  "ACCUMULATION",
		"volatility": "LOW",
		"confidence": 90.0,
		"bias":       "LONG",
	}
	pc, err := Normalize(raw, types.SourcePhase)
	require.NoError(t, err)
	require.NotNil(t, pc.Regime)
	assert.Equal(t, 1, pc.Regime.Phase)
	assert.Equal(t, types.VolLow, pc.Regime.Volatility)
	assert.Equal(t, "ETH-USD", pc.Instrument.Symbol)
	assert.Nil(t, pc.Alignment)
	assert.Nil(t, pc.Expert)
	assert.Nil(t, pc.Structure)
}

func TestNormalize_Alignment_DefaultsEmptyMap(t *testing.T) {
	raw := map[string]any{"symbol": "ETH-USD", "bullishPct": 60.0, "bearishPct": 30.0}
	pc, err := Normalize(raw, types.SourceAlignment)
	require.NoError(t, err)
	require.NotNil(t, pc.Alignment)
	assert.NotNil(t, pc.Alignment.TFStates)
	assert.Equal(t, 60.0, pc.Alignment.BullishPct)
}

func TestNormalize_Expert_IgnoresUnrecognizedFields(t *testing.T) {
	raw := map[string]any{
		"symbol":    "ETH-USD",
		"direction": "LONG",
		"aiScore":   8.0,
		"quality":   "HIGH",
		"junkField": "ignored",
	}
	pc, err := Normalize(raw, types.SourceOptions)
	require.NoError(t, err)
	require.NotNil(t, pc.Expert)
	assert.Equal(t, 8.0, pc.Expert.AIScore)
}

func TestNormalize_Structural(t *testing.T) {
	raw := map[string]any{
		"symbol":           "ETH-USD",
		"validSetup":       true,
		"liquidityOk":      false,
		"executionQuality": "B",
	}
	pc, err := Normalize(raw, types.SourceStructural)
	require.NoError(t, err)
	require.NotNil(t, pc.Structure)
	assert.False(t, pc.Structure.LiquidityOk)
}

func TestNormalize_MissingInstrument_Errors(t *testing.T) {
	raw := map[string]any{"phase": 2.0, "volatility": "NORMAL"}
	_, err := Normalize(raw, types.SourcePhase)
	assert.Error(t, err)
}

func TestNormalize_UnknownSource_Errors(t *testing.T) {
	raw := map[string]any{"symbol": "ETH-USD"}
	_, err := Normalize(raw, types.SourceUnknown)
	assert.Error(t, err)
}
