package types

import "time"

// GammaBias is the options provider's net dealer-gamma positioning.
type GammaBias string

const (
	GammaPositive GammaBias = "POSITIVE"
	GammaNegative GammaBias = "NEGATIVE"
	GammaNeutral  GammaBias = "NEUTRAL"
)

// TradeVelocity is the liquidity provider's recent-trade-pace bucket.
type TradeVelocity string

const (
	VelocitySlow   TradeVelocity = "SLOW"
	VelocityNormal TradeVelocity = "NORMAL"
	VelocityFast   TradeVelocity = "FAST"
)

// OptionsSection is the options-provider feed result.
type OptionsSection struct {
	PutCallRatio float64   `json:"putCallRatio"`
	IVPercentile float64   `json:"ivPercentile"`
	GammaBias    GammaBias `json:"gammaBias"`
	OptionVolume float64   `json:"optionVolume"`
	MaxPain      float64   `json:"maxPain"`
}

// StatsSection is the analytics-provider feed result: derived price
// statistics computed from a time series.
type StatsSection struct {
	ATR14       float64 `json:"atr14"`
	RV20        float64 `json:"rv20"`
	TrendSlope  float64 `json:"trendSlope"`
	RSI         float64 `json:"rsi"`
	Volume      float64 `json:"volume"`
	VolumeRatio float64 `json:"volumeRatio"`
}

// LiquiditySection is the liquidity-provider feed result.
type LiquiditySection struct {
	SpreadBps     float64       `json:"spreadBps"`
	DepthScore    float64       `json:"depthScore"`
	TradeVelocity TradeVelocity `json:"tradeVelocity"`
	BidSize       float64       `json:"bidSize"`
	AskSize       float64       `json:"askSize"`
}

// MarketContext augments a DecisionContext with live market-feed data.
// Each section is present only if its provider call succeeded; errors
// carries one diagnostic string per failed provider, in call order.
type MarketContext struct {
	Options      *OptionsSection   `json:"options,omitempty"`
	Stats        *StatsSection     `json:"stats,omitempty"`
	Liquidity    *LiquiditySection `json:"liquidity,omitempty"`
	FetchTime    time.Time         `json:"fetchTime"`
	Completeness float64           `json:"completeness"`
	Errors       []string          `json:"errors,omitempty"`
}

// Action is the Decision Engine's final verdict.
type Action string

const (
	ActionExecute Action = "EXECUTE"
	ActionWait    Action = "WAIT"
	ActionSkip    Action = "SKIP"
)

// GateResult is the outcome of a single decision gate evaluation.
type GateResult struct {
	Passed bool    `json:"passed"`
	Reason string  `json:"reason"`
	Score  float64 `json:"score"`
}

// GateResults bundles the three gates the Decision Engine runs, in the
// fixed order they're evaluated.
type GateResults struct {
	Regime     GateResult `json:"regime"`
	Structural GateResult `json:"structural"`
	Market     GateResult `json:"market"`
}

// DecisionPacket is the Decision Engine's output and the ledger unit.
type DecisionPacket struct {
	Action              Action          `json:"action"`
	Direction           *Direction      `json:"direction,omitempty"`
	FinalSizeMultiplier float64         `json:"finalSizeMultiplier"`
	ConfidenceScore     float64         `json:"confidenceScore"`
	Reasons             []string        `json:"reasons"`
	EngineVersion       string          `json:"engineVersion"`
	GateResults         GateResults     `json:"gateResults"`
	InputContext        DecisionContext `json:"inputContext"`
	MarketSnapshot      MarketContext   `json:"marketSnapshot"`
	Timestamp           time.Time       `json:"timestamp"`
}
