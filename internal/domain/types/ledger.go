package types

import "time"

// Execution is recorded on a ledger entry iff Decision == EXECUTE.
type Execution struct {
	Direction      Direction `json:"direction"`
	SizeMultiplier float64   `json:"sizeMultiplier"`
	EntryPrice     *float64  `json:"entryPrice,omitempty"`
}

// Exit may be set on an EXECUTE entry exactly once.
type Exit struct {
	Price    float64   `json:"price"`
	Reason   string    `json:"reason"`
	NetPnL   float64   `json:"netPnl"`
	ExitedAt time.Time `json:"exitedAt"`
}

// Hypothetical may be set on a non-EXECUTE entry exactly once: what
// would have happened had the engine executed anyway.
type Hypothetical struct {
	WouldHaveEntered bool      `json:"wouldHaveEntered"`
	SimulatedPnL     float64   `json:"simulatedPnl"`
	EvaluatedAt      time.Time `json:"evaluatedAt"`
}

// DecisionBreakdown is the persisted form of the sizing multipliers
// that produced FinalSizeMultiplier, for audit/replay.
type DecisionBreakdown struct {
	PhaseCap        float64 `json:"phaseCap"`
	VolatilityCap   float64 `json:"volatilityCap"`
	QualityBoost    float64 `json:"qualityBoost"`
	AlignmentBonus  float64 `json:"alignmentBonus"`
	ConfidenceRatio float64 `json:"confidenceRatio"`
}

// LedgerEntry is the append-only persisted record of one engine
// decision.
type LedgerEntry struct {
	ID                string             `json:"id" db:"id"`
	CreatedAt         time.Time          `json:"createdAt" db:"created_at"`
	EngineVersion     string             `json:"engineVersion" db:"engine_version"`
	Signal            DecisionContext    `json:"signal" db:"signal"`
	PhaseContext      *RegimeSection     `json:"phaseContext,omitempty" db:"phase_context"`
	Decision          Action             `json:"decision" db:"decision"`
	DecisionReason    string             `json:"decisionReason" db:"decision_reason"`
	DecisionBreakdown DecisionBreakdown  `json:"decisionBreakdown" db:"decision_breakdown"`
	ConfluenceScore   float64            `json:"confluenceScore" db:"confluence_score"`
	Execution         *Execution         `json:"execution,omitempty" db:"execution"`
	ExitData          *Exit              `json:"exitData,omitempty" db:"exit_data"`
	Regime            RegimeSection      `json:"regime" db:"regime"`
	Hypothetical      *Hypothetical      `json:"hypothetical,omitempty" db:"hypothetical"`
	GateResults       *GateResults       `json:"gateResults,omitempty" db:"gate_results"`
	ReceiptID         *string            `json:"receiptId,omitempty" db:"receipt_id"`
}

// TradeType buckets a ledgered entry by the timeframe its signal came
// from, used by query filters.
type TradeType string

const (
	TradeScalp TradeType = "SCALP"
	TradeDay   TradeType = "DAY"
	TradeSwing TradeType = "SWING"
)

// QueryFilters narrows a ledger browse. Zero values mean "no filter".
type QueryFilters struct {
	Timeframe       string
	Quality         Quality
	Decision        Action
	DTEBucket       string
	TradeType       TradeType
	RegimeVol       Volatility
	Ticker          string
	From, To        *time.Time
	HasExit         *bool
	HasHypothetical *bool
	MinConfluence   *float64
	MaxConfluence   *float64
	ExitReason      string
	Limit           int
}

// Aggregates is the result of calculateAggregates.
type Aggregates struct {
	CountByDecision    map[Action]int `json:"countByDecision"`
	WithExit           int            `json:"withExit"`
	WithoutExit        int            `json:"withoutExit"`
	WithHypothetical   int            `json:"withHypothetical"`
	WithoutHypothetical int           `json:"withoutHypothetical"`
	AverageConfluence  float64        `json:"averageConfluence"`
	SummedNetPnL       float64        `json:"summedNetPnl"`
	Wins               int            `json:"wins"`
	Losses             int            `json:"losses"`
}
