// Package types holds the wire-and-storage data model shared by the
// Normalizer, Context Store, Market Context Builder, and Decision Engine.
package types

import "time"

// Source identifies the publisher kind a payload was classified as.
type Source string

const (
	SourcePhase      Source = "phase"
	SourceAlignment  Source = "alignment"
	SourceRaw        Source = "raw"
	SourceOptions    Source = "options"
	SourceStructural Source = "structural"
	SourceUnknown    Source = "unknown"
)

// Direction is a trade direction.
type Direction string

const (
	Long    Direction = "LONG"
	Short   Direction = "SHORT"
	Neutral Direction = "NEUTRAL"
)

// Volatility is the phase publisher's volatility classification.
type Volatility string

const (
	VolLow    Volatility = "LOW"
	VolNormal Volatility = "NORMAL"
	VolHigh   Volatility = "HIGH"
)

// TFState is a multi-timeframe alignment vote.
type TFState string

const (
	TFBullish TFState = "BULLISH"
	TFBearish TFState = "BEARISH"
	TFNeutral TFState = "NEUTRAL"
)

// Quality is the expert signal's quality grade.
type Quality string

const (
	QualityExtreme Quality = "EXTREME"
	QualityHigh    Quality = "HIGH"
	QualityMedium  Quality = "MEDIUM"
)

// ExecutionQuality is the structural validator's execution grade.
type ExecutionQuality string

const (
	ExecA ExecutionQuality = "A"
	ExecB ExecutionQuality = "B"
	ExecC ExecutionQuality = "C"
)

// Instrument identifies a tradable symbol, optionally with a last price.
type Instrument struct {
	Symbol   string   `json:"symbol"`
	Exchange string   `json:"exchange,omitempty"`
	Price    *float64 `json:"price,omitempty"`
}

// RegimeSection is the phase publisher's payload.
type RegimeSection struct {
	Phase      int        `json:"phase"`
	PhaseName  string     `json:"phaseName"`
	Volatility Volatility `json:"volatility"`
	Confidence float64    `json:"confidence"`
	Bias       Direction  `json:"bias"`
}

// AlignmentSection is the multi-timeframe alignment publisher's payload.
type AlignmentSection struct {
	TFStates   map[string]TFState `json:"tfStates"`
	BullishPct float64            `json:"bullishPct"`
	BearishPct float64            `json:"bearishPct"`
}

// ExpertSection is the options-expert or raw-signal publisher's payload.
type ExpertSection struct {
	Direction  Direction `json:"direction"`
	AIScore    float64   `json:"aiScore"`
	Quality    Quality   `json:"quality"`
	Components []string  `json:"components"`
	RR1        float64   `json:"rr1"`
	RR2        float64   `json:"rr2"`
}

// StructureSection is the structural-validator publisher's payload.
type StructureSection struct {
	ValidSetup       bool             `json:"validSetup"`
	LiquidityOk      bool             `json:"liquidityOk"`
	ExecutionQuality ExecutionQuality `json:"executionQuality"`
}

// PartialContext is the normalized union of up to five sections carried
// by a single inbound webhook.
type PartialContext struct {
	Instrument *Instrument       `json:"instrument,omitempty"`
	Regime     *RegimeSection    `json:"regime,omitempty"`
	Alignment  *AlignmentSection `json:"alignment,omitempty"`
	Expert     *ExpertSection    `json:"expert,omitempty"`
	Structure  *StructureSection `json:"structure,omitempty"`
}

// StoredContext is the per-symbol latest-value merge held by the
// Context Store, plus per-source freshness timestamps.
type StoredContext struct {
	Symbol      string
	Instrument  *Instrument
	Regime      *RegimeSection
	Alignment   *AlignmentSection
	Expert      *ExpertSection
	ExpertKind  Source // which expert source last updated Expert: SourceOptions or SourceRaw
	Structure   *StructureSection
	LastUpdated map[Source]int64 // source -> millisecond timestamp
}

// Meta carries materialization metadata for a Decision Context.
type Meta struct {
	EngineVersion string    `json:"engineVersion"`
	ReceivedAt    time.Time `json:"receivedAt"`
	Completeness  float64   `json:"completeness"`
}

// DecisionContext is the materialized, complete merge handed to the
// Decision Engine. Missing optional sections are filled with semantic
// defaults (see DefaultAlignment/DefaultStructure).
type DecisionContext struct {
	Symbol     string           `json:"symbol"`
	Instrument Instrument       `json:"instrument"`
	Regime     RegimeSection    `json:"regime"`
	Alignment  AlignmentSection `json:"alignment"`
	Expert     ExpertSection    `json:"expert"`
	Structure  StructureSection `json:"structure"`
	Meta       Meta             `json:"meta"`
}

// DefaultAlignment is the semantic default used when no alignment
// section has been received: a neutral 50/50 split.
func DefaultAlignment() AlignmentSection {
	return AlignmentSection{
		TFStates:   map[string]TFState{},
		BullishPct: 50,
		BearishPct: 50,
	}
}

// DefaultStructure is the semantic default used when no structural
// section has been received.
func DefaultStructure() StructureSection {
	return StructureSection{
		ValidSetup:       false,
		LiquidityOk:      false,
		ExecutionQuality: ExecC,
	}
}
