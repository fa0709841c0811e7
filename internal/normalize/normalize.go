// Package normalize classifies inbound webhook payloads by publisher
// source and maps each into the shared PartialContext shape.
package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/marketsignal/decisionengine/internal/domain/types"
)

// Probe is one precedence-ordered source-detection predicate. Field
// names the payload key the probe matched on, for DetectionTrace.
type Probe struct {
	Source types.Source
	Field  string
	Match  func(raw map[string]any) bool
}

// probes runs in order; the first match wins, mirroring the spec's
// fixed precedence: phase, then alignment, then raw signal, then
// options signal, then structural.
var probes = []Probe{
	{
		Source: types.SourcePhase,
		Field:  "phase",
		Match: func(raw map[string]any) bool {
			_, hasPhase := raw["phase"]
			_, hasVol := raw["volatility"]
			return hasPhase && hasVol
		},
	},
	{
		Source: types.SourceAlignment,
		Field:  "tfStates",
		Match: func(raw map[string]any) bool {
			tf, ok := raw["tfStates"].(map[string]any)
			return ok && len(tf) >= 2
		},
	},
	{
		Source: types.SourceRaw,
		Field:  "aiScore+direction",
		Match: func(raw map[string]any) bool {
			_, hasScore := raw["aiScore"]
			_, hasDirection := raw["direction"]
			_, hasQuality := raw["quality"]
			return hasScore && hasDirection && !hasQuality
		},
	},
	{
		Source: types.SourceOptions,
		Field:  "aiScore+quality",
		Match: func(raw map[string]any) bool {
			_, hasScore := raw["aiScore"]
			_, hasQuality := raw["quality"]
			return hasScore && hasQuality
		},
	},
	{
		Source: types.SourceStructural,
		Field:  "validSetup+liquidityOk",
		Match: func(raw map[string]any) bool {
			_, hasValid := raw["validSetup"]
			_, hasLiquidity := raw["liquidityOk"]
			return hasValid && hasLiquidity
		},
	},
}

// DetectionTrace records one diagnostic row per probe that was
// evaluated, so an UNKNOWN_SOURCE error can explain why nothing matched.
type DetectionTrace struct {
	Rows []DetectionRow
}

// DetectionRow is a single probe's field/expected/observed triple.
type DetectionRow struct {
	Source   types.Source
	Field    string
	Observed bool
}

// DetectSource classifies a raw JSON payload into one of the five
// known publisher sources using the fixed precedence above. A payload
// matching more than one probe is classified by whichever is checked
// first.
func DetectSource(raw map[string]any) (types.Source, *DetectionTrace) {
	trace := &DetectionTrace{}
	for _, p := range probes {
		matched := p.Match(raw)
		trace.Rows = append(trace.Rows, DetectionRow{Source: p.Source, Field: p.Field, Observed: matched})
		if matched {
			return p.Source, trace
		}
	}
	return types.SourceUnknown, trace
}

// MapPhase maps a raw payload into a RegimeSection.
func MapPhase(raw map[string]any) (*types.RegimeSection, error) {
	var s types.RegimeSection
	if err := remarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("normalize phase: %w", err)
	}
	return &s, nil
}

// MapAlignment maps a raw payload into an AlignmentSection.
func MapAlignment(raw map[string]any) (*types.AlignmentSection, error) {
	var s types.AlignmentSection
	if err := remarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("normalize alignment: %w", err)
	}
	if s.TFStates == nil {
		s.TFStates = map[string]types.TFState{}
	}
	return &s, nil
}

// MapExpert maps a raw payload (either raw-signal or options-signal
// shape) into an ExpertSection; both sources share one wire shape.
func MapExpert(raw map[string]any) (*types.ExpertSection, error) {
	var s types.ExpertSection
	if err := remarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("normalize expert: %w", err)
	}
	return &s, nil
}

// MapStructural maps a raw payload into a StructureSection.
func MapStructural(raw map[string]any) (*types.StructureSection, error) {
	var s types.StructureSection
	if err := remarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("normalize structural: %w", err)
	}
	return &s, nil
}

// MapInstrument extracts the instrument envelope common to all sources.
// Payloads that embed symbol at the top level (rather than under an
// "instrument" key) are also accepted.
func MapInstrument(raw map[string]any) (*types.Instrument, error) {
	if envelope, ok := raw["instrument"].(map[string]any); ok {
		var inst types.Instrument
		if err := remarshal(envelope, &inst); err != nil {
			return nil, fmt.Errorf("normalize instrument: %w", err)
		}
		return &inst, nil
	}
	if symbol, ok := raw["symbol"].(string); ok {
		return &types.Instrument{Symbol: symbol}, nil
	}
	return nil, fmt.Errorf("normalize instrument: missing instrument envelope")
}

// Normalize maps a raw payload of a known source into a PartialContext
// carrying exactly one populated section. Unrecognized fields are
// ignored; this function performs no I/O and no cross-source logic.
func Normalize(raw map[string]any, source types.Source) (*types.PartialContext, error) {
	inst, err := MapInstrument(raw)
	if err != nil {
		return nil, err
	}
	pc := &types.PartialContext{Instrument: inst}

	switch source {
	case types.SourcePhase:
		s, err := MapPhase(raw)
		if err != nil {
			return nil, err
		}
		pc.Regime = s
	case types.SourceAlignment:
		s, err := MapAlignment(raw)
		if err != nil {
			return nil, err
		}
		pc.Alignment = s
	case types.SourceOptions, types.SourceRaw:
		s, err := MapExpert(raw)
		if err != nil {
			return nil, err
		}
		pc.Expert = s
	case types.SourceStructural:
		s, err := MapStructural(raw)
		if err != nil {
			return nil, err
		}
		pc.Structure = s
	default:
		return nil, fmt.Errorf("normalize: unknown source %q", source)
	}
	return pc, nil
}

// remarshal is a small decode helper: re-encodes a loosely-typed map
// and decodes it into a concrete struct, so field-level json tags do
// the mapping work instead of hand-written assignment chains.
func remarshal(raw any, dst any) error {
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
