package errcat

import (
	"github.com/marketsignal/decisionengine/internal/config"
	"github.com/marketsignal/decisionengine/internal/domain/types"
)

// Level is the severity of provider degradation for one market-context
// build, driving conservative bias on the decision packet.
type Level string

const (
	LevelNone   Level = "NONE"
	LevelMinor  Level = "MINOR"
	LevelMajor  Level = "MAJOR"
	LevelSevere Level = "SEVERE"
)

// Classify maps an availability ratio (successful/total feeds) to a
// degradation Level per the thresholds in cfg.Degradation.
func Classify(ratio float64, cfg config.DegradationConfig) Level {
	switch {
	case ratio > cfg.MinorThreshold:
		return LevelNone
	case ratio > cfg.MajorThreshold:
		return LevelMinor
	case ratio > cfg.SevereThreshold:
		return LevelMajor
	default:
		return LevelSevere
	}
}

// Penalties returns the confidence-point penalty and size-fraction
// reduction for a degradation level.
func Penalties(level Level, cfg config.DegradationConfig) (confidencePenalty, sizeReduction float64) {
	switch level {
	case LevelMinor:
		return cfg.MinorConfidencePenalty, cfg.MinorSizeReduction
	case LevelMajor:
		return cfg.MajorConfidencePenalty, cfg.MajorSizeReduction
	case LevelSevere:
		return cfg.SevereConfidencePenalty, cfg.SevereSizeReduction
	default:
		return 0, 0
	}
}

// ApplyConservativeBias subtracts the degradation confidence penalty,
// scales size by (1 - sizeReduction), and downgrades an EXECUTE
// verdict to WAIT if the resulting confidence falls below the
// downgrade floor, per spec §4.7.
func ApplyConservativeBias(packet *types.DecisionPacket, level Level, cfg config.DegradationConfig) {
	if level == LevelNone {
		return
	}
	confidencePenalty, sizeReduction := Penalties(level, cfg)

	packet.ConfidenceScore -= confidencePenalty
	if packet.ConfidenceScore < 0 {
		packet.ConfidenceScore = 0
	}
	packet.FinalSizeMultiplier *= 1 - sizeReduction

	if packet.Action == types.ActionExecute && packet.ConfidenceScore < cfg.DowngradeFloor {
		packet.Action = types.ActionWait
		packet.FinalSizeMultiplier = 0
		packet.Reasons = append(packet.Reasons, "downgraded to WAIT: degraded confidence below floor")
	}
}
