package marketcontext

import "github.com/marketsignal/decisionengine/internal/providers"

// maxPain resolves the engine's open question on max-pain: the source
// behavior is a middle-strike placeholder; this engine implements the
// intended open-interest-maximizing behavior instead (the strike at
// which total option-holder loss, i.e. writer payout, is maximized),
// falling back to the middle strike when fewer than three strikes are
// available to make maximization meaningful.
func maxPain(chain []providers.StrikeOI) float64 {
	if len(chain) == 0 {
		return 0
	}
	if len(chain) < 3 {
		return chain[len(chain)/2].Strike
	}

	bestStrike := chain[0].Strike
	bestPayout := -1.0
	for _, candidate := range chain {
		payout := totalWriterPayout(chain, candidate.Strike)
		if payout > bestPayout {
			bestPayout = payout
			bestStrike = candidate.Strike
		}
	}
	return bestStrike
}

// totalWriterPayout sums, across every strike in the chain, the
// open-interest-weighted intrinsic value option holders would collect
// if the underlying settled at `settle` (calls struck below settle,
// puts struck above it) and returns it negated, so the largest result
// marks the strike where holders collect least: the max-pain strike.
func totalWriterPayout(chain []providers.StrikeOI, settle float64) float64 {
	var payout float64
	for _, s := range chain {
		if settle > s.Strike {
			payout += s.CallOI * (settle - s.Strike)
		}
		if settle < s.Strike {
			payout += s.PutOI * (s.Strike - settle)
		}
	}
	// Max pain minimizes aggregate option-holder profit, i.e. minimizes
	// this payout; invert so the caller's "maximize" search finds the
	// true minimum.
	return -payout
}
