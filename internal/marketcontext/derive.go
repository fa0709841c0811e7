package marketcontext

import (
	"math"

	"github.com/marketsignal/decisionengine/internal/domain/types"
	"github.com/marketsignal/decisionengine/internal/providers"
)

// spreadBps computes the bid/ask spread in basis points. Zero if
// either side is non-positive, per spec §4.5.
func spreadBps(bid, ask float64) float64 {
	if bid <= 0 || ask <= 0 {
		return 0
	}
	mid := (bid + ask) / 2
	return (ask - bid) / mid * 10000
}

// depthScore is min(100, sqrt(bidSize+askSize)*10).
func depthScore(bidSize, askSize float64) float64 {
	score := math.Sqrt(bidSize+askSize) * 10
	return math.Min(100, score)
}

// tradeVelocity buckets volume/avgVolume into FAST/SLOW/NORMAL.
func tradeVelocity(volume, avgVolume float64) types.TradeVelocity {
	if avgVolume <= 0 {
		return types.VelocityNormal
	}
	ratio := volume / avgVolume
	switch {
	case ratio > 1.5:
		return types.VelocityFast
	case ratio < 0.5:
		return types.VelocitySlow
	default:
		return types.VelocityNormal
	}
}

// putCallRatio is putVolume/callVolume, 1.0 if callVolume is zero.
func putCallRatio(putVolume, callVolume float64) float64 {
	if callVolume == 0 {
		return 1.0
	}
	return putVolume / callVolume
}

// gammaBiasFromRatio derives a coarse gamma bias from the put/call
// ratio when no per-strike chain is available.
func gammaBiasFromRatio(pcr float64) types.GammaBias {
	switch {
	case pcr > 1.2:
		return types.GammaNegative
	case pcr < 0.8:
		return types.GammaPositive
	default:
		return types.GammaNeutral
	}
}

// gammaBiasFromChain computes the open-interest-weighted average gamma
// across strikes, thresholded at ±0.02 — the detailed-chain path
// spec.md §4.5 names as an alternative to the PCR heuristic.
func gammaBiasFromChain(chain []providers.StrikeOI) types.GammaBias {
	var weighted, totalOI float64
	for _, s := range chain {
		oi := s.CallOI + s.PutOI
		weighted += s.Gamma * oi
		totalOI += oi
	}
	if totalOI == 0 {
		return types.GammaNeutral
	}
	avg := weighted / totalOI
	switch {
	case avg > 0.02:
		return types.GammaPositive
	case avg < -0.02:
		return types.GammaNegative
	default:
		return types.GammaNeutral
	}
}

// wilderATR14 computes Wilder's 14-period average true range from
// daily highs/lows/closes (oldest first). Requires at least 15 bars.
func wilderATR14(highs, lows, closes []float64) float64 {
	const period = 14
	if len(highs) < period+1 || len(lows) < period+1 || len(closes) < period+1 {
		return 0
	}
	trs := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		highLow := highs[i] - lows[i]
		highClose := math.Abs(highs[i] - closes[i-1])
		lowClose := math.Abs(lows[i] - closes[i-1])
		trs = append(trs, math.Max(highLow, math.Max(highClose, lowClose)))
	}
	if len(trs) < period {
		return 0
	}

	var atr float64
	for i := 0; i < period; i++ {
		atr += trs[i]
	}
	atr /= period

	for i := period; i < len(trs); i++ {
		atr = (atr*(period-1) + trs[i]) / period
	}
	return atr
}

// wilderRSI14 computes Wilder's 14-period RSI from closes (oldest
// first), clamped to [0, 100].
func wilderRSI14(closes []float64) float64 {
	const period = 14
	if len(closes) < period+1 {
		return 50 // neutral fallback, insufficient history
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss += -delta
		}
	}
	avgGain /= period
	avgLoss /= period

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		var gain, loss float64
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(period-1) + gain) / period
		avgLoss = (avgLoss*(period-1) + loss) / period
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	rsi := 100 - (100 / (1 + rs))
	return math.Max(0, math.Min(100, rsi))
}

// rv20 is the annualized standard deviation of log-returns over the
// last 20 bars, × sqrt(252) × 100.
func rv20(closes []float64) float64 {
	const window = 20
	if len(closes) < window+1 {
		return 0
	}
	recent := closes[len(closes)-window-1:]
	returns := make([]float64, 0, window)
	for i := 1; i < len(recent); i++ {
		if recent[i-1] <= 0 {
			continue
		}
		returns = append(returns, math.Log(recent[i]/recent[i-1]))
	}
	if len(returns) == 0 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	stddev := math.Sqrt(variance)
	return stddev * math.Sqrt(252) * 100
}

// trendSlope is the linear-regression slope of the last 20 closes,
// normalized to [-1, 1] by dividing by the mean close.
func trendSlope(closes []float64) float64 {
	const window = 20
	if len(closes) < window {
		return 0
	}
	series := closes[len(closes)-window:]

	var sumX, sumY, sumXY, sumXX float64
	n := float64(window)
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	slope := (n*sumXY - sumX*sumY) / denom

	meanY := sumY / n
	if meanY == 0 {
		return 0
	}
	normalized := slope / meanY
	return math.Max(-1, math.Min(1, normalized))
}
