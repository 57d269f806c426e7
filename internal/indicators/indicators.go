// Package indicators wraps go-talib and gonum for the technical-analysis
// arithmetic shared by the technical service (C3) and the simulation
// engine (C10), per spec Glossary.
package indicators

import (
	"math"

	talib "github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// SMA returns the simple moving average series for period n (spec Glossary).
func SMA(closes []float64, n int) []float64 {
	return talib.Sma(closes, n)
}

// EMA returns the exponential moving average series for period n, smoothing
// 2/(n+1) (spec Glossary).
func EMA(closes []float64, n int) []float64 {
	return talib.Ema(closes, n)
}

// RSI returns the relative strength index series for period n. talib
// returns 0 for the warm-up window; the "avg_loss=0 => 100" edge
// case is realized by talib internally via its Wilder smoothing.
func RSI(closes []float64, n int) []float64 {
	return talib.Rsi(closes, n)
}

// MACDResult holds the three MACD series (spec Glossary).
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes EMA(12)-EMA(26), its 9-period signal line, and the
// histogram, via talib's standard 12/26/9 configuration.
func MACD(closes []float64) MACDResult {
	macd, signal, hist := talib.Macd(closes, 12, 26, 9)
	return MACDResult{MACD: macd, Signal: signal, Histogram: hist}
}

// BollingerBands holds the three Bollinger Band series (spec Glossary).
type BollingerBands struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger computes middle=SMA(n), upper/lower = middle +/- 2 sigma via
// talib's standard deviation type (matype 0 = SMA, same as this package's
// SMA).
func Bollinger(closes []float64, n int) BollingerBands {
	upper, middle, lower := talib.BBands(closes, n, 2, 2, 0)
	return BollingerBands{Upper: upper, Middle: middle, Lower: lower}
}

// Last returns the final element of a series, or 0 if empty.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// DailyReturns converts a close-price series into simple daily returns.
func DailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	return returns
}

// LogReturns converts a close-price series into log returns, used by the
// market service's realized-volatility calculation.
func LogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}
	return returns
}

// AnnualizedStdDev computes the standard deviation of returns scaled by
// sqrt(252), the realized-volatility convention used throughout this control plane,
// §4.3 and §4.10.
func AnnualizedStdDev(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	return stat.StdDev(returns, nil) * math.Sqrt(252)
}

// Mean is gonum's arithmetic mean, re-exported so callers needn't import
// gonum/stat directly for simple aggregation.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// StdDev is gonum's (population-adjacent, sample) standard deviation.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}
