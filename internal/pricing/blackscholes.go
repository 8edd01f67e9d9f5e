package pricing

import (
	"math"

	"github.com/rzzdr/structured-pricer/pkg/models"
)

// OptionType selects the call or put side of a European option
type OptionType int

const (
	Call OptionType = iota
	Put
)

func (o OptionType) String() string {
	if o == Put {
		return "put"
	}
	return "call"
}

// OptionTypeOf maps a warrant side onto an option type
func OptionTypeOf(w models.WarrantType) OptionType {
	if w == models.WarrantPut {
		return Put
	}
	return Call
}

// degenerate reports whether the Black-Scholes d1/d2 terms are undefined.
// At or past expiry, or with no volatility, prices are deterministic.
func degenerate(T, sigma float64) bool {
	return T <= 0 || sigma <= 0
}

// D1 returns the Black-Scholes d1 term. Callers must guard degenerate inputs.
func D1(S, K, T, r, sigma float64) float64 {
	return (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * math.Sqrt(T))
}

// D2 returns the Black-Scholes d2 term
func D2(S, K, T, r, sigma float64) float64 {
	return D1(S, K, T, r, sigma) - sigma*math.Sqrt(T)
}

// CallPrice prices a European call. For T <= 0 it returns the intrinsic
// value max(S-K, 0); for sigma <= 0 the discounted forward intrinsic value.
func CallPrice(S, K, T, r, sigma float64) float64 {
	if T <= 0 {
		return math.Max(S-K, 0)
	}
	if sigma <= 0 {
		return math.Max(S-K*math.Exp(-r*T), 0)
	}

	d1 := D1(S, K, T, r, sigma)
	d2 := d1 - sigma*math.Sqrt(T)

	return S*normalCDF(d1) - K*math.Exp(-r*T)*normalCDF(d2)
}

// PutPrice prices a European put. Degenerate inputs mirror CallPrice.
func PutPrice(S, K, T, r, sigma float64) float64 {
	if T <= 0 {
		return math.Max(K-S, 0)
	}
	if sigma <= 0 {
		return math.Max(K*math.Exp(-r*T)-S, 0)
	}

	d1 := D1(S, K, T, r, sigma)
	d2 := d1 - sigma*math.Sqrt(T)

	return K*math.Exp(-r*T)*normalCDF(-d2) - S*normalCDF(-d1)
}

// Price dispatches on the option type
func Price(S, K, T, r, sigma float64, optType OptionType) float64 {
	if optType == Put {
		return PutPrice(S, K, T, r, sigma)
	}
	return CallPrice(S, K, T, r, sigma)
}

// IntrinsicValue is the value of exercising now
func IntrinsicValue(S, K float64, optType OptionType) float64 {
	if optType == Put {
		return math.Max(K-S, 0)
	}
	return math.Max(S-K, 0)
}

// CalculateGreeks returns per-unit Greeks. Vega is per 1% volatility move and
// theta per calendar day. Degenerate inputs yield all zeros.
func CalculateGreeks(S, K, T, r, sigma float64, optType OptionType) models.Greeks {
	if degenerate(T, sigma) {
		return models.Greeks{}
	}

	sqrtT := math.Sqrt(T)
	d1 := D1(S, K, T, r, sigma)
	d2 := d1 - sigma*sqrtT
	pdf := normalPDF(d1)

	var greeks models.Greeks

	// Gamma and vega are the same for calls and puts
	greeks.Gamma = pdf / (S * sigma * sqrtT)
	greeks.Vega = S * pdf * sqrtT / 100

	decay := -S * pdf * sigma / (2 * sqrtT)
	if optType == Call {
		greeks.Delta = normalCDF(d1)
		greeks.Theta = (decay - r*K*math.Exp(-r*T)*normalCDF(d2)) / 365
	} else {
		greeks.Delta = normalCDF(d1) - 1
		greeks.Theta = (decay + r*K*math.Exp(-r*T)*normalCDF(-d2)) / 365
	}

	return greeks
}

// ProbabilityAbove is the risk-neutral probability, in percent, that the
// underlying finishes at or above K: Φ(d2).
func ProbabilityAbove(S, K, T, r, sigma float64) float64 {
	if degenerate(T, sigma) {
		return deterministicAbove(S, K, T, r)
	}
	return clampPercent(normalCDF(D2(S, K, T, r, sigma)) * 100)
}

// ProbabilityBelow is the complement of ProbabilityAbove: Φ(-d2)
func ProbabilityBelow(S, K, T, r, sigma float64) float64 {
	if degenerate(T, sigma) {
		return 100 - deterministicAbove(S, K, T, r)
	}
	return clampPercent(normalCDF(-D2(S, K, T, r, sigma)) * 100)
}

// BarrierSurvival is Φ(d1) at the barrier, in percent. It is the
// barrier-staying measure the structured notes quote as probability of profit.
func BarrierSurvival(S, K, T, r, sigma float64) float64 {
	if degenerate(T, sigma) {
		return deterministicAbove(S, K, T, r)
	}
	return clampPercent(normalCDF(D1(S, K, T, r, sigma)) * 100)
}

func deterministicAbove(S, K, T, r float64) float64 {
	forward := S
	if T > 0 {
		forward = S * math.Exp(r*T)
	}
	if forward >= K {
		return 100
	}
	return 0
}

func clampPercent(p float64) float64 {
	return math.Min(100, math.Max(0, p))
}

// normalCDF returns the cumulative distribution function of the standard normal distribution
func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normalPDF returns the probability density function of the standard normal distribution
func normalPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

// NormalCDF exposes Φ for callers building their own probability measures
func NormalCDF(x float64) float64 {
	return normalCDF(x)
}
