package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rzzdr/structured-pricer/pkg/models"
)

func TestCallPriceReferenceValue(t *testing.T) {
	// Hull, S=42 K=40 T=0.5 r=10% sigma=20%
	assert.InDelta(t, 4.76, CallPrice(42, 40, 0.5, 0.10, 0.20), 0.01)
	assert.InDelta(t, 0.81, PutPrice(42, 40, 0.5, 0.10, 0.20), 0.01)
}

func TestNoArbitrageBoundsAndParity(t *testing.T) {
	spots := []float64{50, 90, 100, 110, 200}
	strikes := []float64{60, 100, 150}
	maturities := []float64{0.01, 0.25, 1, 5}
	rates := []float64{-0.01, 0, 0.04}
	vols := []float64{0.05, 0.25, 0.8}

	for _, S := range spots {
		for _, K := range strikes {
			for _, T := range maturities {
				for _, r := range rates {
					for _, sigma := range vols {
						call := CallPrice(S, K, T, r, sigma)
						put := PutPrice(S, K, T, r, sigma)
						pvK := K * math.Exp(-r*T)

						assert.GreaterOrEqual(t, call+1e-9, math.Max(S-pvK, 0))
						assert.GreaterOrEqual(t, put+1e-9, math.Max(pvK-S, 0))
						assert.InDelta(t, S-pvK, call-put, 1e-8, "parity S=%v K=%v T=%v r=%v sigma=%v", S, K, T, r, sigma)
					}
				}
			}
		}
	}
}

func TestDegenerateExpiry(t *testing.T) {
	assert.Equal(t, 10.0, CallPrice(110, 100, 0, 0.04, 0.25))
	assert.Equal(t, 0.0, CallPrice(90, 100, 0, 0.04, 0.25))
	assert.Equal(t, 10.0, PutPrice(90, 100, 0, 0.04, 0.25))
	assert.Equal(t, 0.0, PutPrice(110, 100, -1, 0.04, 0.25))

	assert.Equal(t, models.Greeks{}, CalculateGreeks(110, 100, 0, 0.04, 0.25, Call))
	assert.Equal(t, models.Greeks{}, CalculateGreeks(110, 100, 0, 0.04, 0.25, Put))
}

func TestZeroVolatilityIsFinite(t *testing.T) {
	call := CallPrice(100, 100, 1, 0.05, 0)
	put := PutPrice(100, 100, 1, 0.05, 0)

	assert.InDelta(t, 100-100*math.Exp(-0.05), call, 1e-12)
	assert.Equal(t, 0.0, put)
	assert.Equal(t, models.Greeks{}, CalculateGreeks(100, 100, 1, 0.05, 0, Call))
	assert.Equal(t, 100.0, ProbabilityAbove(100, 100, 1, 0.05, 0))
	assert.Equal(t, 0.0, ProbabilityBelow(100, 100, 1, 0.05, 0))
}

func TestGreeks(t *testing.T) {
	S, K, T, r, sigma := 100.0, 100.0, 1.0, 0.05, 0.2
	call := CalculateGreeks(S, K, T, r, sigma, Call)
	put := CalculateGreeks(S, K, T, r, sigma, Put)

	assert.InDelta(t, 0.6368, call.Delta, 1e-4)
	assert.InDelta(t, call.Delta-1, put.Delta, 1e-12)
	assert.InDelta(t, 0.018762, call.Gamma, 1e-6)
	assert.Equal(t, call.Gamma, put.Gamma)
	assert.InDelta(t, 0.37524, call.Vega, 1e-5)
	assert.Equal(t, call.Vega, put.Vega)
	assert.InDelta(t, -6.414/365, call.Theta, 1e-4)
	assert.InDelta(t, -1.658/365, put.Theta, 1e-4)

	// Delta against a finite difference of the price
	h := 1e-4
	fd := (CallPrice(S+h, K, T, r, sigma) - CallPrice(S-h, K, T, r, sigma)) / (2 * h)
	assert.InDelta(t, fd, call.Delta, 1e-6)
}

func TestProbabilities(t *testing.T) {
	above := ProbabilityAbove(100, 110, 1, 0.03, 0.3)
	below := ProbabilityBelow(100, 110, 1, 0.03, 0.3)
	assert.InDelta(t, 100, above+below, 1e-9)
	assert.Greater(t, BarrierSurvival(100, 60, 1, 0.03, 0.3), 95.0)

	for _, K := range []float64{1, 50, 100, 1e6} {
		for _, sigma := range []float64{0, 0.01, 1, 5} {
			for _, T := range []float64{0, 0.1, 10} {
				for _, p := range []float64{
					ProbabilityAbove(100, K, T, 0.04, sigma),
					ProbabilityBelow(100, K, T, 0.04, sigma),
					BarrierSurvival(100, K, T, 0.04, sigma),
				} {
					assert.GreaterOrEqual(t, p, 0.0)
					assert.LessOrEqual(t, p, 100.0)
				}
			}
		}
	}
}

func TestIntrinsicAndDispatch(t *testing.T) {
	assert.Equal(t, 5.0, IntrinsicValue(105, 100, Call))
	assert.Equal(t, 0.0, IntrinsicValue(105, 100, Put))
	assert.Equal(t, PutPrice(100, 95, 1, 0.02, 0.3), Price(100, 95, 1, 0.02, 0.3, Put))
	assert.Equal(t, Put, OptionTypeOf(models.WarrantPut))
	assert.Equal(t, "call", OptionTypeOf(models.WarrantCall).String())
}
