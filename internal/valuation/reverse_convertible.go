package valuation

import (
	"context"
	"math"

	"github.com/rzzdr/structured-pricer/internal/pricing"
	"github.com/rzzdr/structured-pricer/pkg/models"
)

// ValueReverseConvertible prices a reverse convertible as a bond paying
// annual coupons less a short down-and-in put struck at the barrier.
func (e *Engine) ValueReverseConvertible(ctx context.Context, market models.MarketInputs, terms models.ReverseConvertibleTerms) (*models.ValuationResult, error) {
	snap, err := market.Snapshot()
	if err != nil {
		return nil, err
	}
	if err := terms.Validate(); err != nil {
		return nil, err
	}

	S, sigma, r := snap.SpotPrice, snap.Volatility, snap.RiskFreeRate
	P, T := terms.Principal, terms.MaturityYears
	barrier := S * terms.BarrierLevel / 100

	coupon := P * terms.CouponRate / 100
	payments := max(1, int(T))

	var pvCoupons float64
	for t := 1; t <= payments; t++ {
		pvCoupons += coupon * math.Exp(-r*float64(t))
	}

	shares := P / S
	put := pricing.PutPrice(S, barrier, T, r, sigma)
	embeddedPut := shares * put

	totalCoupons := coupon * T
	distance := (S - barrier) / S

	res := &models.ValuationResult{
		Product:           "Reverse Convertible",
		ProductType:       models.ProductReverseConvertible,
		FairValue:         P + pvCoupons - embeddedPut,
		MaxGain:           totalCoupons,
		MaxLoss:           P - totalCoupons,
		RiskLevel:         clampRisk((1-distance)*50 + sigma*100),
		ProbabilityProfit: pricing.BarrierSurvival(S, barrier, T, r, sigma),
		BreakEvenPrice:    S * (1 - totalCoupons/P),
		Greeks:            pricing.CalculateGreeks(S, barrier, T, r, sigma, pricing.Put).Scale(shares),
		ReverseConvertible: &models.ReverseConvertibleComponents{
			CouponValue:      pvCoupons,
			TotalCoupons:     totalCoupons,
			EmbeddedPutValue: embeddedPut,
			BarrierPrice:     barrier,
			Shares:           shares,
		},
	}

	return e.finalize(res)
}
