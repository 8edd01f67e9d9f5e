package valuation

import (
	"context"
	"math"

	"github.com/rzzdr/structured-pricer/internal/pricing"
	"github.com/rzzdr/structured-pricer/pkg/models"
)

// ValueCapitalProtected prices a capital protected note as a zero-coupon
// bond paying the guaranteed capital plus at-the-money calls sized by the
// participation rate.
func (e *Engine) ValueCapitalProtected(ctx context.Context, market models.MarketInputs, terms models.CapitalProtectedTerms) (*models.ValuationResult, error) {
	snap, err := market.Snapshot()
	if err != nil {
		return nil, err
	}
	if err := terms.Validate(); err != nil {
		return nil, err
	}

	S, sigma, r := snap.SpotPrice, snap.Volatility, snap.RiskFreeRate
	P, T := terms.Principal, terms.MaturityYears

	guaranteed := P * terms.ProtectionLevel / 100
	bond := guaranteed * math.Exp(-r*T)
	budget := P - bond

	call := pricing.CallPrice(S, S, T, r, sigma)
	var affordable float64
	if call > 0 {
		affordable = budget / call / (P / S) * 100
	}

	contracts := terms.ParticipationRate / 100 * P / S
	optionValue := contracts * call
	maxLoss := math.Max(0, P-guaranteed)

	breakEven := S
	if contracts > 0 {
		breakEven = S + maxLoss/contracts
	}

	res := &models.ValuationResult{
		Product:     "Capital Protected",
		ProductType: models.ProductCapitalProtected,
		FairValue:   bond + optionValue,
		// Payoff if the underlying doubles
		MaxGain:           P * terms.ParticipationRate / 100 * 1.0,
		MaxLoss:           maxLoss,
		RiskLevel:         clampRisk(maxLoss / P * 100),
		ProbabilityProfit: 50 + pricing.BarrierSurvival(S, S, T, r, sigma)/2,
		BreakEvenPrice:    breakEven,
		Greeks:            pricing.CalculateGreeks(S, S, T, r, sigma, pricing.Call).Scale(contracts),
		CapitalProtected: &models.CapitalProtectedComponents{
			GuaranteedCapital:       guaranteed,
			BondValue:               bond,
			CallBudget:              budget,
			OptionValue:             optionValue,
			ParticipationRate:       terms.ParticipationRate,
			AffordableParticipation: affordable,
			Contracts:               contracts,
		},
	}

	return e.finalize(res)
}
