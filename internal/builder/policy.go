package builder

import (
	"math"

	"github.com/rzzdr/structured-pricer/internal/pricing"
	"github.com/rzzdr/structured-pricer/pkg/models"
)

// Gating thresholds on risk tolerance
const (
	AutocallMinRiskTolerance           = 30
	ReverseConvertibleMinRiskTolerance = 40
	WarrantMinRiskTolerance            = 70
)

// Term derivation constants. Percentages are on the 0-100 scale and
// volatility terms multiply the fractional volatility.
const (
	ProtectionBase           = 100.0
	ProtectionPerRiskPoint   = 0.1
	AutocallTriggerBase      = 95.0
	AutocallTriggerMaxUplift = 5.0
	AutocallTriggerGainRatio = 3.0
	MinBarrierLevel          = 50.0
	AutocallCouponBase       = 6.0
	AutocallCouponRisk       = 8.0
	AutocallCouponVol        = 10.0
	ReverseCouponBase        = 8.0
	ReverseCouponRisk        = 10.0
	ReverseCouponVol         = 12.0
	WarrantStrikeBaseOTM     = 5.0
	WarrantStrikeRiskDivisor = 10.0
	WarrantLeverageBase      = 3.0
	WarrantLeverageRisk      = 7.0
)

// Profile bands on risk tolerance
const (
	ConservativeBelow = 30
	BalancedBelow     = 60
)

// ScoringPolicy weights how well a valued candidate fits the objectives
type ScoringPolicy struct {
	GainWeight  float64
	LossWeight  float64
	RiskWeight  float64
	IncomeBonus float64
	// NeutralGainMatch applies when the investor set no minimum gain
	NeutralGainMatch float64
	// RiskAnchors is the risk tolerance each product suits best
	RiskAnchors map[models.ProductType]float64
}

// DefaultScoringPolicy returns the standard weights
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		GainWeight:       0.35,
		LossWeight:       0.35,
		RiskWeight:       0.30,
		IncomeBonus:      10,
		NeutralGainMatch: 50,
		RiskAnchors: map[models.ProductType]float64{
			models.ProductCapitalProtected:   10,
			models.ProductAutocall:           45,
			models.ProductReverseConvertible: 60,
			models.ProductWarrant:            90,
		},
	}
}

// Score returns the match score of a valuation in [0,100]
func (p ScoringPolicy) Score(obj models.InvestorObjectives, productType models.ProductType, res *models.ValuationResult) int {
	gain := p.NeutralGainMatch
	if obj.MinGainPct > 0 {
		target := obj.Principal * obj.MinGainPct / 100
		gain = math.Min(100, res.MaxGain/target*100)
	}

	loss := 100.0
	allowed := obj.Principal * obj.MaxLossPct / 100
	if res.MaxLoss > allowed {
		loss = 100 * allowed / res.MaxLoss
	}

	risk := 100 - math.Abs(float64(obj.RiskTolerance)-p.RiskAnchors[productType])

	score := p.GainWeight*gain + p.LossWeight*loss + p.RiskWeight*risk
	if obj.PreferIncome && paysIncome(productType) {
		score += p.IncomeBonus
	}

	if !(score > 0) {
		return 0
	}
	return int(math.Min(100, score))
}

func paysIncome(t models.ProductType) bool {
	return t == models.ProductAutocall || t == models.ProductReverseConvertible
}

// Profile names the risk band of a tolerance
func Profile(riskTolerance int) string {
	switch {
	case riskTolerance < ConservativeBelow:
		return "conservative"
	case riskTolerance < BalancedBelow:
		return "balanced"
	default:
		return "dynamic"
	}
}

func capitalProtectedTerms(obj models.InvestorObjectives, snap models.MarketSnapshot) models.CapitalProtectedTerms {
	protection := ProtectionBase - float64(obj.RiskTolerance)*ProtectionPerRiskPoint
	return models.CapitalProtectedTerms{
		Principal:         obj.Principal,
		ProtectionLevel:   protection,
		ParticipationRate: affordableParticipation(obj, snap, protection),
		MaturityYears:     obj.TimeHorizonYears,
	}
}

// affordableParticipation is the participation the option budget left after
// buying the protection bond can pay for
func affordableParticipation(obj models.InvestorObjectives, snap models.MarketSnapshot, protection float64) float64 {
	S, r, T := snap.SpotPrice, snap.RiskFreeRate, obj.TimeHorizonYears
	bond := obj.Principal * protection / 100 * math.Exp(-r*T)
	call := pricing.CallPrice(S, S, T, r, snap.Volatility)
	if call <= 0 {
		return 0
	}
	return math.Max(0, (obj.Principal-bond)/call/(obj.Principal/S)*100)
}

func barrierLevel(obj models.InvestorObjectives) float64 {
	return math.Max(MinBarrierLevel, 100-obj.MaxLossPct)
}

func autocallTerms(obj models.InvestorObjectives, snap models.MarketSnapshot) models.AutocallTerms {
	rt := float64(obj.RiskTolerance)
	return models.AutocallTerms{
		Principal:         obj.Principal,
		AutocallBarrier:   AutocallTriggerBase + math.Min(AutocallTriggerMaxUplift, obj.MinGainPct/AutocallTriggerGainRatio),
		CouponRate:        AutocallCouponBase + AutocallCouponRisk*rt/100 + AutocallCouponVol*snap.Volatility,
		BarrierLevel:      barrierLevel(obj),
		MaturityYears:     obj.TimeHorizonYears,
		AutocallFrequency: models.DefaultAutocallFrequency,
	}
}

func reverseConvertibleTerms(obj models.InvestorObjectives, snap models.MarketSnapshot) models.ReverseConvertibleTerms {
	rt := float64(obj.RiskTolerance)
	return models.ReverseConvertibleTerms{
		Principal:     obj.Principal,
		CouponRate:    ReverseCouponBase + ReverseCouponRisk*rt/100 + ReverseCouponVol*snap.Volatility,
		BarrierLevel:  barrierLevel(obj),
		MaturityYears: obj.TimeHorizonYears,
	}
}

func warrantTerms(obj models.InvestorObjectives, snap models.MarketSnapshot) models.WarrantTerms {
	rt := float64(obj.RiskTolerance)
	otm := WarrantStrikeBaseOTM + (100-rt)/WarrantStrikeRiskDivisor
	return models.WarrantTerms{
		StrikePrice:   snap.SpotPrice * (1 + otm/100),
		WarrantType:   models.WarrantCall,
		Leverage:      WarrantLeverageBase + WarrantLeverageRisk*rt/100,
		MaturityYears: obj.TimeHorizonYears,
		Principal:     obj.Principal,
	}
}
