package models

import (
	"math"

	"github.com/shopspring/decimal"
)

// Greeks are option sensitivities. Vega is per volatility point and theta
// per calendar day.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
}

// Scale returns the Greeks of a position of the given size
func (g Greeks) Scale(size float64) Greeks {
	return Greeks{
		Delta: g.Delta * size,
		Gamma: g.Gamma * size,
		Vega:  g.Vega * size,
		Theta: g.Theta * size,
	}
}

// ReverseConvertibleComponents breaks a reverse convertible into its legs
type ReverseConvertibleComponents struct {
	CouponValue      float64 `json:"coupon_value"`
	TotalCoupons     float64 `json:"total_coupons"`
	EmbeddedPutValue float64 `json:"embedded_put_value"`
	BarrierPrice     float64 `json:"barrier_price"`
	Shares           float64 `json:"shares"`
}

// AutocallComponents holds the autocall legs and simulation statistics
type AutocallComponents struct {
	CouponValue            float64 `json:"coupon_value"`
	AutocallBarrierPrice   float64 `json:"autocall_barrier_price"`
	ProtectionBarrierPrice float64 `json:"protection_barrier_price"`
	AutocallProbability    float64 `json:"autocall_probability"`
	BarrierBreachProb      float64 `json:"barrier_breach_probability"`
	ExpectedLifeYears      float64 `json:"expected_life_years"`
	Paths                  int     `json:"paths"`
}

// CapitalProtectedComponents splits a capital protected note into bond and options
type CapitalProtectedComponents struct {
	GuaranteedCapital       float64 `json:"guaranteed_capital"`
	BondValue               float64 `json:"bond_value"`
	CallBudget              float64 `json:"call_budget"`
	OptionValue             float64 `json:"option_value"`
	ParticipationRate       float64 `json:"participation_rate"`
	AffordableParticipation float64 `json:"affordable_participation"`
	Contracts               float64 `json:"contracts"`
}

// WarrantComponents describes the warrant position
type WarrantComponents struct {
	WarrantType    WarrantType `json:"warrant_type"`
	OptionValue    float64     `json:"option_value"`
	UnitPrice      float64     `json:"unit_price"`
	Leverage       float64     `json:"leverage"`
	StrikePrice    float64     `json:"strike_price"`
	Units          float64     `json:"units"`
	IntrinsicValue float64     `json:"intrinsic_value"`
	TimeValue      float64     `json:"time_value"`
}

// ValuationResult is the full output of a product valuation. Exactly one of
// the component blocks is set, matching ProductType.
type ValuationResult struct {
	Product           string      `json:"product"`
	ProductType       ProductType `json:"product_type"`
	FairValue         float64     `json:"fair_value"`
	MaxGain           float64     `json:"max_gain"`
	MaxLoss           float64     `json:"max_loss"`
	RiskLevel         int         `json:"risk_level"`
	ProbabilityProfit float64     `json:"probability_profit"`
	BreakEvenPrice    float64     `json:"break_even_price"`
	Greeks

	ReverseConvertible *ReverseConvertibleComponents `json:"reverse_convertible,omitempty"`
	Autocall           *AutocallComponents           `json:"autocall,omitempty"`
	CapitalProtected   *CapitalProtectedComponents   `json:"capital_protected,omitempty"`
	Warrant            *WarrantComponents            `json:"warrant,omitempty"`
}

// NumericFields returns every float in the result keyed by name
func (r *ValuationResult) NumericFields() map[string]float64 {
	fields := map[string]float64{
		"fair_value":         r.FairValue,
		"max_gain":           r.MaxGain,
		"max_loss":           r.MaxLoss,
		"probability_profit": r.ProbabilityProfit,
		"break_even_price":   r.BreakEvenPrice,
		"delta":              r.Delta,
		"gamma":              r.Gamma,
		"vega":               r.Vega,
		"theta":              r.Theta,
	}
	if c := r.ReverseConvertible; c != nil {
		fields["coupon_value"] = c.CouponValue
		fields["total_coupons"] = c.TotalCoupons
		fields["embedded_put_value"] = c.EmbeddedPutValue
		fields["barrier_price"] = c.BarrierPrice
		fields["shares"] = c.Shares
	}
	if c := r.Autocall; c != nil {
		fields["coupon_value"] = c.CouponValue
		fields["autocall_barrier_price"] = c.AutocallBarrierPrice
		fields["protection_barrier_price"] = c.ProtectionBarrierPrice
		fields["autocall_probability"] = c.AutocallProbability
		fields["barrier_breach_probability"] = c.BarrierBreachProb
		fields["expected_life_years"] = c.ExpectedLifeYears
	}
	if c := r.CapitalProtected; c != nil {
		fields["guaranteed_capital"] = c.GuaranteedCapital
		fields["bond_value"] = c.BondValue
		fields["call_budget"] = c.CallBudget
		fields["option_value"] = c.OptionValue
		fields["participation_rate"] = c.ParticipationRate
		fields["affordable_participation"] = c.AffordableParticipation
		fields["contracts"] = c.Contracts
	}
	if c := r.Warrant; c != nil {
		fields["option_value"] = c.OptionValue
		fields["unit_price"] = c.UnitPrice
		fields["units"] = c.Units
		fields["intrinsic_value"] = c.IntrinsicValue
		fields["time_value"] = c.TimeValue
	}
	return fields
}

// Rounded returns a copy rounded for display: money and probabilities to
// 2 places, delta to 4, gamma to 6.
func (r ValuationResult) Rounded() ValuationResult {
	out := r
	out.FairValue = round(r.FairValue, 2)
	out.MaxGain = round(r.MaxGain, 2)
	out.MaxLoss = round(r.MaxLoss, 2)
	out.ProbabilityProfit = round(r.ProbabilityProfit, 2)
	out.BreakEvenPrice = round(r.BreakEvenPrice, 2)
	out.Delta = round(r.Delta, 4)
	out.Gamma = round(r.Gamma, 6)
	out.Vega = round(r.Vega, 2)
	out.Theta = round(r.Theta, 2)

	if c := r.ReverseConvertible; c != nil {
		out.ReverseConvertible = &ReverseConvertibleComponents{
			CouponValue:      round(c.CouponValue, 2),
			TotalCoupons:     round(c.TotalCoupons, 2),
			EmbeddedPutValue: round(c.EmbeddedPutValue, 2),
			BarrierPrice:     round(c.BarrierPrice, 2),
			Shares:           round(c.Shares, 4),
		}
	}
	if c := r.Autocall; c != nil {
		out.Autocall = &AutocallComponents{
			CouponValue:            round(c.CouponValue, 2),
			AutocallBarrierPrice:   round(c.AutocallBarrierPrice, 2),
			ProtectionBarrierPrice: round(c.ProtectionBarrierPrice, 2),
			AutocallProbability:    round(c.AutocallProbability, 2),
			BarrierBreachProb:      round(c.BarrierBreachProb, 2),
			ExpectedLifeYears:      round(c.ExpectedLifeYears, 4),
			Paths:                  c.Paths,
		}
	}
	if c := r.CapitalProtected; c != nil {
		out.CapitalProtected = &CapitalProtectedComponents{
			GuaranteedCapital:       round(c.GuaranteedCapital, 2),
			BondValue:               round(c.BondValue, 2),
			CallBudget:              round(c.CallBudget, 2),
			OptionValue:             round(c.OptionValue, 2),
			ParticipationRate:       round(c.ParticipationRate, 2),
			AffordableParticipation: round(c.AffordableParticipation, 2),
			Contracts:               round(c.Contracts, 4),
		}
	}
	if c := r.Warrant; c != nil {
		out.Warrant = &WarrantComponents{
			WarrantType:    c.WarrantType,
			OptionValue:    round(c.OptionValue, 2),
			UnitPrice:      round(c.UnitPrice, 2),
			Leverage:       c.Leverage,
			StrikePrice:    round(c.StrikePrice, 2),
			Units:          round(c.Units, 4),
			IntrinsicValue: round(c.IntrinsicValue, 2),
			TimeValue:      round(c.TimeValue, 2),
		}
	}
	return out
}

func round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
