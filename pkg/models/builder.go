package models

import (
	"github.com/rzzdr/structured-pricer/pkg/utils/errors"
)

// InvestorObjectives are the goals the product builder derives terms from
type InvestorObjectives struct {
	Ticker           string       `json:"ticker"`
	Principal        float64      `json:"principal"`
	MinGainPct       float64      `json:"min_gain_pct"`
	MaxLossPct       float64      `json:"max_loss_pct"`
	RiskTolerance    int          `json:"risk_tolerance"`
	TimeHorizonYears float64      `json:"time_horizon_years"`
	PreferIncome     bool         `json:"prefer_income"`
	Market           MarketInputs `json:"market"`
}

// Validate checks the objectives. Market inputs are validated by the engine.
func (o InvestorObjectives) Validate() error {
	if err := validatePrincipal(o.Principal); err != nil {
		return err
	}
	if !isFinite(o.MinGainPct) || o.MinGainPct < 0 {
		return errors.InvalidParameter("min_gain_pct must be non-negative, got %v", o.MinGainPct)
	}
	if !isFinite(o.MaxLossPct) || o.MaxLossPct < 0 || o.MaxLossPct > 100 {
		return errors.InvalidParameter("max_loss_pct must be within [0,100], got %v", o.MaxLossPct)
	}
	if o.RiskTolerance < 0 || o.RiskTolerance > 100 {
		return errors.InvalidParameter("risk_tolerance must be within [0,100], got %d", o.RiskTolerance)
	}
	if !isFinite(o.TimeHorizonYears) || o.TimeHorizonYears <= 0 {
		return errors.InvalidParameter("time_horizon_years must be positive, got %v", o.TimeHorizonYears)
	}
	return nil
}

// ExpectedResults is the subset of a valuation shown with a proposal
type ExpectedResults struct {
	FairValue         float64 `json:"fair_value"`
	MaxGain           float64 `json:"max_gain"`
	MaxLoss           float64 `json:"max_loss"`
	RiskLevel         int     `json:"risk_level"`
	ProbabilityProfit float64 `json:"probability_profit"`
	BreakEvenPrice    float64 `json:"break_even_price"`
}

// ExpectedResultsFrom extracts the proposal view of a valuation
func ExpectedResultsFrom(r *ValuationResult) ExpectedResults {
	return ExpectedResults{
		FairValue:         r.FairValue,
		MaxGain:           r.MaxGain,
		MaxLoss:           r.MaxLoss,
		RiskLevel:         r.RiskLevel,
		ProbabilityProfit: r.ProbabilityProfit,
		BreakEvenPrice:    r.BreakEvenPrice,
	}
}

// ProductProposal is one candidate product for a set of objectives
type ProductProposal struct {
	ProductType     ProductType     `json:"product_type"`
	ProductName     string          `json:"product_name"`
	Description     string          `json:"description"`
	MatchScore      int             `json:"match_score"`
	Parameters      interface{}     `json:"parameters"`
	ExpectedResults ExpectedResults `json:"expected_results"`
	Pros            []string        `json:"pros"`
	Cons            []string        `json:"cons"`
}

// ObjectivesSummary echoes the objectives back in display form
type ObjectivesSummary struct {
	Ticker           string  `json:"ticker"`
	Capital          float64 `json:"capital"`
	MinGainPct       float64 `json:"min_gain_pct"`
	MaxLossPct       float64 `json:"max_loss_pct"`
	RiskTolerance    int     `json:"risk_tolerance"`
	TimeHorizonYears float64 `json:"time_horizon_years"`
	PreferIncome     bool    `json:"prefer_income"`
	Profile          string  `json:"profile"`
}

// Recommendation is the builder output, proposals sorted best first
type Recommendation struct {
	Summary        ObjectivesSummary `json:"objectives_summary"`
	Proposals      []ProductProposal `json:"proposed_products"`
	Recommendation string            `json:"recommendation"`
}

// Rounded returns a copy rounded for display like ValuationResult.Rounded
func (e ExpectedResults) Rounded() ExpectedResults {
	return ExpectedResults{
		FairValue:         round(e.FairValue, 2),
		MaxGain:           round(e.MaxGain, 2),
		MaxLoss:           round(e.MaxLoss, 2),
		RiskLevel:         e.RiskLevel,
		ProbabilityProfit: round(e.ProbabilityProfit, 2),
		BreakEvenPrice:    round(e.BreakEvenPrice, 2),
	}
}

// Rounded returns a copy with every proposal's expected results rounded
func (r Recommendation) Rounded() Recommendation {
	out := r
	out.Proposals = make([]ProductProposal, len(r.Proposals))
	for i, p := range r.Proposals {
		p.ExpectedResults = p.ExpectedResults.Rounded()
		out.Proposals[i] = p
	}
	return out
}
