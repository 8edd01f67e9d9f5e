package builder

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rzzdr/structured-pricer/pkg/models"
	"github.com/rzzdr/structured-pricer/pkg/utils/errors"
	"github.com/rzzdr/structured-pricer/pkg/utils/logger"
)

// Valuer prices the four product archetypes
type Valuer interface {
	ValueReverseConvertible(ctx context.Context, market models.MarketInputs, terms models.ReverseConvertibleTerms) (*models.ValuationResult, error)
	ValueAutocall(ctx context.Context, market models.MarketInputs, terms models.AutocallTerms) (*models.ValuationResult, error)
	ValueCapitalProtected(ctx context.Context, market models.MarketInputs, terms models.CapitalProtectedTerms) (*models.ValuationResult, error)
	ValueWarrant(ctx context.Context, market models.MarketInputs, terms models.WarrantTerms) (*models.ValuationResult, error)
}

// Builder derives product terms from investor objectives, values each
// candidate and ranks them
type Builder struct {
	valuer Valuer
	policy ScoringPolicy
	log    *logger.Logger
}

// NewBuilder creates a new product builder
func NewBuilder(valuer Valuer, policy ScoringPolicy) *Builder {
	if policy.RiskAnchors == nil {
		policy = DefaultScoringPolicy()
	}

	return &Builder{
		valuer: valuer,
		policy: policy,
		log:    logger.GetLogger("builder"),
	}
}

type candidate struct {
	productType models.ProductType
	name        string
	description string
	terms       interface{}
	value       func(ctx context.Context) (*models.ValuationResult, error)
	pros        []string
	cons        []string
}

// Build proposes the products that fit the objectives, best match first.
// Any valuation failure fails the whole build.
func (b *Builder) Build(ctx context.Context, obj models.InvestorObjectives) (*models.Recommendation, error) {
	if obj.Ticker == "" {
		return nil, errors.MissingInput("ticker")
	}
	if err := obj.Validate(); err != nil {
		return nil, err
	}
	snap, err := obj.Market.Snapshot()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	candidates := b.candidates(obj, snap)
	proposals := make([]models.ProductProposal, 0, len(candidates))

	for _, c := range candidates {
		res, err := c.value(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to value %s candidate", c.productType)
		}

		proposals = append(proposals, models.ProductProposal{
			ProductType:     c.productType,
			ProductName:     c.name,
			Description:     c.description,
			MatchScore:      b.policy.Score(obj, c.productType, res),
			Parameters:      c.terms,
			ExpectedResults: models.ExpectedResultsFrom(res),
			Pros:            c.pros,
			Cons:            c.cons,
		})
	}

	sort.SliceStable(proposals, func(i, j int) bool {
		return proposals[i].MatchScore > proposals[j].MatchScore
	})

	profile := Profile(obj.RiskTolerance)
	rec := &models.Recommendation{
		Summary: models.ObjectivesSummary{
			Ticker:           obj.Ticker,
			Capital:          obj.Principal,
			MinGainPct:       obj.MinGainPct,
			MaxLossPct:       obj.MaxLossPct,
			RiskTolerance:    obj.RiskTolerance,
			TimeHorizonYears: obj.TimeHorizonYears,
			PreferIncome:     obj.PreferIncome,
			Profile:          profile,
		},
		Proposals:      proposals,
		Recommendation: recommendationText(proposals[0], profile),
	}

	b.log.Infof("Built %d proposals for %s (risk tolerance %d) in %v, best %s",
		len(proposals), obj.Ticker, obj.RiskTolerance, time.Since(start), proposals[0].ProductType)

	return rec, nil
}

func (b *Builder) candidates(obj models.InvestorObjectives, snap models.MarketSnapshot) []candidate {
	rt := obj.RiskTolerance
	market := obj.Market

	cp := capitalProtectedTerms(obj, snap)
	out := []candidate{{
		productType: models.ProductCapitalProtected,
		name:        "Capital Protected Note",
		description: fmt.Sprintf("%.0f%% capital protection with %.1f%% participation", cp.ProtectionLevel, cp.ParticipationRate),
		terms:       cp,
		value: func(ctx context.Context) (*models.ValuationResult, error) {
			return b.valuer.ValueCapitalProtected(ctx, market, cp)
		},
		pros: []string{
			fmt.Sprintf("Capital protected at %.0f%%", cp.ProtectionLevel),
			"Very low risk",
			fmt.Sprintf("%.1f%% participation in the upside", cp.ParticipationRate),
		},
		cons: []string{
			participationCon(cp.ParticipationRate),
			"No regular income",
			"Performance tied to a single stock",
		},
	}}

	if rt >= AutocallMinRiskTolerance {
		ac := autocallTerms(obj, snap)
		out = append(out, candidate{
			productType: models.ProductAutocall,
			name:        "Autocall / Phoenix",
			description: fmt.Sprintf("%.1f%% coupon with a %.0f%% barrier", ac.CouponRate, ac.BarrierLevel),
			terms:       ac,
			value: func(ctx context.Context) (*models.ValuationResult, error) {
				return b.valuer.ValueAutocall(ctx, market, ac)
			},
			pros: []string{
				fmt.Sprintf("Attractive %.1f%% coupon", ac.CouponRate),
				"Possible early redemption",
				fmt.Sprintf("Protected down to -%.0f%%", 100-ac.BarrierLevel),
			},
			cons: []string{
				"Capital loss if the barrier is breached",
				"Gain capped at the coupon",
				"Complex to understand",
			},
		})
	}

	if rt >= ReverseConvertibleMinRiskTolerance || obj.PreferIncome {
		rc := reverseConvertibleTerms(obj, snap)
		out = append(out, candidate{
			productType: models.ProductReverseConvertible,
			name:        "Reverse Convertible",
			description: fmt.Sprintf("%.1f%% coupon with a %.0f%% barrier", rc.CouponRate, rc.BarrierLevel),
			terms:       rc,
			value: func(ctx context.Context) (*models.ValuationResult, error) {
				return b.valuer.ValueReverseConvertible(ctx, market, rc)
			},
			pros: []string{
				fmt.Sprintf("High %.1f%% coupon", rc.CouponRate),
				"Predictable income",
				"Simple to understand",
			},
			cons: []string{
				"Risk of conversion into shares",
				"Potentially large loss",
				"No upside participation",
			},
		})
	}

	if rt >= WarrantMinRiskTolerance {
		wt := warrantTerms(obj, snap)
		out = append(out, candidate{
			productType: models.ProductWarrant,
			name:        "Call Warrant",
			description: fmt.Sprintf("Strike %.2f (%.1f%% out of the money)", wt.StrikePrice, (wt.StrikePrice/snap.SpotPrice-1)*100),
			terms:       wt,
			value: func(ctx context.Context) (*models.ValuationResult, error) {
				return b.valuer.ValueWarrant(ctx, market, wt)
			},
			pros: []string{
				fmt.Sprintf("%.0fx leverage", wt.Leverage),
				"Very high gain potential",
				"Small initial outlay per unit",
			},
			cons: []string{
				"Risk of total loss",
				"Very volatile",
				"Requires precise timing",
			},
		})
	}

	return out
}

func participationCon(participation float64) string {
	if participation < 100 {
		return "Capped gain"
	}
	return "Partial participation"
}

func recommendationText(best models.ProductProposal, profile string) string {
	text := fmt.Sprintf("We recommend the %s (score: %d/100), which best matches your objectives. ", best.ProductName, best.MatchScore)

	switch profile {
	case "conservative":
		text += "Your conservative profile favours capital protection."
	case "balanced":
		text += "Your balanced profile seeks a good risk/return trade-off."
	default:
		text += "Your dynamic profile seeks high potential gains."
	}
	return text
}
