package valuation

import (
	"context"
	"math"
	"sort"

	"github.com/rzzdr/structured-pricer/internal/pricing"
	"github.com/rzzdr/structured-pricer/pkg/models"
	"github.com/rzzdr/structured-pricer/pkg/utils/errors"
	"github.com/rzzdr/structured-pricer/pkg/utils/logger"
)

// DefaultWarrantUnits is the position size priced when a warrant has no principal
const DefaultWarrantUnits = 100

// ResultSink receives every successful valuation
type ResultSink interface {
	PublishValuation(ctx context.Context, productType models.ProductType, ticker string, terms interface{}, result *models.ValuationResult) error
}

// EngineConfig configures the valuation engine
type EngineConfig struct {
	Simulation          pricing.SimulatorConfig
	DefaultWarrantUnits int
}

// DefaultEngineConfig returns the reproducible default configuration
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Simulation:          pricing.DefaultSimulatorConfig(),
		DefaultWarrantUnits: DefaultWarrantUnits,
	}
}

// Engine values the structured product archetypes. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	config    EngineConfig
	simulator *pricing.Simulator
	sink      ResultSink
	log       *logger.Logger
}

// NewEngine creates a new valuation engine
func NewEngine(config EngineConfig) *Engine {
	if config.DefaultWarrantUnits <= 0 {
		config.DefaultWarrantUnits = DefaultWarrantUnits
	}

	return &Engine{
		config:    config,
		simulator: pricing.NewSimulator(config.Simulation),
		log:       logger.GetLogger("valuation.engine"),
	}
}

// WithSink attaches a sink notified through Notify
func (e *Engine) WithSink(sink ResultSink) *Engine {
	e.sink = sink
	return e
}

// Simulator returns the Monte Carlo simulator used for autocalls
func (e *Engine) Simulator() *pricing.Simulator {
	return e.simulator
}

// Notify hands a finished valuation to the sink. Sink failures are logged,
// never returned: the valuation itself already succeeded.
func (e *Engine) Notify(ctx context.Context, ticker string, terms interface{}, result *models.ValuationResult) {
	if e.sink == nil || result == nil {
		return
	}
	if err := e.sink.PublishValuation(ctx, result.ProductType, ticker, terms, result); err != nil {
		e.log.Warnf("Failed to publish %s valuation for %s: %v", result.ProductType, ticker, err)
	}
}

// finalize rejects results holding NaN or Inf and clamps the bounded fields
func (e *Engine) finalize(res *models.ValuationResult) (*models.ValuationResult, error) {
	fields := res.NumericFields()

	// Sorted so the reported field is stable
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if v := fields[name]; math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.NumericDegenerate("%s valuation produced non-finite %s", res.ProductType, name)
		}
	}

	res.ProbabilityProfit = clampPercent(res.ProbabilityProfit)
	if res.RiskLevel < 0 {
		res.RiskLevel = 0
	} else if res.RiskLevel > 100 {
		res.RiskLevel = 100
	}

	e.log.Debugf("Valued %s: fair value %.4f, risk %d, P(profit) %.2f",
		res.ProductType, res.FairValue, res.RiskLevel, res.ProbabilityProfit)

	return res, nil
}

// clampRisk truncates a raw risk score to an integer in [0,100]
func clampRisk(score float64) int {
	if !(score > 0) {
		return 0
	}
	if score >= 100 {
		return 100
	}
	return int(score)
}

func clampPercent(p float64) float64 {
	return math.Min(100, math.Max(0, p))
}
