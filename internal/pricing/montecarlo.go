package pricing

import (
	"context"
	"math"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rzzdr/structured-pricer/pkg/utils/errors"
	"github.com/rzzdr/structured-pricer/pkg/utils/logger"
)

const (
	// DefaultPaths is the number of simulated paths per valuation
	DefaultPaths = 10000
	// DefaultSeed makes repeated valuations reproduce the same fair value
	DefaultSeed int64 = 42
	// DefaultChunkSize is the number of paths drawn from one generator
	DefaultChunkSize = 1000

	// MaxSteps bounds the observation dates of one simulated path
	MaxSteps = 10000

	// stepTolerance absorbs binary representation error in T/dt
	stepTolerance = 1e-9
)

// SimulatorConfig configures the Monte Carlo simulator
type SimulatorConfig struct {
	Paths     int
	Seed      int64
	Randomize bool // seed from the clock instead of Seed
	Workers   int  // chunks simulated concurrently; <= 1 runs inline
	ChunkSize int
}

// DefaultSimulatorConfig returns the reproducible default configuration
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Paths:     DefaultPaths,
		Seed:      DefaultSeed,
		Workers:   1,
		ChunkSize: DefaultChunkSize,
	}
}

// Simulator values path-dependent payoffs by simulating geometric Brownian
// motion at discrete observation dates.
//
// Paths are split into fixed-size chunks and chunk i draws from its own
// generator seeded with Seed+i. Chunk results are reduced in chunk order, so
// the estimate depends on Paths, Seed and ChunkSize but never on Workers.
type Simulator struct {
	config SimulatorConfig
	log    *logger.Logger
}

// NewSimulator creates a simulator, filling unset fields with defaults
func NewSimulator(config SimulatorConfig) *Simulator {
	if config.Paths <= 0 {
		config.Paths = DefaultPaths
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}

	return &Simulator{
		config: config,
		log:    logger.GetLogger("pricing.montecarlo"),
	}
}

// Config returns the effective configuration
func (s *Simulator) Config() SimulatorConfig {
	return s.config
}

// WithPaths returns a copy of the simulator running a different path count
func (s *Simulator) WithPaths(paths int) *Simulator {
	cfg := s.config
	cfg.Paths = paths
	return NewSimulator(cfg)
}

// AutocallParams are the absolute-price inputs of an autocall simulation.
// Coupon is an annual rate as a fraction (0.08 for 8%).
type AutocallParams struct {
	Spot            float64
	AutocallTrigger float64
	ProtectionLevel float64
	Maturity        float64
	Rate            float64
	Volatility      float64
	Coupon          float64
	Principal       float64
	Frequency       float64
}

// AutocallEstimate is the simulated valuation of an autocall
type AutocallEstimate struct {
	FairValue           float64
	AutocallProbability float64 // percent of paths redeemed early
	BreachProbability   float64 // percent of paths finishing below protection
	ExpectedLife        float64 // mean redemption time in years
	Paths               int
}

type chunkStats struct {
	payoffSum float64
	lifeSum   float64
	called    int
	breached  int
}

func (p AutocallParams) validate() error {
	switch {
	case !(p.Spot > 0):
		return errors.InvalidParameter("spot must be positive, got %v", p.Spot)
	case !(p.Principal > 0):
		return errors.InvalidParameter("principal must be positive, got %v", p.Principal)
	case !(p.Frequency > 0):
		return errors.InvalidParameter("observation frequency must be positive, got %v", p.Frequency)
	case !(p.Maturity >= 0):
		return errors.InvalidParameter("maturity must be non-negative, got %v", p.Maturity)
	case !(p.Volatility >= 0):
		return errors.InvalidParameter("volatility must be non-negative, got %v", p.Volatility)
	case !(p.Maturity/p.Frequency <= MaxSteps):
		return errors.InvalidParameter("maturity %v over frequency %v exceeds %d observation dates",
			p.Maturity, p.Frequency, MaxSteps)
	}
	return nil
}

// Steps returns the number of observation dates up to maturity
func (p AutocallParams) Steps() int {
	return int(math.Floor(p.Maturity/p.Frequency + stepTolerance))
}

// SimulateAutocall estimates the discounted expected payoff of an autocall.
//
// Each path steps forward one observation period at a time. The first date
// on which the price is at or above the autocall trigger redeems the note at
// principal*(1+coupon*elapsed) and ends the path. A path that is never called
// pays principal*(1+coupon*T) if it finishes at or above the protection
// level, otherwise principal*S_T/S_0.
func (s *Simulator) SimulateAutocall(ctx context.Context, p AutocallParams) (*AutocallEstimate, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	seed := s.config.Seed
	if s.config.Randomize {
		seed = time.Now().UnixNano()
	}

	n := s.config.Paths
	size := s.config.ChunkSize
	chunks := (n + size - 1) / size
	results := make([]chunkStats, chunks)

	run := func(i int) {
		lo := i * size
		hi := min(lo+size, n)
		results[i] = simulateChunk(p, hi-lo, rand.New(rand.NewSource(seed+int64(i))))
	}

	if s.config.Workers <= 1 || chunks == 1 {
		for i := 0; i < chunks; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			run(i)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.config.Workers)
		for i := 0; i < chunks; i++ {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				run(i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	var total chunkStats
	for _, r := range results {
		total.payoffSum += r.payoffSum
		total.lifeSum += r.lifeSum
		total.called += r.called
		total.breached += r.breached
	}

	paths := float64(n)
	estimate := &AutocallEstimate{
		FairValue:           total.payoffSum / paths * math.Exp(-p.Rate*p.Maturity),
		AutocallProbability: float64(total.called) / paths * 100,
		BreachProbability:   float64(total.breached) / paths * 100,
		ExpectedLife:        total.lifeSum / paths,
		Paths:               n,
	}

	s.log.Debugf("Simulated %d autocall paths (%d steps) in %v: fair value %.4f",
		n, p.Steps(), time.Since(start), estimate.FairValue)

	return estimate, nil
}

func simulateChunk(p AutocallParams, paths int, rng *rand.Rand) chunkStats {
	dt := p.Frequency
	steps := p.Steps()
	drift := (p.Rate - 0.5*p.Volatility*p.Volatility) * dt
	diffusion := p.Volatility * math.Sqrt(dt)

	var stats chunkStats
	for path := 0; path < paths; path++ {
		S := p.Spot
		called := false

		for step := 1; step <= steps; step++ {
			S *= math.Exp(drift + diffusion*rng.NormFloat64())

			if S >= p.AutocallTrigger {
				elapsed := float64(step) * dt
				stats.payoffSum += p.Principal * (1 + p.Coupon*elapsed)
				stats.lifeSum += elapsed
				stats.called++
				called = true
				break
			}
		}

		if called {
			continue
		}

		stats.lifeSum += p.Maturity
		if S >= p.ProtectionLevel {
			stats.payoffSum += p.Principal * (1 + p.Coupon*p.Maturity)
		} else {
			stats.payoffSum += p.Principal * (S / p.Spot)
			stats.breached++
		}
	}

	return stats
}
