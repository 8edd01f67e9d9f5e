package circuit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rzzdr/structured-pricer/pkg/utils/errors"
	"github.com/rzzdr/structured-pricer/pkg/utils/logger"
)

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateHalfOpen:
		return "HALF_OPEN"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

type Config struct {
	MaxFailures   int                               // Consecutive failures before opening
	Timeout       time.Duration                     // Time spent open before probing
	MaxRequests   int                               // Trial requests allowed while half-open
	OnStateChange func(name string, from, to State) // Optional
}

func DefaultConfig() Config {
	return Config{
		MaxFailures: 5,
		Timeout:     30 * time.Second,
		MaxRequests: 1,
	}
}

// Breaker stops calling a failing collaborator until it has had time to recover
type Breaker struct {
	name            string
	config          Config
	state           State
	failures        int
	requests        int
	lastFailureTime time.Time
	now             func() time.Time
	mutex           sync.Mutex
	log             *logger.Logger
}

// Stats is a point-in-time view of a breaker
type Stats struct {
	Name     string `json:"name"`
	State    string `json:"state"`
	Failures int    `json:"failures"`
}

func NewBreaker(name string, config Config) *Breaker {
	defaults := DefaultConfig()
	if config.MaxFailures <= 0 {
		config.MaxFailures = defaults.MaxFailures
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = defaults.MaxRequests
	}

	b := &Breaker{
		name:   name,
		config: config,
		state:  StateClosed,
		now:    time.Now,
		log:    logger.GetLogger(fmt.Sprintf("circuit.%s", name)),
	}

	b.log.Infof("Circuit breaker '%s' initialized in CLOSED state", name)
	return b
}

// Execute runs fn unless the breaker is open. Rejections wrap
// errors.ErrCircuitOpen and carry the Unavailable type.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.beforeRequest(); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			b.afterRequest(false)
			panic(r)
		}
	}()

	err := fn(ctx)
	b.afterRequest(err == nil)
	return err
}

func (b *Breaker) beforeRequest() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.lastFailureTime) < b.config.Timeout {
			return errors.Wrapf(errors.ErrCircuitOpen, "breaker %s", b.name)
		}
		b.transition(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if b.requests >= b.config.MaxRequests {
			return errors.Wrapf(errors.ErrCircuitOpen, "breaker %s is probing", b.name)
		}
		b.requests++
	}
	return nil
}

func (b *Breaker) afterRequest(success bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if success {
		b.failures = 0
		if b.state == StateHalfOpen {
			b.transition(StateClosed)
		}
		return
	}

	b.failures++
	b.lastFailureTime = b.now()
	if b.state == StateHalfOpen || b.failures >= b.config.MaxFailures {
		b.transition(StateOpen)
	}
}

// transition must be called with the mutex held
func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.requests = 0

	if to == StateOpen {
		b.log.Warnf("Circuit breaker '%s' transitioned from %s to %s after %d failures", b.name, from, to, b.failures)
	} else {
		b.log.Infof("Circuit breaker '%s' transitioned from %s to %s", b.name, from, to)
	}
	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.name, from, to)
	}
}

func (b *Breaker) State() State {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.state
}

func (b *Breaker) Stats() Stats {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return Stats{
		Name:     b.name,
		State:    b.state.String(),
		Failures: b.failures,
	}
}

func (b *Breaker) Name() string {
	return b.name
}
