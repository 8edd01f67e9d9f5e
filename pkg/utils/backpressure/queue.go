// Package backpressure provides a bounded hand-off queue that sheds load
// instead of growing when its consumer falls behind.
package backpressure

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rzzdr/structured-pricer/pkg/utils/errors"
	"github.com/rzzdr/structured-pricer/pkg/utils/logger"
)

type Strategy int

const (
	DropOldest Strategy = iota
	DropNewest
	Block
	Reject
)

func (s Strategy) String() string {
	switch s {
	case DropOldest:
		return "DROP_OLDEST"
	case DropNewest:
		return "DROP_NEWEST"
	case Block:
		return "BLOCK"
	case Reject:
		return "REJECT"
	default:
		return "UNKNOWN"
	}
}

// ParseStrategy maps a configuration value such as "drop_oldest" to a Strategy
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "drop_oldest", "DROP_OLDEST":
		return DropOldest, nil
	case "drop_newest", "DROP_NEWEST":
		return DropNewest, nil
	case "block", "BLOCK":
		return Block, nil
	case "reject", "REJECT":
		return Reject, nil
	default:
		return DropOldest, errors.InvalidParameter("unknown backpressure strategy %q", s)
	}
}

var (
	ErrMessageDropped  = &errors.AppError{Type: errors.ErrorTypeUnavailable, Message: "message dropped due to backpressure"}
	ErrMessageRejected = &errors.AppError{Type: errors.ErrorTypeUnavailable, Message: "message rejected due to backpressure"}
	ErrQueueClosed     = &errors.AppError{Type: errors.ErrorTypeUnavailable, Message: "queue is closed"}
)

type Config[T any] struct {
	Name         string
	Strategy     Strategy
	MaxQueueSize int
	OnDrop       func(T) // Called for every item evicted or refused
}

// Queue is a bounded FIFO between producers that must not block for long
// and a single draining consumer
type Queue[T any] struct {
	name     string
	strategy Strategy
	items    chan T
	onDrop   func(T)

	mu     sync.RWMutex
	closed bool

	processed atomic.Int64
	dropped   atomic.Int64
	rejected  atomic.Int64
	last      atomic.Int64 // unix nanos of the last Receive

	log *logger.Logger
}

func NewQueue[T any](config Config[T]) *Queue[T] {
	if config.MaxQueueSize <= 0 {
		config.MaxQueueSize = 1024
	}

	q := &Queue[T]{
		name:     config.Name,
		strategy: config.Strategy,
		items:    make(chan T, config.MaxQueueSize),
		onDrop:   config.OnDrop,
		log:      logger.GetLogger("backpressure." + config.Name),
	}

	q.log.Infof("Queue '%s' initialized with capacity %d and strategy %s",
		config.Name, config.MaxQueueSize, config.Strategy)

	return q
}

// Submit enqueues item, applying the overflow strategy when the queue is full
func (q *Queue[T]) Submit(ctx context.Context, item T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	switch q.strategy {
	case DropOldest:
		return q.submitDropOldest(ctx, item)
	case Block:
		select {
		case q.items <- item:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	case Reject:
		q.rejected.Add(1)
		q.drop(item)
		return ErrMessageRejected
	default:
		q.dropped.Add(1)
		q.drop(item)
		return ErrMessageDropped
	}
}

func (q *Queue[T]) submitDropOldest(ctx context.Context, item T) error {
	for {
		select {
		case q.items <- item:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
			select {
			case evicted := <-q.items:
				q.dropped.Add(1)
				q.drop(evicted)
			default:
			}
		}
	}
}

func (q *Queue[T]) drop(item T) {
	if q.onDrop != nil {
		q.onDrop(item)
	}
}

// Receive blocks for the next item. After Close it keeps returning buffered
// items and then ErrQueueClosed.
func (q *Queue[T]) Receive(ctx context.Context) (T, error) {
	var zero T

	select {
	case item, ok := <-q.items:
		if !ok {
			return zero, ErrQueueClosed
		}
		q.processed.Add(1)
		q.last.Store(time.Now().UnixNano())
		return item, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Close stops accepting items. It is safe to call more than once.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.items)
	q.log.Infof("Queue '%s' closed with %d items pending", q.name, len(q.items))
}

type Stats struct {
	Name           string    `json:"name"`
	Strategy       string    `json:"strategy"`
	CurrentLoad    int       `json:"current_load"`
	MaxQueueSize   int       `json:"max_queue_size"`
	ProcessedCount int64     `json:"processed_count"`
	DroppedCount   int64     `json:"dropped_count"`
	RejectedCount  int64     `json:"rejected_count"`
	LastProcessed  time.Time `json:"last_processed"`
	UtilizationPct float64   `json:"utilization_percent"`
}

func (q *Queue[T]) Stats() Stats {
	s := Stats{
		Name:           q.name,
		Strategy:       q.strategy.String(),
		CurrentLoad:    len(q.items),
		MaxQueueSize:   cap(q.items),
		ProcessedCount: q.processed.Load(),
		DroppedCount:   q.dropped.Load(),
		RejectedCount:  q.rejected.Load(),
		UtilizationPct: float64(len(q.items)) / float64(cap(q.items)) * 100,
	}
	if ns := q.last.Load(); ns > 0 {
		s.LastProcessed = time.Unix(0, ns)
	}
	return s
}
