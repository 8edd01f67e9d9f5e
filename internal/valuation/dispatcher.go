package valuation

import (
	"context"

	"github.com/rzzdr/structured-pricer/pkg/models"
	"github.com/rzzdr/structured-pricer/pkg/utils/backpressure"
	"github.com/rzzdr/structured-pricer/pkg/utils/errors"
	"github.com/rzzdr/structured-pricer/pkg/utils/logger"
)

type valuationEvent struct {
	productType models.ProductType
	ticker      string
	terms       interface{}
	result      *models.ValuationResult
}

// DispatcherConfig sizes the queue between request handlers and the sink
type DispatcherConfig struct {
	QueueSize int
	Strategy  backpressure.Strategy
}

// Dispatcher is a ResultSink that queues valuations and forwards them to
// another sink from a single goroutine, so request latency never includes
// a broker round trip.
type Dispatcher struct {
	sink  ResultSink
	queue *backpressure.Queue[valuationEvent]
	log   *logger.Logger
}

// NewDispatcher creates a dispatcher forwarding queued events to sink
func NewDispatcher(sink ResultSink, config DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		sink: sink,
		log:  logger.GetLogger("valuation.dispatcher"),
	}
	d.queue = backpressure.NewQueue(backpressure.Config[valuationEvent]{
		Name:         "valuations",
		Strategy:     config.Strategy,
		MaxQueueSize: config.QueueSize,
		OnDrop: func(ev valuationEvent) {
			d.log.Warnf("Dropped %s valuation for %s under backpressure", ev.productType, ev.ticker)
		},
	})
	return d
}

// PublishValuation enqueues the valuation. It only blocks under the Block strategy.
func (d *Dispatcher) PublishValuation(ctx context.Context, productType models.ProductType, ticker string, terms interface{}, result *models.ValuationResult) error {
	return d.queue.Submit(ctx, valuationEvent{
		productType: productType,
		ticker:      ticker,
		terms:       terms,
		result:      result,
	})
}

// Run forwards queued valuations until Close has been called and the queue
// is drained, or ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Info("Valuation dispatcher started")
	for {
		ev, err := d.queue.Receive(ctx)
		if errors.Is(err, backpressure.ErrQueueClosed) {
			d.log.Info("Valuation dispatcher drained")
			return nil
		}
		if err != nil {
			return err
		}

		if err := d.sink.PublishValuation(ctx, ev.productType, ev.ticker, ev.terms, ev.result); err != nil {
			d.log.Warnf("Failed to forward %s valuation for %s: %v", ev.productType, ev.ticker, err)
		}
	}
}

// Close stops accepting valuations; Run returns once the backlog is sent
func (d *Dispatcher) Close() {
	d.queue.Close()
}

// Stats reports the state of the publish queue
func (d *Dispatcher) Stats() backpressure.Stats {
	return d.queue.Stats()
}
