package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/rzzdr/structured-pricer/pkg/models"
	"github.com/rzzdr/structured-pricer/pkg/utils/circuit"
	"github.com/rzzdr/structured-pricer/pkg/utils/errors"
	"github.com/rzzdr/structured-pricer/pkg/utils/logger"
)

// ValuationEvent is the message published for every successful valuation.
// Downstream consumers persist simulation records and leaderboards from it.
type ValuationEvent struct {
	ID          uuid.UUID               `json:"id"`
	ProductType models.ProductType      `json:"product_type"`
	Ticker      string                  `json:"ticker"`
	Terms       interface{}             `json:"terms"`
	Result      *models.ValuationResult `json:"result"`
	Timestamp   time.Time               `json:"timestamp"`
}

// PublisherConfig configures the valuation event publisher
type PublisherConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
	BatchTimeout time.Duration
	Breaker      circuit.Config
}

// messageWriter is the subset of kafka.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Recorder observes publish outcomes
type Recorder interface {
	RecordPublish(err error)
}

// Publisher writes valuation events to Kafka
type Publisher struct {
	writer   messageWriter
	topic    string
	timeout  time.Duration
	breaker  *circuit.Breaker
	recorder Recorder
	now      func() time.Time
	log      *logger.Logger
}

// NewPublisher creates a publisher backed by a kafka-go writer
func NewPublisher(config PublisherConfig) (*Publisher, error) {
	if len(config.Brokers) == 0 {
		return nil, errors.InvalidArgument("kafka brokers required")
	}
	if config.Topic == "" {
		return nil, errors.InvalidArgument("kafka topic required")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Topic:                  config.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		Compression:            kafka.Snappy,
		BatchTimeout:           config.BatchTimeout,
		WriteTimeout:           config.WriteTimeout,
	}

	p := newPublisher(writer, config)
	p.log.Infof("Valuation publisher created for topic %s on %v", config.Topic, config.Brokers)
	return p, nil
}

func newPublisher(writer messageWriter, config PublisherConfig) *Publisher {
	timeout := config.WriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Publisher{
		writer:  writer,
		topic:   config.Topic,
		timeout: timeout,
		breaker: circuit.NewBreaker("kafka."+config.Topic, config.Breaker),
		now:     time.Now,
		log:     logger.GetLogger("kafka.publisher"),
	}
}

// WithRecorder attaches a metrics recorder
func (p *Publisher) WithRecorder(r Recorder) *Publisher {
	p.recorder = r
	return p
}

// PublishValuation publishes one valuation event keyed by ticker
func (p *Publisher) PublishValuation(ctx context.Context, productType models.ProductType, ticker string, terms interface{}, result *models.ValuationResult) error {
	event := ValuationEvent{
		ID:          uuid.New(),
		ProductType: productType,
		Ticker:      ticker,
		Terms:       terms,
		Result:      result,
		Timestamp:   p.now().UTC(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return errors.WithType(errors.Wrap(err, "failed to marshal valuation event"), errors.ErrorTypeInternal)
	}

	msg := kafka.Message{
		Key:   []byte(ticker),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.ID.String())},
			{Key: "product_type", Value: []byte(productType)},
		},
		Time: event.Timestamp,
	}

	err = p.breaker.Execute(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return p.writer.WriteMessages(ctx, msg)
	})
	if p.recorder != nil {
		p.recorder.RecordPublish(err)
	}
	if err != nil {
		if errors.Is(err, errors.ErrCircuitOpen) {
			return err
		}
		p.log.Errorf("Failed to publish %s valuation event %s: %v", productType, event.ID, err)
		return errors.WithType(errors.Wrapf(err, "failed to publish to %s", p.topic), errors.ErrorTypeUnavailable)
	}

	p.log.Debugf("Published %s valuation event %s for %s", productType, event.ID, ticker)
	return nil
}

// BreakerStats reports the state of the publisher's circuit breaker
func (p *Publisher) BreakerStats() circuit.Stats {
	return p.breaker.Stats()
}

// Close flushes and closes the writer
func (p *Publisher) Close() error {
	p.log.Info("Closing valuation publisher")
	return p.writer.Close()
}
