package valuation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/structured-pricer/pkg/models"
	"github.com/rzzdr/structured-pricer/pkg/utils/backpressure"
	"github.com/rzzdr/structured-pricer/pkg/utils/errors"
)

func TestDispatcherForwardsBacklogOnClose(t *testing.T) {
	sink := &recordingSink{err: errors.ErrUnavailable}
	d := NewDispatcher(sink, DispatcherConfig{QueueSize: 8, Strategy: backpressure.Reject})
	e := newTestEngine().WithSink(d)

	terms := models.ReverseConvertibleTerms{Principal: 10000, CouponRate: 8, BarrierLevel: 60, MaturityYears: 1}
	res, err := e.ValueReverseConvertible(context.Background(), market, terms)
	require.NoError(t, err)

	e.Notify(context.Background(), "AAPL", terms, res)
	e.Notify(context.Background(), "MSFT", terms, res)
	assert.Equal(t, 2, d.Stats().CurrentLoad)

	d.Close()
	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not drain")
	}

	assert.Equal(t, 2, sink.calls)
	assert.Equal(t, "MSFT", sink.ticker)
	assert.Equal(t, int64(2), d.Stats().ProcessedCount)
}

func TestDispatcherShedsWhenFull(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, DispatcherConfig{QueueSize: 1, Strategy: backpressure.Reject})
	ctx := context.Background()
	res := &models.ValuationResult{ProductType: models.ProductWarrant}

	require.NoError(t, d.PublishValuation(ctx, models.ProductWarrant, "AAPL", nil, res))
	err := d.PublishValuation(ctx, models.ProductWarrant, "AAPL", nil, res)
	assert.ErrorIs(t, err, backpressure.ErrMessageRejected)
	assert.Equal(t, int64(1), d.Stats().RejectedCount)
}

func TestDispatcherStopsWithContext(t *testing.T) {
	d := NewDispatcher(&recordingSink{}, DispatcherConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, d.Run(ctx), context.Canceled)
}
