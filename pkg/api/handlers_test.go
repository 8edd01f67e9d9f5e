package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/structured-pricer/internal/builder"
	"github.com/rzzdr/structured-pricer/internal/pricing"
	"github.com/rzzdr/structured-pricer/internal/valuation"
	"github.com/rzzdr/structured-pricer/pkg/metrics"
	"github.com/rzzdr/structured-pricer/pkg/models"
	"github.com/rzzdr/structured-pricer/pkg/utils/backpressure"
	"github.com/rzzdr/structured-pricer/pkg/utils/circuit"
	"github.com/rzzdr/structured-pricer/pkg/utils/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type capturingSink struct {
	mu      sync.Mutex
	tickers []string
	done    chan struct{}
}

func (s *capturingSink) PublishValuation(_ context.Context, _ models.ProductType, ticker string, _ interface{}, _ *models.ValuationResult) error {
	s.mu.Lock()
	s.tickers = append(s.tickers, ticker)
	s.mu.Unlock()
	s.done <- struct{}{}
	return nil
}

type staticBreaker struct{}

func (staticBreaker) BreakerStats() circuit.Stats {
	return circuit.Stats{Name: "valuations", State: "CLOSED"}
}

func (staticBreaker) Stats() backpressure.Stats {
	return backpressure.Stats{Name: "valuations", Strategy: "DROP_OLDEST"}
}

type testServer struct {
	server   *Server
	registry *prometheus.Registry
	sink     *capturingSink
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()

	sink := &capturingSink{done: make(chan struct{}, 16)}
	engine := valuation.NewEngine(valuation.EngineConfig{
		Simulation: pricing.SimulatorConfig{Paths: 2000, Seed: 7},
	}).WithSink(sink)
	b := builder.NewBuilder(engine, builder.DefaultScoringPolicy())

	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry)
	handlers := CreateHandlers(engine, b, recorder, 0.04).WithPublisher(staticBreaker{}, staticBreaker{})

	return &testServer{
		server:   NewServer(cfg, handlers, recorder, registry),
		registry: registry,
		sink:     sink,
	}
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestReverseConvertibleEndpoint(t *testing.T) {
	ts := newTestServer(t, Config{})

	w := ts.do(http.MethodPost, "/api/v1/pricing/reverse-convertible", `{
		"ticker": "AAPL", "spot_price": 150, "volatility": 0.25,
		"principal": 10000, "coupon_rate": 8, "barrier_level": 60, "maturity_years": 1
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res models.ValuationResult
	decode(t, w, &res)
	assert.Equal(t, models.ProductReverseConvertible, res.ProductType)
	assert.Equal(t, "Reverse Convertible", res.Product)
	assert.Equal(t, 55, res.RiskLevel)
	assert.InDelta(t, 9200, res.MaxLoss, 1e-9)
	assert.InDelta(t, 138, res.BreakEvenPrice, 1e-9)
	require.NotNil(t, res.ReverseConvertible)

	<-ts.sink.done
	ts.sink.mu.Lock()
	assert.Equal(t, []string{"AAPL"}, ts.sink.tickers)
	ts.sink.mu.Unlock()
}

func TestAutocallEndpointDefaultsFrequency(t *testing.T) {
	ts := newTestServer(t, Config{})

	w := ts.do(http.MethodPost, "/api/v1/pricing/autocall", `{
		"ticker": "AAPL", "spot_price": 150, "volatility": 0.25,
		"principal": 10000, "autocall_barrier": 100, "coupon_rate": 8,
		"barrier_level": 60, "maturity_years": 2
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res models.ValuationResult
	decode(t, w, &res)
	require.NotNil(t, res.Autocall)
	assert.Equal(t, 2000, res.Autocall.Paths)
	assert.GreaterOrEqual(t, res.Autocall.AutocallProbability, 0.0)
	assert.LessOrEqual(t, res.Autocall.AutocallProbability, 100.0)
}

func TestCapitalProtectedEndpoint(t *testing.T) {
	ts := newTestServer(t, Config{})

	w := ts.do(http.MethodPost, "/api/v1/pricing/capital-protected", `{
		"ticker": "MSFT", "spot_price": 150, "volatility": 0.25, "risk_free_rate": 0.04,
		"principal": 10000, "protection_level": 100, "participation_rate": 50, "maturity_years": 2
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res models.ValuationResult
	decode(t, w, &res)
	assert.Zero(t, res.MaxLoss)
	assert.Zero(t, res.RiskLevel)
}

func TestWarrantEndpoint(t *testing.T) {
	ts := newTestServer(t, Config{})

	w := ts.do(http.MethodPost, "/api/v1/pricing/warrant", `{
		"ticker": "AAPL", "spot_price": 150, "volatility": 0.25,
		"strike_price": 140, "warrant_type": "PUT", "maturity_years": 1
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res models.ValuationResult
	decode(t, w, &res)
	assert.Equal(t, "Warrant PUT", res.Product)
	assert.Equal(t, 90, res.RiskLevel)

	w = ts.do(http.MethodPost, "/api/v1/pricing/warrant", `{
		"ticker": "AAPL", "spot_price": 150, "volatility": 0.25,
		"strike_price": 140, "warrant_type": "straddle", "maturity_years": 1
	}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorResponses(t *testing.T) {
	ts := newTestServer(t, Config{})

	tests := []struct {
		name     string
		body     string
		status   int
		errorTyp string
	}{
		{
			name:     "malformed json",
			body:     `{"ticker":`,
			status:   http.StatusBadRequest,
			errorTyp: errors.ErrorTypeInvalidArgument.String(),
		},
		{
			name:     "missing ticker",
			body:     `{"spot_price": 150, "volatility": 0.25, "principal": 10000, "coupon_rate": 8, "barrier_level": 60, "maturity_years": 1}`,
			status:   http.StatusBadRequest,
			errorTyp: errors.ErrorTypeInvalidArgument.String(),
		},
		{
			name:     "missing spot",
			body:     `{"ticker": "AAPL", "volatility": 0.25, "principal": 10000, "coupon_rate": 8, "barrier_level": 60, "maturity_years": 1}`,
			status:   http.StatusBadRequest,
			errorTyp: errors.ErrorTypeMissingInput.String(),
		},
		{
			name:     "barrier out of range",
			body:     `{"ticker": "AAPL", "spot_price": 150, "volatility": 0.25, "principal": 10000, "coupon_rate": 8, "barrier_level": 160, "maturity_years": 1}`,
			status:   http.StatusBadRequest,
			errorTyp: errors.ErrorTypeInvalidParameter.String(),
		},
		{
			name:     "non-finite result",
			body:     `{"ticker": "AAPL", "spot_price": 1e-300, "volatility": 0.25, "principal": 1e300, "coupon_rate": 8, "barrier_level": 60, "maturity_years": 1}`,
			status:   http.StatusUnprocessableEntity,
			errorTyp: errors.ErrorTypeNumericDegenerate.String(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(http.MethodPost, "/api/v1/pricing/reverse-convertible", tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())

			var body map[string]string
			decode(t, w, &body)
			assert.Equal(t, tt.errorTyp, body["type"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(errors.ErrCircuitOpen))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.Internal("boom")))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(errors.NumericDegenerate("nan")))
}

func TestBuildProductsEndpoint(t *testing.T) {
	ts := newTestServer(t, Config{})

	w := ts.do(http.MethodPost, "/api/v1/product-builder/build", `{
		"ticker": "AAPL", "spot_price": 150, "volatility": 0.25,
		"principal": 10000, "min_gain_pct": 8, "max_loss_pct": 20,
		"risk_tolerance": 50, "time_horizon_years": 2
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rec struct {
		Summary struct {
			Profile string `json:"profile"`
		} `json:"objectives_summary"`
		Proposals []struct {
			ProductType models.ProductType `json:"product_type"`
			MatchScore  int                `json:"match_score"`
		} `json:"proposed_products"`
		Recommendation string `json:"recommendation"`
	}
	decode(t, w, &rec)
	assert.Equal(t, "balanced", rec.Summary.Profile)
	assert.Len(t, rec.Proposals, 3)
	assert.NotEmpty(t, rec.Recommendation)

	w = ts.do(http.MethodPost, "/api/v1/product-builder/build", `{
		"ticker": "AAPL", "spot_price": 150, "volatility": 0.25,
		"principal": 10000, "risk_tolerance": 150, "time_horizon_years": 2
	}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndInfo(t *testing.T) {
	ts := newTestServer(t, Config{})

	w := ts.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]interface{}
	decode(t, w, &health)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, Version, health["version"])
	assert.Contains(t, health, "publisher")
	assert.Contains(t, health, "publish_queue")

	w = ts.do(http.MethodGet, "/api/v1/pricing", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info struct {
		Products []map[string]interface{} `json:"products"`
		Paths    int                      `json:"simulation_paths"`
	}
	decode(t, w, &info)
	assert.Len(t, info.Products, 4)
	assert.Equal(t, 2000, info.Paths)

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/nope", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, Config{CORS: CORSConfig{AllowedOrigins: []string{"https://desk.example"}}})

	w := ts.do(http.MethodOptions, "/api/v1/pricing/warrant", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://desk.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, Config{RateLimit: 0.001, RateBurst: 2})

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/v1/pricing", "").Code)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/v1/pricing", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, ts.do(http.MethodGet, "/api/v1/pricing", "").Code)

	// Health sits outside the limited group
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/health", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, Config{})

	ts.do(http.MethodPost, "/api/v1/pricing/reverse-convertible", `{"ticker": "AAPL", "volatility": 0.25}`)

	w := ts.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "pricer_api_requests_total"))
	assert.True(t, strings.Contains(body, `outcome="missing_input"`))
}
