package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rzzdr/structured-pricer/internal/builder"
	"github.com/rzzdr/structured-pricer/internal/valuation"
	"github.com/rzzdr/structured-pricer/pkg/metrics"
	"github.com/rzzdr/structured-pricer/pkg/models"
	"github.com/rzzdr/structured-pricer/pkg/utils/backpressure"
	"github.com/rzzdr/structured-pricer/pkg/utils/circuit"
	"github.com/rzzdr/structured-pricer/pkg/utils/errors"
	"github.com/rzzdr/structured-pricer/pkg/utils/logger"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// BreakerReporter exposes the state of a guarded collaborator
type BreakerReporter interface {
	BreakerStats() circuit.Stats
}

// QueueReporter exposes the state of a backpressure queue
type QueueReporter interface {
	Stats() backpressure.Stats
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	engine       *valuation.Engine
	builder      *builder.Builder
	recorder     *metrics.Recorder
	publisher    BreakerReporter
	queue        QueueReporter
	riskFreeRate float64
	log          *logger.Logger
}

// CreateHandlers creates new API handlers. riskFreeRate applies when a
// request omits risk_free_rate. recorder may be nil.
func CreateHandlers(engine *valuation.Engine, b *builder.Builder, recorder *metrics.Recorder, riskFreeRate float64) *Handlers {
	return &Handlers{
		engine:       engine,
		builder:      b,
		recorder:     recorder,
		riskFreeRate: riskFreeRate,
		log:          logger.GetLogger("api.handlers"),
	}
}

// WithPublisher reports the publisher's breaker and queue on the health endpoint
func (h *Handlers) WithPublisher(p BreakerReporter, q QueueReporter) *Handlers {
	h.publisher = p
	h.queue = q
	return h
}

// marketRequest carries the fields every pricing request shares
type marketRequest struct {
	Ticker       string   `json:"ticker" binding:"required"`
	SpotPrice    *float64 `json:"spot_price"`
	Volatility   *float64 `json:"volatility"`
	RiskFreeRate *float64 `json:"risk_free_rate"`
}

func (m marketRequest) inputs(defaultRate float64) models.MarketInputs {
	rate := defaultRate
	if m.RiskFreeRate != nil {
		rate = *m.RiskFreeRate
	}
	return models.MarketInputs{
		SpotPrice:    m.SpotPrice,
		Volatility:   m.Volatility,
		RiskFreeRate: rate,
	}
}

type reverseConvertibleRequest struct {
	marketRequest
	models.ReverseConvertibleTerms
}

type autocallRequest struct {
	marketRequest
	models.AutocallTerms
}

type capitalProtectedRequest struct {
	marketRequest
	models.CapitalProtectedTerms
}

type warrantRequest struct {
	marketRequest
	models.WarrantTerms
}

type buildRequest struct {
	marketRequest
	Principal        float64 `json:"principal"`
	MinGainPct       float64 `json:"min_gain_pct"`
	MaxLossPct       float64 `json:"max_loss_pct"`
	RiskTolerance    int     `json:"risk_tolerance"`
	TimeHorizonYears float64 `json:"time_horizon_years"`
	PreferIncome     bool    `json:"prefer_income"`
}

// HealthCheckHandler handles health check requests
func (h *Handlers) HealthCheckHandler(c *gin.Context) {
	body := gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   Version,
	}
	if h.publisher != nil {
		body["publisher"] = h.publisher.BreakerStats()
	}
	if h.queue != nil {
		body["publish_queue"] = h.queue.Stats()
	}
	c.JSON(http.StatusOK, body)
}

// PricingInfoHandler lists the products the service prices
func (h *Handlers) PricingInfoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"products": []gin.H{
			{
				"type":     models.ProductReverseConvertible,
				"name":     "Reverse Convertible",
				"endpoint": "/api/v1/pricing/reverse-convertible",
				"method":   "closed-form",
			},
			{
				"type":     models.ProductAutocall,
				"name":     "Autocall/Phoenix",
				"endpoint": "/api/v1/pricing/autocall",
				"method":   "monte-carlo",
				"defaults": gin.H{"autocall_frequency": models.DefaultAutocallFrequency},
			},
			{
				"type":     models.ProductCapitalProtected,
				"name":     "Capital Protected",
				"endpoint": "/api/v1/pricing/capital-protected",
				"method":   "closed-form",
			},
			{
				"type":     models.ProductWarrant,
				"name":     "Warrant",
				"endpoint": "/api/v1/pricing/warrant",
				"method":   "closed-form",
				"defaults": gin.H{"leverage": models.DefaultWarrantLeverage, "warrant_type": models.WarrantCall},
			},
		},
		"product_builder":        "/api/v1/product-builder/build",
		"default_risk_free_rate": h.riskFreeRate,
		"simulation_paths":       h.engine.Simulator().Config().Paths,
	})
}

// ReverseConvertibleHandler prices a reverse convertible
func (h *Handlers) ReverseConvertibleHandler(c *gin.Context) {
	var req reverseConvertibleRequest
	if !h.bind(c, &req) {
		return
	}

	start := time.Now()
	ctx := c.Request.Context()
	res, err := h.engine.ValueReverseConvertible(ctx, req.inputs(h.riskFreeRate), req.ReverseConvertibleTerms)
	h.respondValuation(c, models.ProductReverseConvertible, req.Ticker, req.ReverseConvertibleTerms, start, res, err)
}

// AutocallHandler prices an autocall note
func (h *Handlers) AutocallHandler(c *gin.Context) {
	var req autocallRequest
	if !h.bind(c, &req) {
		return
	}
	if req.AutocallFrequency == 0 {
		req.AutocallFrequency = models.DefaultAutocallFrequency
	}

	start := time.Now()
	res, err := h.engine.ValueAutocall(c.Request.Context(), req.inputs(h.riskFreeRate), req.AutocallTerms)
	if err == nil && h.recorder != nil {
		h.recorder.RecordSimulatedPaths(res.Autocall.Paths)
	}
	h.respondValuation(c, models.ProductAutocall, req.Ticker, req.AutocallTerms, start, res, err)
}

// CapitalProtectedHandler prices a capital protected note
func (h *Handlers) CapitalProtectedHandler(c *gin.Context) {
	var req capitalProtectedRequest
	if !h.bind(c, &req) {
		return
	}

	start := time.Now()
	res, err := h.engine.ValueCapitalProtected(c.Request.Context(), req.inputs(h.riskFreeRate), req.CapitalProtectedTerms)
	h.respondValuation(c, models.ProductCapitalProtected, req.Ticker, req.CapitalProtectedTerms, start, res, err)
}

// WarrantHandler prices a leveraged warrant
func (h *Handlers) WarrantHandler(c *gin.Context) {
	var req warrantRequest
	if !h.bind(c, &req) {
		return
	}

	wt, err := models.ParseWarrantType(string(req.WarrantType))
	if err != nil {
		h.respondError(c, err)
		return
	}
	req.WarrantType = wt
	if req.Leverage == 0 {
		req.Leverage = models.DefaultWarrantLeverage
	}

	start := time.Now()
	res, err := h.engine.ValueWarrant(c.Request.Context(), req.inputs(h.riskFreeRate), req.WarrantTerms)
	h.respondValuation(c, models.ProductWarrant, req.Ticker, req.WarrantTerms, start, res, err)
}

// BuildProductsHandler proposes products for a set of investor objectives
func (h *Handlers) BuildProductsHandler(c *gin.Context) {
	var req buildRequest
	if !h.bind(c, &req) {
		return
	}

	rec, err := h.builder.Build(c.Request.Context(), models.InvestorObjectives{
		Ticker:           req.Ticker,
		Principal:        req.Principal,
		MinGainPct:       req.MinGainPct,
		MaxLossPct:       req.MaxLossPct,
		RiskTolerance:    req.RiskTolerance,
		TimeHorizonYears: req.TimeHorizonYears,
		PreferIncome:     req.PreferIncome,
		Market:           req.inputs(h.riskFreeRate),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordProposals(len(rec.Proposals))
	}
	c.JSON(http.StatusOK, rec.Rounded())
}

func (h *Handlers) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.respondError(c, errors.WithType(errors.Wrap(err, "invalid request body"), errors.ErrorTypeInvalidArgument))
		return false
	}
	return true
}

func (h *Handlers) respondValuation(c *gin.Context, product models.ProductType, ticker string, terms interface{}, start time.Time, res *models.ValuationResult, err error) {
	if h.recorder != nil {
		outcome := "ok"
		if err != nil {
			outcome = errors.TypeOf(err).String()
		}
		h.recorder.RecordValuation(string(product), outcome, time.Since(start))
	}

	if err != nil {
		h.respondError(c, err)
		return
	}

	h.engine.Notify(c.Request.Context(), ticker, terms, res)

	c.JSON(http.StatusOK, res.Rounded())
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	errType := errors.TypeOf(err)
	status := statusFor(err)

	if status >= http.StatusInternalServerError {
		h.log.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	} else {
		h.log.Debugf("%s %s rejected: %v", c.Request.Method, c.FullPath(), err)
	}

	c.JSON(status, gin.H{
		"error": err.Error(),
		"type":  errType.String(),
	})
}

// statusFor maps an error type onto an HTTP status
func statusFor(err error) int {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeMissingInput, errors.ErrorTypeInvalidParameter, errors.ErrorTypeInvalidArgument:
		return http.StatusBadRequest
	case errors.ErrorTypeNumericDegenerate:
		return http.StatusUnprocessableEntity
	case errors.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
