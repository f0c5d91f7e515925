package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"signal-machine/indicators"
	"signal-machine/models"
	"signal-machine/observability"
	"signal-machine/services"
	"signal-machine/strategy"
)

// PipelineConfig carries the per-analysis knobs the pipeline runs under
type PipelineConfig struct {
	LookbackDays      int
	RiskFraction      float64
	InstrumentTimeout time.Duration
}

// DefaultPipelineConfig returns the shipped analysis defaults
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		LookbackDays:      120,
		RiskFraction:      0.02,
		InstrumentTimeout: 30 * time.Second,
	}
}

// Pipeline runs the full per-instrument chain: fetch history, evaluate
// indicators, aggregate under a strategy profile, derive trade parameters,
// and package the result. It holds no per-call state and is safe for
// concurrent use.
type Pipeline struct {
	source services.MarketDataSource
	engine *indicators.Engine
	cfg    PipelineConfig
}

// NewPipeline wires a pipeline over a data source and indicator engine
func NewPipeline(source services.MarketDataSource, engine *indicators.Engine, cfg PipelineConfig) *Pipeline {
	defaults := DefaultPipelineConfig()
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = defaults.LookbackDays
	}
	if cfg.RiskFraction <= 0 {
		cfg.RiskFraction = defaults.RiskFraction
	}
	if cfg.InstrumentTimeout <= 0 {
		cfg.InstrumentTimeout = defaults.InstrumentTimeout
	}
	return &Pipeline{source: source, engine: engine, cfg: cfg}
}

// AnalyzeSymbol runs one instrument through the pipeline under a
// per-instrument timeout. An unknown strategy id falls back to the baseline
// profile with a warning; the snapshot records the profile actually used.
func (p *Pipeline) AnalyzeSymbol(ctx context.Context, jobID uuid.UUID, symbol, strategyID string, capital float64) (*models.AnalysisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.InstrumentTimeout)
	defer cancel()

	timer := observability.GetMetrics().NewTimer()
	log := observability.WithSymbol(symbol)

	profile, err := strategy.ProfileFor(strategyID)
	if err != nil {
		if !errors.Is(err, strategy.ErrUnknownStrategy) {
			return nil, err
		}
		log.Warn("unknown strategy, using baseline", "strategy", strategyID)
		profile = strategy.Baseline()
	}

	series, sourceTag, err := p.source.Fetch(ctx, symbol, p.cfg.LookbackDays)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("fetch %s: %w", symbol, ctx.Err())
		} else if !errors.Is(err, services.ErrDataUnavailable) {
			err = fmt.Errorf("%w: %w", services.ErrDataUnavailable, err)
		}
		timer.ObserveInstrument(string(failureKind(err)))
		return nil, err
	}

	results, err := p.engine.Evaluate(series, nil)
	if err != nil {
		timer.ObserveInstrument(string(failureKind(err)))
		return nil, err
	}

	signal := Aggregate(results, profile)
	trade := DeriveTradeParameters(series, signal, profile, capital, p.cfg.RiskFraction)
	result := p.assembleResult(jobID, symbol, profile, capital, signal, trade, results, sourceTag)

	observability.GetMetrics().RecordVerdict(string(signal.Verdict), profile.ID, signal.Score)
	timer.ObserveInstrument("success")
	log.Debug("instrument analyzed",
		"score", signal.Score,
		"verdict", signal.Verdict,
		"source", sourceTag)

	return result, nil
}

// assembleResult packages the pipeline outputs into an immutable record with
// the configuration snapshot that produced it
func (p *Pipeline) assembleResult(jobID uuid.UUID, symbol string, profile strategy.Profile, capital float64, signal models.AggregatedSignal, trade models.TradeParameters, indicatorResults []models.IndicatorResult, sourceTag models.DataSource) *models.AnalysisResult {
	categoryWeights := make(map[string]float64, len(profile.CategoryWeights))
	for cat, w := range profile.CategoryWeights {
		categoryWeights[string(cat)] = w
	}
	indicatorWeights := make(map[string]float64, len(profile.IndicatorWeights))
	for name, w := range profile.IndicatorWeights {
		indicatorWeights[name] = w
	}

	return &models.AnalysisResult{
		ID:         uuid.New(),
		JobID:      jobID,
		Symbol:     symbol,
		Signal:     signal,
		Trade:      trade,
		Indicators: indicatorResults,
		DataSource: sourceTag,
		StrategyID: profile.ID,
		Config: models.ConfigSnapshot{
			StrategyID:       profile.ID,
			IndicatorWeights: indicatorWeights,
			CategoryWeights:  categoryWeights,
			RiskFraction:     p.cfg.RiskFraction,
			Capital:          capital,
			LookbackDays:     p.cfg.LookbackDays,
			MinBars:          p.engine.MinBars(),
		},
		CreatedAt: time.Now(),
	}
}

// ClassifyFailure converts a pipeline error into a stored failure record
func ClassifyFailure(symbol string, err error) *models.FailureRecord {
	return &models.FailureRecord{
		Symbol:     symbol,
		Kind:       failureKind(err),
		Reason:     err.Error(),
		OccurredAt: time.Now(),
	}
}

func failureKind(err error) models.FailureKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.FailureTimeout
	case errors.Is(err, models.ErrInsufficientHistory):
		return models.FailureInsufficientHistory
	case errors.Is(err, services.ErrDataUnavailable):
		return models.FailureDataUnavailable
	default:
		return models.FailureInternal
	}
}
