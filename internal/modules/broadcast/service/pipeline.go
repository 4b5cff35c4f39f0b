package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"binary_bot/internal/models"
	"binary_bot/internal/modules/config"
	analysis "binary_bot/internal/modules/analysis/service"
	chart "binary_bot/internal/modules/chart/service"
	prices "binary_bot/internal/modules/prices/service"
	signals "binary_bot/internal/modules/signals/service"

	"github.com/opentracing/opentracing-go"
)

// Pipeline — один проход рассылки: цены → анализ → сигнал → график → фан-аут.
// Вызывается кроном раз в тик или вручную.
type Pipeline struct {
	cfg        *config.Config
	source     prices.Source
	engine     *analysis.Engine
	builder    *signals.Builder
	renderer   *chart.Renderer
	dispatcher *Dispatcher
}

func NewPipeline(
	cfg *config.Config,
	source prices.Source,
	engine *analysis.Engine,
	builder *signals.Builder,
	renderer *chart.Renderer,
	dispatcher *Dispatcher,
) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		source:     source,
		engine:     engine,
		builder:    builder,
		renderer:   renderer,
		dispatcher: dispatcher,
	}
}

// Run прогоняет все пары рынка. Нет данных / нет сигнала — штатный исход,
// идём к следующей паре. Падение стора — фатально для прогона.
func (p *Pipeline) Run(ctx context.Context, market models.MarketType) error {
	span := opentracing.StartSpan("broadcast_run")
	span.SetTag("market", string(market))
	defer span.Finish()
	ctx = opentracing.ContextWithSpan(ctx, span)

	pairs := p.cfg.Pairs
	if market == models.MarketOTC {
		pairs = p.cfg.OTCPairs
	}

	for _, pair := range pairs {
		err := p.runPair(ctx, pair, market)
		switch {
		case err == nil:
		case errors.Is(err, prices.ErrDataUnavailable),
			errors.Is(err, analysis.ErrInsufficientData),
			errors.Is(err, signals.ErrNoSignal):
			// ожидаемые негативные исходы одной пары
			log.Printf("[PIPE] %s %s: %v", market, pair, err)
		default:
			return fmt.Errorf("pipeline %s %s: %w", market, pair, err)
		}
	}
	return nil
}

func (p *Pipeline) runPair(ctx context.Context, pair string, market models.MarketType) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "pair_run")
	span.SetTag("pair", pair)
	defer span.Finish()

	series, err := p.source.Fetch(ctx, pair, market, p.cfg.SeriesLen)
	if err != nil {
		return err
	}

	a, err := p.engine.Analyze(series, market)
	if err != nil {
		return err
	}

	sig, err := p.builder.Build(ctx, a, pair)
	if err != nil {
		return err
	}
	log.Printf("[PIPE] %s: %s conf=%.2f id=%d", pair, sig.Direction, sig.Confidence, sig.ID)

	chartPath := p.renderer.Render(sig, a, series)

	rep, err := p.dispatcher.Dispatch(ctx, sig, chartPath)
	if err != nil {
		return err
	}
	log.Printf("[PIPE] %s: candidates=%d delivered=%d deferred=%d failures=%d rejections=%v",
		pair, rep.Candidates, rep.Delivered, rep.Deferred, len(rep.Failures), rep.Rejections)
	for _, f := range rep.Failures {
		log.Printf("[PIPE] %s: user %d failed: %v", pair, f.UserID, f.Err)
	}
	return nil
}
