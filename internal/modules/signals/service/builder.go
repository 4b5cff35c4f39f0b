package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"binary_bot/internal/models"
	"binary_bot/internal/modules/config"
)

// ErrNoSignal — нормальный отрицательный исход анализа (нейтральное
// направление или confidence ниже порога). Не ошибка пайплайна.
var ErrNoSignal = errors.New("no signal")

// SignalStore — кусок стора, нужный билдеру.
type SignalStore interface {
	InsertSignal(ctx context.Context, sig *models.Signal) error
}

// Builder собирает Signal из результата анализа и сохраняет его.
// Сигналы ниже порога в стор не попадают никогда.
type Builder struct {
	cfg   *config.Config
	store SignalStore

	now func() time.Time
}

func NewBuilder(cfg *config.Config, store SignalStore) *Builder {
	return &Builder{
		cfg:   cfg,
		store: store,
		now:   time.Now,
	}
}

func (b *Builder) Build(ctx context.Context, a *models.Analysis, pair string) (*models.Signal, error) {
	if a.Direction == models.DirectionNone {
		return nil, fmt.Errorf("%w: %s neutral", ErrNoSignal, pair)
	}
	if a.Confidence < b.cfg.MinConfidence {
		return nil, fmt.Errorf("%w: %s confidence %.2f < %.2f",
			ErrNoSignal, pair, a.Confidence, b.cfg.MinConfidence)
	}

	now := b.now()
	sig := &models.Signal{
		Pair:       pair,
		Direction:  a.Direction,
		ExpiryTime: now.Add(time.Duration(b.cfg.ExpiryFor(pair)) * time.Minute),
		Confidence: a.Confidence,
		Price:      a.CurrentPrice,
		SignalType: b.signalType(a),
		Strategy:   "sma_cross_" + b.cfg.AnalysisModeEffective(),
		CreatedAt:  now,
	}
	sig.StopLoss, sig.TakeProfit = b.riskLevels(a)

	if err := b.store.InsertSignal(ctx, sig); err != nil {
		return nil, fmt.Errorf("persist signal %s: %w", pair, err)
	}
	return sig, nil
}

func (b *Builder) signalType(a *models.Analysis) models.SignalType {
	if a.Market == models.MarketOTC {
		return models.SignalOTC
	}
	if b.cfg.PremiumConfidence > 0 && a.Confidence >= b.cfg.PremiumConfidence {
		return models.SignalPremium
	}
	return models.SignalRegular
}

// riskLevels — SL/TP как проценты от референсной цены, зеркально для LOW.
func (b *Builder) riskLevels(a *models.Analysis) (sl, tp float64) {
	if b.cfg.StopPct <= 0 && b.cfg.TakeProfitPct <= 0 {
		return 0, 0
	}
	stop := a.CurrentPrice * b.cfg.StopPct / 100
	take := a.CurrentPrice * b.cfg.TakeProfitPct / 100
	if a.Direction == models.DirectionHigh {
		return a.CurrentPrice - stop, a.CurrentPrice + take
	}
	return a.CurrentPrice + stop, a.CurrentPrice - take
}
