package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"binary_bot/internal/models"
	"binary_bot/internal/modules/config"
)

type fakeStore struct {
	inserted []*models.Signal
	err      error
}

func (f *fakeStore) InsertSignal(_ context.Context, sig *models.Signal) error {
	if f.err != nil {
		return f.err
	}
	sig.ID = int64(len(f.inserted) + 1)
	f.inserted = append(f.inserted, sig)
	return nil
}

func builderConfig() *config.Config {
	return &config.Config{
		AnalysisMode:      "strict",
		MinConfidence:     0.7,
		PremiumConfidence: 0.85,
		ExpiryMinutes:     5,
		ExpiryByPair:      map[string]int{"USD/JPY": 3},
		StopPct:           0.5,
		TakeProfitPct:     1.0,
	}
}

func newTestBuilder(store *fakeStore) (*Builder, time.Time) {
	b := NewBuilder(builderConfig(), store)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, now
}

func TestBuildBelowThresholdNotPersisted(t *testing.T) {
	store := &fakeStore{}
	b, _ := newTestBuilder(store)

	a := &models.Analysis{
		Market:       models.MarketForex,
		CurrentPrice: 1.1023,
		Direction:    models.DirectionHigh,
		Confidence:   0.55,
	}
	_, err := b.Build(context.Background(), a, "EUR/USD")
	if !errors.Is(err, ErrNoSignal) {
		t.Fatalf("expected ErrNoSignal, got %v", err)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("signal below threshold must not be persisted")
	}
}

func TestBuildNeutralNotPersisted(t *testing.T) {
	store := &fakeStore{}
	b, _ := newTestBuilder(store)

	a := &models.Analysis{Direction: models.DirectionNone, Confidence: 0.99}
	_, err := b.Build(context.Background(), a, "EUR/USD")
	if !errors.Is(err, ErrNoSignal) {
		t.Fatalf("expected ErrNoSignal, got %v", err)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("neutral direction must not be persisted")
	}
}

func TestBuildRegularSignal(t *testing.T) {
	store := &fakeStore{}
	b, now := newTestBuilder(store)

	a := &models.Analysis{
		Market:       models.MarketForex,
		CurrentPrice: 1.1023,
		Direction:    models.DirectionHigh,
		Confidence:   0.75,
	}
	sig, err := b.Build(context.Background(), a, "EUR/USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.ID == 0 {
		t.Fatalf("expected generated id")
	}
	if sig.SignalType != models.SignalRegular {
		t.Fatalf("expected regular signal, got %s", sig.SignalType)
	}
	if want := now.Add(5 * time.Minute); !sig.ExpiryTime.Equal(want) {
		t.Fatalf("expiry %v, want %v", sig.ExpiryTime, want)
	}
	if sig.Strategy != "sma_cross_strict" {
		t.Fatalf("unexpected strategy tag %q", sig.Strategy)
	}
	if sig.StopLoss >= sig.Price || sig.TakeProfit <= sig.Price {
		t.Fatalf("HIGH signal must have SL below and TP above price: %+v", sig)
	}
}

func TestBuildRiskLevelsMirroredForLow(t *testing.T) {
	store := &fakeStore{}
	b, _ := newTestBuilder(store)

	a := &models.Analysis{
		Market:       models.MarketForex,
		CurrentPrice: 1.2500,
		Direction:    models.DirectionLow,
		Confidence:   0.75,
	}
	sig, err := b.Build(context.Background(), a, "GBP/USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.StopLoss <= sig.Price || sig.TakeProfit >= sig.Price {
		t.Fatalf("LOW signal must have SL above and TP below price: %+v", sig)
	}
}

func TestBuildPremiumAndOTCTypes(t *testing.T) {
	store := &fakeStore{}
	b, _ := newTestBuilder(store)

	premium := &models.Analysis{
		Market:       models.MarketForex,
		CurrentPrice: 1.1,
		Direction:    models.DirectionHigh,
		Confidence:   0.9,
	}
	sig, err := b.Build(context.Background(), premium, "EUR/USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.SignalType != models.SignalPremium {
		t.Fatalf("expected premium, got %s", sig.SignalType)
	}

	otc := &models.Analysis{
		Market:       models.MarketOTC,
		CurrentPrice: 1.1,
		Direction:    models.DirectionLow,
		Confidence:   0.9,
	}
	sig, err = b.Build(context.Background(), otc, "EUR/USD-OTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.SignalType != models.SignalOTC {
		t.Fatalf("OTC market wins over premium, got %s", sig.SignalType)
	}
}

func TestBuildPerPairExpiry(t *testing.T) {
	store := &fakeStore{}
	b, now := newTestBuilder(store)

	a := &models.Analysis{
		Market:       models.MarketForex,
		CurrentPrice: 148.11,
		Direction:    models.DirectionHigh,
		Confidence:   0.75,
	}
	sig, err := b.Build(context.Background(), a, "USD/JPY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := now.Add(3 * time.Minute); !sig.ExpiryTime.Equal(want) {
		t.Fatalf("per-pair expiry %v, want %v", sig.ExpiryTime, want)
	}
}

func TestStrategyTagMatchesEffectiveMode(t *testing.T) {
	a := &models.Analysis{
		Market:       models.MarketForex,
		CurrentPrice: 1.1,
		Direction:    models.DirectionHigh,
		Confidence:   0.75,
	}

	for _, tc := range []struct {
		mode string
		want string
	}{
		{"strict", "sma_cross_strict"},
		{"majority", "sma_cross_majority"},
		// Неизвестный режим движок трактует как strict, тег обязан совпадать.
		{"foo", "sma_cross_strict"},
		{"", "sma_cross_strict"},
	} {
		store := &fakeStore{}
		cfg := builderConfig()
		cfg.AnalysisMode = tc.mode
		b := NewBuilder(cfg, store)
		b.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

		sig, err := b.Build(context.Background(), a, "EUR/USD")
		if err != nil {
			t.Fatalf("mode %q: unexpected error: %v", tc.mode, err)
		}
		if sig.Strategy != tc.want {
			t.Fatalf("mode %q: strategy tag %q, want %q", tc.mode, sig.Strategy, tc.want)
		}
	}
}

func TestBuildStoreErrorPropagates(t *testing.T) {
	store := &fakeStore{err: errors.New("pg down")}
	b, _ := newTestBuilder(store)

	a := &models.Analysis{
		Market:       models.MarketForex,
		CurrentPrice: 1.1,
		Direction:    models.DirectionHigh,
		Confidence:   0.8,
	}
	if _, err := b.Build(context.Background(), a, "EUR/USD"); err == nil {
		t.Fatalf("expected persistence error to propagate")
	}
}
