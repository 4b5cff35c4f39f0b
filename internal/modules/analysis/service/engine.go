package service

import (
	"errors"
	"fmt"
	"math"

	"binary_bot/internal/models"
	"binary_bot/internal/modules/config"
)

// ErrInsufficientData — серия короче минимума, анализ не начинаем.
var ErrInsufficientData = errors.New("insufficient price data")

type Mode string

const (
	// ModeStrict — строгая цепочка price > sma10 > sma20 (и зеркально)
	ModeStrict Mode = "strict"
	// ModeMajority — достаточно двух из трёх попарных сравнений
	ModeMajority Mode = "majority"
)

// Engine — чистая аналитика: SMA-окна, направление, confidence.
// Никакого I/O, одинаковый вход => одинаковый выход.
type Engine struct {
	shortWin   int
	longWin    int
	minSamples int
	mode       Mode

	// Confidence = clamp(gain * (wPrice*sep(price,sma10) + wTrend*sep(sma10,sma20))).
	// Формула — наш выбор в рамках контракта: монотонна по разрыву,
	// детерминирована, ограничена [0,1]. Константы настраиваются конфигом.
	wPrice float64
	wTrend float64
	gain   float64
}

func NewEngine(cfg *config.Config) *Engine {
	e := &Engine{
		shortWin:   cfg.SMAShort,
		longWin:    cfg.SMALong,
		minSamples: cfg.MinSamples,
		mode:       Mode(cfg.AnalysisModeEffective()),
		wPrice:     cfg.WeightPrice,
		wTrend:     cfg.WeightTrend,
		gain:       cfg.SeparationGain,
	}
	if e.shortWin <= 0 {
		e.shortWin = 10
	}
	if e.longWin <= e.shortWin {
		e.longWin = e.shortWin * 2
	}
	if e.minSamples < e.longWin {
		e.minSamples = e.longWin
	}
	if e.mode != ModeMajority {
		e.mode = ModeStrict
	}
	if e.gain <= 0 {
		e.gain = 250
	}
	if e.wPrice+e.wTrend <= 0 {
		e.wPrice, e.wTrend = 0.6, 0.4
	}
	return e
}

// Analyze принимает серию от старых к новым.
func (e *Engine) Analyze(series []float64, market models.MarketType) (*models.Analysis, error) {
	if len(series) < e.minSamples {
		return nil, fmt.Errorf("%w: got %d of %d samples", ErrInsufficientData, len(series), e.minSamples)
	}

	current := series[len(series)-1]
	smaShort := sma(series, e.shortWin)
	smaLong := sma(series, e.longWin)

	return &models.Analysis{
		Market:       market,
		CurrentPrice: current,
		SMA10:        smaShort,
		SMA20:        smaLong,
		Direction:    e.direction(current, smaShort, smaLong),
		Confidence:   e.confidence(current, smaShort, smaLong),
	}, nil
}

func (e *Engine) direction(price, smaShort, smaLong float64) models.Direction {
	if e.mode == ModeMajority {
		var up, down int
		for _, c := range [][2]float64{{price, smaShort}, {price, smaLong}, {smaShort, smaLong}} {
			switch {
			case c[0] > c[1]:
				up++
			case c[0] < c[1]:
				down++
			}
		}
		switch {
		case up >= 2:
			return models.DirectionHigh
		case down >= 2:
			return models.DirectionLow
		}
		return models.DirectionNone
	}

	switch {
	case price > smaShort && smaShort > smaLong:
		return models.DirectionHigh
	case price < smaShort && smaShort < smaLong:
		return models.DirectionLow
	}
	return models.DirectionNone
}

func (e *Engine) confidence(price, smaShort, smaLong float64) float64 {
	if smaShort <= 0 || smaLong <= 0 {
		return 0
	}
	sepPrice := math.Abs(price-smaShort) / smaShort
	sepTrend := math.Abs(smaShort-smaLong) / smaLong

	raw := e.gain * (e.wPrice*sepPrice + e.wTrend*sepTrend)
	if raw < 0 {
		return 0
	}
	if raw > 1 {
		return 1
	}
	return raw
}

// sma по последним n точкам серии.
func sma(series []float64, n int) float64 {
	window := series[len(series)-n:]
	var sum float64
	for _, v := range window {
		sum += v
	}
	return sum / float64(n)
}
