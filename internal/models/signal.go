package models

import "time"

type Direction string

const (
	DirectionNone Direction = "NEUTRAL"
	DirectionHigh Direction = "HIGH"
	DirectionLow  Direction = "LOW"
)

type MarketType string

const (
	MarketForex MarketType = "forex"
	MarketOTC   MarketType = "otc"
)

type SignalType string

const (
	SignalRegular SignalType = "regular"
	SignalPremium SignalType = "premium"
	SignalOTC     SignalType = "otc"
)

// Signal — сигнал бинарного опциона. Outcome-поля (Success/ActualResult/ProfitLoss)
// заполняются один раз, после ExpiryTime, внешним резолвером.
type Signal struct {
	ID         int64      `json:"id"`
	Pair       string     `json:"pair"`
	Direction  Direction  `json:"direction"`
	ExpiryTime time.Time  `json:"expiry_time"`
	Confidence float64    `json:"confidence"` // [0,1]
	Price      float64    `json:"price"`      // референсная цена на момент сигнала
	StopLoss   float64    `json:"stop_loss,omitempty"`
	TakeProfit float64    `json:"take_profit,omitempty"`
	SignalType SignalType `json:"signal_type"`
	Strategy   string     `json:"strategy"`
	CreatedAt  time.Time  `json:"created_at"`

	Success      *bool    `json:"success,omitempty"`
	ActualResult string   `json:"actual_result,omitempty"`
	ProfitLoss   *float64 `json:"profit_loss,omitempty"`
}

func (s *Signal) Expired(now time.Time) bool {
	return now.After(s.ExpiryTime)
}

// ExpiryMinutes — длина окна в минутах, для подписи на графике.
func (s *Signal) ExpiryMinutes() int {
	return int(s.ExpiryTime.Sub(s.CreatedAt).Round(time.Minute) / time.Minute)
}

type ActionTaken string

const (
	ActionViewed  ActionTaken = "viewed"
	ActionActed   ActionTaken = "acted"
	ActionIgnored ActionTaken = "ignored"
)

// UserSignal — факт доставки сигнала пользователю.
// Одна строка на пару (user_id, signal_id), дубликаты запрещены схемой.
type UserSignal struct {
	UserID      int64       `json:"user_id"`
	SignalID    int64       `json:"signal_id"`
	ReceivedAt  time.Time   `json:"received_at"`
	ActionTaken ActionTaken `json:"action_taken"`
	ResultNoted bool        `json:"result_noted"`
}
