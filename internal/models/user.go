package models

import (
	"strings"
	"time"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// User — подписчик бота. Создаётся при первом обращении,
// никогда не удаляется (отключение только через NotificationEnabled).
type User struct {
	UserID    int64  `json:"user_id"` // Telegram chat/user ID
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	RiskLevel           RiskLevel `json:"risk_level"`
	PreferredPairs      []string  `json:"preferred_pairs"`
	NotificationEnabled bool      `json:"notification_enabled"`

	IsPremium    bool       `json:"is_premium"`
	PremiumUntil *time.Time `json:"premium_until,omitempty"`

	JoinedDate        time.Time `json:"joined_date"`
	TotalSignals      int       `json:"total_signals"`
	SuccessfulSignals int       `json:"successful_signals"`
	LastActive        time.Time `json:"last_active"`
	LanguageCode      string    `json:"language_code"`
}

// PremiumActive — премиум активен только пока не истёк PremiumUntil.
func (u *User) PremiumActive(now time.Time) bool {
	if !u.IsPremium || u.PremiumUntil == nil {
		return false
	}
	return u.PremiumUntil.After(now)
}

// WantsPair: пустой список предпочтений = берём всё.
func (u *User) WantsPair(pair string) bool {
	if len(u.PreferredPairs) == 0 {
		return true
	}
	for _, p := range u.PreferredPairs {
		if strings.EqualFold(p, pair) {
			return true
		}
	}
	return false
}

// ChannelSub — кэш статуса подписки на обязательный канал.
// Обновляется внешней проверкой через транспорт, ядро только читает.
type ChannelSub struct {
	UserID          int64     `json:"user_id"`
	ChannelUsername string    `json:"channel_username"`
	Subscribed      bool      `json:"subscribed"`
	LastChecked     time.Time `json:"last_checked"`
}

// UserStats — агрегат для статистики пользователя.
type UserStats struct {
	UserID            int64
	TotalSignals      int
	SuccessfulSignals int
	WinRate           float64
}
