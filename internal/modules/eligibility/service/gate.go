package service

import (
	"time"

	"binary_bot/internal/models"
	"binary_bot/internal/modules/config"
)

// Reason — перечислимая причина отказа. Каждая проверяется отдельно.
type Reason string

const (
	ReasonNotificationsOff  Reason = "notifications_disabled"
	ReasonNotSubscribed     Reason = "not_subscribed"
	ReasonSubscriptionStale Reason = "subscription_stale" // отложено, не отказ
	ReasonPremiumRequired   Reason = "premium_required"
	ReasonCooldown          Reason = "cooldown"
	ReasonPairNotPreferred  Reason = "pair_not_preferred"
)

type Decision struct {
	Eligible bool
	Reason   Reason
}

// Deferred: подписку давно не проверяли — юзера пропускаем в этом цикле,
// но это не отказ (кулдаун не трогаем, следующий цикл проверит заново).
func (d Decision) Deferred() bool { return d.Reason == ReasonSubscriptionStale }

// Gate — политика допуска. Детерминирован при одинаковом входе и
// снапшоте кулдаунов. Сам ничего не пишет.
type Gate struct {
	cfg       *config.Config
	cooldowns *Cooldowns
}

func NewGate(cfg *config.Config, cooldowns *Cooldowns) *Gate {
	return &Gate{cfg: cfg, cooldowns: cooldowns}
}

// Check идёт по правилам сверху вниз и останавливается на первом отказе.
func (g *Gate) Check(sig *models.Signal, user *models.User, sub *models.ChannelSub, now time.Time) Decision {
	// 1. уведомления включены
	if !user.NotificationEnabled {
		return Decision{Reason: ReasonNotificationsOff}
	}

	// 2. обязательная подписка на канал (если требуется конфигом)
	if g.cfg.Telegram.ChannelRequired {
		if sub == nil || now.Sub(sub.LastChecked) > g.cfg.SubRecheck {
			return Decision{Reason: ReasonSubscriptionStale}
		}
		if !sub.Subscribed {
			return Decision{Reason: ReasonNotSubscribed}
		}
	}

	// 3. премиум-сигналы только активным премиум-юзерам
	if sig.SignalType == models.SignalPremium && !user.PremiumActive(now) {
		return Decision{Reason: ReasonPremiumRequired}
	}

	// 4. кулдаун: здесь только подсматриваем, Acquire делает диспетчер
	// непосредственно перед отправкой
	if g.cooldowns.Remaining(user.UserID, now) > 0 {
		return Decision{Reason: ReasonCooldown}
	}

	// 5. пара в предпочтениях (пустой список = без фильтра)
	if !user.WantsPair(sig.Pair) {
		return Decision{Reason: ReasonPairNotPreferred}
	}

	return Decision{Eligible: true}
}
