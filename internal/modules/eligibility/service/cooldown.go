package service

import (
	"sync"
	"time"
)

// Cooldowns — единственный владелец кулдаун-состояния. Явный стор вместо
// глобальной мапы: прогревается историей доставок на старте, Acquire —
// атомарный check-and-set под одним локом, гонка двух конкурентных
// доставок одному юзеру невозможна.
type Cooldowns struct {
	window time.Duration

	mu   sync.Mutex
	last map[int64]time.Time // userID -> время последней доставки
}

func NewCooldowns(window time.Duration) *Cooldowns {
	return &Cooldowns{
		window: window,
		last:   make(map[int64]time.Time),
	}
}

// Seed заливает персистентную историю доставок. Более свежие значения
// в сторе не затираются.
func (c *Cooldowns) Seed(history map[int64]time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, at := range history {
		if cur, ok := c.last[id]; !ok || at.After(cur) {
			c.last[id] = at
		}
	}
}

// Remaining — сколько осталось до конца окна. Только чтение, состояние
// не меняет: гейт подсматривает, захватывает диспетчер.
func (c *Cooldowns) Remaining(userID int64, now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.last[userID]
	if !ok {
		return 0
	}
	left := c.window - now.Sub(at)
	if left < 0 {
		return 0
	}
	return left
}

// Acquire пытается занять окно. false — окно ещё не истекло, доставлять
// нельзя. true — отметка обновлена на now, у конкурентов Acquire вернёт false.
func (c *Cooldowns) Acquire(userID int64, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if at, ok := c.last[userID]; ok && now.Sub(at) < c.window {
		return false
	}
	c.last[userID] = now
	return true
}
