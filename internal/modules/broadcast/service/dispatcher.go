package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"binary_bot/internal/models"
	"binary_bot/internal/modules/config"
	eligibility "binary_bot/internal/modules/eligibility/service"
	"binary_bot/internal/storage"
)

// Transport — внешний мессенджер. Rate-limit и backoff — его забота.
type Transport interface {
	SendChart(ctx context.Context, chatID int64, chartPath, caption string) error
	RefreshSubscription(ctx context.Context, userID int64) (*models.ChannelSub, error)
}

// DeliveryStore — кусок стора, нужный фан-ауту.
type DeliveryStore interface {
	Recipients(ctx context.Context) ([]*models.User, error)
	GetChannelSub(ctx context.Context, userID int64) (*models.ChannelSub, error)
	RecordDelivery(ctx context.Context, userID, signalID int64, receivedAt time.Time) error
}

type DeliveryFailure struct {
	UserID int64
	Err    error
}

// Report — агрегат одного фан-аута. Ошибки отдельных получателей копятся
// здесь и не валят рассылку.
type Report struct {
	Candidates int
	Delivered  int
	Deferred   int
	Duplicates int
	Rejections map[eligibility.Reason]int
	Failures   []DeliveryFailure
}

// Dispatcher раздаёт eligible-сигнал получателям с ограниченным
// параллелизмом. Последовательность gate → acquire → send → record
// атомарна по отношению к состоянию конкретного юзера.
type Dispatcher struct {
	cfg       *config.Config
	gate      *eligibility.Gate
	cooldowns *eligibility.Cooldowns
	store     DeliveryStore
	transport Transport

	now func() time.Time
}

func NewDispatcher(
	cfg *config.Config,
	gate *eligibility.Gate,
	cooldowns *eligibility.Cooldowns,
	store DeliveryStore,
	transport Transport,
) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		gate:      gate,
		cooldowns: cooldowns,
		store:     store,
		transport: transport,
		now:       time.Now,
	}
}

// Dispatch — фан-аут по всем кандидатам. Ошибка здесь только одна —
// недоступность стора на чтении кандидатов, она фатальна для прогона.
func (d *Dispatcher) Dispatch(ctx context.Context, sig *models.Signal, chartPath string) (*Report, error) {
	users, err := d.store.Recipients(ctx)
	if err != nil {
		return nil, fmt.Errorf("load recipients: %w", err)
	}

	rep := &Report{
		Candidates: len(users),
		Rejections: make(map[eligibility.Reason]int),
	}

	concurrency := d.cfg.SendConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, user := range users {
		wg.Add(1)
		sem <- struct{}{}
		go func(u *models.User) {
			defer wg.Done()
			defer func() { <-sem }()
			d.deliverOne(ctx, sig, u, chartPath, rep, &mu)
		}(user)
	}
	wg.Wait()

	return rep, nil
}

func (d *Dispatcher) deliverOne(ctx context.Context, sig *models.Signal, u *models.User, chartPath string, rep *Report, mu *sync.Mutex) {
	sub, err := d.store.GetChannelSub(ctx, u.UserID)
	if err != nil {
		mu.Lock()
		rep.Failures = append(rep.Failures, DeliveryFailure{UserID: u.UserID, Err: err})
		mu.Unlock()
		return
	}

	dec := d.gate.Check(sig, u, sub, d.now())
	if !dec.Eligible {
		mu.Lock()
		if dec.Deferred() {
			rep.Deferred++
		} else {
			rep.Rejections[dec.Reason]++
		}
		mu.Unlock()
		if dec.Deferred() {
			// кэш подписки протух — освежаем в фоне, следующий цикл решит
			go d.refreshSub(u.UserID)
		}
		return
	}

	// атомарный захват окна прямо перед отправкой: проигравший гонку
	// конкурент получает false и юзер не ловит два сигнала в окно
	if !d.cooldowns.Acquire(u.UserID, d.now()) {
		mu.Lock()
		rep.Rejections[eligibility.ReasonCooldown]++
		mu.Unlock()
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	sendErr := d.transport.SendChart(sendCtx, u.UserID, chartPath, d.caption(sig))
	cancel()

	// доставка состоялась как попытка — фиксируем независимо от исхода
	// на транспорте; счётчик и строка user_signals в одной транзакции
	recErr := d.store.RecordDelivery(ctx, u.UserID, sig.ID, d.now())

	mu.Lock()
	defer mu.Unlock()
	switch {
	case errors.Is(recErr, storage.ErrDuplicateDelivery):
		rep.Duplicates++
	case recErr != nil:
		// стор упал после eligible: помечаем как недоставленное,
		// "delivered" без персистентной записи не репортим
		rep.Failures = append(rep.Failures, DeliveryFailure{
			UserID: u.UserID,
			Err:    fmt.Errorf("undelivered, record failed: %w", recErr),
		})
		return
	}
	if sendErr != nil {
		rep.Failures = append(rep.Failures, DeliveryFailure{UserID: u.UserID, Err: sendErr})
		return
	}
	if recErr == nil {
		rep.Delivered++
	}
}

func (d *Dispatcher) refreshSub(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
	defer cancel()
	if _, err := d.transport.RefreshSubscription(ctx, userID); err != nil {
		log.Printf("[DISPATCH] sub refresh failed for %d: %v", userID, err)
	}
}

func (d *Dispatcher) caption(sig *models.Signal) string {
	directionText := "HIGH (CALL) 📈"
	if sig.Direction == models.DirectionLow {
		directionText = "LOW (PUT) 📉"
	}
	head := "🎯 BINARY SIGNAL"
	if sig.SignalType == models.SignalPremium {
		head = "💎 PREMIUM SIGNAL"
	}
	return fmt.Sprintf(
		"%s: %s\nDirection: %s\nExpiry: %d min\nConfidence: %.1f%%\nPrice: %.4f",
		head, sig.Pair, directionText, sig.ExpiryMinutes(), sig.Confidence*100, sig.Price,
	)
}
