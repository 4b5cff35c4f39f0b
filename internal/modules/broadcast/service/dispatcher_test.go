package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"binary_bot/internal/models"
	"binary_bot/internal/modules/config"
	eligibility "binary_bot/internal/modules/eligibility/service"
	"binary_bot/internal/storage"
)

var dispatchNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeDeliveryStore struct {
	mu            sync.Mutex
	users         []*models.User
	subs          map[int64]*models.ChannelSub
	recorded      map[string]bool
	recipientsErr error
	recordErr     error
}

func (f *fakeDeliveryStore) Recipients(context.Context) ([]*models.User, error) {
	if f.recipientsErr != nil {
		return nil, f.recipientsErr
	}
	return f.users, nil
}

func (f *fakeDeliveryStore) GetChannelSub(_ context.Context, userID int64) (*models.ChannelSub, error) {
	return f.subs[userID], nil
}

func (f *fakeDeliveryStore) RecordDelivery(_ context.Context, userID, signalID int64, _ time.Time) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%d:%d", userID, signalID)
	if f.recorded[key] {
		return storage.ErrDuplicateDelivery
	}
	if f.recorded == nil {
		f.recorded = make(map[string]bool)
	}
	f.recorded[key] = true
	return nil
}

func (f *fakeDeliveryStore) recordCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recorded)
}

type fakeTransport struct {
	mu        sync.Mutex
	sent      []int64
	fail      map[int64]error
	refreshed int
}

func (f *fakeTransport) SendChart(_ context.Context, chatID int64, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[chatID]; err != nil {
		return err
	}
	f.sent = append(f.sent, chatID)
	return nil
}

func (f *fakeTransport) RefreshSubscription(_ context.Context, userID int64) (*models.ChannelSub, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed++
	return &models.ChannelSub{UserID: userID, Subscribed: true, LastChecked: time.Now()}, nil
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeTransport) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshed
}

func dispatchConfig(channelRequired bool) *config.Config {
	cfg := &config.Config{
		CooldownWindow:  300 * time.Second,
		SubRecheck:      time.Hour,
		SendTimeout:     time.Second,
		SendConcurrency: 4,
	}
	cfg.Telegram.Channel = "binary_signals"
	cfg.Telegram.ChannelRequired = channelRequired
	return cfg
}

func subscriber(id int64) *models.User {
	return &models.User{
		UserID:              id,
		NotificationEnabled: true,
		PreferredPairs:      []string{"EUR/USD"},
	}
}

func dispatchSignal(id int64) *models.Signal {
	return &models.Signal{
		ID:         id,
		Pair:       "EUR/USD",
		Direction:  models.DirectionHigh,
		SignalType: models.SignalRegular,
		Confidence: 0.8,
		Price:      1.1023,
		CreatedAt:  dispatchNow,
		ExpiryTime: dispatchNow.Add(5 * time.Minute),
	}
}

func newTestDispatcher(cfg *config.Config, store *fakeDeliveryStore, transport *fakeTransport) *Dispatcher {
	cooldowns := eligibility.NewCooldowns(cfg.CooldownWindow)
	gate := eligibility.NewGate(cfg, cooldowns)
	d := NewDispatcher(cfg, gate, cooldowns, store, transport)
	d.now = func() time.Time { return dispatchNow }
	return d
}

func TestDispatchHappyPath(t *testing.T) {
	store := &fakeDeliveryStore{users: []*models.User{subscriber(100)}}
	transport := &fakeTransport{}
	d := newTestDispatcher(dispatchConfig(false), store, transport)

	rep, err := d.Dispatch(context.Background(), dispatchSignal(1), "/tmp/chart.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Delivered != 1 || rep.Candidates != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if store.recordCount() != 1 {
		t.Fatalf("expected one user_signal row, got %d", store.recordCount())
	}
	if transport.sentCount() != 1 {
		t.Fatalf("expected one send, got %d", transport.sentCount())
	}
}

func TestDispatchCooldownBlocksSecondSignal(t *testing.T) {
	store := &fakeDeliveryStore{users: []*models.User{subscriber(100)}}
	transport := &fakeTransport{}
	d := newTestDispatcher(dispatchConfig(false), store, transport)

	if _, err := d.Dispatch(context.Background(), dispatchSignal(1), "/tmp/c.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// новый сигнал через 10 секунд при окне 300с
	d.now = func() time.Time { return dispatchNow.Add(10 * time.Second) }
	rep, err := d.Dispatch(context.Background(), dispatchSignal(2), "/tmp/c.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Delivered != 0 {
		t.Fatalf("cooldown must block delivery, got %+v", rep)
	}
	if rep.Rejections[eligibility.ReasonCooldown] != 1 {
		t.Fatalf("expected cooldown rejection, got %+v", rep.Rejections)
	}
	if store.recordCount() != 1 {
		t.Fatalf("no new user_signal row expected, got %d", store.recordCount())
	}
}

func TestDispatchTransportFailureIsolated(t *testing.T) {
	store := &fakeDeliveryStore{users: []*models.User{subscriber(100), subscriber(200)}}
	transport := &fakeTransport{fail: map[int64]error{100: errors.New("blocked by user")}}
	d := newTestDispatcher(dispatchConfig(false), store, transport)

	rep, err := d.Dispatch(context.Background(), dispatchSignal(1), "/tmp/c.png")
	if err != nil {
		t.Fatalf("transport failure must not abort the batch: %v", err)
	}
	if rep.Delivered != 1 {
		t.Fatalf("second user must still be delivered, got %+v", rep)
	}
	if len(rep.Failures) != 1 || rep.Failures[0].UserID != 100 {
		t.Fatalf("expected isolated failure for user 100, got %+v", rep.Failures)
	}
	// попытка доставки фиксируется и при ошибке транспорта
	if store.recordCount() != 2 {
		t.Fatalf("attempted deliveries must be recorded, got %d", store.recordCount())
	}
}

func TestDispatchDuplicateNotDoubleCounted(t *testing.T) {
	store := &fakeDeliveryStore{
		users:    []*models.User{subscriber(100)},
		recorded: map[string]bool{"100:1": true},
	}
	transport := &fakeTransport{}
	d := newTestDispatcher(dispatchConfig(false), store, transport)

	rep, err := d.Dispatch(context.Background(), dispatchSignal(1), "/tmp/c.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Duplicates != 1 || rep.Delivered != 0 {
		t.Fatalf("duplicate must be counted separately: %+v", rep)
	}
	if store.recordCount() != 1 {
		t.Fatalf("duplicate must not add a row, got %d", store.recordCount())
	}
}

func TestDispatchPremiumNeverToExpired(t *testing.T) {
	u := subscriber(100)
	u.IsPremium = true
	expired := dispatchNow.Add(-time.Hour)
	u.PremiumUntil = &expired

	store := &fakeDeliveryStore{users: []*models.User{u}}
	transport := &fakeTransport{}
	d := newTestDispatcher(dispatchConfig(false), store, transport)

	sig := dispatchSignal(1)
	sig.SignalType = models.SignalPremium
	rep, err := d.Dispatch(context.Background(), sig, "/tmp/c.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Rejections[eligibility.ReasonPremiumRequired] != 1 {
		t.Fatalf("expected premium_required rejection, got %+v", rep)
	}
	if transport.sentCount() != 0 || store.recordCount() != 0 {
		t.Fatalf("nothing must be sent or recorded for expired premium")
	}
}

func TestDispatchStaleSubDeferredAndRefreshed(t *testing.T) {
	store := &fakeDeliveryStore{users: []*models.User{subscriber(100)}}
	transport := &fakeTransport{}
	d := newTestDispatcher(dispatchConfig(true), store, transport)

	rep, err := d.Dispatch(context.Background(), dispatchSignal(1), "/tmp/c.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Deferred != 1 || rep.Delivered != 0 {
		t.Fatalf("missing sub cache must defer, got %+v", rep)
	}
	if store.recordCount() != 0 {
		t.Fatalf("deferred user must not get a delivery row")
	}

	// рефреш уходит в фоне
	deadline := time.Now().Add(time.Second)
	for transport.refreshCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscription refresh was not triggered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDispatchRecipientsErrorFatal(t *testing.T) {
	store := &fakeDeliveryStore{recipientsErr: errors.New("pg down")}
	d := newTestDispatcher(dispatchConfig(false), store, &fakeTransport{})

	if _, err := d.Dispatch(context.Background(), dispatchSignal(1), "/tmp/c.png"); err == nil {
		t.Fatalf("store unavailability must be fatal to the run")
	}
}

func TestDispatchRecordFailureReportedUndelivered(t *testing.T) {
	store := &fakeDeliveryStore{
		users:     []*models.User{subscriber(100)},
		recordErr: errors.New("pg down"),
	}
	transport := &fakeTransport{}
	d := newTestDispatcher(dispatchConfig(false), store, transport)

	rep, err := d.Dispatch(context.Background(), dispatchSignal(1), "/tmp/c.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Delivered != 0 {
		t.Fatalf("delivery without a persisted record must not be reported delivered: %+v", rep)
	}
	if len(rep.Failures) != 1 {
		t.Fatalf("expected undelivered failure entry, got %+v", rep.Failures)
	}
}
