package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"binary_bot/internal/models"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// StreamSource — живой фид котировок по WebSocket. Копит последние цены
// в кольцевых буферах по (pair, market); Fetch отдаёт снапшот без блокировки
// читателя на сети.
type StreamSource struct {
	url      string
	capacity int
	wsDialer *websocket.Dialer

	mu   sync.RWMutex
	bufs map[string]*ring
}

type tickMsg struct {
	Pair   string  `json:"pair"`
	Market string  `json:"market"`
	Price  float64 `json:"price"`
}

func NewStreamSource(url string, capacity int) *StreamSource {
	if capacity < 64 {
		capacity = 64
	}
	return &StreamSource{
		url:      url,
		capacity: capacity,
		wsDialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		bufs:     make(map[string]*ring),
	}
}

// Start держит соединение с переподключением, пока жив ctx.
func (s *StreamSource) Start(ctx context.Context) {
	go func() {
		backoff := time.Second
		for {
			if ctx.Err() != nil {
				return
			}
			if err := s.readLoop(ctx); err != nil {
				log.Printf("[PRICES] ws: %v, reconnect in %s", err, backoff)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
		}
	}()
}

func (s *StreamSource) readLoop(ctx context.Context) error {
	conn, _, err := s.wsDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return errors.Wrap(err, "dial")
	}
	defer func() {
		_ = conn.Close()
	}()
	log.Printf("[PRICES] ▶️ ws connected: %s", s.url)

	for {
		if ctx.Err() != nil {
			return nil
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return errors.Wrap(err, "read")
		}
		var msg tickMsg
		if err := sonic.Unmarshal(data, &msg); err != nil || msg.Pair == "" || msg.Price <= 0 {
			continue // битый тик пропускаем
		}
		s.push(msg)
	}
}

func (s *StreamSource) push(msg tickMsg) {
	key := bufKey(msg.Pair, models.MarketType(msg.Market))
	s.mu.Lock()
	b, ok := s.bufs[key]
	if !ok {
		b = newRing(s.capacity)
		s.bufs[key] = b
	}
	b.push(msg.Price)
	s.mu.Unlock()
}

func (s *StreamSource) Fetch(_ context.Context, pair string, market models.MarketType, n int) ([]float64, error) {
	s.mu.RLock()
	b, ok := s.bufs[bufKey(pair, market)]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrDataUnavailable, "no feed for %s", pair)
	}
	out := b.last(n)
	if len(out) < n {
		return nil, errors.Wrapf(ErrDataUnavailable, "%s: have %d of %d points", pair, len(out), n)
	}
	return out, nil
}

func bufKey(pair string, market models.MarketType) string {
	if market == "" {
		market = models.MarketForex
	}
	return fmt.Sprintf("%s/%s", pair, market)
}

// ring — кольцевой буфер цен фиксированной ёмкости.
type ring struct {
	data []float64
	head int
	size int
}

func newRing(capacity int) *ring {
	return &ring{data: make([]float64, capacity)}
}

func (r *ring) push(v float64) {
	r.data[r.head] = v
	r.head = (r.head + 1) % len(r.data)
	if r.size < len(r.data) {
		r.size++
	}
}

// last — последние n значений, старые → новые. Если накоплено меньше,
// отдаёт сколько есть.
func (r *ring) last(n int) []float64 {
	if n > r.size {
		n = r.size
	}
	out := make([]float64, 0, n)
	start := r.head - n
	for i := 0; i < n; i++ {
		idx := (start + i + len(r.data)) % len(r.data)
		out = append(out, r.data[idx])
	}
	return out
}
