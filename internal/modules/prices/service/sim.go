package service

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync"

	"binary_bot/internal/models"
)

// SimSource — случайное блуждание вокруг базовой цены пары. Используется,
// когда живой фид не сконфигурирован. Генератор на пару детерминирован
// (сид из имени), так что серии воспроизводимы от старта процесса.
type SimSource struct {
	mu     sync.Mutex
	states map[string]*simState
}

type simState struct {
	rnd   *rand.Rand
	price float64
	vol   float64 // шаг блуждания в долях цены
}

func NewSimSource() *SimSource {
	return &SimSource{
		states: make(map[string]*simState),
	}
}

func (s *SimSource) Fetch(_ context.Context, pair string, market models.MarketType, n int) ([]float64, error) {
	if n <= 0 {
		return nil, ErrDataUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := pair + "/" + string(market)
	st, ok := s.states[key]
	if !ok {
		st = newSimState(key, market)
		s.states[key] = st
	}

	out := make([]float64, n)
	for i := range out {
		st.step()
		out[i] = st.price
	}
	return out, nil
}

func newSimState(key string, market models.MarketType) *simState {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	seed := int64(h.Sum64())

	vol := 0.0004
	if market == models.MarketOTC {
		// OTC дёргается сильнее
		vol = 0.0012
	}
	return &simState{
		rnd:   rand.New(rand.NewSource(seed)),
		price: 1.0 + float64(seed%1000)/10000.0,
		vol:   vol,
	}
}

func (st *simState) step() {
	st.price += st.price * st.vol * (st.rnd.Float64()*2 - 1)
	if st.price <= 0 {
		st.price = 0.0001
	}
}
