package service

import (
	"context"

	"binary_bot/internal/models"

	"github.com/pkg/errors"
)

// ErrDataUnavailable — источник не смог отдать серию. Наверх отдаём как есть,
// данные никогда не дорисовываем.
var ErrDataUnavailable = errors.New("price data unavailable")

// Source отдаёт последние n цен (старые → новые) по паре и типу рынка.
type Source interface {
	Fetch(ctx context.Context, pair string, market models.MarketType, n int) ([]float64, error)
}
