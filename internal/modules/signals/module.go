package signals

import (
	"binary_bot/internal/modules/config"
	"binary_bot/internal/modules/signals/service"
	"binary_bot/internal/storage"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("signals",
		fx.Provide(
			func(cfg *config.Config, store *storage.Store) *service.Builder {
				return service.NewBuilder(cfg, store)
			},
		),
	)
}
