package prices

import (
	"context"
	"log"

	"binary_bot/internal/modules/config"
	"binary_bot/internal/modules/prices/service"

	"go.uber.org/fx"
)

// Module выбирает источник цен по конфигу: sim (по умолчанию) или stream.
func Module() fx.Option {
	return fx.Module("prices",
		fx.Provide(
			func(cfg *config.Config) service.Source {
				if cfg.PriceSource == "stream" && cfg.PriceWSURL != "" {
					return service.NewStreamSource(cfg.PriceWSURL, cfg.SeriesLen*4)
				}
				return service.NewSimSource()
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, src service.Source, ctx context.Context) {
			stream, ok := src.(*service.StreamSource)
			if !ok {
				log.Printf("[PRICES] simulated source active")
				return
			}
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					stream.Start(ctx)
					return nil
				},
			})
		}),
	)
}
