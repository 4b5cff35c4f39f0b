package broadcast

import (
	"context"
	"log"

	"binary_bot/internal/models"
	"binary_bot/internal/modules/broadcast/service"
	"binary_bot/internal/modules/config"
	eligibility "binary_bot/internal/modules/eligibility/service"
	telegram "binary_bot/internal/modules/telegram_bot/service"
	"binary_bot/internal/storage"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("broadcast",
		fx.Provide(
			func(
				cfg *config.Config,
				gate *eligibility.Gate,
				cooldowns *eligibility.Cooldowns,
				store *storage.Store,
				transport *telegram.Telegram,
			) *service.Dispatcher {
				return service.NewDispatcher(cfg, gate, cooldowns, store, transport)
			},
			service.NewPipeline, // *service.Pipeline
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, pipe *service.Pipeline, ctx context.Context) {
			if !cfg.BroadcastEnabled {
				log.Printf("[CRON] broadcast disabled by config")
				return
			}

			c := cron.New()
			_, err := c.AddFunc(cfg.BroadcastCron, func() {
				if err := pipe.Run(ctx, models.MarketForex); err != nil {
					log.Printf("[CRON] forex run: %v", err)
				}
				if len(cfg.OTCPairs) > 0 {
					if err := pipe.Run(ctx, models.MarketOTC); err != nil {
						log.Printf("[CRON] otc run: %v", err)
					}
				}
			})
			if err != nil {
				log.Fatalf("[CRON] bad schedule %q: %v", cfg.BroadcastCron, err)
			}

			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					c.Start()
					log.Printf("[CRON] broadcast scheduled: %s", cfg.BroadcastCron)
					return nil
				},
				OnStop: func(_ context.Context) error {
					<-c.Stop().Done()
					return nil
				},
			})
		}),
	)
}
