package eligibility

import (
	"context"
	"log"

	"binary_bot/internal/modules/config"
	"binary_bot/internal/modules/eligibility/service"
	"binary_bot/internal/storage"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("eligibility",
		fx.Provide(
			func(cfg *config.Config) *service.Cooldowns {
				return service.NewCooldowns(cfg.CooldownWindow)
			},
			service.NewGate, // *service.Gate
		),
		// прогрев кулдаунов историей доставок
		fx.Invoke(func(lc fx.Lifecycle, cooldowns *service.Cooldowns, store *storage.Store) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					history, err := store.LastDeliveries(ctx)
					if err != nil {
						return err
					}
					cooldowns.Seed(history)
					log.Printf("[GATE] cooldowns seeded: %d users", len(history))
					return nil
				},
			})
		}),
	)
}
