package postgres

import (
	"context"
	"fmt"

	"binary_bot/internal/modules/config"
	"binary_bot/internal/storage"
	"binary_bot/pkg/db"

	"go.uber.org/fx"
)

// Module поднимает пул, проверяет коннект и отдаёт Store.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, cfg *config.Config) (*db.PgTxManager, error) {
				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				manager := db.NewPgTxManager(poolMaster)
				if err := manager.Ping(ctx); err != nil {
					return nil, err
				}

				return manager, nil
			},
			storage.New,
		),
		fx.Invoke(func(lc fx.Lifecycle, manager *db.PgTxManager, store *storage.Store) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return store.Bootstrap(ctx)
				},
				OnStop: func(ctx context.Context) error {
					manager.Close()
					return nil
				},
			})
		}),
	)
}
