package chart

import (
	"context"

	"binary_bot/internal/modules/chart/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("chart",
		fx.Provide(
			service.NewRenderer, // *service.Renderer
		),
		fx.Invoke(func(lc fx.Lifecycle, r *service.Renderer) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return r.Init()
				},
			})
		}),
	)
}
