package main

import (
	"context"
	"log"

	"binary_bot/internal/modules/analysis"
	"binary_bot/internal/modules/broadcast"
	"binary_bot/internal/modules/chart"
	"binary_bot/internal/modules/config"
	"binary_bot/internal/modules/eligibility"
	"binary_bot/internal/modules/postgres"
	"binary_bot/internal/modules/prices"
	"binary_bot/internal/modules/signals"
	"binary_bot/pkg/logger"
	"binary_bot/pkg/tracing"

	telegram "binary_bot/internal/modules/telegram_bot"

	"go.uber.org/fx"
)

func main() {
	if err := logger.Init("binary_bot"); err != nil {
		log.Fatal(err)
	}

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		postgres.Module(),
		prices.Module(),
		analysis.Module(),
		signals.Module(),
		chart.Module(),
		eligibility.Module(),
		telegram.Module(),
		broadcast.Module(),

		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) {
			if cfg.Jaeger.Host == "" {
				return
			}
			tracing.SetServiceName("binary_bot")
			_, closeTracer, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Jaeger.Host,
				Port: cfg.Jaeger.Port,
			})
			if err != nil {
				logger.Error("jaeger init: %v", err)
				return
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closeTracer()
					return nil
				},
			})
		}),
	)
	app.Run()
}
