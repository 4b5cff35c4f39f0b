package telegram

import (
	"binary_bot/internal/modules/telegram_bot/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("telegram_bot",
		fx.Provide(
			service.NewTelegram, // *service.Telegram
		),
	)
}
