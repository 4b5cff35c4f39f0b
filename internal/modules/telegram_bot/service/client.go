package service

import (
	"context"
	"fmt"
	"time"

	"binary_bot/internal/models"
	"binary_bot/internal/modules/config"
	"binary_bot/internal/storage"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram — транспортная граница ядра: фото с подписью получателю и
// проверка членства в канале. Диспетчеризация команд и клавиатуры живут
// во внешнем боте, не здесь.
type Telegram struct {
	bot   *tgbot.BotAPI
	cfg   *config.Config
	store *storage.Store
}

func NewTelegram(cfg *config.Config, store *storage.Store) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}

	return &Telegram{
		bot:   b,
		cfg:   cfg,
		store: store,
	}, nil
}

// SendChart шлёт график с подписью. Отправка в горутине: зависший вызов
// Bot API не должен держать фан-аут дольше ctx.
func (t *Telegram) SendChart(ctx context.Context, chatID int64, chartPath, caption string) error {
	photo := tgbot.NewPhoto(chatID, tgbot.FilePath(chartPath))
	photo.Caption = caption

	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(photo)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send chart to %d: %w", chatID, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send chart to %d: %w", chatID, ctx.Err())
	}
}

// Send — текстовое сообщение (сервисные уведомления).
func (t *Telegram) Send(ctx context.Context, chatID int64, msg string) error {
	_, err := t.bot.Send(tgbot.NewMessage(chatID, msg))
	return err
}

func (t *Telegram) SendF(ctx context.Context, chatID int64, format string, args ...any) error {
	return t.Send(ctx, chatID, fmt.Sprintf(format, args...))
}

// RefreshSubscription спрашивает у Telegram членство в обязательном канале
// и обновляет кэш в сторе. Вызывается, когда кэш протух.
func (t *Telegram) RefreshSubscription(ctx context.Context, userID int64) (*models.ChannelSub, error) {
	member, err := t.bot.GetChatMember(tgbot.GetChatMemberConfig{
		ChatConfigWithUser: tgbot.ChatConfigWithUser{
			SuperGroupUsername: "@" + t.cfg.Telegram.Channel,
			UserID:             userID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get chat member %d: %w", userID, err)
	}

	sub := &models.ChannelSub{
		UserID:          userID,
		ChannelUsername: t.cfg.Telegram.Channel,
		Subscribed:      memberStatusOK(member.Status),
		LastChecked:     time.Now(),
	}
	if err := t.store.UpsertChannelSub(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func memberStatusOK(status string) bool {
	switch status {
	case "member", "administrator", "creator":
		return true
	}
	return false
}
