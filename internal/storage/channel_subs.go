package storage

import (
	"context"
	"errors"
	"fmt"

	"binary_bot/internal/models"

	"github.com/jackc/pgx/v5"
)

// GetChannelSub возвращает кэш подписки. Нет строки — (nil, nil):
// для гейта это "ещё не проверяли".
func (s *Store) GetChannelSub(ctx context.Context, userID int64) (sub *models.ChannelSub, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.GetChannelSub: %w", err)
		}
	}()

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctxTx, `
			SELECT user_id, channel_username, subscribed, last_checked
			FROM channel_subs WHERE user_id = $1`, userID)
		var got models.ChannelSub
		scanErr := row.Scan(&got.UserID, &got.ChannelUsername, &got.Subscribed, &got.LastChecked)
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil
		}
		if scanErr != nil {
			return scanErr
		}
		sub = &got
		return nil
	})
	return sub, err
}

// UpsertChannelSub пишет результат внешней проверки членства в канале.
func (s *Store) UpsertChannelSub(ctx context.Context, sub *models.ChannelSub) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.UpsertChannelSub: %w", err)
		}
	}()

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, execErr := tx.Exec(ctxTx, `
			INSERT INTO channel_subs (user_id, channel_username, subscribed, last_checked)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id) DO UPDATE SET
				channel_username = EXCLUDED.channel_username,
				subscribed       = EXCLUDED.subscribed,
				last_checked     = EXCLUDED.last_checked`,
			sub.UserID, sub.ChannelUsername, sub.Subscribed, sub.LastChecked,
		)
		return execErr
	})
}
