package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"binary_bot/internal/models"

	"github.com/jackc/pgx/v5"
)

// RecordDelivery пишет факт доставки и инкрементит счётчик пользователя
// одной транзакцией. Повтор по той же паре (user_id, signal_id) — это
// ErrDuplicateDelivery, счётчик при этом не трогаем.
func (s *Store) RecordDelivery(ctx context.Context, userID, signalID int64, receivedAt time.Time) (err error) {
	defer func() {
		if err != nil && !errors.Is(err, ErrDuplicateDelivery) {
			err = fmt.Errorf("Store.RecordDelivery: %w", err)
		}
	}()

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		tag, execErr := tx.Exec(ctxTx, `
			INSERT INTO user_signals (user_id, signal_id, received_at, action_taken)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, signal_id) DO NOTHING`,
			userID, signalID, receivedAt, models.ActionViewed,
		)
		if execErr != nil {
			return execErr
		}
		if tag.RowsAffected() == 0 {
			return ErrDuplicateDelivery
		}
		_, execErr = tx.Exec(ctxTx,
			`UPDATE users SET total_signals = total_signals + 1 WHERE user_id = $1`, userID)
		return execErr
	})
}

// LastDeliveries — время последней доставки по каждому пользователю.
// Используется для прогрева кулдаун-стора на старте.
func (s *Store) LastDeliveries(ctx context.Context) (last map[int64]time.Time, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.LastDeliveries: %w", err)
		}
	}()

	last = make(map[int64]time.Time)
	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, qErr := tx.Query(ctxTx,
			`SELECT user_id, MAX(received_at) FROM user_signals GROUP BY user_id`)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()
		for rows.Next() {
			var (
				id int64
				at time.Time
			)
			if scanErr := rows.Scan(&id, &at); scanErr != nil {
				return scanErr
			}
			last[id] = at
		}
		return rows.Err()
	})
	return last, err
}

// MarkAction фиксирует реакцию пользователя на уже доставленный сигнал.
func (s *Store) MarkAction(ctx context.Context, userID, signalID int64, action models.ActionTaken) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.MarkAction: %w", err)
		}
	}()

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, execErr := tx.Exec(ctxTx, `
			UPDATE user_signals SET action_taken = $3
			WHERE user_id = $1 AND signal_id = $2`,
			userID, signalID, action,
		)
		return execErr
	})
}

// UserHistory — сигналы, доставленные конкретному пользователю.
func (s *Store) UserHistory(ctx context.Context, userID int64, limit int) (sigs []*models.Signal, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.UserHistory: %w", err)
		}
	}()

	if limit <= 0 {
		limit = 10
	}
	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, qErr := tx.Query(ctxTx, `
			SELECT s.id, s.pair, s.direction, s.expiry_time, s.confidence, s.price,
			       COALESCE(s.stop_loss, 0), COALESCE(s.take_profit, 0),
			       s.signal_type, s.strategy, s.created_at, s.success,
			       COALESCE(s.actual_result, ''), s.profit_loss
			FROM signals s
			JOIN user_signals us ON us.signal_id = s.id
			WHERE us.user_id = $1
			ORDER BY us.received_at DESC LIMIT $2`, userID, limit)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()
		for rows.Next() {
			got, scanErr := scanSignal(rows)
			if scanErr != nil {
				return scanErr
			}
			sigs = append(sigs, got)
		}
		return rows.Err()
	})
	return sigs, err
}
