package storage

import (
	"context"
	"fmt"
	"time"

	"binary_bot/internal/models"

	"github.com/jackc/pgx/v5"
)

// InsertSignal сохраняет новый сигнал и проставляет ID/CreatedAt.
// Порог confidence проверяет билдер — сюда приходят только валидные сигналы.
func (s *Store) InsertSignal(ctx context.Context, sig *models.Signal) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.InsertSignal: %w", err)
		}
	}()

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctxTx, `
			INSERT INTO signals (pair, direction, expiry_time, confidence, price,
			                     stop_loss, take_profit, signal_type, strategy)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0::float8), NULLIF($7, 0::float8), $8, $9)
			RETURNING id, created_at`,
			sig.Pair, sig.Direction, sig.ExpiryTime, sig.Confidence, sig.Price,
			sig.StopLoss, sig.TakeProfit, sig.SignalType, sig.Strategy,
		)
		return row.Scan(&sig.ID, &sig.CreatedAt)
	})
}

func (s *Store) GetSignal(ctx context.Context, id int64) (sig *models.Signal, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.GetSignal: %w", err)
		}
	}()

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctxTx, signalColumns+` WHERE id = $1`, id)
		got, scanErr := scanSignal(row)
		if scanErr != nil {
			return scanErr
		}
		sig = got
		return nil
	})
	return sig, err
}

// SignalHistory — последние сигналы, свежие первыми.
func (s *Store) SignalHistory(ctx context.Context, limit int) (sigs []*models.Signal, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.SignalHistory: %w", err)
		}
	}()

	if limit <= 0 {
		limit = 10
	}
	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, qErr := tx.Query(ctxTx, signalColumns+` ORDER BY created_at DESC LIMIT $1`, limit)
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

// PendingSignals — истёкшие, но ещё не разрешённые. Вход для внешнего резолвера.
func (s *Store) PendingSignals(ctx context.Context, now time.Time) (sigs []*models.Signal, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.PendingSignals: %w", err)
		}
	}()

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, qErr := tx.Query(ctxTx,
			signalColumns+` WHERE success IS NULL AND expiry_time <= $1 ORDER BY expiry_time`, now)
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

// ResolveSignal выставляет исход ровно один раз и только после экспирации.
// Повторный вызов или вызов до expiry_time не меняет ничего и возвращает ошибку.
func (s *Store) ResolveSignal(ctx context.Context, id int64, success bool, actualResult string, profitLoss float64) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.ResolveSignal: %w", err)
		}
	}()

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		tag, execErr := tx.Exec(ctxTx, `
			UPDATE signals
			SET success = $2, actual_result = $3, profit_loss = $4
			WHERE id = $1 AND success IS NULL AND expiry_time <= now()`,
			id, success, actualResult, profitLoss,
		)
		if execErr != nil {
			return execErr
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("signal %d not resolvable (unknown, already resolved or not expired)", id)
		}
		if !success {
			return nil
		}
		// победный исход зачисляем всем получателям
		_, execErr = tx.Exec(ctxTx, `
			UPDATE users SET successful_signals = successful_signals + 1
			WHERE user_id IN (SELECT user_id FROM user_signals WHERE signal_id = $1)`, id)
		return execErr
	})
}

const signalColumns = `
	SELECT id, pair, direction, expiry_time, confidence, price,
	       COALESCE(stop_loss, 0), COALESCE(take_profit, 0),
	       signal_type, strategy, created_at, success,
	       COALESCE(actual_result, ''), profit_loss
	FROM signals`

func scanSignal(row rowScanner) (*models.Signal, error) {
	var sig models.Signal
	err := row.Scan(
		&sig.ID, &sig.Pair, &sig.Direction, &sig.ExpiryTime, &sig.Confidence, &sig.Price,
		&sig.StopLoss, &sig.TakeProfit, &sig.SignalType, &sig.Strategy, &sig.CreatedAt,
		&sig.Success, &sig.ActualResult, &sig.ProfitLoss,
	)
	if err != nil {
		return nil, err
	}
	return &sig, nil
}
