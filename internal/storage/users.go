package storage

import (
	"context"
	"fmt"
	"time"

	"binary_bot/internal/models"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
)

// Upsert создаёт пользователя при первом обращении либо обновляет
// идентификационные поля и last_active.
func (s *Store) Upsert(ctx context.Context, user *models.User) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.Upsert: %w", err)
		}
	}()

	if user.RiskLevel == "" {
		user.RiskLevel = models.RiskMedium
	}
	if user.LanguageCode == "" {
		user.LanguageCode = "en"
	}
	var pairs []byte
	pairs, err = sonic.Marshal(user.PreferredPairs)
	if err != nil {
		return err
	}

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `
			INSERT INTO users (user_id, username, first_name, last_name, risk_level,
			                   preferred_pairs, notification_enabled, language_code)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)
			ON CONFLICT (user_id) DO UPDATE SET
				username    = EXCLUDED.username,
				first_name  = EXCLUDED.first_name,
				last_name   = EXCLUDED.last_name,
				last_active = now()`,
			user.UserID, user.Username, user.FirstName, user.LastName,
			user.RiskLevel, pairs, user.LanguageCode,
		)
		return err
	})
}

func (s *Store) GetUser(ctx context.Context, userID int64) (user *models.User, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.GetUser: %w", err)
		}
	}()

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctxTx, `
			SELECT user_id, username, first_name, last_name, risk_level, preferred_pairs,
			       notification_enabled, is_premium, premium_until, joined_date,
			       total_signals, successful_signals, last_active, language_code
			FROM users WHERE user_id = $1`, userID)
		u, scanErr := scanUser(row)
		if scanErr != nil {
			return scanErr
		}
		user = u
		return nil
	})
	return user, err
}

// Recipients — кандидаты на рассылку: все, у кого включены уведомления.
// Фильтры по подписке/кулдауну/премиуму — дело Eligibility Gate.
func (s *Store) Recipients(ctx context.Context) (users []*models.User, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.Recipients: %w", err)
		}
	}()

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, qErr := tx.Query(ctxTx, `
			SELECT user_id, username, first_name, last_name, risk_level, preferred_pairs,
			       notification_enabled, is_premium, premium_until, joined_date,
			       total_signals, successful_signals, last_active, language_code
			FROM users WHERE notification_enabled ORDER BY user_id`)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()
		for rows.Next() {
			u, scanErr := scanUser(rows)
			if scanErr != nil {
				return scanErr
			}
			users = append(users, u)
		}
		return rows.Err()
	})
	return users, err
}

func (s *Store) TouchLastActive(ctx context.Context, userID int64) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.TouchLastActive: %w", err)
		}
	}()
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx,
			`UPDATE users SET last_active = now() WHERE user_id = $1`, userID)
		return err
	})
}

// SetNotifications — мягкое отключение, строку не удаляем.
func (s *Store) SetNotifications(ctx context.Context, userID int64, enabled bool) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.SetNotifications: %w", err)
		}
	}()
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx,
			`UPDATE users SET notification_enabled = $2 WHERE user_id = $1`, userID, enabled)
		return err
	})
}

func (s *Store) GrantPremium(ctx context.Context, userID int64, until time.Time) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.GrantPremium: %w", err)
		}
	}()
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx,
			`UPDATE users SET is_premium = TRUE, premium_until = $2 WHERE user_id = $1`,
			userID, until)
		return err
	})
}

func (s *Store) SetPreferredPairs(ctx context.Context, userID int64, pairs []string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.SetPreferredPairs: %w", err)
		}
	}()
	data, err := sonic.Marshal(pairs)
	if err != nil {
		return err
	}
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx,
			`UPDATE users SET preferred_pairs = $2 WHERE user_id = $1`, userID, data)
		return err
	})
}

func (s *Store) SetRiskLevel(ctx context.Context, userID int64, level models.RiskLevel) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.SetRiskLevel: %w", err)
		}
	}()
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx,
			`UPDATE users SET risk_level = $2 WHERE user_id = $1`, userID, level)
		return err
	})
}

func (s *Store) Stats(ctx context.Context, userID int64) (stats *models.UserStats, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.Stats: %w", err)
		}
	}()

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		st := &models.UserStats{UserID: userID}
		row := tx.QueryRow(ctxTx,
			`SELECT total_signals, successful_signals FROM users WHERE user_id = $1`, userID)
		if scanErr := row.Scan(&st.TotalSignals, &st.SuccessfulSignals); scanErr != nil {
			return scanErr
		}
		if st.TotalSignals > 0 {
			st.WinRate = float64(st.SuccessfulSignals) / float64(st.TotalSignals)
		}
		stats = st
		return nil
	})
	return stats, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u     models.User
		pairs []byte
	)
	err := row.Scan(
		&u.UserID, &u.Username, &u.FirstName, &u.LastName, &u.RiskLevel, &pairs,
		&u.NotificationEnabled, &u.IsPremium, &u.PremiumUntil, &u.JoinedDate,
		&u.TotalSignals, &u.SuccessfulSignals, &u.LastActive, &u.LanguageCode,
	)
	if err != nil {
		return nil, err
	}
	if err := sonic.Unmarshal(pairs, &u.PreferredPairs); err != nil {
		return nil, err
	}
	return &u, nil
}
