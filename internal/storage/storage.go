package storage

import (
	"context"
	"fmt"

	"binary_bot/pkg/db"

	"github.com/jackc/pgx/v5"
)

// ErrDuplicateDelivery — попытка записать вторую доставку одного сигнала
// одному пользователю; уникальность (user_id, signal_id) держит схема.
var ErrDuplicateDelivery = fmt.Errorf("delivery already recorded")

// Store — единственный владелец durable-состояния. Все остальные модули
// ходят в БД только через него.
type Store struct {
	db *db.PgTxManager
}

func New(manager *db.PgTxManager) *Store {
	return &Store{db: manager}
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    user_id              BIGINT PRIMARY KEY,
    username             TEXT NOT NULL DEFAULT '',
    first_name           TEXT NOT NULL DEFAULT '',
    last_name            TEXT NOT NULL DEFAULT '',
    risk_level           TEXT NOT NULL DEFAULT 'medium',
    preferred_pairs      JSONB NOT NULL DEFAULT '[]',
    notification_enabled BOOLEAN NOT NULL DEFAULT TRUE,
    is_premium           BOOLEAN NOT NULL DEFAULT FALSE,
    premium_until        TIMESTAMPTZ NULL,
    joined_date          TIMESTAMPTZ NOT NULL DEFAULT now(),
    total_signals        INTEGER NOT NULL DEFAULT 0,
    successful_signals   INTEGER NOT NULL DEFAULT 0,
    last_active          TIMESTAMPTZ NOT NULL DEFAULT now(),
    language_code        TEXT NOT NULL DEFAULT 'en'
);

CREATE TABLE IF NOT EXISTS signals (
    id            BIGSERIAL PRIMARY KEY,
    pair          TEXT NOT NULL,
    direction     TEXT NOT NULL,
    expiry_time   TIMESTAMPTZ NOT NULL,
    confidence    DOUBLE PRECISION NOT NULL,
    price         DOUBLE PRECISION NOT NULL,
    stop_loss     DOUBLE PRECISION NULL,
    take_profit   DOUBLE PRECISION NULL,
    signal_type   TEXT NOT NULL DEFAULT 'regular',
    strategy      TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    success       BOOLEAN NULL,
    actual_result TEXT NULL,
    profit_loss   DOUBLE PRECISION NULL
);

CREATE TABLE IF NOT EXISTS user_signals (
    user_id      BIGINT NOT NULL REFERENCES users (user_id),
    signal_id    BIGINT NOT NULL REFERENCES signals (id),
    received_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    action_taken TEXT NOT NULL DEFAULT 'viewed',
    result_noted BOOLEAN NOT NULL DEFAULT FALSE,
    PRIMARY KEY (user_id, signal_id)
);

CREATE TABLE IF NOT EXISTS channel_subs (
    user_id          BIGINT PRIMARY KEY REFERENCES users (user_id),
    channel_username TEXT NOT NULL,
    subscribed       BOOLEAN NOT NULL DEFAULT FALSE,
    last_checked     TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Bootstrap применяет схему. Идемпотентно.
func (s *Store) Bootstrap(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.Bootstrap: %w", err)
		}
	}()
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, schema)
		return err
	})
}
