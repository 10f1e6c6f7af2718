package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Dialect selects the few statements that differ between MySQL and the
// embedded SQLite engine used by tests.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

var tables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            CHAR(24)     NOT NULL PRIMARY KEY,
		name          VARCHAR(255) NOT NULL,
		email         VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		is_admin      BOOLEAN      NOT NULL DEFAULT FALSE,
		created_at    DATETIME     NOT NULL,
		updated_at    DATETIME     NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id                  CHAR(24)      NOT NULL PRIMARY KEY,
		user_id             CHAR(24)      NOT NULL,
		payment_method      VARCHAR(64)   NOT NULL,
		ship_address        VARCHAR(255)  NOT NULL,
		ship_city           VARCHAR(128)  NOT NULL,
		ship_postal_code    VARCHAR(32)   NOT NULL,
		ship_country        VARCHAR(64)   NOT NULL,
		items_price         DECIMAL(12,2) NOT NULL,
		tax_price           DECIMAL(12,2) NOT NULL,
		shipping_price      DECIMAL(12,2) NOT NULL,
		total_price         DECIMAL(12,2) NOT NULL,
		is_paid             BOOLEAN       NOT NULL DEFAULT FALSE,
		paid_at             DATETIME      NULL,
		payment_state       VARCHAR(32)   NOT NULL DEFAULT 'none',
		remote_order_id     VARCHAR(64)   NULL,
		payment_id          VARCHAR(64)   NULL,
		payment_status      VARCHAR(32)   NULL,
		payment_update_time VARCHAR(64)   NULL,
		payment_email       VARCHAR(255)  NULL,
		is_delivered        BOOLEAN       NOT NULL DEFAULT FALSE,
		delivered_at        DATETIME      NULL,
		created_at          DATETIME      NOT NULL,
		updated_at          DATETIME      NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id   CHAR(24)      NOT NULL,
		line_no    INT           NOT NULL,
		product_id CHAR(24)      NOT NULL,
		name       VARCHAR(255)  NOT NULL,
		quantity   INT           NOT NULL,
		unit_price DECIMAL(12,2) NOT NULL,
		image      VARCHAR(512)  NOT NULL DEFAULT '',
		PRIMARY KEY (order_id, line_no),
		FOREIGN KEY (order_id) REFERENCES orders(id)
	)`,
}

type index struct {
	table, name, columns string
}

var indexes = []index{
	{"orders", "idx_orders_user_created", "user_id, created_at"},
	{"orders", "idx_orders_payment_state", "payment_state"},
}

// Migrate creates the tables and indexes used by the SQL store. It is safe
// to run repeatedly.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	for _, stmt := range tables {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	for _, idx := range indexes {
		if err := createIndex(ctx, db, dialect, idx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

func createIndex(ctx context.Context, db *sql.DB, dialect Dialect, idx index) error {
	if dialect == SQLite {
		_, err := db.ExecContext(ctx, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", idx.name, idx.table, idx.columns))
		return err
	}

	// MySQL has no CREATE INDEX IF NOT EXISTS.
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.statistics
		WHERE table_schema = DATABASE() AND table_name = ? AND index_name = ?`,
		idx.table, idx.name).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = db.ExecContext(ctx, fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns))
	return err
}
