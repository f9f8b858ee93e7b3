package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

type migration struct {
	version     int
	description string
	statements  []string
	// destructive migrations drop or rewrite existing rows and are logged
	// loudly before they run.
	destructive bool
}

// Migrations run in order inside one transaction each and are recorded in
// schema_migrations. Existing rows survive every non-destructive step.
var migrations = []migration{
	{
		version:     1,
		description: "base schema",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS products (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				category TEXT NOT NULL DEFAULT '',
				unit TEXT NOT NULL DEFAULT '',
				buy_price_cents BIGINT NOT NULL,
				sell_price_cents BIGINT NOT NULL,
				stock INT NOT NULL CHECK (stock >= 0),
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS customers (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				phone TEXT NOT NULL DEFAULT '',
				address TEXT NOT NULL DEFAULT '',
				debt_cents BIGINT NOT NULL CHECK (debt_cents >= 0),
				last_payment_date TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS sales (
				id TEXT PRIMARY KEY,
				product_id TEXT NOT NULL,
				product_name TEXT NOT NULL,
				buy_price_cents BIGINT NOT NULL,
				sell_price_cents BIGINT NOT NULL,
				quantity INT NOT NULL CHECK (quantity > 0),
				total_cents BIGINT NOT NULL,
				profit_cents BIGINT NOT NULL,
				customer_id TEXT,
				staff_id TEXT,
				due_date DATE,
				date TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_sales_date ON sales (date)`,
			`CREATE INDEX IF NOT EXISTS idx_sales_due_date ON sales (due_date) WHERE due_date IS NOT NULL`,
			`CREATE TABLE IF NOT EXISTS payments (
				id TEXT PRIMARY KEY,
				customer_id TEXT NOT NULL,
				amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
				date TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS expenses (
				id TEXT PRIMARY KEY,
				description TEXT NOT NULL,
				category TEXT NOT NULL DEFAULT '',
				amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
				date TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS inventory_expenses (
				id TEXT PRIMARY KEY,
				description TEXT NOT NULL,
				supplier_id TEXT,
				amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
				date TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS staff (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				phone TEXT NOT NULL DEFAULT '',
				role TEXT NOT NULL DEFAULT '',
				salary_cents BIGINT NOT NULL DEFAULT 0,
				active BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS suppliers (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				phone TEXT NOT NULL DEFAULT '',
				address TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS price_history (
				id TEXT PRIMARY KEY,
				product_id TEXT NOT NULL,
				buy_price_cents BIGINT NOT NULL,
				sell_price_cents BIGINT NOT NULL,
				date TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_price_history_product ON price_history (product_id, date DESC)`,
			`CREATE TABLE IF NOT EXISTS app_markers (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS users (
				username TEXT PRIMARY KEY,
				password TEXT NOT NULL,
				role TEXT NOT NULL,
				active BOOLEAN NOT NULL DEFAULT true,
				created_at TIMESTAMPTZ NOT NULL
			)`,
		},
	},
	{
		version:     2,
		description: "market price reference feed",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS market_prices (
				id TEXT PRIMARY KEY,
				item_name TEXT NOT NULL,
				price_cents BIGINT NOT NULL,
				unit TEXT NOT NULL DEFAULT '',
				market TEXT NOT NULL DEFAULT '',
				fetched_at TIMESTAMPTZ NOT NULL
			)`,
		},
	},
	{
		version:     3,
		description: "reset market price feed for new row format",
		statements: []string{
			`DELETE FROM market_prices`,
		},
		destructive: true,
	},
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := map[int]bool{}
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			_ = rows.Close()
			return err
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if m.destructive {
			log.Printf("[postgres] migration %d (%s) is destructive: existing rows will be dropped", m.version, m.description)
		}

		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
		if err != nil {
			return err
		}
		for _, stmt := range m.statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d: %w", m.version, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO schema_migrations (version, description) VALUES ($1, $2)
		`, m.version, m.description); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		log.Printf("[postgres] applied migration %d: %s", m.version, m.description)
	}
	return nil
}
