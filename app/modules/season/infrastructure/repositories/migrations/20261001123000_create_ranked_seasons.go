package seasonmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating ranked_seasons and ranked_user_rewards tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS ranked_seasons (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					start_date TIMESTAMPTZ NOT NULL,
					end_date TIMESTAMPTZ NOT NULL,
					ended BOOLEAN NOT NULL DEFAULT FALSE,
					rewards JSONB NOT NULL DEFAULT '{}',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT ranked_seasons_dates CHECK (end_date > start_date)
				);
				CREATE INDEX IF NOT EXISTS idx_ranked_seasons_open ON ranked_seasons(start_date) WHERE ended = FALSE;
			`); err != nil {
				return fmt.Errorf("failed to create ranked_seasons table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS ranked_user_rewards (
					user_id TEXT NOT NULL,
					season_id TEXT NOT NULL REFERENCES ranked_seasons(id) ON DELETE CASCADE,
					division TEXT NOT NULL,
					ranked_lp INTEGER NOT NULL,
					claimed BOOLEAN NOT NULL DEFAULT FALSE,
					claimed_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					PRIMARY KEY (user_id, season_id)
				);
				CREATE INDEX IF NOT EXISTS idx_ranked_user_rewards_unclaimed ON ranked_user_rewards(user_id) WHERE claimed = FALSE;
			`); err != nil {
				return fmt.Errorf("failed to create ranked_user_rewards table: %w", err)
			}

			fmt.Println("Season tables created successfully!")
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping season tables...")
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS ranked_user_rewards; DROP TABLE IF EXISTS ranked_seasons;`); err != nil {
			return fmt.Errorf("failed to drop season tables: %w", err)
		}
		return nil
	})
}
