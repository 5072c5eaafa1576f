package rankedqueuemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating ranked_queue and ranked_matches tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS ranked_queue (
					id UUID PRIMARY KEY,
					user_id TEXT NOT NULL UNIQUE,
					ranked_lp INTEGER NOT NULL,
					queue_start_time TIMESTAMPTZ NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_ranked_queue_start ON ranked_queue(queue_start_time);
			`); err != nil {
				return fmt.Errorf("failed to create ranked_queue table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS ranked_matches (
					battle_id TEXT PRIMARY KEY,
					user_id_1 TEXT NOT NULL,
					user_id_2 TEXT NOT NULL,
					lp_1 INTEGER NOT NULL,
					lp_2 INTEGER NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_ranked_matches_user_1 ON ranked_matches(user_id_1, created_at DESC);
				CREATE INDEX IF NOT EXISTS idx_ranked_matches_user_2 ON ranked_matches(user_id_2, created_at DESC);
			`); err != nil {
				return fmt.Errorf("failed to create ranked_matches table: %w", err)
			}

			fmt.Println("Ranked queue tables created successfully!")
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping ranked queue tables...")
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS ranked_matches; DROP TABLE IF EXISTS ranked_queue;`); err != nil {
			return fmt.Errorf("failed to drop ranked queue tables: %w", err)
		}
		return nil
	})
}
