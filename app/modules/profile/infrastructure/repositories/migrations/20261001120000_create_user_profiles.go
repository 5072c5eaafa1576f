package profilemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating user_profiles and user_items tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS user_profiles (
					user_id TEXT PRIMARY KEY,
					username TEXT NOT NULL,
					ranked_lp INTEGER NOT NULL DEFAULT 0,
					status TEXT NOT NULL DEFAULT 'AWAKE',
					clan_id TEXT,
					cur_health INTEGER NOT NULL DEFAULT 100,
					max_health INTEGER NOT NULL DEFAULT 100,
					money BIGINT NOT NULL DEFAULT 0,
					reputation BIGINT NOT NULL DEFAULT 0,
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT user_profiles_status_check
						CHECK (status IN ('AWAKE','QUEUED','BATTLE','HOSPITALIZED','ASLEEP'))
				);
				CREATE INDEX IF NOT EXISTS idx_user_profiles_status ON user_profiles(status);
				CREATE INDEX IF NOT EXISTS idx_user_profiles_ranked_lp ON user_profiles(ranked_lp) WHERE ranked_lp > 0;
			`); err != nil {
				return fmt.Errorf("failed to create user_profiles table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS user_items (
					user_id TEXT NOT NULL REFERENCES user_profiles(user_id) ON DELETE CASCADE,
					item_id TEXT NOT NULL,
					quantity INTEGER NOT NULL CHECK (quantity > 0),
					PRIMARY KEY (user_id, item_id)
				);
			`); err != nil {
				return fmt.Errorf("failed to create user_items table: %w", err)
			}

			fmt.Println("user_profiles and user_items created successfully!")
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping user_items and user_profiles tables...")
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS user_items; DROP TABLE IF EXISTS user_profiles;`); err != nil {
			return fmt.Errorf("failed to drop profile tables: %w", err)
		}
		return nil
	})
}
