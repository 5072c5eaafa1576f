package loadoutmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating items, jutsus and ranked_loadouts tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS items (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					item_type TEXT NOT NULL,
					in_shop BOOLEAN NOT NULL DEFAULT FALSE
				);
				CREATE TABLE IF NOT EXISTS jutsus (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL
				);
			`); err != nil {
				return fmt.Errorf("failed to create catalog tables: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS ranked_loadouts (
					user_id TEXT PRIMARY KEY,
					jutsu_ids TEXT[] NOT NULL DEFAULT '{}',
					weapon_ids TEXT[] NOT NULL DEFAULT '{}',
					consumable_ids TEXT[] NOT NULL DEFAULT '{}',
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create ranked_loadouts table: %w", err)
			}

			fmt.Println("Loadout tables created successfully!")
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping loadout tables...")
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS ranked_loadouts; DROP TABLE IF EXISTS jutsus; DROP TABLE IF EXISTS items;`); err != nil {
			return fmt.Errorf("failed to drop loadout tables: %w", err)
		}
		return nil
	})
}
