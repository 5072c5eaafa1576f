package tournamentmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating tournament tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS tournaments (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					image TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					type TEXT NOT NULL CHECK (type IN ('INDIVIDUAL', 'CLAN')),
					clan_id TEXT,
					rewards JSONB NOT NULL DEFAULT '{}',
					status TEXT NOT NULL CHECK (status IN ('OPEN', 'IN_PROGRESS', 'COMPLETED')),
					round INTEGER NOT NULL DEFAULT 1,
					round_started_at TIMESTAMPTZ,
					started_at TIMESTAMPTZ NOT NULL,
					created_by TEXT NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create tournaments table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS tournament_matches (
					id UUID PRIMARY KEY,
					tournament_id TEXT NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
					round INTEGER NOT NULL,
					match INTEGER NOT NULL,
					user_id1 TEXT,
					user_id2 TEXT,
					winner_id TEXT,
					battle_id TEXT,
					state TEXT NOT NULL DEFAULT 'WAITING' CHECK (state IN ('WAITING', 'PLAYED', 'NO_SHOW')),
					started_at TIMESTAMPTZ,
					check_in1_at TIMESTAMPTZ,
					check_in2_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE (tournament_id, round, match),
					CONSTRAINT tournament_matches_winner_seated
						CHECK (winner_id IS NULL OR winner_id = user_id1 OR winner_id = user_id2)
				);
				CREATE INDEX IF NOT EXISTS idx_tournament_matches_battle ON tournament_matches(battle_id) WHERE battle_id IS NOT NULL;
			`); err != nil {
				return fmt.Errorf("failed to create tournament_matches table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS tournament_records (
					id UUID PRIMARY KEY,
					tournament_id TEXT NOT NULL,
					name TEXT NOT NULL,
					image TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					type TEXT NOT NULL,
					rewards JSONB NOT NULL DEFAULT '{}',
					winner_id TEXT,
					rounds INTEGER NOT NULL,
					participants TEXT[] NOT NULL DEFAULT '{}',
					started_at TIMESTAMPTZ NOT NULL,
					completed_at TIMESTAMPTZ NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_tournament_records_completed ON tournament_records(completed_at DESC);
			`); err != nil {
				return fmt.Errorf("failed to create tournament_records table: %w", err)
			}

			fmt.Println("Tournament tables created successfully!")
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping tournament tables...")
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS tournament_matches; DROP TABLE IF EXISTS tournaments; DROP TABLE IF EXISTS tournament_records;`); err != nil {
			return fmt.Errorf("failed to drop tournament tables: %w", err)
		}
		return nil
	})
}
