package tournamentdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Impl implements Repository with bun.
type Impl struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) AcquireTournamentLock(ctx context.Context, db bun.IDB, id string) error {
	db = r.resolveDB(db)
	if _, err := db.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", "tournament:"+id).Exec(ctx); err != nil {
		return fmt.Errorf("tournament.AcquireTournamentLock: %w", err)
	}
	return nil
}

func (r *Impl) GetTournament(ctx context.Context, db bun.IDB, id string) (*Tournament, error) {
	db = r.resolveDB(db)
	t := new(Tournament)
	if err := db.NewSelect().Model(t).Where("t.id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("tournament.GetTournament: %w", err)
	}
	return t, nil
}

func (r *Impl) InsertTournament(ctx context.Context, db bun.IDB, t *Tournament) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(t).Exec(ctx); err != nil {
		return fmt.Errorf("tournament.InsertTournament: %w", err)
	}
	return nil
}

func (r *Impl) UpdateProgress(ctx context.Context, db bun.IDB, t *Tournament) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model(t).
		Column("status", "round", "round_started_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tournament.UpdateProgress: %w", err)
	}
	return expectRows(res, "tournament.UpdateProgress")
}

func (r *Impl) DeleteTournament(ctx context.Context, db bun.IDB, id string) error {
	db = r.resolveDB(db)
	if _, err := db.NewDelete().Model((*Match)(nil)).Where("tournament_id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("tournament.DeleteTournament: %w", err)
	}
	res, err := db.NewDelete().Model((*Tournament)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("tournament.DeleteTournament: %w", err)
	}
	return expectRows(res, "tournament.DeleteTournament")
}

func (r *Impl) ListLiveIDs(ctx context.Context, db bun.IDB) ([]string, error) {
	db = r.resolveDB(db)
	var ids []string
	if err := db.NewSelect().Model((*Tournament)(nil)).Column("id").Order("started_at ASC").Scan(ctx, &ids); err != nil {
		return nil, fmt.Errorf("tournament.ListLiveIDs: %w", err)
	}
	return ids, nil
}

func (r *Impl) ListMatches(ctx context.Context, db bun.IDB, tournamentID string) ([]*Match, error) {
	db = r.resolveDB(db)
	var matches []*Match
	err := db.NewSelect().
		Model(&matches).
		Where("tm.tournament_id = ?", tournamentID).
		Order("tm.round ASC", "tm.match ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tournament.ListMatches: %w", err)
	}
	return matches, nil
}

func (r *Impl) GetMatch(ctx context.Context, db bun.IDB, tournamentID string, matchID uuid.UUID) (*Match, error) {
	db = r.resolveDB(db)
	m := new(Match)
	err := db.NewSelect().
		Model(m).
		Where("tm.id = ?", matchID).
		Where("tm.tournament_id = ?", tournamentID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("tournament.GetMatch: %w", err)
	}
	return m, nil
}

func (r *Impl) GetMatchByBattle(ctx context.Context, db bun.IDB, battleID string) (*Match, error) {
	db = r.resolveDB(db)
	m := new(Match)
	if err := db.NewSelect().Model(m).Where("tm.battle_id = ?", battleID).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("tournament.GetMatchByBattle: %w", err)
	}
	return m, nil
}

func (r *Impl) InsertMatches(ctx context.Context, db bun.IDB, matches []*Match) error {
	if len(matches) == 0 {
		return nil
	}
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(&matches).Exec(ctx); err != nil {
		return fmt.Errorf("tournament.InsertMatches: %w", err)
	}
	return nil
}

func (r *Impl) UpdateMatch(ctx context.Context, db bun.IDB, m *Match, columns ...string) error {
	db = r.resolveDB(db)
	q := db.NewUpdate().Model(m).WherePK()
	if len(columns) > 0 {
		q = q.Column(columns...)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("tournament.UpdateMatch: %w", err)
	}
	return expectRows(res, "tournament.UpdateMatch")
}

func (r *Impl) InsertRecord(ctx context.Context, db bun.IDB, rec *Record) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return fmt.Errorf("tournament.InsertRecord: %w", err)
	}
	return nil
}

func (r *Impl) ListRecords(ctx context.Context, db bun.IDB, limit int) ([]*Record, error) {
	db = r.resolveDB(db)
	var recs []*Record
	q := db.NewSelect().Model(&recs).Order("tr.completed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tournament.ListRecords: %w", err)
	}
	return recs, nil
}

func expectRows(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
