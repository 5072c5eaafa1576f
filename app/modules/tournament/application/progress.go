package tournamentservice

import (
	"context"
	"errors"
	"time"

	tournamentdomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/domain"
	tournamentdb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/infrastructure/repositories"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/eventbus"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// effects collects what must happen after the transaction commits.
type effects struct {
	updates   []tournamentdomain.Updated
	completed *tournamentdomain.Completed
	deadlines map[string]time.Time
}

func (fx *effects) updated(t *tournamentdb.Tournament, at time.Time) {
	fx.updates = append(fx.updates, tournamentdomain.Updated{
		TournamentID: t.ID,
		Status:       t.Status,
		Round:        t.Round,
		At:           at,
	})
}

func (fx *effects) deadline(id string, at time.Time) {
	if fx.deadlines == nil {
		fx.deadlines = make(map[string]time.Time)
	}
	fx.deadlines[id] = at
}

// flush publishes events and schedules deadlines. Failures are logged; the
// next read or deadline job repeats the evaluation.
func (s *TournamentService) flush(ctx context.Context, fx *effects) {
	for id, at := range fx.deadlines {
		if s.scheduler == nil {
			break
		}
		if err := s.scheduler.ScheduleDeadline(ctx, id, at); err != nil {
			s.logger.WarnContext(ctx, "Failed to schedule tournament deadline",
				attr.ExtractCorrelationID(ctx),
				attr.String("tournament_id", id),
				attr.Time("at", at),
				attr.Error(err),
			)
		}
	}
	if s.publisher == nil {
		return
	}
	for _, u := range fx.updates {
		if err := eventbus.PublishJSON(ctx, s.publisher, tournamentdomain.UpdatedTopic, u); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish tournament update", attr.String("tournament_id", u.TournamentID), attr.Error(err))
		}
	}
	if fx.completed != nil {
		if err := eventbus.PublishJSON(ctx, s.publisher, tournamentdomain.CompletedTopic, fx.completed); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish tournament completion", attr.String("tournament_id", fx.completed.TournamentID), attr.Error(err))
		}
	}
}

func roundMatches(matches []*tournamentdb.Match, round int) []*tournamentdb.Match {
	var out []*tournamentdb.Match
	for _, m := range matches {
		if m.Round == round {
			out = append(out, m)
		}
	}
	return out
}

func brackets(matches []*tournamentdb.Match) []tournamentdomain.Match {
	out := make([]tournamentdomain.Match, len(matches))
	for i, m := range matches {
		out[i] = m.Bracket()
	}
	return out
}

// participants lists every user who appeared in any match, first seen first.
func participants(matches []*tournamentdb.Match) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, m := range matches {
		for _, id := range m.Participants() {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// state is a tournament and its matches as loaded under the lock. t is nil
// once archived.
type state struct {
	t       *tournamentdb.Tournament
	matches []*tournamentdb.Match
	record  *tournamentdb.Record
}

// load locks the tournament and reads it. A missing tournament returns a nil
// state.
func (s *TournamentService) load(ctx context.Context, db bun.IDB, id string) (*state, error) {
	if err := s.repo.AcquireTournamentLock(ctx, db, id); err != nil {
		return nil, err
	}
	t, err := s.repo.GetTournament(ctx, db, id)
	if errors.Is(err, tournamentdb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	matches, err := s.repo.ListMatches(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return &state{t: t, matches: matches}, nil
}

// progress applies every transition that is due: the lazy start, then at
// most one round advancement or the completion.
func (s *TournamentService) progress(ctx context.Context, db bun.IDB, st *state, fx *effects) error {
	t := st.t
	now := s.now().UTC()

	if t.Status == tournamentdomain.StatusOpen && !now.Before(t.StartedAt) {
		t.Status = tournamentdomain.StatusInProgress
		t.RoundStartedAt = &now
		if err := s.repo.UpdateProgress(ctx, db, t); err != nil {
			return err
		}
		fx.updated(t, now)
		fx.deadline(t.ID, now.Add(s.roundDuration))
	}
	if t.Status != tournamentdomain.StatusInProgress {
		return nil
	}

	current := roundMatches(st.matches, t.Round)
	roundStart := t.StartedAt
	if t.RoundStartedAt != nil {
		roundStart = *t.RoundStartedAt
	}
	if !tournamentdomain.RoundOver(now, roundStart, s.roundDuration, brackets(current)) {
		return nil
	}

	if len(current) > 1 {
		pairs := tournamentdomain.PlanNextRound(brackets(current), s.flip)
		if len(pairs) > 0 {
			return s.advance(ctx, db, st, pairs, now, fx)
		}
	}
	return s.complete(ctx, db, st, current, now, fx)
}

func (s *TournamentService) advance(ctx context.Context, db bun.IDB, st *state, pairs []tournamentdomain.Pair, now time.Time, fx *effects) error {
	t := st.t
	next := make([]*tournamentdb.Match, 0, len(pairs))
	for i, p := range pairs {
		m := &tournamentdb.Match{
			ID:           uuid.New(),
			TournamentID: t.ID,
			Round:        t.Round + 1,
			Match:        i + 1,
			UserID1:      optional(p.UserID1),
			UserID2:      optional(p.UserID2),
			State:        tournamentdomain.MatchWaiting,
			CreatedAt:    now,
		}
		next = append(next, m)
	}
	if err := s.repo.InsertMatches(ctx, db, next); err != nil {
		return err
	}

	t.Round++
	t.RoundStartedAt = &now
	if err := s.repo.UpdateProgress(ctx, db, t); err != nil {
		return err
	}
	st.matches = append(st.matches, next...)

	s.logger.InfoContext(ctx, "Tournament round advanced",
		attr.ExtractCorrelationID(ctx),
		attr.String("tournament_id", t.ID),
		attr.Int("round", t.Round),
		attr.Int("matches", len(next)),
	)
	fx.updated(t, now)
	fx.deadline(t.ID, now.Add(s.roundDuration))
	return nil
}

// complete pays the winner, archives the tournament and deletes it.
func (s *TournamentService) complete(ctx context.Context, db bun.IDB, st *state, final []*tournamentdb.Match, now time.Time, fx *effects) error {
	t := st.t
	winner := ""
	if len(final) == 1 {
		winner = tournamentdomain.ResolveWinner(final[0].Bracket(), s.flip)
	}

	if winner != "" && !t.Rewards.IsEmpty() {
		if err := s.profiles.ApplyRewardBundle(ctx, db, winner, t.Rewards); err != nil {
			return err
		}
	}

	players := participants(st.matches)
	rec := &tournamentdb.Record{
		ID:           uuid.New(),
		TournamentID: t.ID,
		Name:         t.Name,
		Image:        t.Image,
		Description:  t.Description,
		Type:         t.Type,
		Rewards:      t.Rewards,
		WinnerID:     optional(winner),
		Rounds:       t.Round,
		Participants: players,
		StartedAt:    t.StartedAt,
		CompletedAt:  now,
	}
	if err := s.repo.InsertRecord(ctx, db, rec); err != nil {
		return err
	}
	if err := s.repo.DeleteTournament(ctx, db, t.ID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Tournament completed",
		attr.ExtractCorrelationID(ctx),
		attr.String("tournament_id", t.ID),
		attr.String("winner_id", winner),
		attr.Int("participants", len(players)),
	)
	fx.completed = &tournamentdomain.Completed{
		TournamentID: t.ID,
		RecordID:     rec.ID.String(),
		Name:         t.Name,
		WinnerID:     winner,
		Rounds:       t.Round,
		Participants: players,
	}
	st.t = nil
	st.matches = nil
	st.record = rec
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Get evaluates the tournament and returns its view. Concurrent reads of the
// same tournament share one evaluation.
func (s *TournamentService) Get(ctx context.Context, id string) (*View, error) {
	v, err, _ := s.reads.Do(id, func() (any, error) {
		return s.get(context.WithoutCancel(ctx), id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*View), nil
}

func (s *TournamentService) get(ctx context.Context, id string) (*View, error) {
	st, err := unwrap(withTelemetry(s, ctx, "GetTournament", id, func(ctx context.Context) (results.OperationResult[*state, error], error) {
		fx := &effects{}
		result, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*state, error], error) {
			st, err := s.load(ctx, db, id)
			if err != nil || st == nil {
				return results.SuccessResult[*state, error](st), err
			}
			if err := s.progress(ctx, db, st, fx); err != nil {
				return results.OperationResult[*state, error]{}, err
			}
			return results.SuccessResult[*state, error](st), nil
		})
		if err == nil {
			s.flush(ctx, fx)
		}
		return result, err
	}))
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, nil
	}
	if st.t == nil {
		return &View{Matches: []*tournamentdb.Match{}, Players: map[string]string{}, Record: st.record}, nil
	}
	if st.matches == nil {
		st.matches = []*tournamentdb.Match{}
	}
	return &View{Tournament: st.t, Matches: st.matches, Players: s.playerNames(ctx, st.matches)}, nil
}

// Advance evaluates the tournament without building a view. Deadline jobs
// call it.
func (s *TournamentService) Advance(ctx context.Context, id string) error {
	_, err := s.Get(ctx, id)
	return err
}

// AdvanceAll evaluates every live tournament and returns how many failed.
func (s *TournamentService) AdvanceAll(ctx context.Context) (int, error) {
	ids, err := s.repo.ListLiveIDs(ctx, nil)
	if err != nil {
		return 0, err
	}
	failed := 0
	for _, id := range ids {
		if err := s.Advance(ctx, id); err != nil {
			failed++
		}
	}
	return failed, nil
}

func (s *TournamentService) playerNames(ctx context.Context, matches []*tournamentdb.Match) map[string]string {
	names := map[string]string{}
	ids := participants(matches)
	if len(ids) == 0 {
		return names
	}
	profiles, err := s.profiles.GetUsers(ctx, nil, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load player names", attr.Error(err))
		return names
	}
	for _, p := range profiles {
		names[p.UserID] = p.Username
	}
	return names
}
