package tournamentservice

import (
	"context"
	"errors"

	battledomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle/domain"
	profiledb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/infrastructure/repositories"
	tournamentdomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/domain"
	tournamentdb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/infrastructure/repositories"
	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/identity"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BattleBackground is the arena used for tournament fights.
const BattleBackground = "tournament-arena"

type (
	tournamentResult = results.OperationResult[*tournamentdb.Tournament, error]
	matchResult      = results.OperationResult[*tournamentdb.Match, error]
	joinMatchResult  = results.OperationResult[*JoinMatchResult, error]
	recordedResult   = results.OperationResult[bool, error]
)

func (s *TournamentService) Create(ctx context.Context, actor identity.Actor, draft tournamentdomain.Draft) (*tournamentdb.Tournament, error) {
	fx := &effects{}
	t, err := unwrap(withTelemetry(s, ctx, "CreateTournament", draft.Name, func(ctx context.Context) (tournamentResult, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (tournamentResult, error) {
			return s.createLogic(ctx, db, actor, draft, fx)
		})
	}))
	if err != nil {
		return nil, err
	}
	s.flush(ctx, fx)
	return t, nil
}

func (s *TournamentService) createLogic(ctx context.Context, db bun.IDB, actor identity.Actor, draft tournamentdomain.Draft, fx *effects) (tournamentResult, error) {
	if err := draft.Validate(); err != nil {
		return results.FailureResult[*tournamentdb.Tournament, error](err), nil
	}

	if !actor.CanManageContent() {
		if draft.Type != tournamentdomain.TypeClan {
			return results.FailureResult[*tournamentdb.Tournament, error](ErrPermissionDenied), nil
		}
		host, err := s.profiles.GetUser(ctx, db, actor.UserID)
		if errors.Is(err, profiledb.ErrNotFound) {
			return results.FailureResult[*tournamentdb.Tournament, error](ErrPermissionDenied), nil
		}
		if err != nil {
			return tournamentResult{}, err
		}
		if !host.InClan(draft.ClanID) {
			return results.FailureResult[*tournamentdb.Tournament, error](ErrPermissionDenied), nil
		}
	}

	now := s.now().UTC()
	startsAt, err := tournamentdomain.ParseStartsAt(draft.StartsAt, draft.Timezone, now)
	if err != nil {
		return results.FailureResult[*tournamentdb.Tournament, error](err), nil
	}

	t := &tournamentdb.Tournament{
		ID:          tournamentdomain.NewID(draft.Name),
		Name:        draft.Name,
		Image:       draft.Image,
		Description: draft.Description,
		Type:        draft.Type,
		ClanID:      optional(draft.ClanID),
		Rewards:     draft.Rewards,
		Status:      tournamentdomain.StatusOpen,
		Round:       1,
		StartedAt:   startsAt,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
	}
	if err := s.repo.InsertTournament(ctx, db, t); err != nil {
		return tournamentResult{}, err
	}

	s.logger.InfoContext(ctx, "Tournament created",
		attr.ExtractCorrelationID(ctx),
		attr.String("tournament_id", t.ID),
		attr.String("type", string(t.Type)),
		attr.Time("starts_at", startsAt),
	)
	fx.deadline(t.ID, startsAt)
	return results.SuccessResult[*tournamentdb.Tournament, error](t), nil
}

func (s *TournamentService) Join(ctx context.Context, userID, tournamentID string) (*tournamentdb.Match, error) {
	fx := &effects{}
	m, err := unwrap(withTelemetry(s, ctx, "JoinTournament", tournamentID, func(ctx context.Context) (matchResult, error) {
		result, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (matchResult, error) {
			return s.joinLogic(ctx, db, userID, tournamentID, fx)
		})
		if err == nil {
			s.flush(ctx, fx)
		}
		return result, err
	}))
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *TournamentService) joinLogic(ctx context.Context, db bun.IDB, userID, tournamentID string, fx *effects) (matchResult, error) {
	st, err := s.load(ctx, db, tournamentID)
	if err != nil {
		return matchResult{}, err
	}
	if st == nil {
		return results.FailureResult[*tournamentdb.Match, error](ErrTournamentNotFound), nil
	}
	if err := s.progress(ctx, db, st, fx); err != nil {
		return matchResult{}, err
	}
	if st.t == nil {
		return results.FailureResult[*tournamentdb.Match, error](ErrTournamentNotFound), nil
	}
	t := st.t
	if t.Status != tournamentdomain.StatusOpen {
		return results.FailureResult[*tournamentdb.Match, error](ErrTournamentStarted), nil
	}
	for _, m := range st.matches {
		if m.Bracket().Seat(userID) != 0 {
			return results.FailureResult[*tournamentdb.Match, error](ErrAlreadyJoined), nil
		}
	}

	user, err := s.profiles.GetUser(ctx, db, userID)
	if errors.Is(err, profiledb.ErrNotFound) {
		return results.FailureResult[*tournamentdb.Match, error](ErrUserNotFound), nil
	}
	if err != nil {
		return matchResult{}, err
	}
	if t.Type == tournamentdomain.TypeClan && (t.ClanID == nil || !user.InClan(*t.ClanID)) {
		return results.FailureResult[*tournamentdb.Match, error](ErrNotClanMember), nil
	}

	current := roundMatches(st.matches, t.Round)
	var seated *tournamentdb.Match
	if i, seat, ok := tournamentdomain.FirstFreeSeat(brackets(current)); ok {
		seated = current[i]
		column := "user_id1"
		if seat == 1 {
			seated.UserID1 = &userID
		} else {
			seated.UserID2 = &userID
			column = "user_id2"
		}
		if err := s.repo.UpdateMatch(ctx, db, seated, column); err != nil {
			return matchResult{}, err
		}
	} else {
		seated = &tournamentdb.Match{
			ID:           uuid.New(),
			TournamentID: t.ID,
			Round:        t.Round,
			Match:        len(current) + 1,
			UserID1:      &userID,
			State:        tournamentdomain.MatchWaiting,
			CreatedAt:    s.now().UTC(),
		}
		if err := s.repo.InsertMatches(ctx, db, []*tournamentdb.Match{seated}); err != nil {
			return matchResult{}, err
		}
	}

	s.logger.InfoContext(ctx, "User joined tournament",
		attr.ExtractCorrelationID(ctx),
		attr.UserID(userID),
		attr.String("tournament_id", t.ID),
		attr.Int("match", seated.Match),
	)
	fx.updated(t, s.now().UTC())
	return results.SuccessResult[*tournamentdb.Match, error](seated), nil
}

func (s *TournamentService) JoinMatch(ctx context.Context, userID, tournamentID string, matchID uuid.UUID) (*JoinMatchResult, error) {
	fx := &effects{}
	out, err := unwrap(withTelemetry(s, ctx, "JoinMatch", matchID.String(), func(ctx context.Context) (joinMatchResult, error) {
		result, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (joinMatchResult, error) {
			return s.joinMatchLogic(ctx, db, userID, tournamentID, matchID, fx)
		})
		if err == nil {
			s.flush(ctx, fx)
		}
		return result, err
	}))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *TournamentService) joinMatchLogic(ctx context.Context, db bun.IDB, userID, tournamentID string, matchID uuid.UUID, fx *effects) (joinMatchResult, error) {
	fail := func(err error) (joinMatchResult, error) {
		return results.FailureResult[*JoinMatchResult, error](err), nil
	}

	st, err := s.load(ctx, db, tournamentID)
	if err != nil {
		return joinMatchResult{}, err
	}
	if st == nil {
		return fail(ErrTournamentNotFound)
	}
	if err := s.progress(ctx, db, st, fx); err != nil {
		return joinMatchResult{}, err
	}
	if st.t == nil {
		return fail(ErrTournamentNotFound)
	}
	t := st.t
	if t.Status != tournamentdomain.StatusInProgress {
		return fail(ErrTournamentNotStarted)
	}

	var m *tournamentdb.Match
	for _, candidate := range st.matches {
		if candidate.ID == matchID {
			m = candidate
			break
		}
	}
	if m == nil {
		return fail(ErrMatchNotFound)
	}
	b := m.Bracket()
	seat := b.Seat(userID)
	switch {
	case seat == 0:
		return fail(ErrNotInMatch)
	case m.Round != t.Round:
		return fail(ErrNotCurrentRound)
	case b.WinnerID != "":
		return fail(ErrMatchDecided)
	case m.BattleID != nil:
		return fail(ErrBattleInProgress)
	case !b.Full():
		return fail(ErrNoOpponent)
	}

	now := s.now().UTC()
	columns := []string{"check_in1_at"}
	if seat == 1 {
		m.CheckIn1At = &now
	} else {
		m.CheckIn2At = &now
		columns = []string{"check_in2_at"}
	}

	players := []string{*m.UserID1, *m.UserID2}
	if err := s.profiles.PrepareForBattle(ctx, db, players); err != nil {
		return joinMatchResult{}, err
	}

	out := &JoinMatchResult{Match: m}
	res, err := s.battles.CreateBattle(ctx, battledomain.Request{
		ParticipantIDs: players,
		Background:     BattleBackground,
		Kind:           battledomain.KindTournament,
	})
	if err != nil || !res.Success {
		reason := res.Message
		if err != nil {
			reason = err.Error()
		}
		s.logger.WarnContext(ctx, "Tournament battle could not start, awarding the match to the caller",
			attr.ExtractCorrelationID(ctx),
			attr.UserID(userID),
			attr.String("tournament_id", t.ID),
			attr.String("match_id", m.ID.String()),
			attr.String("reason", reason),
		)
		m.WinnerID = &userID
		m.State = tournamentdomain.MatchNoShow
		columns = append(columns, "winner_id", "state")
		out.Forfeit = true
	} else {
		m.BattleID = &res.BattleID
		m.StartedAt = &now
		columns = append(columns, "battle_id", "started_at")
		out.BattleID = res.BattleID
	}

	if err := s.repo.UpdateMatch(ctx, db, m, columns...); err != nil {
		return joinMatchResult{}, err
	}
	fx.updated(t, now)
	return results.SuccessResult[*JoinMatchResult, error](out), nil
}

func (s *TournamentService) RecordBattleResult(ctx context.Context, battleID, winnerID string) (bool, error) {
	m, err := s.repo.GetMatchByBattle(ctx, nil, battleID)
	if errors.Is(err, tournamentdb.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	fx := &effects{}
	return unwrap(withTelemetry(s, ctx, "RecordBattleResult", battleID, func(ctx context.Context) (recordedResult, error) {
		result, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (recordedResult, error) {
			return s.recordLogic(ctx, db, m.TournamentID, m.ID, winnerID, fx)
		})
		if err == nil {
			s.flush(ctx, fx)
		}
		return result, err
	}))
}

func (s *TournamentService) recordLogic(ctx context.Context, db bun.IDB, tournamentID string, matchID uuid.UUID, winnerID string, fx *effects) (recordedResult, error) {
	st, err := s.load(ctx, db, tournamentID)
	if err != nil || st == nil {
		return results.SuccessResult[bool, error](false), err
	}

	var m *tournamentdb.Match
	for _, candidate := range st.matches {
		if candidate.ID == matchID {
			m = candidate
			break
		}
	}
	if m == nil || m.WinnerID != nil || m.Bracket().Seat(winnerID) == 0 {
		return results.SuccessResult[bool, error](false), nil
	}
	// A round that already advanced was settled without this result.
	if m.Round != st.t.Round {
		return results.SuccessResult[bool, error](false), nil
	}

	m.WinnerID = &winnerID
	m.State = tournamentdomain.MatchPlayed
	if err := s.repo.UpdateMatch(ctx, db, m, "winner_id", "state"); err != nil {
		return recordedResult{}, err
	}
	fx.updated(st.t, s.now().UTC())

	if err := s.progress(ctx, db, st, fx); err != nil {
		return recordedResult{}, err
	}
	return results.SuccessResult[bool, error](true), nil
}

func (s *TournamentService) ListRecords(ctx context.Context, limit int) ([]*tournamentdb.Record, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.repo.ListRecords(ctx, nil, limit)
}
