package tournamentintegrationtests

import (
	"context"
	"sync"
	"testing"
	"time"

	battledomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle/domain"
	"github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle/infrastructure/natsclient"
	profiledb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/infrastructure/repositories"
	tournamentservice "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/application"
	tournamentdomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/domain"
	tournamentdb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/infrastructure/repositories"
	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/identity"
	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/rewards"
	"github.com/Black-And-White-Club/shinobi-ranked/integration_tests/testutils"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/jwt"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/metrics"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func setup(t *testing.T) (*testutils.TestEnvironment, *tournamentservice.TournamentService, *testutils.BattleResponder, *clock) {
	t.Helper()
	env := testutils.GetTestEnv(t)
	responder := testutils.StartBattleResponder(t, env.NatsConn)
	tracer := noop.NewTracerProvider().Tracer("integration")

	clk := &clock{now: time.Now().UTC().Truncate(time.Second)}
	svc := tournamentservice.NewTournamentService(
		tournamentdb.NewRepository(env.DB),
		profiledb.NewRepository(env.DB),
		natsclient.NewClient(env.NatsConn, 2*time.Second, env.Logger, tracer),
		env.Bus,
		env.Logger,
		metrics.NewNoop(),
		tracer,
		env.DB,
		tournamentservice.WithClock(clk.Now),
		tournamentservice.WithCoinFlip(func() bool { return true }),
	)
	return env, svc, responder, clk
}

func TestBracketRunsToCompletion(t *testing.T) {
	env, svc, responder, clk := setup(t)
	ctx := context.Background()

	players := []string{"kakashi", "guy", "asuma", "kurenai"}
	for _, id := range players {
		testutils.InsertProfile(t, env.DB, id, 1000, nil)
	}

	prize := rewards.Bundle{Money: 5000}
	created, err := svc.Create(ctx, identity.Actor{UserID: "hokage", Role: jwt.RoleAdmin}, tournamentdomain.Draft{
		Name:     "Chunin Finals",
		Type:     tournamentdomain.TypeIndividual,
		Rewards:  prize,
		StartsAt: clk.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)

	for _, id := range players {
		_, err := svc.Join(ctx, id, created.ID)
		require.NoError(t, err, id)
	}

	clk.Advance(time.Hour + time.Minute)
	view, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, tournamentdomain.StatusInProgress, view.Tournament.Status)
	require.Len(t, view.Matches, 2)
	assert.Len(t, view.Players, 4)

	play := func(round int) {
		view, err := svc.Get(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, view)
		for _, m := range view.Matches {
			if m.Round != round || m.WinnerID != nil {
				continue
			}
			joined, err := svc.JoinMatch(ctx, *m.UserID1, created.ID, m.ID)
			require.NoError(t, err)
			require.False(t, joined.Forfeit)
			require.NotEmpty(t, joined.BattleID)

			ok, err := svc.RecordBattleResult(ctx, joined.BattleID, *m.UserID1)
			require.NoError(t, err)
			require.True(t, ok)
		}
	}

	play(1)
	view, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, 2, view.Tournament.Round)

	play(2)
	view, err = svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, view)

	records, err := svc.ListRecords(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := records[0]
	require.NotNil(t, rec.WinnerID)
	assert.Equal(t, created.ID, rec.TournamentID)
	assert.Equal(t, 2, rec.Rounds)
	assert.ElementsMatch(t, players, rec.Participants)

	winner := testutils.GetProfile(t, env.DB, *rec.WinnerID)
	assert.Equal(t, int64(5000), winner.Money)

	for _, req := range responder.Requests() {
		assert.Equal(t, battledomain.KindTournament, req.Kind)
	}
	assert.Len(t, responder.Requests(), 3)
}

func TestJoinRejectsDuplicateSeat(t *testing.T) {
	env, svc, _, clk := setup(t)
	ctx := context.Background()
	testutils.InsertProfile(t, env.DB, "naruto", 1200, nil)

	created, err := svc.Create(ctx, identity.Actor{UserID: "hokage", Role: jwt.RoleAdmin}, tournamentdomain.Draft{
		Name:     "Academy Cup",
		Type:     tournamentdomain.TypeIndividual,
		StartsAt: clk.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.NoError(t, err)

	_, err = svc.Join(ctx, "naruto", created.ID)
	require.NoError(t, err)

	_, err = svc.Join(ctx, "naruto", created.ID)
	require.ErrorIs(t, err, tournamentservice.ErrAlreadyJoined)

	_, err = svc.Join(ctx, "ghost", created.ID)
	require.ErrorIs(t, err, tournamentservice.ErrUserNotFound)
}

func TestExportRecordsFromDatabase(t *testing.T) {
	env, svc, _, _ := setup(t)
	ctx := context.Background()

	winner := "sakura"
	_, err := env.DB.NewInsert().Model(&tournamentdb.Record{
		ID:           uuid.New(),
		TournamentID: "spring-cup-1",
		Name:         "Spring Cup",
		Type:         tournamentdomain.TypeIndividual,
		WinnerID:     &winner,
		Rounds:       3,
		Participants: []string{"sakura", "ino"},
		StartedAt:    time.Now().Add(-2 * time.Hour),
		CompletedAt:  time.Now(),
	}).Exec(ctx)
	require.NoError(t, err)

	data, err := svc.ExportRecords(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
