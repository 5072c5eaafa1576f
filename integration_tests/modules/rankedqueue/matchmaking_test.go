package rankedqueueintegrationtests

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	battledomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle/domain"
	"github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle/infrastructure/natsclient"
	loadoutdb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/loadout/infrastructure/repositories"
	profiledomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/domain"
	profiledb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/infrastructure/repositories"
	rankedqueueservice "github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/application"
	rankedqueuedomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/domain"
	"github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/infrastructure/pollguard"
	rankedqueuedb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/infrastructure/repositories"
	"github.com/Black-And-White-Club/shinobi-ranked/integration_tests/testutils"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type responderFunc func(t *testing.T, conn *nats.Conn) *testutils.BattleResponder

func setup(t *testing.T) (*testutils.TestEnvironment, *rankedqueueservice.RankedQueueService, *testutils.BattleResponder) {
	t.Helper()
	return setupWith(t, testutils.StartBattleResponder)
}

func setupWith(t *testing.T, start responderFunc) (*testutils.TestEnvironment, *rankedqueueservice.RankedQueueService, *testutils.BattleResponder) {
	t.Helper()
	env := testutils.GetTestEnv(t)
	responder := start(t, env.NatsConn)
	tracer := noop.NewTracerProvider().Tracer("integration")

	svc := rankedqueueservice.NewRankedQueueService(
		rankedqueuedb.NewRepository(env.DB),
		profiledb.NewRepository(env.DB),
		loadoutdb.NewRepository(env.DB),
		natsclient.NewClient(env.NatsConn, 2*time.Second, env.Logger, tracer),
		env.Bus,
		pollguard.NewLocalGuard(time.Second),
		env.Logger,
		metrics.NewNoop(),
		tracer,
		env.DB,
	)
	return env, svc, responder
}

func seedFighter(t *testing.T, env *testutils.TestEnvironment, userID string, lp int) {
	t.Helper()
	testutils.InsertProfile(t, env.DB, userID, lp, nil)
	if _, err := loadoutdb.NewRepository(env.DB).EnsureLoadout(context.Background(), env.DB, userID); err != nil {
		t.Fatalf("ensure loadout %s: %v", userID, err)
	}
}

func TestEnqueuePairsCloseOpponents(t *testing.T) {
	env, svc, responder := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	found, err := env.Bus.Subscribe(ctx, rankedqueuedomain.MatchFoundTopic)
	require.NoError(t, err)

	seedFighter(t, env, "neji", 1500)
	seedFighter(t, env, "lee", 1520)

	first, err := svc.Enqueue(ctx, "neji")
	require.NoError(t, err)
	assert.False(t, first.Match.Matched)

	status, err := svc.Status(ctx, "neji")
	require.NoError(t, err)
	assert.True(t, status.InQueue)
	assert.Equal(t, 1, status.QueueCount)

	second, err := svc.Enqueue(ctx, "lee")
	require.NoError(t, err)
	require.True(t, second.Match.Matched)
	assert.ElementsMatch(t, []string{"neji", "lee"}, second.Match.UserIDs)

	for _, id := range []string{"neji", "lee"} {
		assert.Equal(t, profiledomain.StatusBattle, testutils.GetProfile(t, env.DB, id).Status)
	}

	requests := responder.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, battledomain.KindRankedPvP, requests[0].Kind)
	assert.Len(t, requests[0].ForcedLoadouts, 2)

	select {
	case msg := <-found:
		msg.Ack()
		var event rankedqueuedomain.MatchFound
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, second.Match.BattleID, event.BattleID)
	case <-ctx.Done():
		t.Fatal("match found event was not published")
	}
}

func TestLeaveQueueRestoresAwake(t *testing.T) {
	env, svc, responder := setup(t)
	ctx := context.Background()

	seedFighter(t, env, "shikamaru", 900)
	_, err := svc.Enqueue(ctx, "shikamaru")
	require.NoError(t, err)

	require.NoError(t, svc.LeaveQueue(ctx, "shikamaru"))
	assert.Equal(t, profiledomain.StatusAwake, testutils.GetProfile(t, env.DB, "shikamaru").Status)

	err = svc.LeaveQueue(ctx, "shikamaru")
	require.ErrorIs(t, err, rankedqueueservice.ErrNotInQueue)
	assert.Empty(t, responder.Requests())
}

func TestFarApartPlayersWaitForTolerance(t *testing.T) {
	env, svc, responder := setup(t)
	ctx := context.Background()

	seedFighter(t, env, "gaara", 2400)
	seedFighter(t, env, "konohamaru", 100)

	_, err := svc.Enqueue(ctx, "gaara")
	require.NoError(t, err)
	res, err := svc.Enqueue(ctx, "konohamaru")
	require.NoError(t, err)
	assert.False(t, res.Match.Matched)
	assert.Empty(t, responder.Requests())
}

// queueDirectly puts a fighter in the queue without triggering a match
// attempt.
func queueDirectly(t *testing.T, env *testutils.TestEnvironment, userID string, lp int, waited time.Duration) {
	t.Helper()
	ctx := context.Background()
	seedFighter(t, env, userID, lp)
	inserted, err := rankedqueuedb.NewRepository(env.DB).InsertEntry(ctx, env.DB, &rankedqueuedb.QueueEntry{
		ID:             uuid.New(),
		UserID:         userID,
		RankedLP:       lp,
		QueueStartTime: time.Now().UTC().Add(-waited),
	})
	require.NoError(t, err)
	require.True(t, inserted)
	n, err := profiledb.NewRepository(env.DB).SetStatus(ctx, env.DB, []string{userID}, profiledomain.StatusAwake, profiledomain.StatusQueued)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func countRows(t *testing.T, env *testutils.TestEnvironment, model any) int {
	t.Helper()
	n, err := env.DB.NewSelect().Model(model).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestFailedBattleCreationKeepsBothQueued(t *testing.T) {
	env, svc, responder := setupWith(t, func(t *testing.T, conn *nats.Conn) *testutils.BattleResponder {
		return testutils.StartRejectingBattleResponder(t, conn, "arena unavailable")
	})
	ctx := context.Background()

	seedFighter(t, env, "kiba", 1100)
	seedFighter(t, env, "shino", 1120)

	_, err := svc.Enqueue(ctx, "kiba")
	require.NoError(t, err)
	res, err := svc.Enqueue(ctx, "shino")
	require.NoError(t, err)
	assert.False(t, res.Match.Matched)

	_, err = svc.TryMatch(ctx)
	require.ErrorIs(t, err, rankedqueueservice.ErrBattleCreationFailed)
	assert.False(t, rankedqueueservice.IsFailure(err))

	assert.Len(t, responder.Requests(), 2)
	assert.Equal(t, 2, countRows(t, env, (*rankedqueuedb.QueueEntry)(nil)))
	assert.Zero(t, countRows(t, env, (*rankedqueuedb.Match)(nil)))
	for _, id := range []string{"kiba", "shino"} {
		assert.Equal(t, profiledomain.StatusQueued, testutils.GetProfile(t, env.DB, id).Status)
	}
}

func TestConcurrentTryMatchCreatesOneBattle(t *testing.T) {
	env, svc, responder := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	queueDirectly(t, env, "naruto", 1300, 10*time.Second)
	queueDirectly(t, env, "sasuke", 1310, 5*time.Second)

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		matched []rankedqueueservice.MatchResult
		errs    []error
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			m, err := svc.TryMatch(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if m.Matched {
				matched = append(matched, m)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Empty(t, errs)
	require.Len(t, matched, 1)
	assert.ElementsMatch(t, []string{"naruto", "sasuke"}, matched[0].UserIDs)

	assert.Len(t, responder.Requests(), 1)
	assert.Equal(t, 1, countRows(t, env, (*rankedqueuedb.Match)(nil)))
	assert.Zero(t, countRows(t, env, (*rankedqueuedb.QueueEntry)(nil)))
	for _, id := range []string{"naruto", "sasuke"} {
		assert.Equal(t, profiledomain.StatusBattle, testutils.GetProfile(t, env.DB, id).Status)
	}
}
