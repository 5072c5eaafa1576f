package seasonservice

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	profiledb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/infrastructure/repositories"
	seasondomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/domain"
	seasondb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/infrastructure/repositories"
	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/identity"
	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/rewards"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/jwt"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

var testNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

var (
	admin  = identity.Actor{UserID: "admin", Role: jwt.RoleAdmin}
	player = identity.Actor{UserID: "p1", Role: jwt.RolePlayer}
)

type harness struct {
	svc       *SeasonService
	repo      *FakeSeasonRepo
	profiles  *profiledb.FakeRepository
	scheduler *FakeScheduler
	publisher *FakePublisher
}

func newHarness(profiles ...*profiledb.Profile) *harness {
	h := &harness{
		repo:      NewFakeSeasonRepo(),
		profiles:  profiledb.NewFakeRepository(profiles...),
		scheduler: &FakeScheduler{},
		publisher: &FakePublisher{},
	}
	h.svc = NewSeasonService(h.repo, h.profiles, h.publisher, nil, metrics.NewNoop(), nil, nil)
	h.svc.now = func() time.Time { return testNow }
	h.svc.SetScheduler(h.scheduler)
	return h
}

func season(id string, start, end time.Time, ended bool) *seasondb.Season {
	return &seasondb.Season{
		ID:        id,
		Name:      "Season " + id,
		StartDate: start,
		EndDate:   end,
		Ended:     ended,
		Rewards: seasondomain.RewardTable{
			seasondomain.DivisionGenin: {Money: 100},
			seasondomain.DivisionKage:  {Money: 1000, Items: []rewards.ItemReward{{ItemID: "scroll", Quantity: 1}}},
		},
	}
}

func draft(start, end time.Time) seasondomain.Draft {
	return seasondomain.Draft{Name: "Autumn", StartDate: start, EndDate: end}
}

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func TestCreateSeason(t *testing.T) {
	tests := []struct {
		name     string
		existing []*seasondb.Season
		actor    identity.Actor
		draft    seasondomain.Draft
		wantErr  error
	}{
		{
			name:  "first season",
			actor: admin,
			draft: draft(testNow, testNow.Add(days(30))),
		},
		{
			name:    "player cannot create",
			actor:   player,
			draft:   draft(testNow, testNow.Add(days(30))),
			wantErr: ErrPermissionDenied,
		},
		{
			name:    "end before start",
			actor:   admin,
			draft:   draft(testNow, testNow.Add(-time.Hour)),
			wantErr: seasondomain.ErrInvalidSeason,
		},
		{
			name:     "another season is running",
			existing: []*seasondb.Season{season("s1", testNow.Add(-days(1)), testNow.Add(days(10)), false)},
			actor:    admin,
			draft:    draft(testNow.Add(days(20)), testNow.Add(days(40))),
			wantErr:  ErrSeasonActive,
		},
		{
			name:     "overlaps a future season",
			existing: []*seasondb.Season{season("s1", testNow.Add(days(10)), testNow.Add(days(20)), false)},
			actor:    admin,
			draft:    draft(testNow.Add(days(15)), testNow.Add(days(40))),
			wantErr:  ErrSeasonOverlap,
		},
		{
			name:     "touching end date overlaps",
			existing: []*seasondb.Season{season("s1", testNow.Add(days(10)), testNow.Add(days(20)), false)},
			actor:    admin,
			draft:    draft(testNow.Add(days(20)), testNow.Add(days(40))),
			wantErr:  ErrSeasonOverlap,
		},
		{
			name:     "ended seasons do not block",
			existing: []*seasondb.Season{season("s0", testNow.Add(-days(10)), testNow.Add(days(10)), true)},
			actor:    admin,
			draft:    draft(testNow, testNow.Add(days(30))),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			for _, s := range tt.existing {
				h.repo.addSeason(s)
			}

			got, err := h.svc.CreateSeason(context.Background(), tt.actor, tt.draft)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsFailure(err))
				assert.NotContains(t, h.repo.Trace(), "InsertSeason")
				assert.Empty(t, h.scheduler.scheduled)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, got.ID)
			assert.Contains(t, h.repo.Trace(), "InsertSeason")
			require.Len(t, h.scheduler.scheduled, 1)
			assert.Equal(t, got.ID, h.scheduler.scheduled[0].SeasonID)
			assert.Equal(t, tt.draft.EndDate, h.scheduler.scheduled[0].At)
		})
	}
}

func TestCreateSeasonSchedulerFailureKeepsSeason(t *testing.T) {
	h := newHarness()
	h.scheduler.err = errors.New("queue down")

	got, err := h.svc.CreateSeason(context.Background(), admin, draft(testNow, testNow.Add(days(30))))

	require.NoError(t, err)
	_, getErr := h.repo.GetSeason(context.Background(), nil, got.ID)
	assert.NoError(t, getErr)
}

func TestUpdateSeason(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		draft   seasondomain.Draft
		wantErr error
	}{
		{
			name:  "moving its own window",
			id:    "s1",
			draft: draft(testNow.Add(days(12)), testNow.Add(days(25))),
		},
		{
			name:    "colliding with the next season",
			id:      "s1",
			draft:   draft(testNow.Add(days(12)), testNow.Add(days(35))),
			wantErr: ErrSeasonOverlap,
		},
		{
			name:    "unknown season",
			id:      "missing",
			draft:   draft(testNow.Add(days(12)), testNow.Add(days(25))),
			wantErr: ErrSeasonNotFound,
		},
		{
			name:    "ended season is frozen",
			id:      "s0",
			draft:   draft(testNow.Add(days(12)), testNow.Add(days(25))),
			wantErr: ErrSeasonEnded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.repo.addSeason(season("s0", testNow.Add(-days(40)), testNow.Add(-days(10)), true))
			h.repo.addSeason(season("s1", testNow.Add(days(10)), testNow.Add(days(20)), false))
			h.repo.addSeason(season("s2", testNow.Add(days(30)), testNow.Add(days(40)), false))

			got, err := h.svc.UpdateSeason(context.Background(), admin, tt.id, tt.draft)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.NotContains(t, h.repo.Trace(), "UpdateSeason")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.draft.StartDate, got.StartDate)
			assert.Equal(t, tt.draft.EndDate, got.EndDate)
		})
	}
}

func TestDeleteSeason(t *testing.T) {
	h := newHarness()
	h.repo.addSeason(season("s1", testNow.Add(days(10)), testNow.Add(days(20)), false))

	require.ErrorIs(t, h.svc.DeleteSeason(context.Background(), player, "s1"), ErrPermissionDenied)
	require.NoError(t, h.svc.DeleteSeason(context.Background(), admin, "s1"))
	require.ErrorIs(t, h.svc.DeleteSeason(context.Background(), admin, "s1"), ErrSeasonNotFound)
}

func TestGetCurrentSeason(t *testing.T) {
	h := newHarness()
	current, err := h.svc.GetCurrentSeason(context.Background())
	require.NoError(t, err)
	assert.Nil(t, current)

	h.repo.addSeason(season("future", testNow.Add(days(10)), testNow.Add(days(20)), false))
	h.repo.addSeason(season("now", testNow.Add(-days(1)), testNow.Add(days(5)), false))

	current, err = h.svc.GetCurrentSeason(context.Background())
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "now", current.ID)
}

func TestEndSeason(t *testing.T) {
	h := newHarness(
		&profiledb.Profile{UserID: "rookie", RankedLP: 850},
		&profiledb.Profile{UserID: "genin", RankedLP: 900},
		&profiledb.Profile{UserID: "kage", RankedLP: 2100},
		&profiledb.Profile{UserID: "unranked", RankedLP: 0},
	)
	h.repo.addSeason(season("s1", testNow.Add(-days(30)), testNow.Add(-time.Minute), false))

	res, err := h.svc.EndSeason(context.Background(), admin, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, res.RewardsWritten)
	assert.Equal(t, []string{"ranked.season.ended.v1"}, h.publisher.topics)

	assert.Equal(t, seasondomain.DivisionAcademy, h.repo.rewards["rookie/s1"].Division)
	assert.Equal(t, seasondomain.DivisionGenin, h.repo.rewards["genin/s1"].Division)
	assert.Equal(t, seasondomain.DivisionKage, h.repo.rewards["kage/s1"].Division)
	assert.NotContains(t, h.repo.rewards, "unranked/s1")

	_, err = h.svc.EndSeason(context.Background(), admin, "s1")
	require.ErrorIs(t, err, ErrSeasonEnded)
	assert.Len(t, h.publisher.topics, 1)
}

func TestEndSeasonIfDue(t *testing.T) {
	tests := []struct {
		name      string
		season    *seasondb.Season
		wantLeft  time.Duration
		wantEnded bool
	}{
		{
			name:     "not yet due",
			season:   season("s1", testNow.Add(-days(1)), testNow.Add(time.Hour), false),
			wantLeft: time.Hour,
		},
		{
			name:      "due",
			season:    season("s1", testNow.Add(-days(1)), testNow.Add(-time.Second), false),
			wantEnded: true,
		},
		{
			name:      "already ended",
			season:    season("s1", testNow.Add(-days(2)), testNow.Add(-days(1)), true),
			wantEnded: true,
		},
		{
			name: "deleted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			if tt.season != nil {
				h.repo.addSeason(tt.season)
			}

			left, err := h.svc.EndSeasonIfDue(context.Background(), "s1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantLeft, left)
			if tt.season != nil {
				assert.Equal(t, tt.wantEnded, h.repo.seasons["s1"].Ended)
			}
		})
	}
}

func TestEndDueSeasons(t *testing.T) {
	h := newHarness(&profiledb.Profile{UserID: "u1", RankedLP: 1200})
	h.repo.addSeason(season("old", testNow.Add(-days(60)), testNow.Add(-days(30)), false))
	h.repo.addSeason(season("running", testNow.Add(-days(1)), testNow.Add(days(5)), false))

	n, err := h.svc.EndDueSeasons(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, h.repo.seasons["old"].Ended)
	assert.False(t, h.repo.seasons["running"].Ended)
}

func TestClaimRewards(t *testing.T) {
	t.Run("nothing to claim writes nothing", func(t *testing.T) {
		h := newHarness(&profiledb.Profile{UserID: "u1", RankedLP: 1000})

		_, err := h.svc.ClaimRewards(context.Background(), "u1")

		require.ErrorIs(t, err, ErrNoUnclaimedRewards)
		assert.Empty(t, h.profiles.Applied())
		assert.NotContains(t, h.repo.Trace(), "MarkClaimed")
	})

	t.Run("every season paid as one bundle", func(t *testing.T) {
		h := newHarness(&profiledb.Profile{UserID: "u1", RankedLP: 1000})
		h.repo.addSeason(season("s1", testNow.Add(-days(90)), testNow.Add(-days(60)), true))
		h.repo.addSeason(season("s2", testNow.Add(-days(50)), testNow.Add(-days(20)), true))
		h.repo.addReward(&seasondb.UserReward{UserID: "u1", SeasonID: "s1", Division: seasondomain.DivisionGenin})
		h.repo.addReward(&seasondb.UserReward{UserID: "u1", SeasonID: "s2", Division: seasondomain.DivisionKage})

		res, err := h.svc.ClaimRewards(context.Background(), "u1")

		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"s1", "s2"}, res.SeasonIDs)
		assert.Equal(t, int64(1100), res.Rewards.Money)

		applied := h.profiles.Applied()
		require.Len(t, applied, 1)
		assert.Equal(t, int64(1100), applied[0].Bundle.Money)
		assert.Equal(t, 1, h.profiles.ItemQuantity("u1", "scroll"))
		assert.True(t, h.repo.rewards["u1/s1"].Claimed)
		assert.True(t, h.repo.rewards["u1/s2"].Claimed)

		_, err = h.svc.ClaimRewards(context.Background(), "u1")
		require.ErrorIs(t, err, ErrNoUnclaimedRewards)
		assert.Len(t, h.profiles.Applied(), 1)
	})

	t.Run("partial flip is an error", func(t *testing.T) {
		h := newHarness(&profiledb.Profile{UserID: "u1", RankedLP: 1000})
		h.repo.addSeason(season("s1", testNow.Add(-days(90)), testNow.Add(-days(60)), true))
		h.repo.addReward(&seasondb.UserReward{UserID: "u1", SeasonID: "s1", Division: seasondomain.DivisionGenin})
		h.repo.MarkClaimedFunc = func(context.Context, bun.IDB, string, []string, time.Time) (int64, error) {
			return 0, nil
		}

		_, err := h.svc.ClaimRewards(context.Background(), "u1")

		require.Error(t, err)
		assert.False(t, IsFailure(err))
	})
}

func TestGetUnclaimedRewards(t *testing.T) {
	h := newHarness()
	h.repo.addSeason(season("s1", testNow.Add(-days(90)), testNow.Add(-days(60)), true))
	h.repo.addReward(&seasondb.UserReward{UserID: "u1", SeasonID: "s1", Division: seasondomain.DivisionGenin})
	h.repo.addReward(&seasondb.UserReward{UserID: "u2", SeasonID: "s1", Division: seasondomain.DivisionKage})

	got, err := h.svc.GetUnclaimedRewards(context.Background(), "u1")

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Season s1", got[0].SeasonName)
	assert.Equal(t, int64(100), got[0].Rewards.Money)
}

func TestDivisionDistributionAndChart(t *testing.T) {
	h := newHarness()
	h.repo.addSeason(season("s1", testNow.Add(-days(90)), testNow.Add(-days(60)), true))
	h.repo.addReward(&seasondb.UserReward{UserID: "u1", SeasonID: "s1", Division: seasondomain.DivisionGenin})
	h.repo.addReward(&seasondb.UserReward{UserID: "u2", SeasonID: "s1", Division: seasondomain.DivisionGenin})
	h.repo.addReward(&seasondb.UserReward{UserID: "u3", SeasonID: "s1", Division: seasondomain.DivisionKage})

	counts, err := h.svc.DivisionDistribution(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, counts, len(seasondomain.Divisions))
	assert.Equal(t, seasondomain.DivisionAcademy, counts[0].Division)
	assert.Equal(t, 0, counts[0].Count)
	assert.Equal(t, 2, counts[1].Count)
	assert.Equal(t, 1, counts[5].Count)

	png, err := GenerateDivisionChart("Season s1", counts)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = h.svc.DivisionDistribution(context.Background(), "missing")
	require.ErrorIs(t, err, ErrSeasonNotFound)
}

func TestGenerateDivisionChartAllZero(t *testing.T) {
	counts := make([]seasondb.DivisionCount, 0, len(seasondomain.Divisions))
	for _, d := range seasondomain.Divisions {
		counts = append(counts, seasondb.DivisionCount{Division: d})
	}
	png, err := GenerateDivisionChart("Empty", counts)
	require.NoError(t, err)
	assert.NotEmpty(t, png)
}
