package seasonqueue

import (
	"context"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/shinobi-ranked/pkg/jobqueue"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
	"github.com/riverqueue/river"
)

// QueueName is the River queue season jobs run on.
const QueueName = "season"

// SweepInterval is how often due seasons are swept.
const SweepInterval = time.Hour

// EndSeasonJob ends one season at its end date.
type EndSeasonJob struct {
	SeasonID string    `json:"season_id"`
	EndsAt   time.Time `json:"ends_at"`
}

func (EndSeasonJob) Kind() string { return "season_end" }

// SweepDueSeasonsJob ends every season whose end date has passed.
type SweepDueSeasonsJob struct{}

func (SweepDueSeasonsJob) Kind() string { return "season_sweep_due" }

// Ender is the part of the season service the workers drive.
type Ender interface {
	EndSeasonIfDue(ctx context.Context, id string) (time.Duration, error)
	EndDueSeasons(ctx context.Context) (int, error)
}

type EndSeasonWorker struct {
	river.WorkerDefaults[EndSeasonJob]
	ender  Ender
	logger *slog.Logger
}

func NewEndSeasonWorker(ender Ender, logger *slog.Logger) *EndSeasonWorker {
	return &EndSeasonWorker{ender: ender, logger: logger}
}

// Work snoozes until the end date when the season was extended after the
// job was scheduled.
func (w *EndSeasonWorker) Work(ctx context.Context, job *river.Job[EndSeasonJob]) error {
	left, err := w.ender.EndSeasonIfDue(ctx, job.Args.SeasonID)
	if err != nil {
		return err
	}
	if left > 0 {
		w.logger.InfoContext(ctx, "Season not due yet, snoozing",
			attr.String("season_id", job.Args.SeasonID),
			attr.Duration("left", left),
		)
		return river.JobSnooze(left)
	}
	return nil
}

type SweepDueSeasonsWorker struct {
	river.WorkerDefaults[SweepDueSeasonsJob]
	ender  Ender
	logger *slog.Logger
}

func NewSweepDueSeasonsWorker(ender Ender, logger *slog.Logger) *SweepDueSeasonsWorker {
	return &SweepDueSeasonsWorker{ender: ender, logger: logger}
}

func (w *SweepDueSeasonsWorker) Work(ctx context.Context, _ *river.Job[SweepDueSeasonsJob]) error {
	n, err := w.ender.EndDueSeasons(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		w.logger.InfoContext(ctx, "Ended due seasons", attr.Int("count", n))
	}
	return nil
}

// Register adds the season workers and the periodic sweep to q.
func Register(q *jobqueue.Queue, ender Ender, logger *slog.Logger) {
	river.AddWorker(q.Workers(), NewEndSeasonWorker(ender, logger))
	river.AddWorker(q.Workers(), NewSweepDueSeasonsWorker(ender, logger))
	q.AddPeriodicJob(river.NewPeriodicJob(
		river.PeriodicInterval(SweepInterval),
		func() (river.JobArgs, *river.InsertOpts) {
			return SweepDueSeasonsJob{}, &river.InsertOpts{Queue: QueueName}
		},
		&river.PeriodicJobOpts{RunOnStart: true},
	))
}

// Scheduler inserts EndSeasonJob deadlines.
type Scheduler struct {
	inserter jobqueue.Inserter
}

func NewScheduler(inserter jobqueue.Inserter) *Scheduler {
	return &Scheduler{inserter: inserter}
}

// ScheduleSeasonEnd enqueues the end job. Rescheduling the same end date is
// a no-op. A moved end date gets a new job; the old one snoozes or finds the
// season already ended.
func (s *Scheduler) ScheduleSeasonEnd(ctx context.Context, seasonID string, at time.Time) error {
	return s.inserter.Insert(ctx, EndSeasonJob{SeasonID: seasonID, EndsAt: at.UTC()}, &river.InsertOpts{
		Queue:       QueueName,
		ScheduledAt: at,
		UniqueOpts:  river.UniqueOpts{ByArgs: true},
	})
}
