package tournamentqueue

import (
	"context"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/shinobi-ranked/pkg/jobqueue"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
	"github.com/riverqueue/river"
)

const QueueName = "tournament"

// SweepInterval bounds how long an unread tournament can sit past a
// deadline whose job was lost.
const SweepInterval = 5 * time.Minute

// DeadlineJob evaluates a tournament when it starts or a round times out.
type DeadlineJob struct {
	TournamentID string    `json:"tournament_id"`
	At           time.Time `json:"at"`
}

func (DeadlineJob) Kind() string { return "tournament_deadline" }

// SweepLiveJob evaluates every live tournament.
type SweepLiveJob struct{}

func (SweepLiveJob) Kind() string { return "tournament_sweep_live" }

// Advancer is the part of the tournament service the workers drive.
type Advancer interface {
	Advance(ctx context.Context, id string) error
	AdvanceAll(ctx context.Context) (int, error)
}

type DeadlineWorker struct {
	river.WorkerDefaults[DeadlineJob]
	advancer Advancer
	logger   *slog.Logger
}

func NewDeadlineWorker(advancer Advancer, logger *slog.Logger) *DeadlineWorker {
	return &DeadlineWorker{advancer: advancer, logger: logger}
}

func (w *DeadlineWorker) Work(ctx context.Context, job *river.Job[DeadlineJob]) error {
	if err := w.advancer.Advance(ctx, job.Args.TournamentID); err != nil {
		w.logger.WarnContext(ctx, "Tournament deadline evaluation failed",
			attr.String("tournament_id", job.Args.TournamentID),
			attr.Error(err),
		)
		return err
	}
	return nil
}

type SweepLiveWorker struct {
	river.WorkerDefaults[SweepLiveJob]
	advancer Advancer
	logger   *slog.Logger
}

func NewSweepLiveWorker(advancer Advancer, logger *slog.Logger) *SweepLiveWorker {
	return &SweepLiveWorker{advancer: advancer, logger: logger}
}

func (w *SweepLiveWorker) Work(ctx context.Context, _ *river.Job[SweepLiveJob]) error {
	failed, err := w.advancer.AdvanceAll(ctx)
	if err != nil {
		return err
	}
	if failed > 0 {
		w.logger.WarnContext(ctx, "Some tournaments could not be evaluated", attr.Int("failed", failed))
	}
	return nil
}

// Register adds the tournament workers and the periodic sweep to q.
func Register(q *jobqueue.Queue, advancer Advancer, logger *slog.Logger) {
	river.AddWorker(q.Workers(), NewDeadlineWorker(advancer, logger))
	river.AddWorker(q.Workers(), NewSweepLiveWorker(advancer, logger))
	q.AddPeriodicJob(river.NewPeriodicJob(
		river.PeriodicInterval(SweepInterval),
		func() (river.JobArgs, *river.InsertOpts) {
			return SweepLiveJob{}, &river.InsertOpts{Queue: QueueName}
		},
		nil,
	))
}

// Scheduler inserts DeadlineJobs.
type Scheduler struct {
	inserter jobqueue.Inserter
}

func NewScheduler(inserter jobqueue.Inserter) *Scheduler {
	return &Scheduler{inserter: inserter}
}

// ScheduleDeadline enqueues an evaluation at at. The same deadline is only
// queued once.
func (s *Scheduler) ScheduleDeadline(ctx context.Context, tournamentID string, at time.Time) error {
	return s.inserter.Insert(ctx, DeadlineJob{TournamentID: tournamentID, At: at.UTC()}, &river.InsertOpts{
		Queue:       QueueName,
		ScheduledAt: at,
		UniqueOpts:  river.UniqueOpts{ByArgs: true},
	})
}
