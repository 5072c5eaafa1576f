// Package jobqueue runs River, the Postgres-backed job queue used for
// deadline and periodic jobs.
package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

const metricsService = "river"

// ErrNotStarted is returned by Insert before Start has built the client.
var ErrNotStarted = errors.New("job queue not started")

// Inserter is the scheduling side of the queue.
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) error
}

// Queue owns the pgx pool and River client. Modules register workers and
// periodic jobs before Start.
type Queue struct {
	mu       sync.Mutex
	pool     *pgxpool.Pool
	client   *river.Client[pgx.Tx]
	workers  *river.Workers
	periodic []*river.PeriodicJob
	queues   map[string]river.QueueConfig

	logger  *slog.Logger
	metrics metrics.OperationMetrics
}

var _ Inserter = (*Queue)(nil)

// New connects a pgx pool for River. queues maps queue name to max workers;
// the default queue is always present.
func New(ctx context.Context, dsn string, queues map[string]int, logger *slog.Logger, m metrics.OperationMetrics) (*Queue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	logger = logger.With(attr.String("component", "river_queue"))

	start := time.Now()
	m.RecordOperationAttempt(ctx, "initialize_service", metricsService)

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		m.RecordOperationFailure(ctx, "initialize_service", metricsService)
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		m.RecordOperationFailure(ctx, "initialize_service", metricsService)
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		m.RecordOperationFailure(ctx, "initialize_service", metricsService)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	q := &Queue{
		pool:    pool,
		workers: river.NewWorkers(),
		queues:  QueueConfig(queues),
		logger:  logger,
		metrics: m,
	}

	m.RecordOperationSuccess(ctx, "initialize_service", metricsService)
	m.RecordOperationDuration(ctx, "initialize_service", metricsService, time.Since(start))
	logger.InfoContext(ctx, "Job queue initialized")
	return q, nil
}

// QueueConfig converts queue sizes into River queue settings.
func QueueConfig(queues map[string]int) map[string]river.QueueConfig {
	out := map[string]river.QueueConfig{
		river.QueueDefault: {MaxWorkers: 10},
	}
	for name, n := range queues {
		if n <= 0 {
			n = 1
		}
		out[name] = river.QueueConfig{MaxWorkers: n}
	}
	return out
}

// Workers is the registry passed to river.AddWorker.
func (q *Queue) Workers() *river.Workers { return q.workers }

// AddPeriodicJob registers a job River enqueues on its own schedule.
func (q *Queue) AddPeriodicJob(job *river.PeriodicJob) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.periodic = append(q.periodic, job)
}

// Start builds the River client from the registered workers and starts it.
func (q *Queue) Start(ctx context.Context) error {
	start := time.Now()
	q.metrics.RecordOperationAttempt(ctx, "start_service", metricsService)

	q.mu.Lock()
	if q.client != nil {
		q.mu.Unlock()
		return errors.New("job queue already started")
	}
	client, err := river.NewClient(riverpgxv5.New(q.pool), &river.Config{
		Queues:       q.queues,
		Workers:      q.workers,
		PeriodicJobs: q.periodic,
		Logger:       q.logger,
	})
	if err != nil {
		q.mu.Unlock()
		q.metrics.RecordOperationFailure(ctx, "start_service", metricsService)
		return fmt.Errorf("failed to create River client: %w", err)
	}
	q.client = client
	q.mu.Unlock()

	if err := client.Start(ctx); err != nil {
		q.logger.ErrorContext(ctx, "Failed to start River client", attr.Error(err))
		q.metrics.RecordOperationFailure(ctx, "start_service", metricsService)
		return fmt.Errorf("failed to start River client: %w", err)
	}

	q.metrics.RecordOperationSuccess(ctx, "start_service", metricsService)
	q.metrics.RecordOperationDuration(ctx, "start_service", metricsService, time.Since(start))
	q.logger.InfoContext(ctx, "Job queue started", attr.Int("periodic_jobs", len(q.periodic)))
	return nil
}

// Stop drains running jobs and closes the pool.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	client := q.client
	q.mu.Unlock()

	defer q.pool.Close()
	if client == nil {
		return nil
	}
	if err := client.Stop(ctx); err != nil {
		q.metrics.RecordOperationFailure(ctx, "stop_service", metricsService)
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	q.metrics.RecordOperationSuccess(ctx, "stop_service", metricsService)
	q.logger.InfoContext(ctx, "Job queue stopped")
	return nil
}

// Insert enqueues a job.
func (q *Queue) Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) error {
	q.mu.Lock()
	client := q.client
	q.mu.Unlock()
	if client == nil {
		return ErrNotStarted
	}

	q.metrics.RecordOperationAttempt(ctx, "insert_"+args.Kind(), metricsService)
	res, err := client.Insert(ctx, args, opts)
	if err != nil {
		q.metrics.RecordOperationFailure(ctx, "insert_"+args.Kind(), metricsService)
		return fmt.Errorf("failed to insert %s job: %w", args.Kind(), err)
	}
	q.metrics.RecordOperationSuccess(ctx, "insert_"+args.Kind(), metricsService)

	logArgs := []any{attr.String("kind", args.Kind()), attr.Int64("job_id", res.Job.ID)}
	if res.UniqueSkippedAsDuplicate {
		logArgs = append(logArgs, attr.Bool("duplicate", true))
	}
	q.logger.DebugContext(ctx, "Job scheduled", logArgs...)
	return nil
}

// HealthCheck pings the pool River runs on.
func (q *Queue) HealthCheck(ctx context.Context) error {
	if err := q.pool.Ping(ctx); err != nil {
		return fmt.Errorf("job queue health check failed: %w", err)
	}
	return nil
}
