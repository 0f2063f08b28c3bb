// Package batch runs per-user jobs across a bounded set of workers. Used by
// the admin bulk sync; each job is itself sequential.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	jobTracer      = otel.Tracer("truebalance/batch")
	jobMeter       = otel.Meter("truebalance/batch")
	jobDuration, _ = jobMeter.Float64Histogram("batch.job.duration", metric.WithDescription("Job execution duration in seconds"), metric.WithUnit("s"))
	jobTotal, _    = jobMeter.Int64Counter("batch.job.total", metric.WithDescription("Total jobs executed by status"))
)

type Job interface {
	Execute(ctx context.Context) error
	UserID() string
	Description() string
}

// Report summarizes one Run. Skipped counts jobs never started because the
// context was cancelled first.
type Report struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Failures  map[string]error
}

// WorkerPool executes jobs with at most workerCount running at once.
type WorkerPool struct {
	workerCount int
	jobTimeout  time.Duration
	jobDelay    time.Duration
	logger      logrus.FieldLogger
}

// NewWorkerPool creates a pool. jobTimeout bounds each job; jobDelay is a
// pause a worker takes between jobs to stay under provider rate limits.
func NewWorkerPool(workerCount int, jobTimeout, jobDelay time.Duration, logger logrus.FieldLogger) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &WorkerPool{
		workerCount: workerCount,
		jobTimeout:  jobTimeout,
		jobDelay:    jobDelay,
		logger:      logger,
	}
}

// Run executes every job and blocks until all have finished or ctx is done.
func (wp *WorkerPool) Run(ctx context.Context, jobs []Job) Report {
	report := Report{Total: len(jobs), Failures: make(map[string]error)}
	if len(jobs) == 0 {
		return report
	}

	queue := make(chan Job, len(jobs))
	for _, job := range jobs {
		queue <- job
	}
	close(queue)

	workers := min(wp.workerCount, len(jobs))
	wp.logger.WithFields(logrus.Fields{"workers": workers, "jobs": len(jobs)}).Info("Starting worker pool")

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for i := 1; i <= workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			wp.worker(ctx, id, queue, func(job Job, err error, started bool) {
				mu.Lock()
				defer mu.Unlock()
				switch {
				case !started:
					report.Skipped++
				case err != nil:
					report.Failed++
					report.Failures[job.UserID()] = err
				default:
					report.Succeeded++
				}
			})
		}(i)
	}
	wg.Wait()

	wp.logger.WithFields(logrus.Fields{
		"total":     report.Total,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"skipped":   report.Skipped,
	}).Info("Worker pool finished")

	return report
}

func (wp *WorkerPool) worker(ctx context.Context, id int, queue <-chan Job, record func(Job, error, bool)) {
	log := wp.logger.WithField("worker", id)

	for job := range queue {
		if ctx.Err() != nil {
			record(job, ctx.Err(), false)
			continue
		}

		record(job, wp.processJob(ctx, log, id, job), true)

		if wp.jobDelay > 0 {
			select {
			case <-time.After(wp.jobDelay):
			case <-ctx.Done():
			}
		}
	}
}

func (wp *WorkerPool) processJob(ctx context.Context, log logrus.FieldLogger, workerID int, job Job) error {
	log = log.WithField("user_id", job.UserID())
	log.WithField("job", job.Description()).Debug("Processing job")

	if wp.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wp.jobTimeout)
		defer cancel()
	}

	ctx, span := jobTracer.Start(ctx, "job.execute",
		trace.WithAttributes(
			attribute.Int("worker.id", workerID),
			attribute.String("job.description", job.Description()),
			attribute.String("job.user_id", job.UserID()),
		),
	)
	defer span.End()

	start := time.Now()
	err := job.Execute(ctx)
	jobDuration.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "error")))
		log.WithError(err).Warn("Job failed")
		return err
	}

	jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "success")))
	log.Debug("Job completed")
	return nil
}
