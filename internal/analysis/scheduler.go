package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/journeyd/internal/events"
)

// Job is one periodic analysis task.
type Job struct {
	// Name identifies the job in logs, events, and health output.
	Name string

	// Interval is the time between runs.
	Interval time.Duration

	// Run executes one cycle. Errors are reported and the cycle's output is
	// left unchanged; the next tick retries from scratch.
	Run func(ctx context.Context) error
}

// JobStatus is a point-in-time view of one scheduled job.
type JobStatus struct {
	Name          string        `json:"name"`
	Interval      time.Duration `json:"interval"`
	InFlight      bool          `json:"in_flight"`
	LastCompleted time.Time     `json:"last_completed,omitempty"`
	LastError     string        `json:"last_error,omitempty"`
}

// scheduledJob wraps a Job with its runtime state.
type scheduledJob struct {
	Job

	mu            sync.Mutex
	inFlight      bool
	lastCompleted time.Time
	lastError     error
}

// Scheduler drives the periodic analysis jobs. Each job gets its own ticker
// goroutine; jobs of different kinds run concurrently with each other and
// with ingestion, but overlapping runs of the same job are prevented by an
// in-flight flag. Runs recover from panics so a bad cycle never takes the
// scheduler down.
//
// Thread safety: all public methods are safe for concurrent use.
type Scheduler struct {
	jobs      []*scheduledJob
	publisher events.Publisher
	logger    *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler over the given jobs. Call Start to begin
// ticking.
func NewScheduler(jobs []Job, publisher events.Publisher, logger *zap.Logger) (*Scheduler, error) {
	if len(jobs) == 0 {
		return nil, fmt.Errorf("scheduler needs at least one job")
	}
	for _, j := range jobs {
		if j.Interval <= 0 {
			return nil, fmt.Errorf("job %s: interval must be positive", j.Name)
		}
		if j.Run == nil {
			return nil, fmt.Errorf("job %s: run function cannot be nil", j.Name)
		}
	}

	s := &Scheduler{
		publisher: publisher,
		logger:    logger,
	}
	for _, j := range jobs {
		s.jobs = append(s.jobs, &scheduledJob{Job: j})
	}
	return s, nil
}

// Start launches one ticker goroutine per job. Calling Start on a running
// scheduler returns an error without starting duplicate goroutines.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	s.stopCh = make(chan struct{})
	s.running = true

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runLoop(job, s.stopCh)
		s.logger.Info("analysis job scheduled",
			zap.String("job", job.Name),
			zap.Duration("interval", job.Interval),
		)
	}
	return nil
}

// Stop signals all job goroutines to stop and waits for them to exit. A run
// in progress finishes; no mid-run cancellation is attempted. Stop is
// idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("analysis scheduler stopped")
}

// Status reports the runtime state of every job.
func (s *Scheduler) Status() []JobStatus {
	out := make([]JobStatus, 0, len(s.jobs))
	for _, job := range s.jobs {
		job.mu.Lock()
		status := JobStatus{
			Name:          job.Name,
			Interval:      job.Interval,
			InFlight:      job.inFlight,
			LastCompleted: job.lastCompleted,
		}
		if job.lastError != nil {
			status.LastError = job.lastError.Error()
		}
		job.mu.Unlock()
		out = append(out, status)
	}
	return out
}

// runLoop ticks one job until the stop channel closes.
func (s *Scheduler) runLoop(job *scheduledJob, stopCh <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(job)
		case <-stopCh:
			return
		}
	}
}

// runOnce executes a single cycle with panic recovery and in-flight
// protection. A tick that fires while the previous run is still in flight is
// skipped, not queued.
func (s *Scheduler) runOnce(job *scheduledJob) {
	job.mu.Lock()
	if job.inFlight {
		job.mu.Unlock()
		s.logger.Warn("analysis cycle still in flight, skipping tick",
			zap.String("job", job.Name))
		return
	}
	job.inFlight = true
	job.mu.Unlock()

	err := s.safeRun(job)

	job.mu.Lock()
	job.inFlight = false
	job.lastError = err
	if err == nil {
		job.lastCompleted = time.Now().UTC()
	}
	job.mu.Unlock()

	if err != nil {
		s.logger.Error("analysis cycle failed",
			zap.String("job", job.Name),
			zap.Error(err),
		)
		if pubErr := s.publisher.Publish(context.Background(), events.AnalysisError, map[string]any{
			"job":   job.Name,
			"error": err.Error(),
		}); pubErr != nil {
			s.logger.Warn("analysis error event publish failed", zap.Error(pubErr))
		}
	}
}

// safeRun wraps the job's Run with panic recovery so a panicking cycle is
// reported like any other failed cycle.
func (s *Scheduler) safeRun(job *scheduledJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()
	return job.Run(context.Background())
}
