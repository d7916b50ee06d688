package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/IshaanNene/outbreak/internal/observability"
	"github.com/IshaanNene/outbreak/internal/types"
)

// Task is one periodic refresh job.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// TaskStatus reports the health of one task.
type TaskStatus struct {
	Name        string     `json:"name"`
	Interval    string     `json:"interval"`
	Running     bool       `json:"running"`
	Runs        int64      `json:"runs"`
	Failures    int64      `json:"failures"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	Retryable   bool       `json:"retryable,omitempty"`
	RetryAfter  string     `json:"retry_after,omitempty"`
	NextRun     *time.Time `json:"next_run,omitempty"`
}

// taskState is the scheduler's bookkeeping for a Task.
type taskState struct {
	task Task

	// run serializes cycles of the same task.
	run sync.Mutex

	mu     sync.RWMutex
	status TaskStatus
}

func (ts *taskState) record(start time.Time, err error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.status.Runs++
	ts.status.LastRun = &start
	ts.status.Retryable = false
	ts.status.RetryAfter = ""
	if err != nil {
		ts.status.Failures++
		ts.status.LastError = err.Error()
		if fetchErr, ok := asFetchError(err); ok {
			ts.status.Retryable = fetchErr.IsRetryable()
			if fetchErr.RetryAfter > 0 {
				ts.status.RetryAfter = fetchErr.RetryAfter.String()
			}
		}
		return
	}
	done := time.Now()
	ts.status.LastSuccess = &done
	ts.status.LastError = ""
}

func asFetchError(err error) (*types.FetchError, bool) {
	var fetchErr *types.FetchError
	ok := errors.As(err, &fetchErr)
	return fetchErr, ok
}

// nextDelay is the wait before the next cycle. A rate-limited upstream that
// asks for a longer pause than the interval gets it.
func nextDelay(interval time.Duration, err error) time.Duration {
	if fetchErr, ok := asFetchError(err); ok && fetchErr.RetryAfter > interval {
		return fetchErr.RetryAfter
	}
	return interval
}

func (ts *taskState) setRunning(running bool) {
	ts.mu.Lock()
	ts.status.Running = running
	ts.mu.Unlock()
}

func (ts *taskState) setNext(next time.Time) {
	ts.mu.Lock()
	ts.status.NextRun = &next
	ts.mu.Unlock()
}

func (ts *taskState) snapshot() TaskStatus {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.status
}

// Scheduler runs each task once at start and then again a fixed delay after
// every completed cycle. A failed or panicking cycle is logged and reported
// to the Observer; the task keeps its schedule.
type Scheduler struct {
	mu       sync.RWMutex
	tasks    map[string]*taskState
	order    []string
	observer observability.Observer
	logger   *slog.Logger
	wg       sync.WaitGroup
	started  bool
}

// NewScheduler creates a Scheduler. A nil observer discards events.
func NewScheduler(observer observability.Observer, logger *slog.Logger) *Scheduler {
	if observer == nil {
		observer = observability.Nop{}
	}
	return &Scheduler{
		tasks:    make(map[string]*taskState),
		observer: observer,
		logger:   logger.With("component", "scheduler"),
	}
}

// Add registers a task. Tasks must be added before Start.
func (s *Scheduler) Add(task Task) error {
	if task.Name == "" || task.Run == nil {
		return fmt.Errorf("task needs a name and a run function")
	}
	if task.Interval <= 0 {
		return fmt.Errorf("task %q: interval must be positive, got %s", task.Name, task.Interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("task %q: scheduler already started", task.Name)
	}
	if _, ok := s.tasks[task.Name]; ok {
		return fmt.Errorf("task %q already registered", task.Name)
	}

	s.tasks[task.Name] = &taskState{
		task:   task,
		status: TaskStatus{Name: task.Name, Interval: task.Interval.String()},
	}
	s.order = append(s.order, task.Name)
	s.logger.Info("task added", "task", task.Name, "interval", task.Interval)
	return nil
}

// Start launches one goroutine per task. Loops stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	s.logger.Info("starting refresh loops", "tasks", len(s.order))
	for _, name := range s.order {
		s.wg.Add(1)
		go s.loop(ctx, s.tasks[name])
	}
}

// Wait blocks until all task loops have returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// RunOnce runs a single cycle of the named task and returns its error.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	s.mu.RLock()
	ts, ok := s.tasks[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown task %q", name)
	}
	return s.runCycle(ctx, ts)
}

// Status returns the status of every task in name order.
func (s *Scheduler) Status() []TaskStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]TaskStatus, 0, len(s.tasks))
	for _, ts := range s.tasks {
		out = append(out, ts.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) loop(ctx context.Context, ts *taskState) {
	defer s.wg.Done()
	logger := s.logger.With("task", ts.task.Name)

	for {
		if ctx.Err() != nil {
			logger.Debug("refresh loop stopped")
			return
		}

		delay := nextDelay(ts.task.Interval, s.runCycle(ctx, ts))

		ts.setNext(time.Now().Add(delay))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Debug("refresh loop stopped")
			return
		case <-timer.C:
		}
	}
}

// runCycle executes one cycle with panic recovery and records the outcome.
func (s *Scheduler) runCycle(ctx context.Context, ts *taskState) (err error) {
	ts.run.Lock()
	defer ts.run.Unlock()

	name := ts.task.Name
	start := time.Now()
	ts.setRunning(true)
	s.observer.CycleStarted(name)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in task %s: %v", name, r)
			s.logger.Error("refresh cycle panicked",
				"task", name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}

		took := time.Since(start)
		ts.record(start, err)
		ts.setRunning(false)

		if err != nil {
			s.observer.CycleFailed(name, took, err)
			attrs := []any{"task", name, "duration", took, "error", err}
			if fetchErr, ok := asFetchError(err); ok {
				attrs = append(attrs, "retryable", fetchErr.IsRetryable())
				if fetchErr.RetryAfter > 0 {
					attrs = append(attrs, "retry_after", fetchErr.RetryAfter)
				}
			}
			s.logger.Error("refresh cycle failed", attrs...)
			return
		}
		s.observer.CycleSucceeded(name, took)
		s.logger.Info("refresh cycle complete", "task", name, "duration", took)
	}()

	return ts.task.Run(ctx)
}
