// internal/app/system/workers/cleanup.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one named cleanup step. Run returns how many items it removed.
type Job struct {
	Name string
	Run  func(ctx context.Context) (int64, error)
}

// Cleanup runs its jobs on a fixed interval until stopped.
type Cleanup struct {
	jobs     []Job
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCleanup creates a worker that runs jobs every interval, giving each
// run at most timeout.
func NewCleanup(logger *zap.Logger, interval, timeout time.Duration, jobs ...Job) *Cleanup {
	return &Cleanup{
		jobs:     jobs,
		log:      logger,
		interval: interval,
		timeout:  timeout,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *Cleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("cleanup worker started",
		zap.Duration("interval", w.interval),
		zap.Int("jobs", len(w.jobs)))
}

// Stop signals the worker to stop and waits for it to finish. Safe to call
// more than once.
func (w *Cleanup) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

func (w *Cleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce runs every job immediately. A failing job is logged and does not
// stop the others.
func (w *Cleanup) RunOnce() {
	for _, j := range w.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		n, err := j.Run(ctx)
		cancel()
		if err != nil {
			w.log.Error("cleanup job failed", zap.String("job", j.Name), zap.Error(err))
			continue
		}
		if n > 0 {
			w.log.Info("cleanup job removed items", zap.String("job", j.Name), zap.Int64("count", n))
		}
	}
}
