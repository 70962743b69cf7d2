package worker

import (
	"context"
	"sync"

	"github.com/ResistanceIsUseless/StatusHawk/internal/checker"
	"github.com/ResistanceIsUseless/StatusHawk/internal/logging"
	"github.com/ResistanceIsUseless/StatusHawk/internal/metrics"
	"github.com/ResistanceIsUseless/StatusHawk/internal/status"
)

// CheckerFactory builds one checker per worker. The checker's
// transport session is mutable state bound to one configuration
// snapshot, so workers never share one.
type CheckerFactory func() (*checker.Checker, error)

// ResultHandler is called with each terminal verdict, from multiple
// goroutines.
type ResultHandler func(st *status.Status)

// Manager fans a subject batch out over a fixed-size worker pool.
type Manager struct {
	concurrency int
	factory     CheckerFactory
	logger      *logging.Logger
	collector   *metrics.Collector
}

// NewManager creates a worker manager. The collector may be nil when
// metrics are disabled.
func NewManager(concurrency int, factory CheckerFactory, logger *logging.Logger, collector *metrics.Collector) *Manager {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	return &Manager{
		concurrency: concurrency,
		factory:     factory,
		logger:      logger,
		collector:   collector,
	}
}

// Run checks every subject through the pool and calls the handler
// with each verdict. It blocks until the batch is drained or the
// context is cancelled, and returns the first worker setup error.
func (m *Manager) Run(ctx context.Context, subjects []string, handler ResultHandler) error {
	subjectChan := make(chan string)

	if m.collector != nil {
		m.collector.SetQueueSize(len(subjects))
		m.collector.SetWorkersActive(m.concurrency)
		defer func() {
			m.collector.SetQueueSize(0)
			m.collector.SetWorkersActive(0)
		}()
	}

	var wg sync.WaitGroup
	var setupErr error
	var setupOnce sync.Once

	for i := 0; i < m.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			c, err := m.factory()
			if err != nil {
				setupOnce.Do(func() { setupErr = err })
				m.logger.WithWorker(workerID).Error("Worker setup failed", "error", err)
				// Drain so the feeder does not block on a dead worker.
				for range subjectChan {
				}
				return
			}

			m.logger.WorkerStart(workerID)
			defer m.logger.WorkerStop(workerID)

			for subject := range subjectChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				st := c.Check(subject)
				if m.collector != nil {
					m.collector.RecordVerdict(st)
				}
				if handler != nil {
					handler(st)
				}
			}
		}(i)
	}

	go func() {
		defer close(subjectChan)
		for _, subject := range subjects {
			select {
			case <-ctx.Done():
				return
			case subjectChan <- subject:
			}
		}
	}()

	wg.Wait()
	return setupErr
}
