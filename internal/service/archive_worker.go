package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"device-activity-service/internal/activity"
	"device-activity-service/internal/metrics"
	"device-activity-service/internal/model"
	"device-activity-service/internal/repository"
)

// ArchiveWorker mirrors appended events into the long-term archive in batches.
type ArchiveWorker interface {
	Enqueue(event model.ActivityEvent)
	Shutdown()
}

type archiveWorker struct {
	repo          repository.ArchiveRepository
	logger        zerolog.Logger
	metrics       metrics.Recorder
	queue         chan model.ActivityEvent
	batchSize     int
	flushInterval time.Duration
	wg            sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewArchiveWorker starts the flush loop. Enqueue never blocks: when the
// buffer is full the event is dropped and counted as a failed flush.
func NewArchiveWorker(repo repository.ArchiveRepository, logger zerolog.Logger, rec metrics.Recorder, bufferSize, batchSize int, interval time.Duration) *archiveWorker {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	w := &archiveWorker{
		repo:          repo,
		logger:        logger.With().Str("component", "archive").Logger(),
		metrics:       rec,
		queue:         make(chan model.ActivityEvent, bufferSize),
		batchSize:     batchSize,
		flushInterval: interval,
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

// Enqueue hands an event to the flush loop.
func (w *archiveWorker) Enqueue(event model.ActivityEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}

	select {
	case w.queue <- event:
	default:
		w.logger.Warn().Str("event_id", event.ID).Msg("archive queue full, dropping event")
		w.metrics.ArchiveFlushed(1, errQueueFull)
	}
}

// Shutdown stops accepting events, flushes what is queued and waits.
func (w *archiveWorker) Shutdown() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	w.logger.Info().Int("pending", len(w.queue)).Msg("archive worker draining")
	w.wg.Wait()
	w.logger.Info().Msg("archive worker stopped")
}

// Attach subscribes the worker to appended events of log.
func (w *archiveWorker) Attach(log *activity.Log) (detach func()) {
	return log.Subscribe(func(n activity.Notification) {
		if n.Kind == activity.KindAppended && n.Event != nil {
			w.Enqueue(*n.Event)
		}
	})
}

func (w *archiveWorker) loop() {
	defer w.wg.Done()

	var batch []model.ActivityEvent
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.queue:
			if !ok {
				if len(batch) > 0 {
					w.flush(batch)
				}
				return
			}

			batch = append(batch, event)
			if len(batch) >= w.batchSize {
				w.flush(batch)
				batch = nil
			}

		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = nil
			}
		}
	}
}

func (w *archiveWorker) flush(events []model.ActivityEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := w.repo.CreateBatch(ctx, events)
	w.metrics.ArchiveFlushed(len(events), err)
	if err != nil {
		w.logger.Error().Err(err).Int("events", len(events)).Msg("archive flush failed")
		return
	}
	w.logger.Debug().Int("events", len(events)).Msg("archive flushed")
}
