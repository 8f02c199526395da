package usagelog

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"gatewise-hq/gatewise/pkg/telemetry/logging"
)

// Recorder accepts admission events without blocking the request path and
// writes them to the store from a single background goroutine. When the
// buffer is full, new events are dropped rather than stalling admission
// decisions. A cron job purges events past the retention horizon.
type Recorder struct {
	store *Store
	log   *logging.Logger

	events  chan Event
	dropped int64
	mu      sync.Mutex

	retention time.Duration
	cron      *cron.Cron

	done      chan struct{}
	closeOnce sync.Once
}

// RecorderConfig configures the async recorder.
type RecorderConfig struct {
	// BufferSize is the queue length. Default: 1024.
	BufferSize int

	// RetentionDays is how long events are kept. Default: 30.
	RetentionDays int

	// PurgeSchedule is a standard cron expression for the retention sweep.
	// Empty disables scheduled purging.
	PurgeSchedule string

	Logger *logging.Logger
}

// NewRecorder starts the write loop and, when a purge schedule is set, the
// retention cron.
func NewRecorder(store *Store, cfg RecorderConfig) (*Recorder, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}

	r := &Recorder{
		store:     store,
		log:       cfg.Logger,
		events:    make(chan Event, cfg.BufferSize),
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		done:      make(chan struct{}),
	}

	if cfg.PurgeSchedule != "" {
		r.cron = cron.New()
		if _, err := r.cron.AddFunc(cfg.PurgeSchedule, r.purge); err != nil {
			return nil, err
		}
		r.cron.Start()
	}

	go r.writeLoop()

	return r, nil
}

// Record enqueues an event. It never blocks; when the buffer is full the
// event is dropped and counted.
func (r *Recorder) Record(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	select {
	case r.events <- e:
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
	}
}

// Dropped returns how many events were discarded due to a full buffer.
func (r *Recorder) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close stops the cron, drains buffered events to the store, and stops the
// write loop. The store itself is not closed.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		if r.cron != nil {
			r.cron.Stop()
		}
		close(r.events)
		<-r.done
	})
}

func (r *Recorder) writeLoop() {
	defer close(r.done)

	for e := range r.events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.store.Insert(ctx, e); err != nil {
			r.log.Warn("Failed to persist admission event", "error", err)
		}
		cancel()
	}
}

func (r *Recorder) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-r.retention)
	n, err := r.store.PurgeBefore(ctx, cutoff)
	if err != nil {
		r.log.Error("Usage log purge failed", "error", err)
		return
	}
	r.log.Info("Usage log purge completed", "removed", n, "cutoff", cutoff)
}
