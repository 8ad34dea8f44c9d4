package sheets

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/castlemilk/pfinance/assistant/internal/store"
)

const (
	queueSize  = 64
	jobTimeout = 30 * time.Second
)

// Uploader copies the saved workbook somewhere else.
type Uploader interface {
	Upload(ctx context.Context, path string) error
}

type job struct {
	op  string
	run func(w *Workbook) error
}

// Syncer applies mirror writes on a background goroutine. Enqueue calls
// never block; when the queue is full the write is dropped and logged.
type Syncer struct {
	workbook *Workbook
	uploader Uploader
	retry    RetryConfig
	logger   zerolog.Logger

	jobs chan job
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewSyncer starts the worker. uploader may be nil.
func NewSyncer(workbook *Workbook, uploader Uploader, logger zerolog.Logger) *Syncer {
	s := &Syncer{
		workbook: workbook,
		uploader: uploader,
		retry:    DefaultRetryConfig,
		logger:   logger.With().Str("component", "sheets").Str("path", workbook.Path()).Logger(),
		jobs:     make(chan job, queueSize),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// SyncTransaction appends tx unless it is already mirrored.
func (s *Syncer) SyncTransaction(tx *store.Transaction) {
	c := *tx
	s.enqueue(job{op: "transaction", run: func(w *Workbook) error {
		_, err := w.AppendTransactions([]*store.Transaction{&c})
		return err
	}})
}

// SyncBalance appends a balance history row.
func (s *Syncer) SyncBalance(b *store.Balance, note string) {
	c := *b
	s.enqueue(job{op: "balance", run: func(w *Workbook) error {
		return w.AppendBalance(&c, note)
	}})
}

// SyncStatistics appends a statistics row for the last days days.
func (s *Syncer) SyncStatistics(days int, summary *store.SpendingSummary) {
	c := *summary
	s.enqueue(job{op: "statistics", run: func(w *Workbook) error {
		return w.AppendStatistics(days, &c)
	}})
}

// Export rewrites the whole workbook and uploads it. Unlike the Sync
// methods it runs on the caller's goroutine and reports failure.
func (s *Syncer) Export(ctx context.Context, snap Snapshot) error {
	return s.apply(ctx, job{op: "export", run: func(w *Workbook) error {
		return w.Rewrite(snap)
	}})
}

// Close stops accepting writes and waits for queued ones to finish.
func (s *Syncer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.jobs)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *Syncer) enqueue(j job) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.logger.Warn().Str("op", j.op).Msg("sync after close dropped")
		return
	}
	select {
	case s.jobs <- j:
	default:
		s.logger.Warn().Str("op", j.op).Msg("sync queue full, write dropped")
	}
}

func (s *Syncer) run() {
	defer s.wg.Done()
	for j := range s.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		if err := s.apply(ctx, j); err != nil {
			s.logger.Error().Err(err).Str("op", j.op).Msg("sheet sync failed")
		}
		cancel()
	}
}

func (s *Syncer) apply(ctx context.Context, j job) error {
	err := WithRetry(ctx, s.retry, func(ctx context.Context) error {
		return j.run(s.workbook)
	})
	if err != nil {
		return err
	}
	if s.uploader != nil {
		err = WithRetry(ctx, s.retry, func(ctx context.Context) error {
			return s.uploader.Upload(ctx, s.workbook.Path())
		})
		if err != nil {
			return err
		}
	}
	s.logger.Debug().Str("op", j.op).Msg("sheet synced")
	return nil
}
