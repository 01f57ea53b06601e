package service

import (
	"context"
	"sync/atomic"
	"time"

	"trust-ledger/internal/core/domain"
	"trust-ledger/internal/core/ports"
	"trust-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	auditBufferSize    = 1024
	auditBatchSize     = 64
	auditFlushInterval = time.Second
	auditWriteTimeout  = 5 * time.Second
)

// AuditServiceImpl implements ports.AuditService with a buffered
// channel and a single background writer that batches inserts. Record
// never blocks the money path; if the buffer is full the event is
// logged and dropped rather than stalling a transaction.
type AuditServiceImpl struct {
	repo   ports.AuditRepository
	events chan domain.AuditEvent
	quit   chan struct{}
	done   chan struct{}
	closed atomic.Bool
	log    zerolog.Logger
}

// NewAuditService creates the recorder and starts its writer goroutine.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) *AuditServiceImpl {
	s := &AuditServiceImpl{
		repo:   repo,
		events: make(chan domain.AuditEvent, auditBufferSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		log:    log,
	}
	go s.run()
	return s
}

// Record enqueues an event for asynchronous persistence. Events
// recorded after Close are dropped; the channel is never closed, so a
// straggler (a reaper tick finishing during shutdown) cannot panic.
func (s *AuditServiceImpl) Record(event domain.AuditEvent) {
	if s.closed.Load() {
		s.log.Warn().
			Str("transaction_id", event.TransactionID).
			Str("action", string(event.Action)).
			Msg("audit recorder closed, event dropped")
		return
	}
	select {
	case s.events <- event:
	default:
		s.log.Error().
			Str("transaction_id", event.TransactionID).
			Str("action", string(event.Action)).
			Msg("audit buffer full, event dropped")
	}
}

// Query fetches audit events with filtering and pagination.
func (s *AuditServiceImpl) Query(ctx context.Context, params ports.AuditQueryParams) ([]domain.AuditEvent, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}
	events, total, err := s.repo.Query(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrStoreUnavailable(err)
	}
	return events, total, nil
}

// Close stops accepting events, flushes the buffer, and waits for the
// writer to exit or the context to expire. Safe to call while writers
// are still racing Record.
func (s *AuditServiceImpl) Close(ctx context.Context) error {
	if s.closed.CompareAndSwap(false, true) {
		close(s.quit)
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AuditServiceImpl) run() {
	defer close(s.done)

	ticker := time.NewTicker(auditFlushInterval)
	defer ticker.Stop()

	batch := make([]domain.AuditEvent, 0, auditBatchSize)
	for {
		select {
		case event := <-s.events:
			batch = append(batch, event)
			if len(batch) >= auditBatchSize {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-s.quit:
			// Drain whatever is already buffered, then flush once.
			for {
				select {
				case event := <-s.events:
					batch = append(batch, event)
				default:
					s.flush(batch)
					return
				}
			}
		}
	}
}

func (s *AuditServiceImpl) flush(batch []domain.AuditEvent) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	if err := s.repo.InsertBatch(ctx, batch); err != nil {
		s.log.Error().Err(err).Int("count", len(batch)).Msg("audit batch insert failed")
	}
}
