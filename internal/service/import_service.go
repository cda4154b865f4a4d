package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/textqueue/internal/domain"
	"github.com/kursadbilgin/textqueue/internal/guard"
	"github.com/kursadbilgin/textqueue/internal/observability"
	"github.com/kursadbilgin/textqueue/internal/parser"
	"github.com/kursadbilgin/textqueue/internal/queue"
	"github.com/kursadbilgin/textqueue/internal/report"
	"github.com/kursadbilgin/textqueue/internal/repository"
	"go.uber.org/zap"
)

// ErrStoreNotConfigured is returned when a non-dry run has no message store.
var ErrStoreNotConfigured = errors.New("message store is not configured")

const defaultPublishTimeout = 30 * time.Second

type RunOptions struct {
	DryRun bool
	// Force skips the duplicate import guard.
	Force bool
}

type ImportService struct {
	parser    *parser.Parser
	imports   repository.ImportRepository
	guard     guard.ImportGuard
	publisher queue.Publisher
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string

	publishTimeout time.Duration
}

// NewImportService wires the import flow. imports may be nil for dry runs;
// importGuard and publisher are optional.
func NewImportService(
	p *parser.Parser,
	imports repository.ImportRepository,
	importGuard guard.ImportGuard,
	publisher queue.Publisher,
	logger *zap.Logger,
) (*ImportService, error) {
	if p == nil {
		return nil, fmt.Errorf("parser is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ImportService{
		parser:    p,
		imports:   imports,
		guard:     importGuard,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,

		publishTimeout: defaultPublishTimeout,
	}, nil
}

// SetPublishTimeout bounds the announcement phase; non-positive values keep the default.
func (s *ImportService) SetPublishTimeout(timeout time.Duration) {
	if s == nil || timeout <= 0 {
		return
	}
	s.publishTimeout = timeout
}

func (s *ImportService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Run converts the export at path into queued messages. Per-record problems
// end up in the report; only file, store and guard failures are returned.
func (s *ImportService) Run(ctx context.Context, path string, opts RunOptions) (report.Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := observability.RunLogger(s.logger, ctx)
	start := s.now()

	result, err := s.parser.ParseFile(path)
	if err != nil {
		return report.Report{}, err
	}
	s.recordParse(result)

	rep := report.Build(result)
	rep.DryRun = opts.DryRun

	logger.Info("export parsed",
		zap.String("file", filepath.Base(path)),
		zap.Int("rows", result.Stats.Rows),
		zap.Int("groups", result.Stats.Groups),
		zap.Int("queued", result.Stats.Queued),
		zap.Int("droppedNoPhone", result.Stats.DroppedNoPhone),
		zap.Int("separatorErrors", result.Stats.SeparatorErrors),
	)

	if rep.Empty() {
		logger.Info("no messages to queue")
		return rep, nil
	}
	if opts.DryRun {
		return rep, nil
	}
	if s.imports == nil {
		return rep, ErrStoreNotConfigured
	}

	claimed := false
	if s.guard != nil && !opts.Force {
		if err := s.guard.Acquire(ctx, result.Checksum); err != nil {
			return rep, err
		}
		claimed = true
	}

	imp, messages, err := s.prepare(path, result)
	if err != nil {
		s.release(ctx, logger, claimed, result.Checksum)
		return rep, err
	}

	if err := s.imports.Create(ctx, imp, messages); err != nil {
		s.release(ctx, logger, claimed, result.Checksum)
		return rep, fmt.Errorf("failed to store batch: %w", err)
	}

	rep.Unpublished = s.publish(ctx, logger, messages)

	s.metrics.ObserveImportDuration(s.now().Sub(start))
	s.metrics.MarkSuccess(s.now())

	logger.Info("batch stored",
		zap.String("importId", imp.ID),
		zap.Int("queued", len(messages)),
		zap.Int("errors", imp.ErrorCount),
		zap.Int("unpublished", rep.Unpublished),
	)

	return rep, nil
}

func (s *ImportService) prepare(path string, result *parser.Result) (*domain.Import, []*domain.Message, error) {
	now := s.now().UTC()
	importID := s.newID()

	messages := make([]*domain.Message, len(result.Batch))
	for i := range result.Batch {
		m := &result.Batch[i]
		m.ID = s.newID()
		m.ImportID = &importID
		m.QueuedAt = now
		if err := m.Validate(); err != nil {
			return nil, nil, fmt.Errorf("record %d for %s: %w", i+1, m.Recipient(), err)
		}
		messages[i] = m
	}

	imp := &domain.Import{
		ID:         importID,
		FileName:   filepath.Base(path),
		Checksum:   result.Checksum,
		TotalCount: len(messages),
		ErrorCount: len(result.Errors),
		CreatedAt:  now,
	}

	return imp, messages, nil
}

// publish announces messages in batch order within the publish timeout. The
// first failure ends the phase; that message and the rest count as unannounced.
func (s *ImportService) publish(ctx context.Context, logger *zap.Logger, messages []*domain.Message) int {
	if s.publisher == nil {
		return 0
	}

	publishCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	for i, m := range messages {
		err := s.publisher.Publish(publishCtx, queue.SMSQueue, queue.NewQueuedMessage(m))
		if err == nil {
			continue
		}

		failed := len(messages) - i
		logger.Error("work queue unavailable, stopped announcing batch",
			zap.String("messageId", m.ID),
			zap.Int("announced", i),
			zap.Int("unannounced", failed),
			zap.Error(err),
		)
		s.metrics.AddPublishFailed(failed)
		return failed
	}

	return 0
}

func (s *ImportService) release(ctx context.Context, logger *zap.Logger, claimed bool, checksum string) {
	if !claimed {
		return
	}
	if err := s.guard.Release(ctx, checksum); err != nil {
		logger.Error("failed to release import guard", zap.Error(err))
	}
}

func (s *ImportService) recordParse(result *parser.Result) {
	s.metrics.AddRowsRead(result.Stats.Rows)
	s.metrics.AddRecords(observability.OutcomeQueued, result.Stats.Queued)
	s.metrics.AddRecords(observability.OutcomeNoPhone, result.Stats.DroppedNoPhone)
	s.metrics.AddRecords(observability.OutcomeSeparator, result.Stats.SeparatorErrors)
	if result.Unterminated > 0 {
		s.metrics.AddRecords(observability.OutcomeUnterminated, 1)
	}
}
