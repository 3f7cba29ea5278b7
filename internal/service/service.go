// Package service реализует бизнес-логику сервиса проверки ИНН.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/inn-checker/internal/metrics"
	"github.com/mmeshcher/inn-checker/internal/model"
	"github.com/mmeshcher/inn-checker/internal/validation"
)

// ErrJournalDisabled возвращается, если журнал проверок не настроен.
var ErrJournalDisabled = errors.New("check journal is disabled")

const (
	journalQueueSize = 1024
	journalBatchSize = 100
	historyLimit     = 100
	flushTimeout     = 5 * time.Second
)

// Repository описывает контракт журнала проверок, используемый сервисом.
type Repository interface {
	Close() error
	SaveChecks(ctx context.Context, checks []model.Check) error
	GetChecksByNumber(ctx context.Context, number string, limit int) ([]model.Check, error)
	GetStats(ctx context.Context) (*model.Stats, error)
}

// Service проверяет ИНН и ведёт журнал проверок.
type Service struct {
	repo    Repository
	metrics *metrics.Metrics
	logger  *zap.Logger
	pending chan model.Check
	now     func() time.Time
}

// NewService создаёт сервис. repo может быть nil, тогда журнал не ведётся.
func NewService(repo Repository, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		metrics: m,
		logger:  logger,
		pending: make(chan model.Check, journalQueueSize),
		now:     time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Check проверяет значение и ставит результат в очередь журнала.
func (s *Service) Check(ctx context.Context, candidate any, expected validation.PayerType) model.Check {
	number, _ := validation.Canonical(candidate)

	c := model.Check{
		Number:    number,
		PayerType: expected,
		Result:    validation.Validate(candidate, expected),
		CheckedAt: s.now().UTC(),
	}

	s.metrics.ObserveCheck(c.Result, c.PayerType)

	if s.repo == nil || c.Result == validation.ResultUnknown {
		return c
	}

	select {
	case s.pending <- c:
	default:
		s.metrics.IncrementDropped()
		s.logger.Warn("check journal queue is full, dropping check", zap.String("inn", c.Number))
	}

	return c
}

// GetChecks возвращает последние проверки номера.
func (s *Service) GetChecks(ctx context.Context, number string) ([]model.Check, error) {
	if s.repo == nil {
		return nil, ErrJournalDisabled
	}
	return s.repo.GetChecksByNumber(ctx, number, historyLimit)
}

// GetStats возвращает количество проверок в журнале по результатам.
func (s *Service) GetStats(ctx context.Context) (*model.Stats, error) {
	if s.repo == nil {
		return nil, ErrJournalDisabled
	}
	return s.repo.GetStats(ctx)
}

// RunJournal переносит проверки из очереди в журнал до отмены контекста.
// Проверки, оставшиеся в очереди при остановке, записываются с отдельным таймаутом.
func (s *Service) RunJournal(ctx context.Context, flushInterval time.Duration) {
	if s.repo == nil {
		return
	}

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]model.Check, 0, journalBatchSize)

	for {
		select {
		case <-ctx.Done():
			batch = s.drain(batch)

			flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			s.flush(flushCtx, batch)
			cancel()
			return
		case c := <-s.pending:
			batch = append(batch, c)
			if len(batch) >= journalBatchSize {
				batch = s.flush(ctx, batch)
			}
		case <-ticker.C:
			batch = s.flush(ctx, batch)
		}
	}
}

func (s *Service) drain(batch []model.Check) []model.Check {
	for {
		select {
		case c := <-s.pending:
			batch = append(batch, c)
		default:
			return batch
		}
	}
}

// flush пишет пачку в журнал и возвращает пустой срез для следующей пачки.
func (s *Service) flush(ctx context.Context, batch []model.Check) []model.Check {
	if len(batch) == 0 {
		return batch
	}

	start := time.Now()
	if err := s.repo.SaveChecks(ctx, batch); err != nil {
		s.logger.Error("save checks error", zap.Error(err), zap.Int("count", len(batch)))
		return batch[:0]
	}
	s.metrics.ObserveFlush(start, len(batch))

	return batch[:0]
}
