package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/mmeshcher/inn-checker/internal/metrics"
	"github.com/mmeshcher/inn-checker/internal/model"
	"github.com/mmeshcher/inn-checker/internal/validation"
)

type stubRepo struct {
	mu      sync.Mutex
	saved   []model.Check
	saveErr error

	checks    []model.Check
	checksErr error
	limit     int

	stats    *model.Stats
	statsErr error

	closed bool
}

func (s *stubRepo) Close() error {
	s.closed = true
	return nil
}

func (s *stubRepo) SaveChecks(ctx context.Context, checks []model.Check) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, checks...)
	return nil
}

func (s *stubRepo) GetChecksByNumber(ctx context.Context, number string, limit int) ([]model.Check, error) {
	s.limit = limit
	return s.checks, s.checksErr
}

func (s *stubRepo) GetStats(ctx context.Context) (*model.Stats, error) {
	return s.stats, s.statsErr
}

func (s *stubRepo) savedChecks() []model.Check {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Check(nil), s.saved...)
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()

	svc := NewService(repo, metrics.New(prometheus.NewRegistry()), zap.NewNop())
	svc.now = func() time.Time {
		return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestCheck_Results(t *testing.T) {
	svc := newTestService(t, nil)

	tests := []struct {
		name      string
		candidate any
		expected  validation.PayerType
		want      validation.Result
		number    string
	}{
		{
			name:      "valid organization",
			candidate: "7707083893",
			want:      validation.ResultValid,
			number:    "7707083893",
		},
		{
			name:      "integer individual",
			candidate: int64(500100732259),
			expected:  validation.PayerTypeIndividual,
			want:      validation.ResultValid,
			number:    "500100732259",
		},
		{
			name:      "type mismatch",
			candidate: "7707083893",
			expected:  validation.PayerTypeIndividual,
			want:      validation.ResultInvalid,
			number:    "7707083893",
		},
		{
			name:      "absent",
			candidate: nil,
			want:      validation.ResultUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := svc.Check(context.Background(), tt.candidate, tt.expected)
			if c.Result != tt.want {
				t.Fatalf("Result = %s, want %s", c.Result, tt.want)
			}
			if c.Number != tt.number {
				t.Fatalf("Number = %q, want %q", c.Number, tt.number)
			}
			if c.PayerType != tt.expected {
				t.Fatalf("PayerType = %q, want %q", c.PayerType, tt.expected)
			}
			if c.CheckedAt.IsZero() {
				t.Fatalf("CheckedAt is zero")
			}
		})
	}

	got := testutil.ToFloat64(svc.metrics.Checks.WithLabelValues("VALID", "unspecified"))
	if got != 1 {
		t.Fatalf("VALID/unspecified counter = %v, want 1", got)
	}
}

func TestCheck_UnknownIsNotJournaled(t *testing.T) {
	svc := newTestService(t, &stubRepo{})

	svc.Check(context.Background(), nil, validation.PayerTypeUnspecified)
	svc.Check(context.Background(), "7707083893", validation.PayerTypeUnspecified)

	if n := len(svc.pending); n != 1 {
		t.Fatalf("pending = %d, want 1", n)
	}
}

func TestCheck_DropsWhenQueueIsFull(t *testing.T) {
	svc := newTestService(t, &stubRepo{})
	svc.pending = make(chan model.Check, 1)

	svc.Check(context.Background(), "7707083893", validation.PayerTypeUnspecified)
	svc.Check(context.Background(), "7707083894", validation.PayerTypeUnspecified)

	if got := testutil.ToFloat64(svc.metrics.JournalDropped); got != 1 {
		t.Fatalf("dropped = %v, want 1", got)
	}
}

func TestRunJournal_NoRepository(t *testing.T) {
	svc := newTestService(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})

	go func() {
		svc.RunJournal(ctx, 10*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("RunJournal did not return without repository")
	}
}

func TestRunJournal_FlushesOnTick(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(t, repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		svc.RunJournal(ctx, 10*time.Millisecond)
		close(done)
	}()

	svc.Check(ctx, "7707083893", validation.PayerTypeOrganization)
	svc.Check(ctx, "7707083894", validation.PayerTypeUnspecified)

	deadline := time.After(time.Second)
	for len(repo.savedChecks()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("checks were not flushed, saved %d", len(repo.savedChecks()))
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done

	saved := repo.savedChecks()
	if saved[0].Result != validation.ResultValid || saved[1].Result != validation.ResultInvalid {
		t.Fatalf("unexpected saved checks: %+v", saved)
	}
}

func TestRunJournal_FlushesOnShutdown(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(t, repo)

	for i := 0; i < 3; i++ {
		svc.Check(context.Background(), "500100732259", validation.PayerTypeIndividual)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc.RunJournal(ctx, time.Hour)

	if n := len(repo.savedChecks()); n != 3 {
		t.Fatalf("saved = %d, want 3", n)
	}
}

func TestRunJournal_SaveErrorDoesNotStop(t *testing.T) {
	repo := &stubRepo{saveErr: errors.New("db down")}
	svc := newTestService(t, repo)

	svc.Check(context.Background(), "7707083893", validation.PayerTypeUnspecified)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc.RunJournal(ctx, time.Hour)

	if got := testutil.ToFloat64(svc.metrics.JournalSaved); got != 0 {
		t.Fatalf("saved counter = %v, want 0", got)
	}
}

func TestGetChecks(t *testing.T) {
	repo := &stubRepo{
		checks: []model.Check{{Number: "7707083893", Result: validation.ResultValid}},
	}
	svc := newTestService(t, repo)

	res, err := svc.GetChecks(context.Background(), "7707083893")
	if err != nil {
		t.Fatalf("GetChecks error: %v", err)
	}
	if len(res) != 1 || res[0].Number != "7707083893" {
		t.Fatalf("unexpected checks: %+v", res)
	}
	if repo.limit != historyLimit {
		t.Fatalf("limit = %d, want %d", repo.limit, historyLimit)
	}
}

func TestJournalDisabled(t *testing.T) {
	svc := newTestService(t, nil)

	if _, err := svc.GetChecks(context.Background(), "7707083893"); !errors.Is(err, ErrJournalDisabled) {
		t.Fatalf("GetChecks error = %v, want ErrJournalDisabled", err)
	}
	if _, err := svc.GetStats(context.Background()); !errors.Is(err, ErrJournalDisabled) {
		t.Fatalf("GetStats error = %v, want ErrJournalDisabled", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}

func TestGetStats_PassThrough(t *testing.T) {
	repo := &stubRepo{stats: &model.Stats{Valid: 2, Invalid: 1}}
	svc := newTestService(t, repo)

	stats, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if stats.Valid != 2 || stats.Invalid != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if err := svc.Close(); err != nil || !repo.closed {
		t.Fatalf("Close did not close repository")
	}
}
