package processing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/veridoc/veridoc/internal/ocr"
	"github.com/veridoc/veridoc/internal/verification"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"ocr unavailable", ocr.ErrUnavailable, true},
		{"ocr timeout", ocr.ErrTimeout, true},
		{"wrapped ocr fault", errors.Join(errors.New("recognize"), ocr.ErrUnavailable), true},
		{"context canceled", context.Canceled, true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"explicit transient", Transient(errors.New("db down")), true},
		{"explicit input", Input(errors.New("bad template")), false},
		{"invalid bounds", verification.ErrInvalidBounds, false},
		{"invalid page", verification.ErrInvalidPage, false},
		{"no fields", verification.ErrNoFields, false},
		{"unclassified", errors.New("mystery"), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Retryable(tc.err); got != tc.want {
				t.Errorf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestFaultUnwrap(t *testing.T) {
	base := errors.New("storage offline")

	if !errors.Is(Transient(base), base) {
		t.Error("TransientFault does not unwrap")
	}
	if !errors.Is(Input(base), base) {
		t.Error("InputError does not unwrap")
	}
}

func TestRetryDelay(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
	}

	for _, tc := range tests {
		if got := cfg.RetryDelay(tc.retry); got != tc.want {
			t.Errorf("RetryDelay(%d) = %v, want %v", tc.retry, got, tc.want)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Workers)
	}
	if cfg.RetryBudget != 3 {
		t.Errorf("retry_budget = %d, want 3", cfg.RetryBudget)
	}
	if cfg.Poll() != 2*time.Second {
		t.Errorf("poll = %v, want 2s", cfg.Poll())
	}
	if cfg.StaleWindow() != 5*time.Minute {
		t.Errorf("stale window = %v, want 5m", cfg.StaleWindow())
	}
}

func TestConfigStaleAfter(t *testing.T) {
	cfg := &Config{StaleAfter: "90s"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StaleWindow() != 90*time.Second {
		t.Errorf("stale window = %v, want 90s", cfg.StaleWindow())
	}

	bad := &Config{StaleAfter: "banana"}
	if err := bad.Finalize(nil); err == nil {
		t.Error("expected error for unparseable stale_after")
	}
}

func TestLeaseSingleHolder(t *testing.T) {
	reg := NewLeaseRegistry()
	id := uuid.New()

	leaseCtx, ok := reg.Acquire(context.Background(), id)
	if !ok {
		t.Fatal("first acquire refused")
	}
	if leaseCtx.Err() != nil {
		t.Fatal("lease context already cancelled")
	}

	if _, ok := reg.Acquire(context.Background(), id); ok {
		t.Fatal("second acquire granted while lease held")
	}

	reg.Release(id)
	if leaseCtx.Err() == nil {
		t.Error("release did not cancel lease context")
	}

	if _, ok := reg.Acquire(context.Background(), id); !ok {
		t.Error("acquire refused after release")
	}
}

func TestLeaseCancel(t *testing.T) {
	reg := NewLeaseRegistry()
	id := uuid.New()

	if reg.Cancel(id) {
		t.Fatal("cancel succeeded with no active lease")
	}

	leaseCtx, _ := reg.Acquire(context.Background(), id)

	if !reg.Cancel(id) {
		t.Fatal("cancel refused for active lease")
	}
	select {
	case <-leaseCtx.Done():
	case <-time.After(time.Second):
		t.Fatal("cancel did not abort lease context")
	}

	// Lease stays held until the worker releases it.
	if _, ok := reg.Acquire(context.Background(), id); ok {
		t.Error("acquire granted before release of cancelled lease")
	}
	reg.Release(id)
}

func TestLeaseConcurrentAcquire(t *testing.T) {
	reg := NewLeaseRegistry()
	id := uuid.New()

	const attempts = 32
	var granted int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := reg.Acquire(context.Background(), id); ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != 1 {
		t.Errorf("granted = %d, want exactly 1", granted)
	}
	if reg.Len() != 1 {
		t.Errorf("len = %d, want 1", reg.Len())
	}
}

func TestRequiredMissing(t *testing.T) {
	result := &verification.Result{
		Fields: []verification.FieldResult{
			{Name: "a", Required: true, Outcome: verification.OutcomeMissing},
			{Name: "b", Required: false, Outcome: verification.OutcomeMissing},
			{Name: "c", Required: true, Outcome: verification.OutcomePass},
		},
	}

	if got := requiredMissing(result); got != 1 {
		t.Errorf("requiredMissing = %d, want 1", got)
	}
}
