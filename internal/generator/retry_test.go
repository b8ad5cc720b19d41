package generator

import (
	"context"
	"errors"
	"testing"
	"time"
)

type flakyClient struct {
	errs  []error
	calls int
}

func (f *flakyClient) Generate(ctx context.Context, _, _ string) (*LLMResponse, error) {
	f.calls++
	if f.calls <= len(f.errs) {
		return nil, f.errs[f.calls-1]
	}
	return &LLMResponse{Content: "ok"}, nil
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2}
}

func TestRetry_RecoversFromTransientErrors(t *testing.T) {
	inner := &flakyClient{errs: []error{
		&ErrProviderUnavailable{Err: errors.New("502")},
		&ErrRateLimit{Err: errors.New("429")},
	}}
	resp, err := WithRetry(inner, fastRetry(3)).Generate(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if resp.Content != "ok" || inner.calls != 3 {
		t.Errorf("content=%q calls=%d", resp.Content, inner.calls)
	}
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	unavailable := &ErrProviderUnavailable{Err: errors.New("down")}
	inner := &flakyClient{errs: []error{unavailable, unavailable, unavailable}}
	_, err := WithRetry(inner, fastRetry(2)).Generate(context.Background(), "s", "u")
	if !errors.Is(err, unavailable) {
		t.Fatalf("expected last error, got %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 calls, got %d", inner.calls)
	}
}

func TestRetry_DoesNotRetryContextOrInvalid(t *testing.T) {
	tests := []error{
		context.DeadlineExceeded,
		&ErrProviderUnavailable{Err: context.Canceled},
		&ErrInvalidResponse{Err: errors.New("empty")},
	}
	for _, e := range tests {
		inner := &flakyClient{errs: []error{e, e}}
		if _, err := WithRetry(inner, fastRetry(3)).Generate(context.Background(), "s", "u"); err == nil {
			t.Errorf("%v: expected error", e)
		}
		if inner.calls != 1 {
			t.Errorf("%v: expected 1 call, got %d", e, inner.calls)
		}
	}
}

func TestRetry_StopsWhenContextCancelled(t *testing.T) {
	inner := &flakyClient{errs: []error{&ErrProviderUnavailable{}, &ErrProviderUnavailable{}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := RetryConfig{MaxAttempts: 3, InitialWait: time.Hour, MaxWait: time.Hour, Multiplier: 1}
	_, err := WithRetry(inner, cfg).Generate(ctx, "s", "u")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRetry_BackoffHonoursRetryAfter(t *testing.T) {
	r := WithRetry(&flakyClient{}, fastRetry(3))
	if got := r.backoff(0, &ErrRateLimit{RetryAfter: 7 * time.Second}); got != 7*time.Second {
		t.Errorf("expected RetryAfter to win, got %v", got)
	}
	if got := r.backoff(10, errors.New("x")); got > 6*time.Millisecond {
		t.Errorf("expected backoff capped near MaxWait, got %v", got)
	}
}
