package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"
)

func TestRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{fmt.Errorf("subscribe: %w", context.Canceled), false},
		{io.EOF, true},
		{fmt.Errorf("read relay: %w", io.ErrUnexpectedEOF), true},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("websocket: close 1006 (abnormal closure)"), true},
		{errors.New("websocket: bad handshake"), false},
		{errors.New("restricted: not on the allow list"), false},
		{errors.New("invalid request"), false},
		{errors.New("something odd"), true},
	}
	for _, tc := range cases {
		if got := Retryable(tc.err); got != tc.want {
			t.Errorf("Retryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestShouldRetryHonoursAttempts(t *testing.T) {
	p := DefaultRetryPolicy()
	if !p.ShouldRetry(io.EOF, 3) {
		t.Error("expected retry within the attempt limit")
	}
	if p.ShouldRetry(io.EOF, 4) {
		t.Error("should not retry after max attempts")
	}
}

func TestNextDelay(t *testing.T) {
	p := DefaultRetryPolicy()
	for attempt, want := range map[int]time.Duration{1: time.Second, 2: 2 * time.Second, 3: 4 * time.Second, 10: 30 * time.Second} {
		if got := p.NextDelay(attempt); got != want {
			t.Errorf("attempt %d: expected %v, got %v", attempt, want, got)
		}
	}
}

func fastPolicy(attempts int) *RetryPolicy {
	return &RetryPolicy{MaxAttempts: attempts, InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: 5 * time.Millisecond}
}

func TestExecute(t *testing.T) {
	cases := []struct {
		name      string
		fail      int
		err       error
		wantCalls int
		wantErr   bool
	}{
		{"succeeds after transient failures", 2, errors.New("temporary failure"), 3, false},
		{"stops on permanent failure", 99, errors.New("forbidden"), 1, true},
		{"gives up after max attempts", 99, errors.New("timeout"), 3, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			err := fastPolicy(3).Execute(context.Background(), func(context.Context) error {
				calls++
				if calls <= tc.fail {
					return tc.err
				}
				return nil
			})
			if (err != nil) != tc.wantErr {
				t.Errorf("unexpected error result: %v", err)
			}
			if calls != tc.wantCalls {
				t.Errorf("expected %d calls, got %d", tc.wantCalls, calls)
			}
		})
	}
}

func TestExecuteStopsOnCancelledBackoff(t *testing.T) {
	p := &RetryPolicy{MaxAttempts: 5, InitialDelay: time.Hour, Multiplier: 1, MaxDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := p.Execute(ctx, func(context.Context) error {
		calls++
		cancel()
		return io.EOF
	})
	if !errors.Is(err, io.EOF) || calls != 1 {
		t.Errorf("expected one call returning the fn error, got %d calls, err %v", calls, err)
	}
}

func TestWaitCancelled(t *testing.T) {
	p := &RetryPolicy{MaxAttempts: 3, InitialDelay: time.Hour, Multiplier: 1, MaxDelay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := p.Wait(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Wait ignored cancellation")
	}
}
