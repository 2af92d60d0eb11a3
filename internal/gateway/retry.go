package gateway

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"
)

// RetryPolicy is the exponential backoff shared by relay reconnects and
// digest delivery.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultRetryPolicy: 3 attempts, 1s doubling up to 30s.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Multiplier:   2,
		MaxDelay:     30 * time.Second,
	}
}

// Substrings matched against lowercased error text when the error carries no
// type information. Transient matches win over permanent ones.
var (
	transientText = []string{"connection refused", "connection reset", "timeout", "temporary failure", "close 1006", "broken pipe"}
	permanentText = []string{"invalid", "unauthorized", "forbidden", "bad handshake", "restricted", "blocked"}
)

// Retryable reports whether err is worth another attempt. Cancellation is
// final, dropped connections and timeouts are not, and anything
// unrecognised is retried.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if containsAny(msg, transientText) || strings.Contains(msg, "eof") {
		return true
	}
	return !containsAny(msg, permanentText)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ShouldRetry combines Retryable with the attempt limit. attempt counts the
// failures so far, starting at 1.
func (p *RetryPolicy) ShouldRetry(err error, attempt int) bool {
	return attempt <= p.MaxAttempts && Retryable(err)
}

// NextDelay is InitialDelay grown by Multiplier for every attempt after the
// first, capped at MaxDelay.
func (p *RetryPolicy) NextDelay(attempt int) time.Duration {
	delay := p.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return min(delay, p.MaxDelay)
}

// Wait blocks for NextDelay(attempt). It returns ctx.Err() if ctx ends first.
func (p *RetryPolicy) Wait(ctx context.Context, attempt int) error {
	t := time.NewTimer(p.NextDelay(attempt))
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Execute calls fn until it succeeds, fails permanently, runs out of
// attempts, or ctx ends during a backoff. The last error from fn is
// returned.
func (p *RetryPolicy) Execute(ctx context.Context, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !p.ShouldRetry(err, attempt) || attempt == p.MaxAttempts {
			break
		}
		if p.Wait(ctx, attempt) != nil {
			break
		}
	}
	return err
}
