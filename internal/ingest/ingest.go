// Package ingest keeps one subscription open per relay and forwards every
// received event to a handler.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tenex-chat/web-client-sub005/internal/gateway"
	"github.com/tenex-chat/web-client-sub005/pkg/nostr"
	"github.com/tenex-chat/web-client-sub005/pkg/nostr/relay"
)

// Handler receives relay events. The gateway implements it.
type Handler interface {
	HandleEvent(ctx context.Context, ev *nostr.Event) error
}

// Options selects what to subscribe to.
type Options struct {
	Relays   []string
	Project  string
	Lookback time.Duration
}

// Ingester runs the relay subscriptions.
type Ingester struct {
	opts    Options
	handler Handler
	retry   *gateway.RetryPolicy
	dial    func(ctx context.Context, url string) (*relay.Client, error)
	now     func() time.Time
}

// New creates an Ingester. A nil retry policy uses gateway.DefaultRetryPolicy.
func New(opts Options, handler Handler, retry *gateway.RetryPolicy) *Ingester {
	if retry == nil {
		retry = gateway.DefaultRetryPolicy()
	}
	return &Ingester{
		opts:    opts,
		handler: handler,
		retry:   retry,
		dial:    relay.Dial,
		now:     time.Now,
	}
}

// Filters returns the subscription filters for a connection opened now.
func (in *Ingester) Filters() []nostr.Filter {
	f := nostr.Filter{Kinds: nostr.ConversationKinds}
	if in.opts.Project != "" {
		f.Tags = map[string][]string{nostr.TagAddress: {in.opts.Project}}
	}
	if in.opts.Lookback > 0 {
		f.Since = in.now().Add(-in.opts.Lookback).Unix()
	}
	return []nostr.Filter{f}
}

// Run subscribes to every relay until ctx is cancelled. It returns early
// only when a relay fails permanently.
func (in *Ingester) Run(ctx context.Context) error {
	if len(in.opts.Relays) == 0 {
		return fmt.Errorf("ingest: no relays configured")
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, url := range in.opts.Relays {
		g.Go(func() error {
			return in.runRelay(ctx, url)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runRelay reconnects to one relay with backoff. The attempt counter resets
// once a connection has delivered events.
func (in *Ingester) runRelay(ctx context.Context, url string) error {
	attempt := 0
	for {
		received, err := in.session(ctx, url)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if received > 0 {
			attempt = 0
		}
		attempt++
		if err != nil && !gateway.Retryable(err) {
			return fmt.Errorf("relay %s: %w", url, err)
		}
		delay := in.retry.NextDelay(attempt)
		slog.Warn("relay disconnected", "relay", url, "attempt", attempt, "retry_in", delay, "error", err)
		if err := in.retry.Wait(ctx, attempt); err != nil {
			return err
		}
	}
}

// session runs one connection until it drops and reports how many events
// it forwarded.
func (in *Ingester) session(ctx context.Context, url string) (int, error) {
	client, err := in.dial(ctx, url)
	if err != nil {
		return 0, err
	}
	defer client.Close()

	sub, err := client.Subscribe(ctx, in.Filters()...)
	if err != nil {
		return 0, err
	}
	slog.Info("relay subscribed", "relay", url, "sub_id", sub.ID)

	received := 0
	eose := sub.EOSE
	for {
		select {
		case ev := <-sub.Events:
			received++
			in.forward(ctx, url, ev)
		case <-eose:
			eose = nil
			slog.Debug("relay caught up", "relay", url, "events", received)
		case <-sub.Done():
			received += in.drain(ctx, url, sub.Events)
			return received, connErr(client)
		case <-ctx.Done():
			return received, ctx.Err()
		}
	}
}

// drain forwards events already buffered when a subscription ends.
func (in *Ingester) drain(ctx context.Context, url string, events <-chan *nostr.Event) int {
	n := 0
	for {
		select {
		case ev := <-events:
			n++
			in.forward(ctx, url, ev)
		default:
			return n
		}
	}
}

func (in *Ingester) forward(ctx context.Context, url string, ev *nostr.Event) {
	if err := in.handler.HandleEvent(ctx, ev); err != nil {
		slog.Error("handle event failed", "relay", url, "event_id", ev.ID, "kind", ev.Kind, "error", err)
	}
}

func connErr(c *relay.Client) error {
	if err := c.Err(); err != nil {
		return err
	}
	return relay.ErrClosed
}
