package feed

import (
	"context"
	"fmt"

	"github.com/tenex-chat/web-client-sub005/internal/delivery"
	"github.com/tenex-chat/web-client-sub005/internal/gateway"
	"github.com/tenex-chat/web-client-sub005/internal/transcript"
	"github.com/tenex-chat/web-client-sub005/internal/types"
)

// Digester renders conversation transcripts and hands them to delivery.
type Digester struct {
	conversations types.ConversationStore
	processor     *Processor
	engine        *transcript.Engine
	registry      *delivery.Registry
	retry         *gateway.RetryPolicy
}

// NewDigester wires a Digester. registry may be nil when only Render is used.
func NewDigester(conversations types.ConversationStore, processor *Processor, engine *transcript.Engine, registry *delivery.Registry, retry *gateway.RetryPolicy) *Digester {
	if retry == nil {
		retry = gateway.DefaultRetryPolicy()
	}
	return &Digester{
		conversations: conversations,
		processor:     processor,
		engine:        engine,
		registry:      registry,
		retry:         retry,
	}
}

// Project returns the current projection of a conversation.
func (d *Digester) Project(ctx context.Context, id types.ConversationID) (Update, error) {
	return d.processor.Project(ctx, id)
}

// Render projects the conversation and renders it as a transcript.
func (d *Digester) Render(ctx context.Context, id types.ConversationID) (string, error) {
	conv, err := d.conversations.Get(ctx, id)
	if err != nil {
		return "", err
	}
	u, err := d.processor.Project(ctx, id)
	if err != nil {
		return "", err
	}
	return d.engine.Render(conv, u.Items, u.Status)
}

// Send renders the conversation and delivers it to target, retrying
// transient delivery failures.
func (d *Digester) Send(ctx context.Context, id types.ConversationID, target string) error {
	if d.registry == nil {
		return fmt.Errorf("send digest: no delivery registry")
	}
	text, err := d.Render(ctx, id)
	if err != nil {
		return fmt.Errorf("render digest: %w", err)
	}
	return d.retry.Execute(ctx, func(context.Context) error {
		return d.registry.Deliver(target, text)
	})
}
