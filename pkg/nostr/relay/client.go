// Package relay implements a minimal Nostr relay client over websockets:
// dial, subscribe with filters, and stream matching events.
//
// Signatures are not verified here; callers that need authenticity must
// check events themselves.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tenex-chat/web-client-sub005/pkg/nostr"
)

const (
	handshakeTimeout = 10 * time.Second
	readIdleTimeout  = 90 * time.Second
	pingInterval     = 30 * time.Second
	writeTimeout     = 10 * time.Second
	subscriptionBuf  = 256
)

// ErrClosed is returned for operations on a closed client.
var ErrClosed = errors.New("relay connection closed")

// Client is a single relay connection. It is safe for concurrent use.
type Client struct {
	URL string

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu   sync.Mutex
	subs map[string]*Subscription

	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// Dial connects to the relay at url and starts the read loop.
func Dial(ctx context.Context, url string) (*Client, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		NetDialContext:   (&net.Dialer{Timeout: handshakeTimeout}).DialContext,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", url, err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
	})

	c := &Client{
		URL:  url,
		conn: conn,
		subs: make(map[string]*Subscription),
		done: make(chan struct{}),
	}
	go c.readLoop()
	go c.pingLoop()
	return c, nil
}

// Done is closed once the connection has terminated.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that terminated the connection, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close terminates the connection and ends every subscription.
func (c *Client) Close() error {
	c.shutdown(ErrClosed)
	return nil
}

// Subscribe sends a REQ with the given filters. The subscription ends when
// ctx is cancelled, Unsubscribe is called, or the connection drops.
func (c *Client) Subscribe(ctx context.Context, filters ...nostr.Filter) (*Subscription, error) {
	sub := &Subscription{
		ID:      uuid.New().String(),
		Filters: filters,
		client:  c,
		events:  make(chan *nostr.Event, subscriptionBuf),
		eose:    make(chan struct{}),
	}
	sub.Events = sub.events
	sub.EOSE = sub.eose

	c.mu.Lock()
	if c.isDone() {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.subs[sub.ID] = sub
	c.mu.Unlock()

	msg, err := nostr.ReqMessage(sub.ID, filters...)
	if err != nil {
		c.removeSub(sub.ID)
		return nil, fmt.Errorf("encode REQ: %w", err)
	}
	if err := c.write(msg); err != nil {
		c.removeSub(sub.ID)
		return nil, fmt.Errorf("send REQ: %w", err)
	}

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Unsubscribe()
		case <-sub.stopped():
		}
	}()
	return sub, nil
}

func (c *Client) isDone() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) write(msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.isDone() {
		return ErrClosed
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

func (c *Client) removeSub(id string) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	sub, ok := c.subs[id]
	if !ok {
		return nil
	}
	delete(c.subs, id)
	return sub
}

func (c *Client) lookupSub(id string) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs[id]
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.shutdown(fmt.Errorf("read relay %s: %w", c.URL, err))
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readIdleTimeout))

		env, err := nostr.ParseEnvelope(data)
		if err != nil {
			slog.Debug("ignoring relay message", "relay", c.URL, "error", err)
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env *nostr.Envelope) {
	switch env.Label {
	case nostr.LabelEvent:
		sub := c.lookupSub(env.SubscriptionID)
		if sub == nil || !sub.matches(env.Event) {
			return
		}
		sub.deliver(env.Event, c.done)
	case nostr.LabelEOSE:
		if sub := c.lookupSub(env.SubscriptionID); sub != nil {
			sub.markEOSE()
		}
	case nostr.LabelClosed:
		if sub := c.removeSub(env.SubscriptionID); sub != nil {
			slog.Warn("relay closed subscription", "relay", c.URL, "subscription", sub.ID, "reason", env.Message)
			sub.finish()
		}
	case nostr.LabelNotice:
		slog.Info("relay notice", "relay", c.URL, "message", env.Message)
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			c.writeMu.Unlock()
			if err != nil {
				c.shutdown(fmt.Errorf("ping relay %s: %w", c.URL, err))
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = cause
		subs := c.subs
		c.subs = make(map[string]*Subscription)
		close(c.done)
		c.mu.Unlock()

		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = c.conn.Close()

		for _, sub := range subs {
			sub.finish()
		}
	})
}
