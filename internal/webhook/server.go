// internal/webhook/server.go
package webhook

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tenex-chat/web-client-sub005/internal/feed"
	"github.com/tenex-chat/web-client-sub005/internal/state"
	"github.com/tenex-chat/web-client-sub005/internal/types"
	"github.com/tenex-chat/web-client-sub005/pkg/nostr"
)

// EventHandler accepts events pushed over HTTP. The gateway implements it.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev *nostr.Event) error
}

// Digests projects conversations and sends digests. feed.Digester
// implements it.
type Digests interface {
	Project(ctx context.Context, id types.ConversationID) (feed.Update, error)
	Send(ctx context.Context, id types.ConversationID, target string) error
}

// Deps collects the server's collaborators. Any of them may be nil; the
// routes that need a missing one answer 503.
type Deps struct {
	Handler       EventHandler
	Conversations types.ConversationStore
	Events        types.EventStore
	Digests       Digests
	Watches       *state.WatchStore
	Bus           *feed.Bus
}

// Server is the HTTP API: event intake, conversation reads, live updates
// over SSE, and named watch triggers.
type Server struct {
	router    *gin.Engine
	deps      Deps
	keepalive time.Duration
}

// NewServer creates the API server.
func NewServer(deps Deps) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	s := &Server{router: r, deps: deps, keepalive: 30 * time.Second}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.POST("/webhook/:watch", s.handleWatch)

	api := s.router.Group("/api")
	api.POST("/events", s.handleEvent)
	api.GET("/conversations", s.handleConversations)
	api.GET("/conversations/:id/items", s.handleItems)
	api.GET("/conversations/:id/status", s.handleStatus)
	api.GET("/conversations/:id/stream", s.handleStream)
}

// ServeHTTP delegates to the router, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Engine returns the gin engine.
func (s *Server) Engine() *gin.Engine { return s.router }

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func errorJSON(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}

func unavailable(c *gin.Context) {
	errorJSON(c, http.StatusServiceUnavailable, "not configured")
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleEvent(c *gin.Context) {
	if s.deps.Handler == nil {
		unavailable(c)
		return
	}
	var ev nostr.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid JSON")
		return
	}
	if ev.ID == "" {
		errorJSON(c, http.StatusBadRequest, "id is required")
		return
	}
	if err := s.deps.Handler.HandleEvent(c.Request.Context(), &ev); err != nil {
		slog.Error("handle posted event failed", "event_id", ev.ID, "error", err)
		errorJSON(c, http.StatusInternalServerError, "internal server error")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": ev.ID})
}

type conversationResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title,omitempty"`
	Project    string    `json:"project,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	LastSeenAt int64     `json:"last_seen_at"`
	EventCount int64     `json:"event_count"`
}

func (s *Server) handleConversations(c *gin.Context) {
	if s.deps.Conversations == nil || s.deps.Events == nil {
		unavailable(c)
		return
	}
	ctx := c.Request.Context()
	convs, err := s.deps.Conversations.List(ctx)
	if err != nil {
		slog.Error("list conversations failed", "error", err)
		errorJSON(c, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]conversationResponse, 0, len(convs))
	for _, conv := range convs {
		count, err := s.deps.Events.Count(ctx, conv.ID)
		if err != nil {
			slog.Warn("count events failed", "conversation_id", conv.ID, "error", err)
		}
		out = append(out, conversationResponse{
			ID:         string(conv.ID),
			Title:      conv.Title,
			Project:    conv.Project,
			CreatedAt:  conv.CreatedAt,
			UpdatedAt:  conv.UpdatedAt,
			LastSeenAt: conv.LastSeenAt,
			EventCount: count,
		})
	}
	c.JSON(http.StatusOK, out)
}

// project loads the conversation's current projection, answering the
// request itself on failure.
func (s *Server) project(c *gin.Context) (feed.Update, bool) {
	if s.deps.Digests == nil {
		unavailable(c)
		return feed.Update{}, false
	}
	id := types.ConversationID(c.Param("id"))
	u, err := s.deps.Digests.Project(c.Request.Context(), id)
	if err != nil {
		slog.Error("project conversation failed", "conversation_id", id, "error", err)
		errorJSON(c, http.StatusInternalServerError, "internal server error")
		return feed.Update{}, false
	}
	return u, true
}

func (s *Server) handleItems(c *gin.Context) {
	u, ok := s.project(c)
	if !ok {
		return
	}
	items := u.Items
	if items == nil {
		items = []types.DisplayItem{}
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) handleStatus(c *gin.Context) {
	u, ok := s.project(c)
	if !ok {
		return
	}
	scope, scoped := c.GetQuery("scope")
	if !scoped {
		c.JSON(http.StatusOK, gin.H{"active": u.Active, "snapshots": u.Status})
		return
	}
	for _, snap := range u.Status {
		if snap.SubjectEventID == c.Param("id") && snap.ScopeID == scope {
			c.JSON(http.StatusOK, snap)
			return
		}
	}
	errorJSON(c, http.StatusNotFound, "no status for scope")
}

func (s *Server) handleStream(c *gin.Context) {
	if s.deps.Bus == nil {
		unavailable(c)
		return
	}
	u, ok := s.project(c)
	if !ok {
		return
	}

	clientID := fmt.Sprintf("sse-%d", time.Now().UnixNano())
	ch := s.deps.Bus.Subscribe(clientID, c.Param("id"))
	defer func() {
		s.deps.Bus.Unsubscribe(clientID)
		slog.Debug("sse client disconnected", "client_id", clientID)
	}()
	slog.Debug("sse client connected", "client_id", clientID, "conversation_id", c.Param("id"))

	c.SSEvent("update", u)
	c.Writer.Flush()

	keepalive := time.NewTimer(s.keepalive)
	defer keepalive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case u := <-ch:
			c.SSEvent("update", u)
			if !keepalive.Stop() {
				select {
				case <-keepalive.C:
				default:
				}
			}
			keepalive.Reset(s.keepalive)
			return true
		case <-keepalive.C:
			c.SSEvent("ping", "keepalive")
			keepalive.Reset(s.keepalive)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (s *Server) handleWatch(c *gin.Context) {
	if s.deps.Watches == nil || s.deps.Digests == nil {
		unavailable(c)
		return
	}
	name := c.Param("watch")
	w, err := s.deps.Watches.Get(name)
	if err != nil {
		errorJSON(c, http.StatusNotFound, "watch not found")
		return
	}
	if !w.Enabled {
		errorJSON(c, http.StatusForbidden, "watch is disabled")
		return
	}

	// An optional body may redirect this one delivery.
	target := w.Target
	var body struct {
		Target string `json:"target"`
	}
	if err := c.ShouldBindJSON(&body); err == nil && body.Target != "" {
		target = body.Target
	}

	if err := s.deps.Digests.Send(c.Request.Context(), types.ConversationID(w.Conversation), target); err != nil {
		slog.Error("watch delivery failed", "watch", name, "target", target, "error", err)
		errorJSON(c, http.StatusBadGateway, "delivery failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent", "target": target})
}
