// Package transcript renders projected conversations as plain text within a
// token budget, for chat delivery and digests.
package transcript

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/pkoukk/tiktoken-go"

	"github.com/tenex-chat/web-client-sub005/internal/status"
	"github.com/tenex-chat/web-client-sub005/internal/types"
)

// Engine renders token-budgeted transcripts.
type Engine struct {
	tokenizer *tiktoken.Tiktoken
	maxTokens int
	header    *headerTemplate
}

// New creates an engine for the given tokenizer model and budget. Unknown
// models use cl100k_base; when no encoding can be loaded at all, token
// counts are estimated from text length.
func New(model string, maxTokens int) (*Engine, error) {
	header, err := parseHeader(DefaultHeader)
	if err != nil {
		return nil, err
	}
	e := &Engine{maxTokens: maxTokens, header: header}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		slog.Warn("tokenizer unavailable, estimating token counts", "model", model, "error", err)
	} else {
		e.tokenizer = enc
	}
	return e, nil
}

// CountTokens returns the token count for a string.
func (e *Engine) CountTokens(text string) int {
	if e.tokenizer == nil {
		return (utf8.RuneCountInString(text) + 3) / 4
	}
	return len(e.tokenizer.Encode(text, nil, nil))
}

// Render produces a transcript of items: a header followed by as many of
// the most recent items as fit in the budget, oldest first.
func (e *Engine) Render(conv *types.Conversation, items []types.DisplayItem, snaps []status.Snapshot) (string, error) {
	lines := make([]string, 0, len(items))
	used := 0
	budget := e.maxTokens - e.CountTokens(e.header.placeholder())

	start := len(items)
	for i := len(items) - 1; i >= 0; i-- {
		line := FormatItem(items[i])
		n := e.CountTokens(line)
		if e.maxTokens > 0 && used+n > budget {
			break
		}
		lines = append(lines, line)
		used += n
		start = i
	}
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}

	header, err := e.header.render(headerData(conv, snaps, len(items), start))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(header)
	for _, l := range lines {
		b.WriteString("\n")
		b.WriteString(l)
	}
	return b.String(), nil
}

// FormatItem renders one display item as a single transcript entry.
func FormatItem(item types.DisplayItem) string {
	ts := time.Unix(item.CreatedAt(), 0).UTC().Format("15:04")
	label := ""
	switch {
	case item.Origin() == types.OriginStream:
		label = " (streaming)"
	case item.Origin() == types.OriginTyping:
		label = " (typing)"
	case item.IsReasoning():
		label = " (reasoning)"
	}
	return fmt.Sprintf("[%s] %s%s: %s", ts, ShortKey(item.PubKey()), label, Markdown(item.Content()))
}

// ShortKey abbreviates a hex public key for display.
func ShortKey(pubkey string) string {
	if len(pubkey) <= 12 {
		return pubkey
	}
	return pubkey[:8] + "…" + pubkey[len(pubkey)-4:]
}

var htmlTag = regexp.MustCompile(`<(p|br|div|a|b|i|em|strong|ul|ol|li|pre|code|h[1-6]|blockquote|table)\b[^>]*>`)

// Markdown converts HTML content to markdown. Anything that does not look
// like HTML is returned trimmed and unchanged.
func Markdown(content string) string {
	content = strings.TrimSpace(content)
	if !htmlTag.MatchString(strings.ToLower(content)) {
		return content
	}
	md, err := htmltomarkdown.ConvertString(content)
	if err != nil {
		slog.Debug("html conversion failed", "error", err)
		return content
	}
	return strings.TrimSpace(md)
}
