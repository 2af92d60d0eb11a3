// Package delta reconstructs streamed content from sequence-numbered chunks
// that may arrive in any order.
package delta

import (
	"slices"
	"strconv"
	"strings"

	"github.com/tenex-chat/web-client-sub005/pkg/nostr"
)

// Accumulator holds the chunks of one logical stream keyed by sequence
// number. The zero value is not usable; call New.
//
// content always equals the chunks joined in ascending sequence order.
// Sequence numbers need not be contiguous.
type Accumulator struct {
	deltas  map[int]string
	content string
}

// New returns an empty accumulator.
func New() *Accumulator {
	return &Accumulator{deltas: make(map[int]string)}
}

// Sequence returns the event's sequence number. A missing or unparseable
// tag yields 0.
func Sequence(ev *nostr.Event) int {
	n, err := strconv.Atoi(strings.TrimSpace(ev.Tags.Value(nostr.TagSequence)))
	if err != nil {
		return 0
	}
	return n
}

// AddEvent stores the event's content at its sequence slot and returns the
// reconstructed content. Events with empty content change nothing. A later
// event for an occupied slot replaces the earlier chunk.
func (a *Accumulator) AddEvent(ev *nostr.Event) string {
	if ev == nil || ev.Content == "" {
		return a.content
	}
	a.deltas[Sequence(ev)] = ev.Content

	var b strings.Builder
	for _, seq := range a.sequences() {
		b.WriteString(a.deltas[seq])
	}
	a.content = b.String()
	return a.content
}

func (a *Accumulator) Content() string { return a.content }

func (a *Accumulator) DeltaCount() int { return len(a.deltas) }

// HasSequenceGaps reports whether any two adjacent held sequence numbers
// differ by more than one.
func (a *Accumulator) HasSequenceGaps() bool {
	seqs := a.sequences()
	for i := 1; i < len(seqs); i++ {
		if seqs[i]-seqs[i-1] > 1 {
			return true
		}
	}
	return false
}

// MissingSequences lists every sequence number strictly between two held
// neighbours, ascending.
func (a *Accumulator) MissingSequences() []int {
	seqs := a.sequences()
	var missing []int
	for i := 1; i < len(seqs); i++ {
		for n := seqs[i-1] + 1; n < seqs[i]; n++ {
			missing = append(missing, n)
		}
	}
	return missing
}

// Clear drops every held chunk.
func (a *Accumulator) Clear() {
	clear(a.deltas)
	a.content = ""
}

func (a *Accumulator) sequences() []int {
	seqs := make([]int, 0, len(a.deltas))
	for seq := range a.deltas {
		seqs = append(seqs, seq)
	}
	slices.Sort(seqs)
	return seqs
}
