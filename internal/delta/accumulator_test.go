package delta

import (
	"slices"
	"strconv"
	"testing"

	"github.com/tenex-chat/web-client-sub005/pkg/nostr"
)

func chunk(seq int, content string) *nostr.Event {
	return &nostr.Event{
		Kind:    nostr.KindStreamingResponse,
		Content: content,
		Tags:    nostr.Tags{{nostr.TagSequence, strconv.Itoa(seq)}},
	}
}

func TestAddEventOrderIndependent(t *testing.T) {
	chunks := map[int]*nostr.Event{
		1: chunk(1, "Hello "),
		2: chunk(2, "world"),
		3: chunk(3, "!"),
	}
	orders := [][]int{{1, 2, 3}, {3, 1, 2}, {2, 3, 1}, {3, 2, 1}}

	for _, order := range orders {
		acc := New()
		var last string
		for _, seq := range order {
			last = acc.AddEvent(chunks[seq])
		}
		if last != "Hello world!" {
			t.Errorf("order %v: expected %q, got %q", order, "Hello world!", last)
		}
		if acc.Content() != last {
			t.Errorf("order %v: Content() disagrees with AddEvent result", order)
		}
	}
}

func TestAddEventEmptyContentIsNoop(t *testing.T) {
	acc := New()
	acc.AddEvent(chunk(1, "a"))

	got := acc.AddEvent(chunk(2, ""))
	if got != "a" {
		t.Errorf("expected unchanged content, got %q", got)
	}
	if acc.DeltaCount() != 1 {
		t.Errorf("expected 1 delta, got %d", acc.DeltaCount())
	}
}

func TestAddEventSameSequenceLastWriteWins(t *testing.T) {
	acc := New()
	acc.AddEvent(chunk(1, "first"))
	acc.AddEvent(chunk(1, "second"))

	if acc.Content() != "second" {
		t.Errorf("expected later chunk to win, got %q", acc.Content())
	}
	if acc.DeltaCount() != 1 {
		t.Errorf("expected 1 delta, got %d", acc.DeltaCount())
	}
}

func TestSequenceFallback(t *testing.T) {
	if got := Sequence(&nostr.Event{}); got != 0 {
		t.Errorf("missing tag: expected 0, got %d", got)
	}
	bad := &nostr.Event{Tags: nostr.Tags{{nostr.TagSequence, "abc"}}}
	if got := Sequence(bad); got != 0 {
		t.Errorf("unparseable tag: expected 0, got %d", got)
	}

	acc := New()
	acc.AddEvent(chunk(1, "tail"))
	acc.AddEvent(&nostr.Event{Content: "head", Tags: nostr.Tags{{nostr.TagSequence, "x"}}})
	if acc.Content() != "headtail" {
		t.Errorf("expected unparseable sequence to sort as 0, got %q", acc.Content())
	}
}

func TestSequenceGaps(t *testing.T) {
	acc := New()
	acc.AddEvent(chunk(1, "a"))
	acc.AddEvent(chunk(3, "c"))

	if !acc.HasSequenceGaps() {
		t.Error("expected gap between 1 and 3")
	}
	if got := acc.MissingSequences(); !slices.Equal(got, []int{2}) {
		t.Errorf("expected missing [2], got %v", got)
	}

	acc.AddEvent(chunk(2, "b"))
	if acc.HasSequenceGaps() {
		t.Error("expected no gaps once 2 arrives")
	}
	if got := acc.MissingSequences(); len(got) != 0 {
		t.Errorf("expected no missing sequences, got %v", got)
	}
}

func TestMissingSequencesWideGap(t *testing.T) {
	acc := New()
	acc.AddEvent(chunk(0, "a"))
	acc.AddEvent(chunk(4, "e"))
	acc.AddEvent(chunk(6, "g"))

	if got := acc.MissingSequences(); !slices.Equal(got, []int{1, 2, 3, 5}) {
		t.Errorf("expected [1 2 3 5], got %v", got)
	}
}

func TestClear(t *testing.T) {
	acc := New()
	acc.AddEvent(chunk(1, "a"))
	acc.Clear()

	if acc.Content() != "" || acc.DeltaCount() != 0 {
		t.Errorf("expected empty accumulator after Clear, got %q/%d", acc.Content(), acc.DeltaCount())
	}
	if acc.HasSequenceGaps() {
		t.Error("empty accumulator has no gaps")
	}
}
