package delivery

import (
	"slices"
	"testing"
)

func TestRegistryDeliver(t *testing.T) {
	reg := NewRegistry()

	var gotTarget, gotMsg string
	reg.Register("test:", func(target, message string) error {
		gotTarget = target
		gotMsg = message
		return nil
	})

	if err := reg.Deliver("test:123", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotTarget != "test:123" {
		t.Errorf("expected target %q, got %q", "test:123", gotTarget)
	}
	if gotMsg != "hello" {
		t.Errorf("expected message %q, got %q", "hello", gotMsg)
	}
}

func TestRegistryNoHandler(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Deliver("unknown:123", "hello"); err == nil {
		t.Fatal("expected error for unregistered prefix, got nil")
	}
}

func TestRegistryLongestPrefixWins(t *testing.T) {
	reg := NewRegistry()

	var generic, specific int
	reg.Register("telegram:", func(string, string) error {
		generic++
		return nil
	})
	reg.Register("telegram:ops:", func(string, string) error {
		specific++
		return nil
	})

	for i := 0; i < 20; i++ {
		if err := reg.Deliver("telegram:ops:42", "x"); err != nil {
			t.Fatal(err)
		}
	}
	if err := reg.Deliver("telegram:7", "x"); err != nil {
		t.Fatal(err)
	}

	if specific != 20 || generic != 1 {
		t.Errorf("expected 20 specific and 1 generic, got %d and %d", specific, generic)
	}
}

func TestRegistryPrefixes(t *testing.T) {
	reg := NewRegistry()
	reg.Register("a:", func(string, string) error { return nil })
	reg.Register("b:", func(string, string) error { return nil })

	got := reg.Prefixes()
	slices.Sort(got)
	if !slices.Equal(got, []string{"a:", "b:"}) {
		t.Errorf("unexpected prefixes %v", got)
	}
}
