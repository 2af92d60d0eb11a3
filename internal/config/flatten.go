package config

import (
	"slices"
	"strings"
)

// secretKeys are masked by MaskSecrets and `config list`.
var secretKeys = map[string]bool{
	"telegram.token": true,
}

func IsSecretKey(key string) bool {
	return secretKeys[key]
}

// Flatten turns nested sections into dot-separated keys, so
// {"nostr": {"project": "p"}} becomes {"nostr.project": "p"}. Lists such as
// nostr.relays stay leaf values; empty sections produce no keys.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any)
	var walk func(prefix string, section map[string]any)
	walk = func(prefix string, section map[string]any) {
		for k, v := range section {
			if prefix != "" {
				k = prefix + "." + k
			}
			if child, ok := v.(map[string]any); ok {
				walk(k, child)
				continue
			}
			out[k] = v
		}
	}
	walk("", m)
	return out
}

// Unflatten is the inverse of Flatten. A key that passes through an existing
// leaf replaces that leaf with a section.
func Unflatten(flat map[string]any) map[string]any {
	out := make(map[string]any)
	for key, v := range flat {
		section := out
		for {
			head, rest, nested := strings.Cut(key, ".")
			if !nested {
				section[head] = v
				break
			}
			child, ok := section[head].(map[string]any)
			if !ok {
				child = make(map[string]any)
				section[head] = child
			}
			section, key = child, rest
		}
	}
	return out
}

// MaskSecrets copies flat, replacing non-empty secret strings with "***"
// plus their last four characters.
func MaskSecrets(flat map[string]any) map[string]any {
	out := make(map[string]any, len(flat))
	for k, v := range flat {
		out[k] = v
		if s, ok := v.(string); ok && s != "" && secretKeys[k] {
			out[k] = "***" + s[max(0, len(s)-4):]
		}
	}
	return out
}

// SortedKeys returns the keys of a flat map in order.
func SortedKeys(flat map[string]any) []string {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
