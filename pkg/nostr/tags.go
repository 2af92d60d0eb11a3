package nostr

// Reserved tag names. These are wire-format contracts shared with every other
// client on the network and must match exactly.
const (
	TagSequence  = "sequence"
	TagReply     = "e"
	TagRoot      = "E"
	TagAddress   = "a"
	TagPubKey    = "p"
	TagReasoning = "reasoning"
	TagTitle     = "title"
)

// Tag is a single tag entry: a name followed by zero or more values.
type Tag []string

// Name returns the tag name, or "" for an empty tag.
func (t Tag) Name() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// Value returns the first value of the tag, or "".
func (t Tag) Value() string {
	if len(t) < 2 {
		return ""
	}
	return t[1]
}

// Tags is the ordered tag list of an event.
type Tags []Tag

// GetAll returns every tag named name, in order.
func (tags Tags) GetAll(name string) []Tag {
	var out []Tag
	for _, t := range tags {
		if t.Name() == name {
			out = append(out, t)
		}
	}
	return out
}

// Find returns the first tag named name.
func (tags Tags) Find(name string) (Tag, bool) {
	for _, t := range tags {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// Value returns the first value of the first tag named name, or "".
func (tags Tags) Value(name string) string {
	t, ok := tags.Find(name)
	if !ok {
		return ""
	}
	return t.Value()
}

// Values returns the first value of every tag named name, skipping tags
// that carry no value.
func (tags Tags) Values(name string) []string {
	var out []string
	for _, t := range tags {
		if t.Name() == name && len(t) > 1 {
			out = append(out, t[1])
		}
	}
	return out
}

// Has reports whether any tag is named name.
func (tags Tags) Has(name string) bool {
	_, ok := tags.Find(name)
	return ok
}

// Clone returns a deep copy of the tag list.
func (tags Tags) Clone() Tags {
	if tags == nil {
		return nil
	}
	out := make(Tags, len(tags))
	for i, t := range tags {
		out[i] = append(Tag(nil), t...)
	}
	return out
}
