package nostr

import (
	"encoding/json"
	"fmt"
)

// Envelope labels used on the relay websocket.
const (
	LabelReq    = "REQ"
	LabelClose  = "CLOSE"
	LabelEvent  = "EVENT"
	LabelEOSE   = "EOSE"
	LabelNotice = "NOTICE"
	LabelClosed = "CLOSED"
	LabelOK     = "OK"
)

// Envelope is a decoded relay-to-client message. Only the fields relevant to
// the label are populated.
type Envelope struct {
	Label          string
	SubscriptionID string
	Event          *Event
	Message        string
	OK             bool
}

// ParseEnvelope decodes a relay message.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("decode envelope: empty message")
	}

	env := &Envelope{}
	if err := json.Unmarshal(parts[0], &env.Label); err != nil {
		return nil, fmt.Errorf("decode envelope label: %w", err)
	}

	str := func(i int) (string, error) {
		if i >= len(parts) {
			return "", fmt.Errorf("%s envelope: missing element %d", env.Label, i)
		}
		var s string
		if err := json.Unmarshal(parts[i], &s); err != nil {
			return "", fmt.Errorf("%s envelope element %d: %w", env.Label, i, err)
		}
		return s, nil
	}

	var err error
	switch env.Label {
	case LabelEvent:
		if env.SubscriptionID, err = str(1); err != nil {
			return nil, err
		}
		if len(parts) < 3 {
			return nil, fmt.Errorf("EVENT envelope: missing event")
		}
		var ev Event
		if err := json.Unmarshal(parts[2], &ev); err != nil {
			return nil, fmt.Errorf("EVENT envelope: %w", err)
		}
		env.Event = &ev
	case LabelEOSE:
		if env.SubscriptionID, err = str(1); err != nil {
			return nil, err
		}
	case LabelClosed:
		if env.SubscriptionID, err = str(1); err != nil {
			return nil, err
		}
		env.Message, _ = str(2)
	case LabelNotice:
		if env.Message, err = str(1); err != nil {
			return nil, err
		}
	case LabelOK:
		if env.SubscriptionID, err = str(1); err != nil {
			return nil, err
		}
		if len(parts) > 2 {
			_ = json.Unmarshal(parts[2], &env.OK)
		}
		env.Message, _ = str(3)
	default:
		return nil, fmt.Errorf("unknown envelope label: %s", env.Label)
	}
	return env, nil
}

// ReqMessage encodes a REQ message for the given subscription.
func ReqMessage(subID string, filters ...Filter) ([]byte, error) {
	msg := make([]any, 0, 2+len(filters))
	msg = append(msg, LabelReq, subID)
	for _, f := range filters {
		msg = append(msg, f)
	}
	return json.Marshal(msg)
}

// CloseMessage encodes a CLOSE message for the given subscription.
func CloseMessage(subID string) ([]byte, error) {
	return json.Marshal([]string{LabelClose, subID})
}
