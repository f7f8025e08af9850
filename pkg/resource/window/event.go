package window

import (
	"bytes"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// EventType identifies an input event.
type EventType uint32

const (
	EventClose EventType = iota + 1
	EventKeyDown
	EventKeyUp
	EventButtonDown
	EventButtonUp
	EventMouseMove
)

func (t EventType) String() string {
	switch t {
	case EventClose:
		return "close"
	case EventKeyDown:
		return "key_down"
	case EventKeyUp:
		return "key_up"
	case EventButtonDown:
		return "button_down"
	case EventButtonUp:
		return "button_up"
	case EventMouseMove:
		return "mouse_move"
	default:
		return "unknown"
	}
}

// EventSize is the encoded length of one Event record.
const EventSize = 16

// Event is one input event. On the wire it is an XDR record of four 32-bit
// fields in declaration order.
type Event struct {
	Type EventType
	Code uint32
	X    int32
	Y    int32
}

// EncodeEvents serializes events as consecutive XDR records.
func EncodeEvents(events ...Event) ([]byte, error) {
	var buf bytes.Buffer
	for i := range events {
		if _, err := xdr.Marshal(&buf, &events[i]); err != nil {
			return nil, fmt.Errorf("encode event %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// DecodeEvents parses whole records from data. A trailing partial record is
// ignored.
func DecodeEvents(data []byte) ([]Event, error) {
	count := len(data) / EventSize
	events := make([]Event, count)

	r := bytes.NewReader(data[:count*EventSize])
	for i := range events {
		if _, err := xdr.Unmarshal(r, &events[i]); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", i, err)
		}
	}
	return events, nil
}
