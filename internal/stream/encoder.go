// Package stream fans order events out to kitchen dashboards over
// server-sent-event connections, one channel per restaurant.
package stream

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// ErrInvalidEventName is returned for event names that would break framing.
var ErrInvalidEventName = errors.New("invalid event name")

// Map keys are sorted so the same payload always encodes to the same bytes.
var frameJSON = sonic.Config{
	SortMapKeys:    true,
	EscapeHTML:     false,
	ValidateString: true,
}.Froze()

// Encode renders one event frame: "event: <name>\ndata: <json>\n\n".
func Encode(event string, data any) ([]byte, error) {
	if event == "" || strings.ContainsAny(event, "\r\n") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEventName, event)
	}

	payload, err := frameJSON.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}

	frame := make([]byte, 0, len("event: \ndata: \n\n")+len(event)+len(payload))
	frame = append(frame, "event: "...)
	frame = append(frame, event...)
	frame = append(frame, "\ndata: "...)
	frame = append(frame, payload...)
	frame = append(frame, "\n\n"...)
	return frame, nil
}

// EncodeComment renders a comment frame, which clients ignore.
func EncodeComment(text string) []byte {
	text = strings.NewReplacer("\r", " ", "\n", " ").Replace(text)
	return []byte(": " + text + "\n\n")
}
