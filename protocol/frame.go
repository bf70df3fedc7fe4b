// Package protocol defines the JSON wire format exchanged over the
// websocket: a flat envelope of event name plus payload. Payload structs
// mirror the event catalog; the coordinator never sees raw JSON beyond the
// initial decode.
package protocol

import "encoding/json"

// Frame is the envelope for every message in either direction.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Decode parses one inbound frame. The payload stays raw until the handler
// for the named event decodes it.
func Decode(raw []byte) (Frame, error) {
	var f Frame
	err := json.Unmarshal(raw, &f)
	return f, err
}

// Encode serializes an outbound event. A payload that cannot marshal is a
// programming error; callers treat the error as fatal for the frame only.
func Encode(event string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}
