package realtime

import (
	"encoding/json"
	"fmt"
)

// Envelope is the frame exchanged over the channel. ID is chosen by the
// emitter of a request and echoed back on its response.
type Envelope struct {
	Event string          `json:"event"`
	ID    string          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope encodes payload as the envelope data.
func NewEnvelope(event, id string, payload any) (Envelope, error) {
	env := Envelope{Event: event, ID: id}
	if payload == nil {
		return env, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", event, err)
	}
	env.Data = data
	return env, nil
}

// Decode unmarshals the envelope data into v. An empty payload leaves v untouched.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Event, err)
	}
	return nil
}
