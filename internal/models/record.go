// Package models provides data model definitions for SigninDesk Core.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is one extra key/value pair attached to a sign-in record.
type Field struct {
	Key   string
	Value string
}

// Extra is an ordered set of event-specific fields (e.g. "salon", "seller").
// Order is preserved through JSON encode/decode so ledger columns appear in
// the order the event organizer defined them.
type Extra []Field

// Get returns the value for key and whether it is present.
func (e Extra) Get(key string) (string, bool) {
	for _, f := range e {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Set appends the key/value pair, replacing the value if the key exists.
func (e Extra) Set(key, value string) Extra {
	for i, f := range e {
		if f.Key == key {
			e[i].Value = value
			return e
		}
	}
	return append(e, Field{Key: key, Value: value})
}

// Keys returns the field keys in order.
func (e Extra) Keys() []string {
	keys := make([]string, 0, len(e))
	for _, f := range e {
		keys = append(keys, f.Key)
	}
	return keys
}

// MarshalJSON encodes the fields as a JSON object in insertion order.
func (e Extra) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range e {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving key order.
// Non-string values are stringified so roster CSVs with numeric columns
// survive a round trip.
func (e *Extra) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("extra: expected JSON object, got %v", tok)
	}

	out := Extra{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("extra: non-string key %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		out = append(out, Field{Key: key, Value: stringifyToken(valTok)})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*e = out
	return nil
}

func stringifyToken(tok json.Token) string {
	switch v := tok.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// SigninRecord represents one attendee scan event.
// A record is immutable once constructed; Timestamp is assigned by the
// delivery attempt (not the scan), so two attempts of the same logical
// record carry different timestamps.
type SigninRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Event     string `json:"event"`
	Timestamp string `json:"timestamp,omitempty"` // ISO-8601, set at append time
	Raw       string `json:"raw,omitempty"`       // original scanned payload, for audit
	Extra     Extra  `json:"extra,omitempty"`
}

// WithTimestamp returns a copy of the record carrying the given timestamp.
func (r SigninRecord) WithTimestamp(ts string) SigninRecord {
	r.Timestamp = ts
	return r
}

// Row flattens the record into ledger column values keyed by header name.
// Extra fields follow the fixed columns; an extra key that collides with a
// fixed column name is ignored.
func (r SigninRecord) Row(timestamp string) (headers []string, values map[string]string) {
	values = map[string]string{
		"timestamp": timestamp,
		"event":     r.Event,
		"id":        r.ID,
		"name":      r.Name,
		"raw":       r.Raw,
	}
	headers = []string{"timestamp", "event", "id", "name", "raw"}
	for _, f := range r.Extra {
		if _, fixed := values[f.Key]; fixed {
			continue
		}
		headers = append(headers, f.Key)
		values[f.Key] = f.Value
	}
	return headers, values
}
