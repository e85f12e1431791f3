// Package drone holds the records exchanged with the upstream config and log stores.
package drone

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

type (
	// ID is a drone identifier exactly as upstreams and clients send it.
	// The literal is kept for re-encoding, matching goes through its text form.
	ID struct {
		raw json.RawMessage
	}

	//define what a drone config looks like on the config store
	Config struct {
		DroneID   ID              `json:"drone_id"`
		DroneName json.RawMessage `json:"drone_name"`
		Light     json.RawMessage `json:"light"`
		Country   json.RawMessage `json:"country"`
		Weight    json.RawMessage `json:"weight"`
		Condition json.RawMessage `json:"condition"` // nil or null when unknown
	}

	//define what a log record looks like on the log store
	Log struct {
		ID        json.RawMessage `json:"id"`
		DroneID   ID              `json:"drone_id"`
		DroneName json.RawMessage `json:"drone_name"`
		Country   json.RawMessage `json:"country"`
		Celsius   json.RawMessage `json:"celsius"`
		Created   json.RawMessage `json:"created"` // assigned by the log store
	}

	// NewLog is the body posted to the log store.
	NewLog struct {
		DroneID   ID              `json:"drone_id"`
		DroneName json.RawMessage `json:"drone_name"`
		Country   json.RawMessage `json:"country"`
		Celsius   float64         `json:"celsius"`
	}
)

// NewID returns the identifier carried as a JSON string.
func NewID(s string) ID {
	raw, _ := sonic.ConfigStd.Marshal(s)
	return ID{raw: raw}
}

func (id *ID) UnmarshalJSON(data []byte) error {
	id.raw = append(json.RawMessage(nil), bytes.TrimSpace(data)...)
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if len(id.raw) == 0 {
		return []byte("null"), nil
	}
	return id.raw, nil
}

// Raw returns the literal as received, nil when the id was absent.
func (id ID) Raw() json.RawMessage {
	return id.raw
}

func (id ID) String() string {
	text, _ := Text(id.raw)
	return text
}

// Matches reports whether the id, in text form, equals other once
// surrounding whitespace is removed. Objects, arrays and null never match.
func (id ID) Matches(other string) bool {
	text, ok := Text(id.raw)
	return ok && strings.TrimSpace(text) == strings.TrimSpace(other)
}

// Truthy reports whether the id counts as given.
func (id ID) Truthy() bool {
	return Truthy(id.raw)
}

// IsNull reports whether raw is absent or a JSON null.
func IsNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || string(raw) == "null"
}

// Text returns the text form of a JSON string, number or boolean. Numbers
// are written in shortest decimal form, so 1e3 and 1000 read the same.
func Text(raw json.RawMessage) (string, bool) {

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}

	switch raw[0] {
	case '"':
		var s string
		if err := sonic.ConfigStd.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case 't', 'f':
		return string(raw), string(raw) == "true" || string(raw) == "false"
	case 'n', '{', '[':
		return "", false
	}

	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return "", false
	}
	if math.Abs(f) >= 1e21 {
		return strconv.FormatFloat(f, 'g', -1, 64), true
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}

// Truthy reports whether a JSON value counts as present: absent, null,
// false, zero and the empty string do not.
func Truthy(raw json.RawMessage) bool {

	raw = bytes.TrimSpace(raw)
	if IsNull(raw) || string(raw) == "false" {
		return false
	}

	switch raw[0] {
	case '"':
		text, ok := Text(raw)
		return ok && text != ""
	case '{', '[', 't':
		return true
	}

	f, err := strconv.ParseFloat(string(raw), 64)
	return err == nil && f != 0
}
