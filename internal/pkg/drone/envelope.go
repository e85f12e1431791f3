package drone

import (
	"bytes"
	"encoding/json"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// EnvelopeKind tells which shape a config store response had.
type EnvelopeKind int

const (
	// EnvelopeNone is any shape carrying no recognizable list.
	EnvelopeNone EnvelopeKind = iota
	// EnvelopeItems is an object with an "items" array.
	EnvelopeItems
	// EnvelopeArray is a bare top-level array.
	EnvelopeArray
	// EnvelopeData is an object with a "data" array.
	EnvelopeData
)

func (k EnvelopeKind) String() string {
	switch k {
	case EnvelopeItems:
		return "items"
	case EnvelopeArray:
		return "array"
	case EnvelopeData:
		return "data"
	}
	return "none"
}

// ConfigEnvelope is the config store collection response. Shapes are tried
// in order: {"items": [...]}, [...], {"data": [...]}. Anything else decodes
// to EnvelopeNone with no records.
type ConfigEnvelope struct {
	Kind    EnvelopeKind
	Records []Config
}

func (e *ConfigEnvelope) UnmarshalJSON(data []byte) error {
	e.Kind, e.Records = EnvelopeNone, nil

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '[':
		return e.decode(EnvelopeArray, data)
	case '{':
		var obj struct {
			Items json.RawMessage `json:"items"`
			Data  json.RawMessage `json:"data"`
		}
		if err := sonic.ConfigStd.Unmarshal(data, &obj); err != nil {
			return errors.Wrap(err, "could not decode config envelope")
		}
		if isArray(obj.Items) {
			return e.decode(EnvelopeItems, obj.Items)
		}
		if isArray(obj.Data) {
			return e.decode(EnvelopeData, obj.Data)
		}
	}

	return nil
}

func (e *ConfigEnvelope) decode(kind EnvelopeKind, list []byte) error {

	elements, err := splitArray(list)
	if err != nil {
		return errors.Wrapf(err, "could not decode %s config list", kind)
	}

	records := make([]Config, len(elements))
	for i, v := range elements {
		if err := decodeObject(v, &records[i]); err != nil {
			return errors.Wrapf(err, "could not decode %s config %d", kind, i)
		}
	}

	e.Kind, e.Records = kind, records
	return nil
}

// LogPage is a page of the log store listing. Items stays empty when the
// response has no "items" array.
type LogPage struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"perPage"`
	TotalItems int   `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
	Items      []Log `json:"-"`
}

func (p *LogPage) UnmarshalJSON(data []byte) error {
	*p = LogPage{Items: make([]Log, 0)}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil
	}

	var obj struct {
		Page       json.RawMessage `json:"page"`
		PerPage    json.RawMessage `json:"perPage"`
		TotalItems json.RawMessage `json:"totalItems"`
		TotalPages json.RawMessage `json:"totalPages"`
		Items      json.RawMessage `json:"items"`
	}
	if err := sonic.ConfigStd.Unmarshal(data, &obj); err != nil {
		return errors.Wrap(err, "could not decode log page")
	}

	p.Page = intOrZero(obj.Page)
	p.PerPage = intOrZero(obj.PerPage)
	p.TotalItems = intOrZero(obj.TotalItems)
	p.TotalPages = intOrZero(obj.TotalPages)

	if !isArray(obj.Items) {
		return nil
	}

	elements, err := splitArray(obj.Items)
	if err != nil {
		return errors.Wrap(err, "could not decode log items")
	}

	p.Items = make([]Log, len(elements))
	for i, v := range elements {
		if err := decodeObject(v, &p.Items[i]); err != nil {
			return errors.Wrapf(err, "could not decode log item %d", i)
		}
	}

	return nil
}

func splitArray(list []byte) ([]json.RawMessage, error) {
	elements := make([]json.RawMessage, 0)
	if err := sonic.ConfigStd.Unmarshal(list, &elements); err != nil {
		return nil, err
	}
	return elements, nil
}

// a list element that is not an object leaves out with every field absent
func decodeObject(raw json.RawMessage, out interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	return sonic.ConfigStd.Unmarshal(raw, out)
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

// pagination metadata is informational, a malformed value is dropped
func intOrZero(raw json.RawMessage) int {
	var n int
	if err := sonic.ConfigStd.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}
