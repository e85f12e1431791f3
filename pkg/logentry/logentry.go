// Implements routines for validating and projecting drone log entries.
package logentry

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	wire "droneapi/internal/pkg/drone"
)

const (
	// log store listing parameters
	PageSize    = 12
	SortOrder   = "-created"
	DefaultPage = "1"
)

type (
	//define what is a log entry within the system
	LogEntry struct {
		droneID   wire.ID
		droneName json.RawMessage
		country   json.RawMessage
		celsius   float64
	}

	//define a data transfer object for a submitted log entry
	LogEntryDTO struct {
		DroneID   wire.ID         `json:"drone_id"`
		DroneName json.RawMessage `json:"drone_name"`
		Country   json.RawMessage `json:"country"`
		Celsius   json.RawMessage `json:"celsius"` // number, numeric string, bool or null
	}

	//define what a client sees of a stored log entry
	ViewDTO struct {
		DroneID   wire.ID         `json:"drone_id"`
		DroneName json.RawMessage `json:"drone_name"`
		Created   json.RawMessage `json:"created"`
		Country   json.RawMessage `json:"country"`
		Celsius   json.RawMessage `json:"celsius"`
	}

	//define what a client gets back after creating a log entry
	CreatedDTO struct {
		ID        json.RawMessage `json:"id"`
		Created   json.RawMessage `json:"created"`
		DroneID   wire.ID         `json:"drone_id"`
		DroneName json.RawMessage `json:"drone_name"`
		Country   json.RawMessage `json:"country"`
		Celsius   float64         `json:"celsius"`
	}
)

func NewLogEntry(dto LogEntryDTO) (*LogEntry, error) {

	if !dto.DroneID.Truthy() {
		return nil, errors.New("drone_id is required")
	}

	if !wire.Truthy(dto.DroneName) {
		return nil, errors.New("drone_name is required")
	}

	if !wire.Truthy(dto.Country) {
		return nil, errors.New("country is required")
	}

	celsius, err := parseCelsius(dto.Celsius)
	if err != nil {
		return nil, err
	}

	return &LogEntry{
		droneID:   dto.DroneID,
		droneName: dto.DroneName,
		country:   dto.Country,
		celsius:   celsius,
	}, nil
}

func (l *LogEntry) GetCelsius() float64 {
	return l.celsius
}

// GetPayload returns the body to post to the log store.
func (l *LogEntry) GetPayload() wire.NewLog {
	return wire.NewLog{
		DroneID:   l.droneID,
		DroneName: l.droneName,
		Country:   l.country,
		Celsius:   l.celsius,
	}
}

// GetCreatedDTO merges the log store assigned fields into the submitted entry.
func (l *LogEntry) GetCreatedDTO(stored wire.Log) CreatedDTO {
	return CreatedDTO{
		ID:        nullIfAbsent(stored.ID),
		Created:   nullIfAbsent(stored.Created),
		DroneID:   l.droneID,
		DroneName: l.droneName,
		Country:   l.country,
		Celsius:   l.celsius,
	}
}

// Project maps log store records to client views, newest first, at most PageSize of them.
func Project(records []wire.Log) []ViewDTO {

	views := make([]ViewDTO, 0, len(records))
	for _, v := range records {
		views = append(views, ViewDTO{
			DroneID:   v.DroneID,
			DroneName: nullIfAbsent(v.DroneName),
			Created:   nullIfAbsent(v.Created),
			Country:   nullIfAbsent(v.Country),
			Celsius:   nullIfAbsent(v.Celsius),
		})
	}

	// log store timestamps are fixed-width UTC strings and order lexically
	sort.SliceStable(views, func(i, j int) bool {
		a, _ := wire.Text(views[i].Created)
		b, _ := wire.Text(views[j].Created)
		return a > b
	})

	if len(views) > PageSize {
		views = views[:PageSize]
	}

	return views
}

// Page returns the requested page, DefaultPage when none was given.
func Page(requested string) string {
	if requested == "" {
		return DefaultPage
	}
	return requested
}

// Filter returns the log store filter expression selecting a drone's logs.
func Filter(droneID string) string {
	return "(drone_id=" + strings.TrimSpace(droneID) + ")"
}

func parseCelsius(raw json.RawMessage) (float64, error) {

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, errors.New("celsius is required")
	}

	var value interface{}
	if err := sonic.ConfigStd.Unmarshal(raw, &value); err != nil {
		return 0, errors.Wrap(err, "could not decode celsius")
	}

	var celsius float64
	switch v := value.(type) {
	case nil:
		celsius = 0
	case bool:
		if v {
			celsius = 1
		}
	case float64:
		celsius = v
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			break
		}
		if isHex(s) {
			return 0, errors.Errorf("%q is not a valid celsius reading", v)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errors.Errorf("%q is not a valid celsius reading", v)
		}
		celsius = f
	default:
		return 0, errors.Errorf("%s is not a valid celsius reading", raw)
	}

	if math.IsNaN(celsius) || math.IsInf(celsius, 0) {
		return 0, errors.Errorf("%s is not a valid celsius reading", raw)
	}

	return celsius, nil
}

// ParseFloat reads hexadecimal mantissas, readings are decimal only
func isHex(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
}

func nullIfAbsent(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
