// Implements routines for looking up drones and projecting their configs.
package drone

import (
	"encoding/json"

	wire "droneapi/internal/pkg/drone"
)

const (
	// condition reported when the config store has none for a drone
	ConditionUnknown = "unknown"
)

var conditionUnknown = json.RawMessage(`"` + ConditionUnknown + `"`)

type (
	//define what a client sees of a drone config, values as the config store holds them
	ConfigDTO struct {
		DroneID   wire.ID         `json:"drone_id"`
		DroneName json.RawMessage `json:"drone_name"`
		Light     json.RawMessage `json:"light"`
		Country   json.RawMessage `json:"country"`
		Weight    json.RawMessage `json:"weight"`
	}

	//define what a client sees of a drone status
	StatusDTO struct {
		Condition json.RawMessage `json:"condition"`
	}

	// Drone wraps a config store record.
	Drone struct {
		config wire.Config
	}
)

// Find scans the records for the first one whose identifier matches droneID.
func Find(records []wire.Config, droneID string) (*Drone, bool) {

	for _, v := range records {
		if v.DroneID.Matches(droneID) {
			return &Drone{config: v}, true
		}
	}

	return nil, false
}

func (d *Drone) GetDroneID() wire.ID {
	return d.config.DroneID
}

// GetCondition returns the condition literal, "unknown" when absent or null.
func (d *Drone) GetCondition() json.RawMessage {
	if wire.IsNull(d.config.Condition) {
		return conditionUnknown
	}
	return d.config.Condition
}

func (d *Drone) GetConfigDTO() ConfigDTO {
	return ConfigDTO{
		DroneID:   d.config.DroneID,
		DroneName: nullIfAbsent(d.config.DroneName),
		Light:     nullIfAbsent(d.config.Light),
		Country:   nullIfAbsent(d.config.Country),
		Weight:    nullIfAbsent(d.config.Weight),
	}
}

func (d *Drone) GetStatusDTO() StatusDTO {
	return StatusDTO{Condition: d.GetCondition()}
}

// keeps the five keys present in the client schema
func nullIfAbsent(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
