package drone

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/Pallinder/go-randomdata"

	wire "droneapi/internal/pkg/drone"
)

func quoted(s string) json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}

func randomConfigs(n int) []wire.Config {

	configs := make([]wire.Config, 0, n)
	for i := 0; i < n; i++ {
		light := "false"
		if randomdata.Boolean() {
			light = "true"
		}
		configs = append(configs, wire.Config{
			DroneID:   wire.NewID(randomdata.Alphanumeric(8) + randomdata.StringNumber(1, "")),
			DroneName: quoted(randomdata.SillyName()),
			Light:     json.RawMessage(light),
			Country:   quoted(randomdata.Country(randomdata.FullCountry)),
			Weight:    json.RawMessage(randomdata.StringNumber(1, "")),
		})
	}

	return configs
}

func Test_Find(t *testing.T) {

	configs := randomConfigs(5)
	wanted := configs[3]

	droneObj, found := Find(configs, "  "+wanted.DroneID.String()+" ")
	if !found {
		t.Fatalf("drone with id %s must be found among the configs", wanted.DroneID)
	}

	if droneObj.GetDroneID().String() != wanted.DroneID.String() {
		t.Errorf("found drone must have id %s but had %s", wanted.DroneID, droneObj.GetDroneID())
	}

	if _, found := Find(configs, "not-"+wanted.DroneID.String()); found {
		t.Errorf("no drone must be found for an unknown id")
	}

	if _, found := Find(nil, wanted.DroneID.String()); found {
		t.Errorf("no drone must be found in an empty config list")
	}
}

func Test_FindReturnsFirstMatch(t *testing.T) {

	configs := []wire.Config{
		{DroneID: wire.NewID("65010001"), DroneName: quoted("first")},
		{DroneID: wire.NewID(" 65010001"), DroneName: quoted("second")},
	}

	droneObj, found := Find(configs, "65010001")
	if !found || string(droneObj.GetConfigDTO().DroneName) != `"first"` {
		t.Errorf("the first matching config must be returned")
	}
}

func Test_GetConfigDTOKeepsValues(t *testing.T) {

	var config wire.Config
	err := json.Unmarshal([]byte(`{"drone_id": 65010002, "drone_name": "Kestrel", "light": "yes", "weight": "2kg", "condition": "good"}`), &config)
	if err != nil {
		t.Fatalf("error while decoding config for test: %v", err)
	}

	droneObj, found := Find([]wire.Config{config}, "65010002")
	if !found {
		t.Fatalf("drone 65010002 must be found")
	}

	data, err := json.Marshal(droneObj.GetConfigDTO())
	if err != nil {
		t.Fatalf("error while encoding config dto: %v", err)
	}

	fields := map[string]interface{}{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("error while decoding config dto: %v", err)
	}

	expected := map[string]interface{}{
		"drone_id":   65010002.0,
		"drone_name": "Kestrel",
		"light":      "yes",
		"country":    nil,
		"weight":     "2kg",
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(keys) != len(expected) {
		t.Fatalf("config dto must have exactly the fields of %v but had %v", expected, keys)
	}

	for k, want := range expected {
		if got, ok := fields[k]; !ok || got != want {
			t.Errorf("config dto field %s must be %v but was %v", k, want, got)
		}
	}
}

func Test_GetStatusDTO(t *testing.T) {

	configs := []wire.Config{
		{DroneID: wire.NewID("a"), Condition: quoted("needs repair")},
		{DroneID: wire.NewID("b")},
		{DroneID: wire.NewID("c"), Condition: json.RawMessage(`""`)},
		{DroneID: wire.NewID("d"), Condition: json.RawMessage(`null`)},
		{DroneID: wire.NewID("e"), Condition: json.RawMessage(`3`)},
	}

	expected := map[string]string{
		"a": `"needs repair"`,
		"b": `"unknown"`,
		"c": `""`,
		"d": `"unknown"`,
		"e": `3`,
	}

	for id, want := range expected {
		droneObj, _ := Find(configs, id)
		if got := string(droneObj.GetStatusDTO().Condition); got != want {
			t.Errorf("condition of drone %s must be %s but was %s", id, want, got)
		}
	}
}
