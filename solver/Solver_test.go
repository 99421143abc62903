package solver

import (
	"encoding/json"
	"testing"
)

func TestUnmarshalJSON(t *testing.T) {
	tests := map[string]struct {
		data string
		want Type
	}{
		"adam": {`{"Type": "Adam", "Config": {"StepSize": 0.001,
			"Epsilon": 1e-8, "Beta1": 0.9, "Beta2": 0.999, "Batch": 1}}`, Adam},
		"vanilla": {`{"Type": "Vanilla", "Config": {"StepSize": 0.1,
			"Batch": 4}}`, Vanilla},
		"clipped": {`{"Type": "Vanilla", "Config": {"StepSize": 0.1,
			"Batch": 4, "Clip": 1}}`, Vanilla},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var s Solver
			if err := json.Unmarshal([]byte(test.data), &s); err != nil {
				t.Fatal(err)
			}
			if s.Type != test.want {
				t.Errorf("type: want(%v) have(%v)", test.want, s.Type)
			}
			if s.Solver == nil {
				t.Error("solver: want non-nil Gorgonia solver")
			}
		})
	}
}

func TestUnmarshalJSONErrors(t *testing.T) {
	tests := map[string]string{
		"unknown type":  `{"Type": "SGD", "Config": {}}`,
		"unknown field": `{"Type": "Vanilla", "Config": {"StepSize": 0.1, "Batch": 1, "Momentum": 0.9}}`,
		"step size":     `{"Type": "Vanilla", "Config": {"StepSize": 0, "Batch": 1}}`,
		"beta":          `{"Type": "Adam", "Config": {"StepSize": 0.1, "Batch": 1, "Beta1": 1}}`,
		"removed type":  `{"Type": "RMSProp", "Config": {"StepSize": 0.1, "Batch": 1}}`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			var s Solver
			if err := json.Unmarshal([]byte(data), &s); err == nil {
				t.Errorf("unmarshalJSON: expected error for %v", data)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	var s Solver
	if err := json.Unmarshal([]byte(`{"Type": "Adam", "Config": {
		"StepSize": 0.01, "Epsilon": 1e-8, "Beta1": 0.9, "Beta2": 0.999,
		"Batch": 8}}`), &s); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Solver
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Config != s.Config {
		t.Errorf("round trip: want(%+v) have(%+v)", s.Config, decoded.Config)
	}
}
