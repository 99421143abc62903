package composer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samuelfneumann/shaclearn/composer/components"
	"github.com/samuelfneumann/shaclearn/composer/observers"
	"github.com/samuelfneumann/shaclearn/composer/rewards"
	"github.com/samuelfneumann/shaclearn/sim"
)

// ComponentDesc describes one component instance of a composition
type ComponentDesc struct {
	Component       components.Type `json:"component"`
	ComponentParams json.RawMessage `json:"component_params,omitempty"`
	TermParams      json.RawMessage `json:"term_params,omitempty"`

	// Suffix is appended to every name of the component. It defaults
	// to the instance name, and an empty suffix disables renaming.
	Suffix *string `json:"suffix,omitempty"`

	// Pos, Quat, and QuatOrigin describe the rigid transform applied to
	// the component on reset. Quaternions are (w, x, y, z). The
	// component is only transformed if at least one is given.
	Pos        []float64 `json:"pos,omitempty"`
	Quat       []float64 `json:"quat,omitempty"`
	QuatOrigin []float64 `json:"quat_origin,omitempty"`

	// Observers replaces the default observers of the component
	Observers      []observers.Desc        `json:"observers,omitempty"`
	ExtraObservers []observers.Desc        `json:"extra_observers,omitempty"`
	RewardFns      map[string]rewards.Desc `json:"reward_fns,omitempty"`
}

// EdgeDesc describes the edge between two component instances
type EdgeDesc struct {
	CollideType    CollideType             `json:"collide_type,omitempty"`
	ExtraObservers []observers.Desc        `json:"extra_observers,omitempty"`
	RewardFns      map[string]rewards.Desc `json:"reward_fns,omitempty"`
}

// AgentGroup lists the reward functions summed into the reward of one
// agent
type AgentGroup struct {
	RewardNames []string `json:"reward_names"`
}

// Desc is a declarative description of a composed environment.
//
// Components and edges are keyed by name; edge keys have the form
// "first__second" naming two components. AddGround defaults to true.
type Desc struct {
	Components     map[string]ComponentDesc `json:"components"`
	Edges          map[string]EdgeDesc      `json:"edges,omitempty"`
	ExtraObservers []observers.Desc         `json:"extra_observers,omitempty"`
	AddGround      *bool                    `json:"add_ground,omitempty"`
	AgentGroups    map[string]AgentGroup    `json:"agent_groups,omitempty"`
	GlobalOptions  *sim.Options             `json:"global_options,omitempty"`
}

// ParseDesc decodes a JSON environment description. Unknown fields
// anywhere in the description are an error.
func ParseDesc(data []byte) (*Desc, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var d Desc
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("parseDesc: %v", err)
	}
	return &d, nil
}

// Clone returns a deep copy of the description
func (d *Desc) Clone() (*Desc, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("clone: %v", err)
	}
	clone, err := ParseDesc(data)
	if err != nil {
		return nil, fmt.Errorf("clone: %v", err)
	}
	return clone, nil
}

// groundEnabled returns whether the ground component should be added
func (d *Desc) groundEnabled() bool {
	return d.AddGround == nil || *d.AddGround
}

// Edit returns a copy of the description with edits applied. Each
// edit key is a dotted path into the JSON form of the description,
// such as "components.agent1.component" or "global_options.dt", and
// its value replaces the value at that path. Missing intermediate
// objects are created.
func (d *Desc) Edit(edits map[string]interface{}) (*Desc, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("edit: %v", err)
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("edit: %v", err)
	}

	for path, value := range edits {
		keys := strings.Split(path, ".")
		node := tree
		for _, k := range keys[:len(keys)-1] {
			child, ok := node[k]
			if !ok || child == nil {
				child = map[string]interface{}{}
				node[k] = child
			}
			next, ok := child.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("edit: %q: %v is not an object", path, k)
			}
			node = next
		}
		node[keys[len(keys)-1]] = value
	}

	data, err = json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("edit: %v", err)
	}
	edited, err := ParseDesc(data)
	if err != nil {
		return nil, fmt.Errorf("edit: %v", err)
	}
	return edited, nil
}
