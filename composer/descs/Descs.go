// Package descs holds named environment descriptions which can be
// composed with the composer package.
package descs

import (
	"fmt"
	"sort"

	"github.com/samuelfneumann/shaclearn/composer"
)

// registered maps environment names to their JSON descriptions
var registered = map[string]string{
	"ant_run": `{
		"components": {
			"agent1": {
				"component": "ant",
				"pos": [0, 0, 0],
				"reward_fns": {
					"goal": {"reward_type": "root_goal", "sdcomp": "vel",
						"indices": [0, 1], "offset": 5, "target_goal": [4, 0]}
				}
			}
		}
	}`,

	"ant_chase_ma": `{
		"agent_groups": {
			"agent1": {"reward_names": ["dist_agent1__agent2"]},
			"agent2": {"reward_names": ["goal_agent2"]}
		},
		"components": {
			"agent1": {"component": "ant", "pos": [0, 0, 0]},
			"agent2": {
				"component": "ant",
				"pos": [0, 2, 0],
				"reward_fns": {
					"goal": {"reward_type": "root_goal", "sdcomp": "vel",
						"indices": [0, 1], "offset": 5, "scale": 1,
						"target_goal": [4, 0]}
				}
			}
		},
		"edges": {
			"agent1__agent2": {
				"extra_observers": [
					{"observer_type": "root_vec", "indices": [0, 1]}
				],
				"reward_fns": {
					"dist": {"reward_type": "root_dist", "min_dist": 1,
						"offset": 5}
				}
			}
		}
	}`,

	"ant_chase": `{
		"components": {
			"agent1": {"component": "ant", "pos": [0, 0, 0]},
			"agent2": {
				"component": "ant",
				"pos": [0, 2, 0],
				"reward_fns": {
					"goal": {"reward_type": "root_goal", "sdcomp": "vel",
						"indices": [0, 1], "offset": 5, "scale": 1,
						"target_goal": [4, 0]}
				}
			}
		},
		"edges": {
			"agent1__agent2": {
				"extra_observers": [
					{"observer_type": "root_vec", "indices": [0, 1]}
				],
				"reward_fns": {
					"dist": {"reward_type": "root_dist", "min_dist": 1,
						"offset": 5}
				}
			}
		}
	}`,

	"ant_push": `{
		"components": {
			"agent1": {"component": "ant", "pos": [0, 0, 0]},
			"cap1": {
				"component": "singleton",
				"component_params": {"size": 0.5},
				"pos": [1, 0, 0],
				"observers": ["root_z_joints"],
				"reward_fns": {
					"goal": {"reward_type": "root_goal", "sdcomp": "vel",
						"indices": [0, 1], "offset": 5, "scale": 1,
						"target_goal": 5}
				}
			}
		},
		"edges": {
			"agent1__cap1": {
				"extra_observers": [
					{"observer_type": "root_vec", "indices": [0, 1]}
				],
				"reward_fns": {
					"dist": {"reward_type": "root_dist", "offset": 5}
				}
			}
		}
	}`,

	"uni_ant": `{
		"components": {
			"agent1": {"component": "ant", "pos": [0, 0, 0]}
		}
	}`,

	"bi_ant": `{
		"components": {
			"agent1": {"component": "ant", "pos": [0, 1, 0]},
			"agent2": {"component": "ant", "pos": [0, -1, 0]}
		},
		"extra_observers": [
			{"observer_type": "lambda", "name": "delta_pos", "fn": "-",
				"observers": [
					{"observer_type": "sim", "sdtype": "body", "sdcomp": "pos",
						"sdname": "torso", "comp_name": "agent1"},
					{"observer_type": "sim", "sdtype": "body", "sdcomp": "pos",
						"sdname": "torso", "comp_name": "agent2"}
				]},
			{"observer_type": "lambda", "name": "delta_vel", "fn": "-",
				"observers": [
					{"observer_type": "sim", "sdtype": "body", "sdcomp": "vel",
						"sdname": "torso", "comp_name": "agent1"},
					{"observer_type": "sim", "sdtype": "body", "sdcomp": "vel",
						"sdname": "torso", "comp_name": "agent2"}
				]}
		],
		"edges": {"agent1__agent2": {"collide_type": null}}
	}`,

	"tri_ant": `{
		"components": {
			"agent1": {"component": "ant", "pos": [0, 1, 0]},
			"agent2": {"component": "ant", "pos": [0, -1, 0]},
			"agent3": {"component": "ant", "pos": [1, 0, 0]}
		},
		"edges": {}
	}`,

	"ant_on_ball": `{
		"global_options": {"dt": 0.02, "substeps": 16},
		"components": {
			"agent1": {
				"component": "pro_ant",
				"component_params": {"num_legs": 4},
				"pos": [0, 0, 6],
				"term_params": {"z_offset": 6},
				"reward_fns": {
					"goal": {"reward_type": "root_goal", "sdcomp": "vel",
						"indices": [0, 1], "offset": 4, "target_goal": [3, 0]}
				}
			},
			"cap1": {
				"component": "singleton",
				"component_params": {"size": 3},
				"pos": [0, 0, 0],
				"observers": ["root_z_joints"]
			}
		},
		"edges": {
			"agent1__cap1": {
				"extra_observers": [
					{"observer_type": "root_vec", "indices": [0, 1]}
				]
			}
		}
	}`,
}

// variant is a description derived from a registered description by
// dotted path edits
type variant struct {
	base  string
	edits map[string]interface{}
}

var variants = map[string]variant{
	"pro_ant_run": {
		base: "ant_run",
		edits: map[string]interface{}{
			"components.agent1.component":        "pro_ant",
			"components.agent1.component_params": map[string]interface{}{"num_legs": 10},
			"global_options.dt":                  0.02,
			"global_options.substeps":            16,
		},
	},
}

// Get returns a new copy of the named environment description
func Get(name string) (*composer.Desc, error) {
	if v, ok := variants[name]; ok {
		base, err := Get(v.base)
		if err != nil {
			return nil, fmt.Errorf("get: variant %v: %v", name, err)
		}
		desc, err := base.Edit(v.edits)
		if err != nil {
			return nil, fmt.Errorf("get: variant %v: %v", name, err)
		}
		return desc, nil
	}

	data, ok := registered[name]
	if !ok {
		return nil, fmt.Errorf("get: unknown environment %q, want one of %v",
			name, Names())
	}
	desc, err := composer.ParseDesc([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("get: %v: %v", name, err)
	}
	return desc, nil
}

// Names returns the sorted names of all available environment
// descriptions
func Names() []string {
	names := make([]string, 0, len(registered)+len(variants))
	for name := range registered {
		names = append(names, name)
	}
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
