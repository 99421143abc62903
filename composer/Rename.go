package composer

import (
	"github.com/samuelfneumann/shaclearn/sim"
)

// AddSuffix returns name with suffix appended. An empty suffix leaves
// the name unchanged.
func AddSuffix(name, suffix string) string {
	if suffix == "" {
		return name
	}
	return name + "_" + suffix
}

// RenameConfig returns a copy of c with suffix added to every body,
// joint, and actuator name as well as to every reference to those
// names
func RenameConfig(c *sim.Config, suffix string) *sim.Config {
	out := c.Clone()
	if suffix == "" {
		return out
	}

	for i := range out.Bodies {
		out.Bodies[i].Name = AddSuffix(out.Bodies[i].Name, suffix)
	}
	for i := range out.Joints {
		j := &out.Joints[i]
		j.Name = AddSuffix(j.Name, suffix)
		j.Parent = AddSuffix(j.Parent, suffix)
		j.Child = AddSuffix(j.Child, suffix)
	}
	for i := range out.Actuators {
		a := &out.Actuators[i]
		a.Name = AddSuffix(a.Name, suffix)
		a.Joint = AddSuffix(a.Joint, suffix)
	}
	for i := range out.CollideInclude {
		p := &out.CollideInclude[i]
		p.First = AddSuffix(p.First, suffix)
		p.Second = AddSuffix(p.Second, suffix)
	}
	return out
}

// RenameNames adds suffix to a plain list of names. Unless force is
// set, only names found in known are renamed.
func RenameNames(names []string, suffix string, known map[string]bool,
	force bool) []string {
	out := make([]string, len(names))
	for i, name := range names {
		if force || known[name] {
			out[i] = AddSuffix(name, suffix)
		} else {
			out[i] = name
		}
	}
	return out
}

// entityNames returns the set of all body, joint, and actuator names
// of a Config
func entityNames(c *sim.Config) map[string]bool {
	names := make(map[string]bool)
	for _, k := range []sim.Kind{sim.Body, sim.Joint, sim.Actuator} {
		for _, name := range c.Names(k) {
			names[name] = true
		}
	}
	return names
}
