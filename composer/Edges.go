package composer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samuelfneumann/shaclearn/sim"
)

// CollideType is the collision policy between two components
type CollideType string

const (
	// CollideFull lets every collider of one component collide with
	// every collider of the other. It is used when no policy is given.
	CollideFull CollideType = "full"

	// CollideRoot lets only the two root bodies collide
	CollideRoot CollideType = "root"

	// CollideNone disables collisions between the components
	CollideNone CollideType = "none"
)

// resolve returns the effective policy, treating an unset policy as
// CollideFull
func (c CollideType) resolve() (CollideType, error) {
	switch c {
	case "":
		return CollideFull, nil
	case CollideFull, CollideRoot, CollideNone:
		return c, nil
	}
	return "", fmt.Errorf("unknown collide_type %q", string(c))
}

// UnmarshalJSON implements the json.Unmarshaler interface. null, false,
// and the empty string all disable collisions.
func (c *CollideType) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "null", "false":
		*c = CollideNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("unmarshalJSON: collide_type must be a string, "+
			"null, or false: %v", err)
	}
	if s == "" {
		s = string(CollideNone)
	}
	*c = CollideType(s)
	return nil
}

// EdgeSep separates the two component names of an edge key
const EdgeSep = "__"

// EdgeKey returns the key of the edge between two components. The key
// is the same regardless of argument order.
func EdgeKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + EdgeSep + b
}

// EdgeInstance is the synthesized edge between two components
type EdgeInstance struct {
	Key    string
	First  string
	Second string

	CollideType CollideType
	Pairs       []sim.CollidePair

	// Fragment is the serialized configuration of the edge, empty if
	// the edge has no collision pairs
	Fragment string

	desc EdgeDesc
}

// synthesizeEdges builds one edge for every unordered pair of
// components, which must be given in sorted order. Edge descriptions
// are consumed from descs as they are used; any left over are an error.
func synthesizeEdges(comps []*ComponentInstance,
	descs map[string]EdgeDesc) ([]*EdgeInstance, error) {
	remaining := make(map[string]EdgeDesc, len(descs))
	for k, v := range descs {
		remaining[k] = v
	}

	var edges []*EdgeInstance
	for i := 0; i < len(comps); i++ {
		for j := i + 1; j < len(comps); j++ {
			first, second := comps[i], comps[j]
			key := EdgeKey(first.Name, second.Name)
			desc := remaining[key]
			delete(remaining, key)

			collideType, err := desc.CollideType.resolve()
			if err != nil {
				return nil, &ConstructionError{Op: "synthesizeEdges",
					Subject: key, Err: err}
			}
			edge := &EdgeInstance{
				Key:         key,
				First:       first.Name,
				Second:      second.Name,
				CollideType: collideType,
				Pairs:       collidePairs(collideType, first, second),
				desc:        desc,
			}

			if len(edge.Pairs) > 0 {
				edge.Fragment, err = sim.Marshal(&sim.Config{
					CollideInclude: edge.Pairs,
				})
				if err != nil {
					return nil, &ConstructionError{Op: "synthesizeEdges",
						Subject: key, Err: err}
				}
			}
			edges = append(edges, edge)
		}
	}

	if len(remaining) > 0 {
		unused := make([]string, 0, len(remaining))
		for k := range remaining {
			unused = append(unused, k)
		}
		return nil, &ConstructionError{
			Op:      "synthesizeEdges",
			Subject: strings.Join(sortedStrings(unused), ", "),
			Err:     errUnusedEdge,
		}
	}
	return edges, nil
}

// collidePairs returns the collision pairs between two components
func collidePairs(t CollideType, first,
	second *ComponentInstance) []sim.CollidePair {
	switch t {
	case CollideFull:
		pairs := make([]sim.CollidePair, 0,
			len(first.Collides)*len(second.Collides))
		for _, a := range first.Collides {
			for _, b := range second.Collides {
				pairs = append(pairs, sim.CollidePair{First: a, Second: b})
			}
		}
		return pairs

	case CollideRoot:
		return []sim.CollidePair{{First: first.Root, Second: second.Root}}
	}
	return nil
}
