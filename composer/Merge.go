package composer

import (
	"fmt"
	"sort"

	"github.com/samuelfneumann/shaclearn/sim"
)

// merge concatenates the configuration fragments of all components
// and edges, which must be given in sorted order, followed by the
// global options, and parses the result
func merge(comps []*ComponentInstance, edges []*EdgeInstance,
	options sim.Options) (string, *sim.Config, error) {
	fragments := make([]string, 0, len(comps)+len(edges)+1)
	for _, c := range comps {
		fragments = append(fragments, c.Fragment)
	}
	for _, e := range edges {
		fragments = append(fragments, e.Fragment)
	}

	global, err := sim.Marshal(&sim.Config{Options: options})
	if err != nil {
		return "", nil, fmt.Errorf("merge: global options: %v", err)
	}
	fragments = append(fragments, global)

	text := sim.Concat(fragments...)
	config, err := sim.Unmarshal(text)
	if err != nil {
		return "", nil, fmt.Errorf("merge: %v", err)
	}
	return text, config, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedStrings(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}
