package bench

import "strings"

// AliasMap maps an uppercased user-facing name to the name it stands for. Each
// entry is a single hop; chains are followed at lookup time.
type AliasMap map[string]string

// Resolve returns the canonical form of name: the uppercased name reached
// once the chain hits a name with no entry or an entry pointing at itself.
func (m AliasMap) Resolve(name string) (string, error) {
	name = strings.ToUpper(name)
	seen := map[string]bool{}
	var chain []string
	for {
		seen[name] = true
		chain = append(chain, name)

		target, ok := m[name]
		if !ok {
			return name, nil
		}
		next := strings.ToUpper(target)
		if next == name {
			return name, nil
		}
		if seen[next] {
			return "", &AliasCycleError{Alias: next, Chain: append(chain, next)}
		}
		name = next
	}
}

// validate resolves every entry so that a cycle anywhere in the map is found
// before the map is used.
func (m AliasMap) validate() error {
	for _, name := range sortedKeys(m) {
		if _, err := m.Resolve(name); err != nil {
			return err
		}
	}
	return nil
}

func (m AliasMap) clone() AliasMap {
	out := make(AliasMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
