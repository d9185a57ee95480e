package bench

import (
	"errors"
	"sort"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/transport"
)

// Declaration is one occurrence of a name in a configuration fragment,
// together with whatever partial configuration it carried.
type Declaration[C any] struct {
	Name string
	Conf C
}

// Mergeable is implemented by the partial configuration records.
type Mergeable[C any] interface {
	IsEmpty() bool
	Merge(other C) (C, error)
}

// Consolidate folds declarations into one configuration per canonical name.
// Declarations are processed in order, so when several conflicts exist the one
// reported is the first in load order. Declarations with nothing set are
// skipped and never create an entry.
func Consolidate[C Mergeable[C]](kind transport.InterfaceType, decls []Declaration[C], aliases AliasMap) (map[string]C, error) {
	out := make(map[string]C)
	for _, d := range decls {
		if d.Conf.IsEmpty() {
			continue
		}
		canonical, err := aliases.Resolve(d.Name)
		if err != nil {
			return nil, err
		}
		merged, err := out[canonical].Merge(d.Conf)
		if err != nil {
			var conflict *ConflictError
			if errors.As(err, &conflict) {
				conflict.Kind = kind
				conflict.Name = canonical
				conflict.Declared = d.Name
			}
			return nil, err
		}
		out[canonical] = merged
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
