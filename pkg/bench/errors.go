package bench

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/transport"
)

// ConflictError reports two declarations that set the same field of the same
// pin or bus to different values.
type ConflictError struct {
	Kind transport.InterfaceType
	// Name is the canonical name both declarations resolve to.
	Name string
	// Declared is the name used by the declaration that hit the conflict.
	Declared string
	Field    string
	Existing any
	Incoming any
}

func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	where := e.Name
	if e.Declared != "" && !strings.EqualFold(e.Declared, e.Name) {
		where = fmt.Sprintf("%s (declared as %s)", e.Name, e.Declared)
	}
	return fmt.Sprintf("bench: inconsistent %s configuration for %s: %s %v conflicts with %v",
		e.Kind, where, e.Field, e.Existing, e.Incoming)
}

// AliasCycleError reports an alias chain that comes back to a name it has
// already visited.
type AliasCycleError struct {
	Alias string
	Chain []string
}

func (e *AliasCycleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("bench: alias cycle through %s (%s)", e.Alias, strings.Join(e.Chain, " -> "))
}

// InvalidStrappingNameError reports a strapping that no fragment declared.
type InvalidStrappingNameError struct {
	Name string
}

func (e *InvalidStrappingNameError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("bench: invalid strapping name %q", e.Name)
}
