// Package bench turns board configuration fragments into a ready-to-use view
// of one debug transport.
//
// Fragments name pins and buses the way the board schematic does. Each name
// may be an alias of another name; following the chain ends at the canonical
// name the backend understands. Several fragments may declare the same pin:
// their partial configurations are merged field by field, and two different
// values for one field are a *ConflictError.
//
// Usage:
//
//	b := bench.NewTransportWrapperBuilder(t, bench.WithLogger(logger))
//	for _, f := range files {
//		if err := b.AddConfigurationFile(f); err != nil {
//			return err
//		}
//	}
//	w, err := b.Build()
//	if err != nil {
//		return err
//	}
//	if err := w.ApplyDefaultConfiguration(); err != nil {
//		return err
//	}
//	err = w.ResetTarget(ctx, 100*time.Millisecond, true)
//
// A strapping is a named set of pin overrides, such as RESET or
// ROM_BOOTSTRAP. ApplyPinStrapping drives its pins to the override values and
// RemovePinStrapping returns them to their defaults.
//
// A pin aliased to NULL is not wired on the current board. Accessing it yields
// a NullPin that ignores writes, reads low and logs one warning.
//
// The wrapper serializes access to the backend. Calling back into the wrapper
// from inside a backend method panics.
package bench
