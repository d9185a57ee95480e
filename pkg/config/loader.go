package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// IncludeCycleError reports a fragment that includes itself, directly or
// through other fragments.
type IncludeCycleError struct {
	Path  string
	Chain []string
}

func (e *IncludeCycleError) Error() string {
	return fmt.Sprintf("config: include cycle at %s (%s)", e.Path, strings.Join(e.Chain, " -> "))
}

// Parse decodes one fragment. JSON input is accepted as well since it is a
// subset of YAML.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Marshal encodes a fragment as YAML.
func Marshal(f *File) ([]byte, error) {
	return yaml.Marshal(f)
}

// LoadFile reads a fragment and everything it includes. The result is in load
// order: each file's includes, depth first, come before the file itself. A
// file reachable through more than one include path is loaded once.
func LoadFile(path string) ([]*File, error) {
	l := &loader{seen: make(map[string]bool)}
	if err := l.load(path, nil); err != nil {
		return nil, err
	}
	return l.files, nil
}

// LoadFiles loads several top-level fragments in order, sharing one
// deduplication set.
func LoadFiles(paths ...string) ([]*File, error) {
	l := &loader{seen: make(map[string]bool)}
	for _, p := range paths {
		if err := l.load(p, nil); err != nil {
			return nil, err
		}
	}
	return l.files, nil
}

type loader struct {
	seen  map[string]bool
	files []*File
}

func (l *loader) load(path string, stack []string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	for _, p := range stack {
		if p == abs {
			return &IncludeCycleError{Path: abs, Chain: append(append([]string(nil), stack...), abs)}
		}
	}
	if l.seen[abs] {
		return nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	f.Source = abs

	stack = append(stack, abs)
	for _, inc := range f.Includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(abs), inc)
		}
		if err := l.load(inc, stack); err != nil {
			return err
		}
	}
	l.seen[abs] = true
	l.files = append(l.files, f)
	return nil
}

func (f *File) validate() error {
	for i, p := range f.Pins {
		if p.Name == "" {
			return fmt.Errorf("config: pins[%d]: missing name", i)
		}
	}
	for i, s := range f.Strappings {
		if s.Name == "" {
			return fmt.Errorf("config: strappings[%d]: missing name", i)
		}
		for j, p := range s.Pins {
			if p.Name == "" {
				return fmt.Errorf("config: strappings[%d].pins[%d]: missing name", i, j)
			}
		}
	}
	for i, s := range f.SPI {
		if s.Name == "" {
			return fmt.Errorf("config: spi[%d]: missing name", i)
		}
	}
	for i, b := range f.I2C {
		if b.Name == "" {
			return fmt.Errorf("config: i2c[%d]: missing name", i)
		}
	}
	for i, u := range f.UARTs {
		if u.Name == "" {
			return fmt.Errorf("config: uarts[%d]: missing name", i)
		}
	}
	return nil
}
