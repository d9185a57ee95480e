package bench

import (
	"errors"
	"testing"
)

func TestAliasMapResolve(t *testing.T) {
	m := AliasMap{
		"A":       "B",
		"B":       "c",
		"SELF":    "self",
		"CONSOLE": "UART0",
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"chain", "A", "C"},
		{"middle of chain", "b", "C"},
		{"fixed point", "C", "C"},
		{"no entry uppercases", "ioa0", "IOA0"},
		{"self mapping", "Self", "SELF"},
		{"single hop", "console", "UART0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Resolve(tt.in)
			if err != nil {
				t.Fatalf("Resolve(%q) returned error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAliasMapResolveChainAgreesWithTarget(t *testing.T) {
	m := AliasMap{"A": "B", "B": "C"}
	a, err := m.Resolve("A")
	if err != nil {
		t.Fatalf("Resolve(A): %v", err)
	}
	c, err := m.Resolve("C")
	if err != nil {
		t.Fatalf("Resolve(C): %v", err)
	}
	if a != c || c != "C" {
		t.Fatalf("Resolve(A) = %q, Resolve(C) = %q, want both C", a, c)
	}
}

func TestAliasMapResolveCycle(t *testing.T) {
	tests := []struct {
		name  string
		m     AliasMap
		in    string
		alias string
	}{
		{"two names", AliasMap{"A": "B", "B": "A"}, "A", "A"},
		{"entered mid-chain", AliasMap{"X": "A", "A": "B", "B": "C", "C": "A"}, "x", "A"},
		{"case folded", AliasMap{"P": "q", "Q": "p"}, "p", "P"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.m.Resolve(tt.in)
			var cycle *AliasCycleError
			if !errors.As(err, &cycle) {
				t.Fatalf("Resolve(%q) error = %v, want *AliasCycleError", tt.in, err)
			}
			if cycle.Alias != tt.alias {
				t.Fatalf("cycle alias = %q, want %q (chain %v)", cycle.Alias, tt.alias, cycle.Chain)
			}
		})
	}
}

func TestAliasMapNil(t *testing.T) {
	var m AliasMap
	got, err := m.Resolve("spi0")
	if err != nil || got != "SPI0" {
		t.Fatalf("Resolve on nil map = %q, %v", got, err)
	}
}
