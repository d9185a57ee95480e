// Package config reads board configuration fragments from YAML files and
// from the override statements given on the command line.
package config

import "github.com/OpenTraceLab/OpenTraceBench/pkg/gpio"

// File is one configuration fragment: a board file, a strapping profile or a
// set of overrides. Fragments are partial; the transport wrapper builder
// combines them.
type File struct {
	// Interface optionally names the transport backend the fragment targets.
	Interface string `yaml:"interface,omitempty"`
	// Includes lists further fragments, relative to this file, loaded first.
	Includes   []string    `yaml:"includes,omitempty"`
	Pins       []Pin       `yaml:"pins,omitempty"`
	Strappings []Strapping `yaml:"strappings,omitempty"`
	SPI        []SPI       `yaml:"spi,omitempty"`
	I2C        []I2C       `yaml:"i2c,omitempty"`
	UARTs      []UART      `yaml:"uarts,omitempty"`

	// Source records where the fragment came from. It is not part of the
	// file format.
	Source string `yaml:"-"`
}

// Pin declares a GPIO pin, an alias for one, or both.
type Pin struct {
	Name     string         `yaml:"name"`
	AliasOf  string         `yaml:"alias_of,omitempty"`
	Mode     *gpio.PinMode  `yaml:"mode,omitempty"`
	Level    *bool          `yaml:"level,omitempty"`
	PullMode *gpio.PullMode `yaml:"pull_mode,omitempty"`
}

// Strapping groups pin overrides under a name such as RESET or BOOTSTRAP.
// Alias declarations inside a strapping are ignored.
type Strapping struct {
	Name string `yaml:"name"`
	Pins []Pin  `yaml:"pins"`
}

// SPI declares a SPI target.
type SPI struct {
	Name       string  `yaml:"name"`
	AliasOf    string  `yaml:"alias_of,omitempty"`
	BitsPerSec *uint32 `yaml:"bits_per_sec,omitempty"`
}

// I2C declares an I2C bus alias.
type I2C struct {
	Name    string `yaml:"name"`
	AliasOf string `yaml:"alias_of,omitempty"`
}

// UART declares a serial port. Baudrate and Parity are parsed but not yet
// applied when a port is opened.
type UART struct {
	Name     string  `yaml:"name"`
	AliasOf  string  `yaml:"alias_of,omitempty"`
	Baudrate *uint32 `yaml:"baudrate,omitempty"`
	Parity   string  `yaml:"parity,omitempty"`
}
