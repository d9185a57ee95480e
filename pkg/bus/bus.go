// Package bus declares the bus handles a transport backend hands out. The SPI
// and I2C contracts extend the TinyGo driver interfaces so device drivers
// written against tinygo.org/x/drivers can run on top of a host transport.
package bus

import (
	"io"

	"tinygo.org/x/drivers"
)

// SPITarget is a SPI controller with an adjustable clock.
type SPITarget interface {
	drivers.SPI
	SetMaxSpeed(bitsPerSec uint32) error
	MaxSpeed() (uint32, error)
}

// I2CBus is an I2C controller with an adjustable clock.
type I2CBus interface {
	drivers.I2C
	SetMaxSpeed(bitsPerSec uint32) error
}

// UART is a serial port, typically the target console.
type UART interface {
	io.ReadWriter
	Baudrate() (uint32, error)
	SetBaudrate(baud uint32) error
	// ClearRxBuffer discards anything received but not yet read.
	ClearRxBuffer() error
}
