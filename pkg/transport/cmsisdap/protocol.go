package cmsisdap

import (
	"encoding/binary"
	"fmt"
)

// CMSIS-DAP command IDs
const (
	CmdInfo        = 0x00
	CmdConnect     = 0x02
	CmdDisconnect  = 0x03
	CmdResetTarget = 0x0A
	CmdSWJPins     = 0x10
	CmdSWJClock    = 0x11
)

// DAP_Info IDs
const (
	InfoVendorID     = 0x01
	InfoProductID    = 0x02
	InfoSerialNum    = 0x03
	InfoFirmwareVer  = 0x04
	InfoCapabilities = 0xF0
	InfoPacketSize   = 0xFF
)

// Connection ports
const (
	PortDefault = 0
	PortSWD     = 1
	PortJTAG    = 2
)

// Status codes
const (
	StatusOK    = 0x00
	StatusError = 0xFF
)

// DAP_SWJ_Pins bit positions. SWCLK and SWDIO share TCK and TMS.
const (
	PinTCK    byte = 1 << 0
	PinTMS    byte = 1 << 1
	PinTDI    byte = 1 << 2
	PinTDO    byte = 1 << 3
	PinNTRST  byte = 1 << 5
	PinNRESET byte = 1 << 7
)

// Protocol encodes commands and decodes responses. Commands that do not fit
// in one packet are rejected before they reach the probe.
type Protocol struct {
	PacketSize int
}

// NewProtocol creates a protocol handler for the given packet size.
func NewProtocol(packetSize int) *Protocol {
	return &Protocol{PacketSize: packetSize}
}

func (p *Protocol) fits(cmd []byte) error {
	if p.PacketSize > 0 && len(cmd) > p.PacketSize {
		return fmt.Errorf("cmsisdap: command 0x%02X is %d bytes, packet size is %d", cmd[0], len(cmd), p.PacketSize)
	}
	return nil
}

func expect(resp []byte, cmd byte, n int) error {
	if len(resp) < n {
		return fmt.Errorf("cmsisdap: response to 0x%02X too short (%d bytes)", cmd, len(resp))
	}
	if resp[0] != cmd {
		return fmt.Errorf("cmsisdap: invalid command ID 0x%02X, want 0x%02X", resp[0], cmd)
	}
	return nil
}

func expectOK(resp []byte, cmd byte, what string) error {
	if err := expect(resp, cmd, 2); err != nil {
		return err
	}
	if resp[1] != StatusOK {
		return fmt.Errorf("cmsisdap: %s failed (status 0x%02X)", what, resp[1])
	}
	return nil
}

// EncodeInfo builds a DAP_Info command.
func (p *Protocol) EncodeInfo(infoID byte) []byte {
	return []byte{CmdInfo, infoID}
}

// DecodeInfo parses a DAP_Info string response. A zero length means the probe
// has no value for the ID.
func (p *Protocol) DecodeInfo(resp []byte) (string, error) {
	if err := expect(resp, CmdInfo, 2); err != nil {
		return "", err
	}
	length := int(resp[1])
	if len(resp) < 2+length {
		return "", fmt.Errorf("cmsisdap: incomplete info string")
	}
	b := resp[2 : 2+length]
	// Strings are NUL terminated on most firmware.
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b), nil
}

// DecodeInfoUint16 parses a DAP_Info response carrying a 16-bit value, such
// as the packet size.
func (p *Protocol) DecodeInfoUint16(resp []byte) (uint16, error) {
	if err := expect(resp, CmdInfo, 2); err != nil {
		return 0, err
	}
	if resp[1] != 2 || len(resp) < 4 {
		return 0, fmt.Errorf("cmsisdap: info value is %d bytes, want 2", resp[1])
	}
	return binary.LittleEndian.Uint16(resp[2:4]), nil
}

// EncodeConnect builds a DAP_Connect command.
func (p *Protocol) EncodeConnect(port byte) []byte {
	return []byte{CmdConnect, port}
}

// DecodeConnect returns the port the probe connected to.
func (p *Protocol) DecodeConnect(resp []byte) (byte, error) {
	if err := expect(resp, CmdConnect, 2); err != nil {
		return 0, err
	}
	if resp[1] == 0 {
		return 0, fmt.Errorf("cmsisdap: connection failed")
	}
	return resp[1], nil
}

// EncodeDisconnect builds a DAP_Disconnect command.
func (p *Protocol) EncodeDisconnect() []byte {
	return []byte{CmdDisconnect}
}

func (p *Protocol) DecodeDisconnect(resp []byte) error {
	return expectOK(resp, CmdDisconnect, "disconnect")
}

// EncodeSWJPins builds a DAP_SWJ_Pins command. Only pins set in sel are
// driven, to the value of the matching bit in out. waitUS is how long the
// probe waits for the selected pins to settle before sampling.
func (p *Protocol) EncodeSWJPins(out, sel byte, waitUS uint32) ([]byte, error) {
	cmd := make([]byte, 7)
	cmd[0] = CmdSWJPins
	cmd[1] = out
	cmd[2] = sel
	binary.LittleEndian.PutUint32(cmd[3:], waitUS)
	if err := p.fits(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

// DecodeSWJPins returns the sampled pin input byte.
func (p *Protocol) DecodeSWJPins(resp []byte) (byte, error) {
	if err := expect(resp, CmdSWJPins, 2); err != nil {
		return 0, err
	}
	return resp[1], nil
}

// EncodeSetClock builds a DAP_SWJ_Clock command.
func (p *Protocol) EncodeSetClock(hz uint32) []byte {
	cmd := make([]byte, 5)
	cmd[0] = CmdSWJClock
	binary.LittleEndian.PutUint32(cmd[1:], hz)
	return cmd
}

func (p *Protocol) DecodeSetClock(resp []byte) error {
	return expectOK(resp, CmdSWJClock, "set clock")
}

// EncodeResetTarget builds a DAP_ResetTarget command.
func (p *Protocol) EncodeResetTarget() []byte {
	return []byte{CmdResetTarget}
}

// DecodeResetTarget reports whether the probe ran a device specific reset
// sequence.
func (p *Protocol) DecodeResetTarget(resp []byte) (bool, error) {
	if err := expectOK(resp, CmdResetTarget, "reset target"); err != nil {
		return false, err
	}
	return len(resp) > 2 && resp[2] == 1, nil
}
