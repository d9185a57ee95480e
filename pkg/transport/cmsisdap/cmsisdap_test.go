package cmsisdap

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/bench"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/config"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/gpio"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/transport"
)

// fakeProbe answers commands the way CMSIS-DAP firmware does.
type fakeProbe struct {
	cmds    [][]byte
	outputs byte
	inputs  byte
	clock   uint32
	failOn  byte
	failErr error
	closed  bool
}

func newFakeProbe() *fakeProbe {
	return &fakeProbe{outputs: 0xFF &^ PinTDO}
}

func infoString(s string) []byte {
	return append([]byte{CmdInfo, byte(len(s))}, s...)
}

func (f *fakeProbe) WriteRead(cmd []byte) ([]byte, error) {
	f.cmds = append(f.cmds, append([]byte(nil), cmd...))
	if f.failErr != nil && cmd[0] == f.failOn {
		return nil, f.failErr
	}
	switch cmd[0] {
	case CmdInfo:
		switch cmd[1] {
		case InfoVendorID:
			return infoString("ARM"), nil
		case InfoProductID:
			return infoString("CMSIS-DAP"), nil
		case InfoSerialNum:
			return infoString("E6614C311B4B5A2F"), nil
		case InfoFirmwareVer:
			return infoString("2.1.0"), nil
		case InfoPacketSize:
			return []byte{CmdInfo, 2, 0x00, 0x02}, nil
		}
		return []byte{CmdInfo, 0}, nil
	case CmdConnect:
		return []byte{CmdConnect, PortSWD}, nil
	case CmdDisconnect:
		return []byte{CmdDisconnect, StatusOK}, nil
	case CmdSWJClock:
		f.clock = binary.LittleEndian.Uint32(cmd[1:5])
		return []byte{CmdSWJClock, StatusOK}, nil
	case CmdResetTarget:
		return []byte{CmdResetTarget, StatusOK, 1}, nil
	case CmdSWJPins:
		out, sel := cmd[1], cmd[2]
		f.outputs = f.outputs&^sel | out&sel
		return []byte{CmdSWJPins, f.outputs&^PinTDO | f.inputs&PinTDO}, nil
	}
	return []byte{cmd[0], StatusError}, nil
}

func (f *fakeProbe) PacketSize() int { return 64 }

func (f *fakeProbe) Close() error {
	f.closed = true
	return nil
}

func (f *fakeProbe) commandIDs() []byte {
	ids := make([]byte, len(f.cmds))
	for i, c := range f.cmds {
		ids[i] = c[0]
	}
	return ids
}

func openFake(t *testing.T) (*Transport, *fakeProbe) {
	t.Helper()
	probe := newFakeProbe()
	tr, err := newTransport(probe)
	require.NoError(t, err)
	probe.cmds = nil
	return tr, probe
}

func TestOpenSequence(t *testing.T) {
	probe := newFakeProbe()
	tr, err := newTransport(probe)
	require.NoError(t, err)

	assert.Equal(t, []byte{CmdInfo, CmdInfo, CmdInfo, CmdInfo, CmdInfo, CmdConnect, CmdSWJClock}, probe.commandIDs())
	assert.Equal(t, uint32(DefaultClockHz), probe.clock)
	assert.Equal(t, Info{
		Vendor:     "ARM",
		Product:    "CMSIS-DAP",
		Serial:     "E6614C311B4B5A2F",
		Firmware:   "2.1.0",
		PacketSize: 512,
	}, tr.Info())
}

func TestOpenFailsWithoutVendorInfo(t *testing.T) {
	probe := newFakeProbe()
	probe.failOn, probe.failErr = CmdInfo, errors.New("stall")

	_, err := newTransport(probe)
	require.Error(t, err)
	assert.ErrorIs(t, err, probe.failErr)
}

func TestGPIOPinNames(t *testing.T) {
	tr, _ := openFake(t)

	a, err := tr.GPIOPin("swclk")
	require.NoError(t, err)
	b, err := tr.GPIOPin("TCK")
	require.NoError(t, err)
	assert.Same(t, a, b, "SWCLK and TCK are the same line")

	_, err = tr.GPIOPin("IOA0")
	var invalid *transport.InvalidInstanceError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "IOA0", invalid.Name)
}

func TestPinWriteAndRead(t *testing.T) {
	tr, probe := openFake(t)

	reset, err := tr.GPIOPin("nRESET")
	require.NoError(t, err)
	require.NoError(t, reset.Write(false))
	require.Len(t, probe.cmds, 1)
	assert.Equal(t, []byte{CmdSWJPins, 0x00, PinNRESET, 0, 0, 0, 0}, probe.cmds[0])

	level, err := reset.Read()
	require.NoError(t, err)
	assert.False(t, level)

	require.NoError(t, reset.Write(true))
	level, err = reset.Read()
	require.NoError(t, err)
	assert.True(t, level)

	probe.inputs = PinTDO
	tdo, err := tr.GPIOPin("TDO")
	require.NoError(t, err)
	level, err = tdo.Read()
	require.NoError(t, err)
	assert.True(t, level)
	assert.Error(t, tdo.Write(true))
	assert.Error(t, tdo.SetMode(gpio.ModePushPull))
}

func TestSettleTime(t *testing.T) {
	tr, probe := openFake(t)

	require.NoError(t, tr.SetSettleTime(1500*time.Microsecond))
	reset, err := tr.GPIOPin("NRESET")
	require.NoError(t, err)
	require.NoError(t, reset.Write(false))
	require.Len(t, probe.cmds, 1)
	assert.Equal(t, uint32(1500), binary.LittleEndian.Uint32(probe.cmds[0][3:]))

	require.NoError(t, tr.SetSettleTime(MaxSettleTime))
	for _, d := range []time.Duration{-time.Microsecond, MaxSettleTime + time.Microsecond, 72 * time.Minute} {
		assert.Error(t, tr.SetSettleTime(d), "settle time %v", d)
	}

	probe.cmds = nil
	require.NoError(t, reset.Write(true))
	require.Len(t, probe.cmds, 1)
	assert.Equal(t, uint32(MaxSettleTime/time.Microsecond), binary.LittleEndian.Uint32(probe.cmds[0][3:]),
		"rejected values must leave the previous setting in place")
}

func TestPinInputModeDefersWrites(t *testing.T) {
	tr, probe := openFake(t)
	pin, err := tr.GPIOPin("TDI")
	require.NoError(t, err)

	require.NoError(t, pin.SetMode(gpio.ModeInput))
	require.NoError(t, pin.Write(false))
	assert.Empty(t, probe.cmds)

	require.NoError(t, pin.SetMode(gpio.ModePushPull))
	require.Len(t, probe.cmds, 1)
	assert.Equal(t, byte(0), probe.outputs&PinTDI)
}

func TestPinUnsupportedSettings(t *testing.T) {
	tr, _ := openFake(t)
	pin, err := tr.GPIOPin("TMS")
	require.NoError(t, err)

	assert.ErrorIs(t, pin.SetPullMode(gpio.PullUp), transport.ErrNotImplemented)
	assert.NoError(t, pin.SetPullMode(gpio.PullNone))
	assert.ErrorIs(t, pin.SetMode(gpio.ModeAnalogInput), transport.ErrNotImplemented)
}

func TestDispatch(t *testing.T) {
	tr, probe := openFake(t)

	executed, err := tr.Dispatch(ResetTarget{})
	require.NoError(t, err)
	assert.Equal(t, true, executed)

	_, err = tr.Dispatch(SetClock{Hz: 4_000_000})
	require.NoError(t, err)
	assert.Equal(t, uint32(4_000_000), probe.clock)

	_, err = tr.Dispatch(SetClock{})
	assert.Error(t, err)

	fw, err := tr.Dispatch(ReadInfo{ID: InfoFirmwareVer})
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", fw)

	_, err = tr.Dispatch("reset")
	var unsupported *transport.UnsupportedActionError
	assert.ErrorAs(t, err, &unsupported)
}

func TestUnsupportedInterfaces(t *testing.T) {
	tr, _ := openFake(t)

	caps, err := tr.Capabilities()
	require.NoError(t, err)
	assert.NoError(t, caps.Request(transport.InterfaceGPIO))
	assert.Error(t, caps.Request(transport.InterfaceUART))

	var unsupported *transport.UnsupportedInterfaceError
	_, err = tr.SPI("SPI0")
	assert.ErrorAs(t, err, &unsupported)
	_, err = tr.I2C("I2C0")
	assert.ErrorAs(t, err, &unsupported)
	_, err = tr.UART("UART0")
	assert.ErrorAs(t, err, &unsupported)
	_, err = tr.Emulator()
	assert.ErrorAs(t, err, &unsupported)
	_, err = tr.ProxyOps()
	assert.ErrorAs(t, err, &unsupported)
}

func TestClose(t *testing.T) {
	tr, probe := openFake(t)
	require.NoError(t, tr.Close())
	assert.Equal(t, []byte{CmdDisconnect}, probe.commandIDs())
	assert.True(t, probe.closed)
}

func TestResetThroughWrapper(t *testing.T) {
	tr, probe := openFake(t)

	f, err := config.Parse([]byte(`
pins:
  - name: RESET
    alias_of: NRESET
    mode: OpenDrain
    level: true
  - name: SW_STRAP0
    alias_of: "NULL"
strappings:
  - name: RESET
    pins:
      - name: RESET
        level: false
`))
	require.NoError(t, err)

	b := bench.NewTransportWrapperBuilder(tr, bench.WithLogger(bench.NopLogger{}))
	require.NoError(t, b.AddConfigurationFile(f))
	w, err := b.Build()
	require.NoError(t, err)

	require.NoError(t, w.ApplyDefaultConfiguration())
	require.NoError(t, w.ResetTarget(context.Background(), 0, false))

	var levels []bool
	for _, c := range probe.cmds {
		if c[0] == CmdSWJPins && c[2] == PinNRESET {
			levels = append(levels, c[1]&PinNRESET != 0)
		}
	}
	assert.Equal(t, []bool{true, false, true}, levels)

	// The console UART does not exist on this probe.
	err = w.ResetTarget(context.Background(), 0, true)
	var unsupported *transport.UnsupportedInterfaceError
	assert.ErrorAs(t, err, &unsupported)
}
