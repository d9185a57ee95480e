package sim

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/gpio"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/transport"
)

func TestPinState(t *testing.T) {
	s := New()

	pin, err := s.GPIOPin("IOA0")
	if err != nil {
		t.Fatalf("GPIOPin: %v", err)
	}
	mode := gpio.ModePushPull
	level := true
	pull := gpio.WeakPullUp
	if err := pin.Set(&mode, &level, &pull); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok := s.PinState("IOA0")
	if !ok {
		t.Fatal("pin not tracked")
	}
	want := PinState{Mode: gpio.ModePushPull, Level: true, Pull: gpio.WeakPullUp}
	if got != want {
		t.Fatalf("PinState = %+v, want %+v", got, want)
	}

	s.Drive("IOA0", false)
	if v, err := pin.Read(); err != nil || v {
		t.Fatalf("Read after Drive = %v, %v", v, err)
	}

	if _, ok := s.PinState("IOB0"); ok {
		t.Fatal("untouched pin reported as tracked")
	}
}

func TestCallLog(t *testing.T) {
	now := time.Unix(1000, 0)
	s := New()
	s.nowFunc = func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}

	pin, _ := s.GPIOPin("IOA0")
	_ = pin.Write(true)
	_ = pin.SetMode(gpio.ModeOpenDrain)

	calls := s.Calls()
	if len(calls) != 3 {
		t.Fatalf("got %d calls, want 3: %v", len(calls), calls)
	}
	wantOps := []Op{OpGPIOPin, OpPinWrite, OpPinMode}
	for i, c := range calls {
		if c.Op != wantOps[i] || c.Name != "IOA0" {
			t.Errorf("call %d = %v, want %s(IOA0)", i, c, wantOps[i])
		}
		if i > 0 && !c.At.After(calls[i-1].At) {
			t.Errorf("call %d timestamp not increasing", i)
		}
	}
	if calls[1].String() != "pin.write(IOA0)[true]" {
		t.Errorf("String() = %q", calls[1].String())
	}

	s.ResetCalls()
	if s.CallCount() != 0 {
		t.Fatal("ResetCalls did not clear the log")
	}
}

func TestFailOn(t *testing.T) {
	s := New()
	boom := errors.New("boom")

	s.FailOn(OpPinWrite, "IOA1", boom)
	a0, _ := s.GPIOPin("IOA0")
	a1, _ := s.GPIOPin("IOA1")
	if err := a0.Write(true); err != nil {
		t.Fatalf("IOA0 write: %v", err)
	}
	if err := a1.Write(true); err != boom {
		t.Fatalf("IOA1 write = %v, want %v", err, boom)
	}
	if st, _ := s.PinState("IOA1"); st.Level {
		t.Fatal("failed write changed pin state")
	}

	s.FailOn(OpSPI, "", boom)
	if _, err := s.SPI("SPI7"); err != boom {
		t.Fatalf("SPI = %v, want wildcard failure", err)
	}

	s.ClearFailures()
	if err := a1.Write(true); err != nil {
		t.Fatalf("after ClearFailures: %v", err)
	}
}

func TestRestrictedInstances(t *testing.T) {
	s := New(WithPins("IOA0"), WithUARTs("UART0"))

	if _, err := s.GPIOPin("IOA0"); err != nil {
		t.Fatalf("known pin: %v", err)
	}
	_, err := s.GPIOPin("IOA1")
	var invalid *transport.InvalidInstanceError
	if !errors.As(err, &invalid) || invalid.Name != "IOA1" || invalid.Kind != transport.InterfaceGPIO {
		t.Fatalf("unknown pin err = %v", err)
	}
	if _, err := s.UART("UART1"); !errors.As(err, &invalid) {
		t.Fatalf("unknown uart err = %v", err)
	}
	if _, err := s.SPI("ANY"); err != nil {
		t.Fatalf("unrestricted spi: %v", err)
	}
}

func TestCapabilities(t *testing.T) {
	s := New(WithCapabilities(transport.InterfaceGPIO))

	caps, err := s.Capabilities()
	if err != nil {
		t.Fatalf("Capabilities: %v", err)
	}
	if caps.Has(transport.InterfaceSPI) {
		t.Fatal("spi should be absent")
	}
	var unsupported *transport.UnsupportedInterfaceError
	if _, err := s.SPI("SPI0"); !errors.As(err, &unsupported) {
		t.Fatalf("SPI err = %v", err)
	}
	if _, err := s.Emulator(); !errors.As(err, &unsupported) {
		t.Fatalf("Emulator err = %v", err)
	}
}

func TestUART(t *testing.T) {
	s := New()
	if err := s.Feed("UART0", []byte("hello")); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	u, err := s.UART("UART0")
	if err != nil {
		t.Fatalf("UART: %v", err)
	}

	buf := make([]byte, 3)
	n, err := u.Read(buf)
	if err != nil || string(buf[:n]) != "hel" {
		t.Fatalf("Read = %q, %v", buf[:n], err)
	}
	if err := u.ClearRxBuffer(); err != nil {
		t.Fatalf("ClearRxBuffer: %v", err)
	}
	if p := u.(*UART).Pending(); p != 0 {
		t.Fatalf("Pending = %d after clear", p)
	}

	if _, err := io.WriteString(u, "ping"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := string(u.(*UART).Transmitted()); got != "ping" {
		t.Fatalf("Transmitted = %q", got)
	}

	if baud, _ := u.Baudrate(); baud != 115200 {
		t.Fatalf("default baudrate = %d", baud)
	}
	if err := u.SetBaudrate(921600); err != nil {
		t.Fatalf("SetBaudrate: %v", err)
	}
	if baud, _ := u.Baudrate(); baud != 921600 {
		t.Fatalf("baudrate = %d", baud)
	}
}

func TestSPILoopbackAndI2C(t *testing.T) {
	s := New()

	spi, _ := s.SPI("SPI0")
	if err := spi.SetMaxSpeed(4_000_000); err != nil {
		t.Fatalf("SetMaxSpeed: %v", err)
	}
	if v, _ := spi.MaxSpeed(); v != 4_000_000 {
		t.Fatalf("MaxSpeed = %d", v)
	}
	r := make([]byte, 2)
	if err := spi.Tx([]byte{0x9f, 0x01}, r); err != nil || r[0] != 0x9f || r[1] != 0x01 {
		t.Fatalf("Tx = %x, %v", r, err)
	}
	if b, err := spi.Transfer(0x5a); err != nil || b != 0x5a {
		t.Fatalf("Transfer = %x, %v", b, err)
	}

	i2c, _ := s.I2C("I2C0")
	r = []byte{1, 2, 3}
	if err := i2c.Tx(0x50, []byte{0x00}, r); err != nil {
		t.Fatalf("I2C Tx: %v", err)
	}
	for _, b := range r {
		if b != 0 {
			t.Fatalf("I2C read = %x, want zeroes", r)
		}
	}
}

func TestEmulatorLifecycle(t *testing.T) {
	s := New()
	emu, err := s.Emulator()
	if err != nil {
		t.Fatalf("Emulator: %v", err)
	}
	if st, _ := emu.State(); st != transport.EmulatorOff {
		t.Fatalf("initial state = %s", st)
	}
	if err := emu.Start(map[string]string{"rom": "boot.elf"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if st, _ := emu.State(); st != transport.EmulatorRunning {
		t.Fatalf("state after start = %s", st)
	}

	s.FailOn(OpEmuStart, "", errors.New("no image"))
	if err := emu.Start(nil); err == nil {
		t.Fatal("expected start failure")
	}
	if st, _ := emu.State(); st != transport.EmulatorError {
		t.Fatalf("state after failed start = %s", st)
	}
	if err := emu.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestProxyAndDispatch(t *testing.T) {
	s := New(WithProxy(map[string]string{"board": "cw310"}))

	ops, err := s.ProxyOps()
	if err != nil {
		t.Fatalf("ProxyOps: %v", err)
	}
	m, err := ops.ProvidesMap()
	if err != nil || m["board"] != "cw310" {
		t.Fatalf("ProvidesMap = %v, %v", m, err)
	}

	if v, err := s.Dispatch(&Echo{Value: "x"}); err != nil || v != "x" {
		t.Fatalf("Dispatch = %v, %v", v, err)
	}
	var unsupported *transport.UnsupportedActionError
	if _, err := s.Dispatch(struct{}{}); !errors.As(err, &unsupported) {
		t.Fatalf("Dispatch unknown err = %v", err)
	}
	if _, err := s.Dispatch((*Echo)(nil)); !errors.As(err, &unsupported) {
		t.Fatalf("Dispatch nil *Echo err = %v", err)
	}
}
