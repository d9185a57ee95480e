package cmsisdap

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gousb"
)

const (
	// DefaultPacketSize is used until the probe reports its own.
	DefaultPacketSize = 64
	DefaultTimeout    = 5 * time.Second
)

// link carries one command/response exchange with a probe.
type link interface {
	WriteRead(cmd []byte) ([]byte, error)
	PacketSize() int
	Close() error
}

// usbLink talks to a probe over its vendor-class bulk endpoints.
type usbLink struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface

	epOut *gousb.OutEndpoint
	epIn  *gousb.InEndpoint

	packetSize int
	timeout    time.Duration
}

func openUSB(vid, pid uint16, timeout time.Duration) (*usbLink, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("cmsisdap: USB error: %w", err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("cmsisdap: device not found (VID:0x%04X PID:0x%04X)", vid, pid)
	}

	// Needed on Linux when a kernel driver holds the interface; not fatal
	// elsewhere.
	_ = dev.SetAutoDetach(true)

	l := &usbLink{
		ctx:        ctx,
		dev:        dev,
		packetSize: DefaultPacketSize,
		timeout:    timeout,
	}
	if err := l.claim(); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// claim finds the vendor-class interface, falling back to interface 0, and
// opens its bulk endpoints.
func (l *usbLink) claim() error {
	cfg, err := l.dev.Config(1)
	if err != nil {
		return fmt.Errorf("cmsisdap: failed to get config: %w", err)
	}
	l.cfg = cfg

	num := 0
	for _, intf := range cfg.Desc.Interfaces {
		if len(intf.AltSettings) > 0 && intf.AltSettings[0].Class == gousb.ClassVendorSpec {
			num = intf.Number
			break
		}
	}

	intf, err := cfg.Interface(num, 0)
	if err != nil {
		return fmt.Errorf("cmsisdap: failed to claim interface %d: %w", num, err)
	}
	l.intf = intf

	var outNum, inNum int
	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch {
		case ep.Direction == gousb.EndpointDirectionOut && outNum == 0:
			outNum = ep.Number
		case ep.Direction == gousb.EndpointDirectionIn && inNum == 0:
			inNum = ep.Number
			l.packetSize = ep.MaxPacketSize
		}
	}
	if outNum == 0 {
		return fmt.Errorf("cmsisdap: bulk OUT endpoint not found")
	}
	if inNum == 0 {
		return fmt.Errorf("cmsisdap: bulk IN endpoint not found")
	}

	if l.epOut, err = intf.OutEndpoint(outNum); err != nil {
		return fmt.Errorf("cmsisdap: failed to open OUT endpoint: %w", err)
	}
	if l.epIn, err = intf.InEndpoint(inNum); err != nil {
		return fmt.Errorf("cmsisdap: failed to open IN endpoint: %w", err)
	}
	return nil
}

// WriteRead sends cmd padded to a full packet and reads one response packet.
func (l *usbLink) WriteRead(cmd []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	packet := make([]byte, l.packetSize)
	copy(packet, cmd)
	if _, err := l.epOut.WriteContext(ctx, packet); err != nil {
		return nil, fmt.Errorf("cmsisdap: USB write failed: %w", err)
	}

	resp := make([]byte, l.packetSize)
	n, err := l.epIn.ReadContext(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("cmsisdap: USB read failed: %w", err)
	}
	return resp[:n], nil
}

func (l *usbLink) PacketSize() int {
	return l.packetSize
}

func (l *usbLink) Close() error {
	if l.intf != nil {
		l.intf.Close()
		l.intf = nil
	}
	if l.cfg != nil {
		l.cfg.Close()
		l.cfg = nil
	}
	if l.dev != nil {
		l.dev.Close()
		l.dev = nil
	}
	if l.ctx != nil {
		l.ctx.Close()
		l.ctx = nil
	}
	return nil
}
