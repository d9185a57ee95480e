package cmsisdap

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/gousb"
)

// ProbeKind categorizes probe families.
type ProbeKind string

const (
	ProbeKindCMSISDAP ProbeKind = "cmsis-dap"
	ProbeKindPico     ProbeKind = "picoprobe"
	ProbeKindSim      ProbeKind = "simulator"
)

// ProbeInfo describes a detected probe.
type ProbeInfo struct {
	Kind        ProbeKind
	Description string
	VendorID    uint16
	ProductID   uint16
}

// Label returns a user-friendly description of the probe.
func (i ProbeInfo) Label() string {
	if i.Description != "" {
		return i.Description
	}
	return fmt.Sprintf("%s (%04X:%04X)", string(i.Kind), i.VendorID, i.ProductID)
}

type knownUSBDevice struct {
	Kind        ProbeKind
	VendorID    uint16
	ProductID   uint16
	Description string
}

var knownProbes = []knownUSBDevice{
	{ProbeKindCMSISDAP, 0x2e8a, 0x000c, "Raspberry Pi Debug Probe (CMSIS-DAP)"},
	{ProbeKindCMSISDAP, 0x0d28, 0x0204, "DAPLink CMSIS-DAP"},
	{ProbeKindCMSISDAP, 0x1366, 0x0101, "SEGGER J-Link CMSIS-DAP"},
	{ProbeKindPico, 0x2e8a, 0x0004, "Picoprobe"},
}

// Discover enumerates connected probes with known VID/PID pairs. The simulator
// entry is always appended so that tools can run without hardware. Missing
// USB permissions are not an error; they just hide hardware probes.
func Discover(ctx context.Context) ([]ProbeInfo, error) {
	var results []ProbeInfo
	usb := gousb.NewContext()
	defer usb.Close()

	_, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if ctx.Err() != nil {
			return false
		}
		if info, ok := classify(uint16(desc.Vendor), uint16(desc.Product)); ok {
			results = append(results, info)
		}
		return false
	})
	if err != nil && !errors.Is(err, gousb.ErrorAccess) {
		return results, fmt.Errorf("cmsisdap: enumerate: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	results = append(results, ProbeInfo{
		Kind:        ProbeKindSim,
		Description: "Simulator (no hardware)",
	})
	return results, nil
}

func classify(vid, pid uint16) (ProbeInfo, bool) {
	for _, known := range knownProbes {
		if vid == known.VendorID && pid == known.ProductID {
			return ProbeInfo{
				Kind:        known.Kind,
				Description: known.Description,
				VendorID:    known.VendorID,
				ProductID:   known.ProductID,
			}, true
		}
	}
	return ProbeInfo{}, false
}
