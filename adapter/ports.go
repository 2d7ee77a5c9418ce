package adapter

import (
	"errors"
	"runtime"
	"strings"

	"go.bug.st/serial/enumerator"
)

var (
	ErrNoPorts   = errors.New("no serial ports found")
	ErrNoBridges = errors.New("no CAN bridge found")
)

// BridgeKeywords are matched against the lower cased USB product string to
// spot boards that run the bridge firmware.
var BridgeKeywords = []string{
	"pico", "rp2040",
	"adafruit", "feather", "m4", "same51",
	"arduino", "esp32",
	"can", "bridge",
	"usb serial",
}

type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// ListPorts enumerates the serial ports present on the system.
func ListPorts() ([]PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	out := make([]PortInfo, 0, len(ports))
	for _, p := range ports {
		out = append(out, PortInfo{
			Name:         p.Name,
			IsUSB:        p.IsUSB,
			VID:          p.VID,
			PID:          p.PID,
			SerialNumber: p.SerialNumber,
			Product:      p.Product,
		})
	}
	return out, nil
}

// FindPort looks name up among ports. Windows port names are matched in
// upper case.
func FindPort(ports []PortInfo, name string) (PortInfo, error) {
	if runtime.GOOS == "windows" {
		name = strings.ToUpper(name)
	}
	if len(ports) == 0 {
		return PortInfo{}, ErrNoPorts
	}
	for _, p := range ports {
		if p.Name == name {
			return p, nil
		}
	}
	return PortInfo{}, errors.New("port " + name + " not found")
}

// FindBridges returns the ports whose product string names a known bridge
// board, in enumeration order.
func FindBridges(ports []PortInfo) []PortInfo {
	var out []PortInfo
	for _, p := range ports {
		if IsBridge(p) {
			out = append(out, p)
		}
	}
	return out
}

func IsBridge(p PortInfo) bool {
	product := strings.ToLower(p.Product)
	if product == "" {
		return false
	}
	for _, kw := range BridgeKeywords {
		if strings.Contains(product, kw) {
			return true
		}
	}
	return false
}
