//go:build linux

package blestack

import (
	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

func defaultDeviceFactory() (ble.Device, error) {
	return linux.NewDevice()
}
