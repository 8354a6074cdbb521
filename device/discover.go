package device

import (
	"github.com/karalabe/usb"
	"github.com/pkg/errors"
)

// Swappable for tests; enumeration needs real hardware otherwise.
var enumerate = usb.EnumerateHid

// Discover scans the sixteen product ids the controller family answers
// on and returns every attached match.
func Discover() ([]usb.DeviceInfo, error) {
	found := []usb.DeviceInfo{}
	for pid := uint16(ProductIDFirst); pid <= ProductIDLast; pid++ {
		infos, err := enumerate(VendorID, pid)
		if err != nil {
			return nil, errors.Wrap(err, "cannot enumerate hid devices")
		}
		found = append(found, infos...)
	}
	return found, nil
}

// OpenAny opens the first controller found in the product id range, for
// when the unit's exact product id is not known up front.
func OpenAny() (Controller, error) {
	infos, err := Discover()
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, errors.Wrapf(ErrDeviceUnavailable, "no hid device %04x:%04x-%04x",
			VendorID, ProductIDFirst, ProductIDLast)
	}
	dev, err := infos[0].Open()
	if err != nil {
		return nil, classify(err)
	}
	return newController(dev), nil
}
