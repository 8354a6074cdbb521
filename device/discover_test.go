package device

import (
	"testing"

	"github.com/karalabe/usb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubEnumerate(t *testing.T, fn func(vid, pid uint16) ([]usb.DeviceInfo, error)) {
	t.Helper()
	restore := enumerate
	enumerate = fn
	t.Cleanup(func() { enumerate = restore })
}

func TestDiscoverScansProductIDRange(t *testing.T) {
	var pids []uint16
	stubEnumerate(t, func(vid, pid uint16) ([]usb.DeviceInfo, error) {
		assert.Equal(t, uint16(VendorID), vid)
		pids = append(pids, pid)
		if pid == 0x2140 {
			return []usb.DeviceInfo{{VendorID: vid, ProductID: pid}}, nil
		}
		return nil, nil
	})

	infos, err := Discover()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, uint16(0x2140), infos[0].ProductID)

	require.Len(t, pids, 16)
	assert.Equal(t, uint16(ProductIDFirst), pids[0])
	assert.Equal(t, uint16(ProductIDLast), pids[len(pids)-1])
}

func TestOpenAnyReportsNoDevices(t *testing.T) {
	stubEnumerate(t, func(vid, pid uint16) ([]usb.DeviceInfo, error) {
		return nil, nil
	})

	_, err := OpenAny()
	require.Error(t, err)
	assert.Equal(t, ErrDeviceUnavailable, errors.Cause(err))
}

func TestOpenReportsNoDevice(t *testing.T) {
	stubEnumerate(t, func(vid, pid uint16) ([]usb.DeviceInfo, error) {
		return nil, nil
	})

	_, err := Open(VendorID, ProductIDFirst)
	require.Error(t, err)
	assert.Equal(t, ErrDeviceUnavailable, errors.Cause(err))
}
