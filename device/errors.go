package device

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrTimeout           = errors.New("no response from device within timeout")
	ErrDeviceUnavailable = errors.New("device unavailable")
	ErrPermissionDenied  = errors.New("permission denied opening device")
)

type ProtocolErrorKind int

const (
	Truncated ProtocolErrorKind = iota
	DeviceRejected
	Unexpected
)

// ProtocolError is a failed command attempt. Chunk is the 1-based chunk
// index for SetRGB and zero for single-report commands, so a partial RGB
// failure can be attributed to the chunk that was rejected.
type ProtocolError struct {
	Op    string
	Port  byte
	Chunk int
	Kind  ProtocolErrorKind
	Code  byte
}

func (e *ProtocolError) Error() string {
	where := e.Op
	if e.Port > 0 {
		where = fmt.Sprintf("%s port %d", e.Op, e.Port)
	}
	if e.Chunk > 0 {
		where = fmt.Sprintf("%s chunk %d", where, e.Chunk)
	}
	switch e.Kind {
	case Truncated:
		return fmt.Sprintf("%s failed: response too short", where)
	case DeviceRejected:
		return fmt.Sprintf("%s failed: device returned error (0x%02X)", where, e.Code)
	default:
		return fmt.Sprintf("%s failed: unexpected status 0x%02X", where, e.Code)
	}
}

// IsTimeout reports whether err is a transport timeout.
func IsTimeout(err error) bool {
	return errors.Cause(err) == ErrTimeout
}
