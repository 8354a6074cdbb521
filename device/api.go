package device

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// VendorID is Thermaltake's USB vendor id. Controllers answer on one
	// of sixteen consecutive product ids starting at ProductIDFirst.
	VendorID       = 0x264a
	ProductIDFirst = 0x2135
	ProductIDLast  = 0x2144

	MinPort = 1
	MaxPort = 5

	maxColorsPerChunk = 19
	chunkCount        = 2
	// MaxLEDCount is the protocol ceiling: two chunks of nineteen colors.
	MaxLEDCount = maxColorsPerChunk * chunkCount

	statusSuccess = 0xFC
	statusFailure = 0xFE

	modePerLED = 0x24

	// The status byte lands at index 3 of the raw report. Linux hidraw
	// strips the report id on read, shifting it to index 2. Init probes
	// which layout this handle produces.
	statusIndexStripped = 2
	statusIndexRaw      = 3
)

// Controller drives one Riing Trio controller. Implementations are not
// safe for concurrent use; callers serialize command issue.
type Controller interface {
	Init(ctx context.Context) error
	SetRGB(ctx context.Context, port byte, colors []Color) error
	SetSpeed(ctx context.Context, port byte, percent byte) error
	Status(ctx context.Context, port byte) (*PortStatus, error)
	Close() error
}

type controller struct {
	tr *transport

	// Validated response layout, set by Init. -1 until probed.
	statusIndex int
}

// Open opens the first HID device matching vid/pid.
func Open(vid, pid uint16) (Controller, error) {
	infos, err := enumerate(vid, pid)
	if err != nil {
		return nil, errors.Wrap(err, "cannot enumerate hid devices")
	}
	if len(infos) == 0 {
		return nil, errors.Wrapf(ErrDeviceUnavailable, "no hid device %04x:%04x", vid, pid)
	}
	dev, err := infos[0].Open()
	if err != nil {
		return nil, classify(err)
	}
	return newController(dev), nil
}

func newController(dev reportDevice) *controller {
	return &controller{
		tr:          newTransport(dev, ioTimeout),
		statusIndex: -1,
	}
}

// Init performs the handshake and probes which of the two known response
// layouts the driver produces, fixing the status byte offset for every
// later command.
func (c *controller) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	resp, err := c.tr.exchange([]byte{0xFE, 0x33})
	if err != nil {
		return errors.Wrap(err, "init handshake")
	}
	for _, idx := range []int{statusIndexStripped, statusIndexRaw} {
		if len(resp) <= idx {
			continue
		}
		if resp[idx] == statusSuccess || resp[idx] == statusFailure {
			c.statusIndex = idx
			log.WithField("statusIndex", idx).Debug("validated response layout")
			return c.validate(resp, "init", 0, 0)
		}
	}
	if len(resp) <= statusIndexRaw {
		return &ProtocolError{Op: "init", Kind: Truncated}
	}
	log.WithFields(log.Fields{
		"stripped": resp[statusIndexStripped],
		"raw":      resp[statusIndexRaw],
	}).Warn("init response matches no known layout")
	return &ProtocolError{Op: "init", Kind: Unexpected, Code: resp[statusIndexStripped]}
}

// SetRGB sends colors to a port in exactly two chunks. Chunks are
// validated independently and the operation is not atomic: when chunk 2
// fails, chunk 1 has already taken effect on the device. Cancellation is
// observed between chunks, never mid-write.
func (c *controller) SetRGB(ctx context.Context, port byte, colors []Color) error {
	if err := checkPort(port); err != nil {
		return err
	}
	if len(colors) > MaxLEDCount {
		return errors.Errorf("too many colors: %d exceeds %d", len(colors), MaxLEDCount)
	}
	for chunk := 1; chunk <= chunkCount; chunk++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, err := c.tr.exchange(buildRGBChunk(port, modePerLED, byte(chunk), colors))
		if err != nil {
			return errors.Wrapf(err, "rgb chunk %d/%d on port %d", chunk, chunkCount, port)
		}
		if err := c.validate(resp, "set rgb", port, chunk); err != nil {
			return err
		}
	}
	return nil
}

// SetSpeed sets the fan speed for a port, clamping percent to [0, 100].
func (c *controller) SetSpeed(ctx context.Context, port byte, percent byte) error {
	if err := checkPort(port); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if percent > 100 {
		percent = 100
	}
	resp, err := c.tr.exchange([]byte{0x32, 0x51, port, 0x01, percent})
	if err != nil {
		return errors.Wrapf(err, "set speed on port %d", port)
	}
	return c.validate(resp, "set speed", port, 0)
}

// Status reads the current speed and RPM for a port. A failure code at
// the status offset means no fan is connected there.
func (c *controller) Status(ctx context.Context, port byte) (*PortStatus, error) {
	if err := checkPort(port); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.statusIndex < 0 {
		return nil, errors.New("controller not initialized")
	}
	resp, err := c.tr.exchange([]byte{0x33, 0x51, port})
	if err != nil {
		return nil, errors.Wrapf(err, "status on port %d", port)
	}
	if len(resp) <= c.statusIndex+4 {
		return nil, &ProtocolError{Op: "status", Port: port, Kind: Truncated}
	}
	if resp[c.statusIndex] == statusFailure {
		return nil, &ProtocolError{Op: "status", Port: port, Kind: DeviceRejected, Code: statusFailure}
	}
	return &PortStatus{
		Port:  resp[c.statusIndex],
		Speed: resp[c.statusIndex+2],
		RPM:   uint16(resp[c.statusIndex+3]) | uint16(resp[c.statusIndex+4])<<8,
	}, nil
}

func (c *controller) Close() error {
	return c.tr.close()
}

// validate is the shared response check for all commands.
func (c *controller) validate(resp []byte, op string, port byte, chunk int) error {
	if c.statusIndex < 0 {
		return errors.New("controller not initialized")
	}
	if len(resp) <= c.statusIndex {
		return &ProtocolError{Op: op, Port: port, Chunk: chunk, Kind: Truncated}
	}
	switch code := resp[c.statusIndex]; code {
	case statusSuccess:
		return nil
	case statusFailure:
		return &ProtocolError{Op: op, Port: port, Chunk: chunk, Kind: DeviceRejected, Code: code}
	default:
		return &ProtocolError{Op: op, Port: port, Chunk: chunk, Kind: Unexpected, Code: code}
	}
}

// buildRGBChunk frames one chunk: a seven byte header followed by up to
// nineteen colors in GRB order. Chunk 1 carries colors [0,19), chunk 2
// the remainder; an empty chunk 2 is still sent.
func buildRGBChunk(port, mode, chunk byte, colors []Color) []byte {
	payload := []byte{0x32, 0x52, port, mode, 0x03, chunk, 0x00}
	start := int(chunk-1) * maxColorsPerChunk
	end := start + maxColorsPerChunk
	if start > len(colors) {
		start = len(colors)
	}
	if end > len(colors) {
		end = len(colors)
	}
	for _, c := range colors[start:end] {
		grb := c.GRB()
		payload = append(payload, grb[:]...)
	}
	return payload
}

func checkPort(port byte) error {
	if port < MinPort || port > MaxPort {
		return errors.Errorf("invalid port %d, must be %d-%d", port, MinPort, MaxPort)
	}
	return nil
}
