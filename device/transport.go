package device

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// One report id byte followed by 64 payload bytes.
	reportSize = 65
	reportID   = 0x00

	ioTimeout = 1000 * time.Millisecond
)

// reportDevice is the opened HID handle the transport writes reports to.
// karalabe/usb devices satisfy it; tests substitute a fake.
type reportDevice interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
	Close() error
}

type readResult struct {
	data []byte
	err  error
}

type transport struct {
	dev     reportDevice
	timeout time.Duration

	reads chan chan readResult
}

func newTransport(dev reportDevice, timeout time.Duration) *transport {
	t := &transport{
		dev:     dev,
		timeout: timeout,
		reads:   make(chan chan readResult, 1),
	}
	go t.readLoop()
	return t
}

// readLoop serializes all device reads. A read abandoned by a timeout
// stays pending here: when the device answers late, the response is
// delivered to the abandoned request and discarded instead of being
// mistaken for the next command's reply.
func (t *transport) readLoop() {
	for req := range t.reads {
		buf := make([]byte, reportSize)
		n, err := t.dev.Read(buf)
		req <- readResult{data: buf[:n], err: err}
	}
}

// write frames payload into a zero-filled report: report id at offset 0,
// payload from offset 1, truncated to the report capacity. A stalled
// device write is abandoned after the transport timeout.
func (t *transport) write(payload []byte) error {
	buf := make([]byte, reportSize)
	buf[0] = reportID
	copy(buf[1:], payload)

	done := make(chan error, 1)
	go func() {
		_, err := t.dev.Write(buf)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			return classify(err)
		}
		return nil
	case <-time.After(t.timeout):
		return ErrTimeout
	}
}

func (t *transport) read() ([]byte, error) {
	req := make(chan readResult, 1)
	deadline := time.After(t.timeout)

	// An earlier timed-out read may still hold the reader; queueing
	// counts against the same deadline.
	select {
	case t.reads <- req:
	case <-deadline:
		return nil, ErrTimeout
	}

	select {
	case r := <-req:
		if r.err != nil {
			return nil, classify(r.err)
		}
		if len(r.data) == 0 {
			return nil, ErrTimeout
		}
		return r.data, nil
	case <-deadline:
		return nil, ErrTimeout
	}
}

// exchange performs one write/read round trip. No retries here; retry
// policy belongs to the scheduler.
func (t *transport) exchange(payload []byte) ([]byte, error) {
	if err := t.write(payload); err != nil {
		return nil, err
	}
	return t.read()
}

func (t *transport) close() error {
	close(t.reads)
	return t.dev.Close()
}

func classify(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "access denied"):
		return errors.Wrap(ErrPermissionDenied, err.Error())
	case strings.Contains(msg, "closed") ||
		strings.Contains(msg, "no such device") ||
		strings.Contains(msg, "disconnect"):
		return errors.Wrap(ErrDeviceUnavailable, err.Error())
	}
	return err
}
