package sink

import (
	"fmt"

	"go.bug.st/serial"

	"github.com/edgeaudio/pdm-audio-pipeline/internal/protocol"
)

// SerialSink streams raw little-endian PCM over a serial port, the same
// headerless format the microcontroller source emits at 1.5 Mbaud. The
// transport write is itself blocking; a slow host therefore slows the
// write call, which is an accepted property of the passthrough variant.
type SerialSink struct {
	port    serial.Port
	name    string
	scratch []byte
}

// OpenSerial opens the named serial port at the given baud rate.
func OpenSerial(portName string, baud int) (*SerialSink, error) {
	if portName == "" {
		return nil, fmt.Errorf("serial port name cannot be empty")
	}
	if baud <= 0 {
		return nil, fmt.Errorf("baud rate must be positive, got %d", baud)
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	return &SerialSink{port: port, name: portName}, nil
}

// Write sends the frame over the serial link.
func (s *SerialSink) Write(samples []int16) error {
	s.scratch = protocol.AppendFrame(s.scratch[:0], samples)
	if _, err := s.port.Write(s.scratch); err != nil {
		return fmt.Errorf("serial write to %s failed: %w", s.name, err)
	}
	return nil
}

// Close closes the serial port.
func (s *SerialSink) Close() error {
	return s.port.Close()
}
