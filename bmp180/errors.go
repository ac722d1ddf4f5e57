package bmp180

import "fmt"

// TransportError is returned when a bus transaction fails: the device is
// absent, it NACKed, or the bus reported an I/O fault.
type TransportError struct {
	Op  string // "read" or "write"
	Reg byte
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bmp180: %s register %#02x: %v", e.Op, e.Reg, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is returned when the device answered but the data cannot be
// used: a short or long read, an out of range setting, or a calibration
// block that makes the compensation divide by zero.
type ProtocolError struct {
	Reg byte
	Msg string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("bmp180: register %#02x: %s", e.Reg, e.Msg)
}
