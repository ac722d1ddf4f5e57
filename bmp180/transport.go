package bmp180

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Transport is the bus capability the driver needs. Implementations must
// fail rather than return a short read when the device does not answer.
//
// The driver does not lock the transport. When several devices share one,
// the caller serializes access across them.
type Transport interface {
	// ReadBlock reads n bytes starting at register reg.
	ReadBlock(addr uint16, reg uint8, n int) ([]byte, error)
	// WriteReg writes the single byte v to register reg.
	WriteReg(addr uint16, reg, v uint8) error
}

// NewI2C returns a Dev on a periph I²C bus owned by the caller. The bus may
// be shared with other devices; periph serializes each transaction.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	if b == nil {
		return nil, fmt.Errorf("bmp180: nil bus")
	}
	return New(&i2cTransport{b: b}, addr, opts)
}

// Open initializes the periph host drivers, opens the I²C bus name ("" for
// the first one) and returns a Dev that owns it. Close releases the bus.
func Open(name string, addr uint16, opts *Opts) (*Dev, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("bmp180: host init: %w", err)
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("bmp180: open i2c bus %q: %w", name, err)
	}
	d, err := NewI2C(b, addr, opts)
	if err != nil {
		b.Close()
		return nil, err
	}
	d.closer = b
	return d, nil
}

type i2cTransport struct {
	b i2c.Bus
}

func (t *i2cTransport) ReadBlock(addr uint16, reg uint8, n int) ([]byte, error) {
	r := make([]byte, n)
	if err := t.b.Tx(addr, []byte{reg}, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (t *i2cTransport) WriteReg(addr uint16, reg, v uint8) error {
	return t.b.Tx(addr, []byte{reg, v}, nil)
}

func (t *i2cTransport) String() string {
	return t.b.String()
}
