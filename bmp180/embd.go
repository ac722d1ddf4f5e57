package bmp180

import (
	"fmt"

	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/all" // register board drivers
)

// NewEmbd returns a Dev on an embd I²C bus owned by the caller.
func NewEmbd(b embd.I2CBus, addr uint16, opts *Opts) (*Dev, error) {
	if b == nil {
		return nil, fmt.Errorf("bmp180: nil bus")
	}
	return New(&embdTransport{b: b}, addr, opts)
}

// OpenEmbd opens /dev/i2c-<bus> through embd and returns a Dev that owns it.
func OpenEmbd(bus byte, addr uint16, opts *Opts) (*Dev, error) {
	if err := embd.InitI2C(); err != nil {
		return nil, fmt.Errorf("bmp180: embd init: %w", err)
	}
	b := embd.NewI2CBus(bus)
	d, err := NewEmbd(b, addr, opts)
	if err != nil {
		b.Close()
		return nil, err
	}
	d.closer = b
	return d, nil
}

type embdTransport struct {
	b embd.I2CBus
}

func (t *embdTransport) ReadBlock(addr uint16, reg uint8, n int) ([]byte, error) {
	r := make([]byte, n)
	if err := t.b.ReadFromReg(byte(addr), reg, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (t *embdTransport) WriteReg(addr uint16, reg, v uint8) error {
	return t.b.WriteByteToReg(byte(addr), reg, v)
}

func (t *embdTransport) String() string {
	return "embd"
}
