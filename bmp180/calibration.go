package bmp180

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"
)

// calibrationSize is the length of the EEPROM block at AddrCalibration.
const calibrationSize = 22

// Calibration holds the factory calibration constants of one sensor, in
// EEPROM order. The values are unique per part and never change.
type Calibration struct {
	AC1, AC2, AC3 int16
	AC4, AC5, AC6 uint16
	B1, B2        int16
	MB, MC, MD    int16
}

// UnmarshalBinary decodes the 22 byte big endian EEPROM block. Any other
// length is a *ProtocolError and c is left untouched.
func (c *Calibration) UnmarshalBinary(b []byte) error {
	if len(b) != calibrationSize {
		return &ProtocolError{Reg: AddrCalibration, Msg: fmt.Sprintf("calibration is %d bytes, want %d", len(b), calibrationSize)}
	}
	var v Calibration
	if err := binary.Read(bytes.NewReader(b), binary.BigEndian, &v); err != nil {
		return &ProtocolError{Reg: AddrCalibration, Msg: err.Error()}
	}
	*c = v
	return nil
}

// MarshalBinary encodes c the way the sensor stores it.
func (c *Calibration) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(calibrationSize)
	if err := binary.Write(&buf, binary.BigEndian, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Calibration) fields() logrus.Fields {
	return logrus.Fields{
		"AC1": c.AC1, "AC2": c.AC2, "AC3": c.AC3,
		"AC4": c.AC4, "AC5": c.AC5, "AC6": c.AC6,
		"B1": c.B1, "B2": c.B2,
		"MB": c.MB, "MC": c.MC, "MD": c.MD,
	}
}
