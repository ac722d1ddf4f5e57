// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmp180

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"
)

// Measurement is one compensated reading.
type Measurement struct {
	Temperature float64 // °C, 0.1°C resolution
	Pressure    int32   // Pa
}

func (m Measurement) String() string {
	return fmt.Sprintf("%.1f°C %dPa", m.Temperature, m.Pressure)
}

// Env returns m in periph units.
func (m Measurement) Env() physic.Env {
	var e physic.Env
	m.fill(&e)
	return e
}

func (m Measurement) fill(e *physic.Env) {
	// Convert deci-Celsius to Kelvin.
	tenths := int64(math.Round(m.Temperature * 10))
	e.Temperature = physic.Temperature(tenths)*100*physic.MilliKelvin + physic.ZeroCelsius
	e.Pressure = physic.Pressure(m.Pressure) * physic.Pascal
}

// Compensate converts the raw temperature ut and the raw pressure up, already
// shifted right by 8-o, into a Measurement.
//
// This is the integer algorithm on page 15 of the datasheet.
func (c *Calibration) Compensate(ut, up int32, o Oversampling) (Measurement, error) {
	if !o.valid() {
		return Measurement{}, &ProtocolError{Reg: AddrCtrlMeas, Msg: fmt.Sprintf("invalid oversampling %s", o)}
	}
	m, _, err := c.compensate(ut, up, o)
	return m, err
}

// terms are the datasheet intermediates, kept for tracing.
type terms struct {
	x1, x2, b5 int64 // temperature
	b6, b3, b7 int64
	b4         uint32
	p          int64 // before the final correction
}

func (t *terms) fields() logrus.Fields {
	return logrus.Fields{
		"X1": t.x1, "X2": t.x2, "B5": t.b5,
		"B6": t.b6, "B3": t.b3, "B4": t.b4, "B7": t.b7, "P": t.p,
	}
}

// compensate runs the datasheet arithmetic on 64 bit signed integers, where
// >> is an arithmetic shift. Both divisions round toward negative infinity.
func (c *Calibration) compensate(ut, up int32, o Oversampling) (Measurement, terms, error) {
	var t terms

	// Temperature.
	x1 := ((int64(ut) - int64(c.AC6)) * int64(c.AC5)) >> 15
	d := x1 + int64(c.MD)
	if d == 0 {
		return Measurement{}, t, &ProtocolError{Reg: AddrCalibration, Msg: "X1+MD is zero, calibration is corrupt"}
	}
	x2 := floorDiv(int64(c.MC)<<11, d)
	b5 := x1 + x2
	t.x1, t.x2, t.b5 = x1, x2, b5
	tenths := (b5 + 8) >> 4

	// Pressure.
	b6 := b5 - 4000
	b62 := (b6 * b6) >> 12
	x1 = (int64(c.B2) * b62) >> 11
	x2 = (int64(c.AC2) * b6) >> 11
	x3 := x1 + x2
	b3 := (((int64(c.AC1)*4 + x3) << o) + 2) >> 2

	x1 = (int64(c.AC3) * b6) >> 13
	x2 = (int64(c.B1) * b62) >> 16
	x3 = (x1 + x2 + 2) >> 2
	b4 := (uint32(c.AC4) * uint32(x3+32768)) >> 15
	if b4 == 0 {
		return Measurement{}, t, &ProtocolError{Reg: AddrCalibration, Msg: "B4 is zero, calibration is corrupt"}
	}
	b7 := (int64(up) - b3) * (50000 >> o)
	p := floorDiv(b7*2, int64(b4))
	t.b6, t.b3, t.b4, t.b7, t.p = b6, b3, b4, b7, p

	x1 = (p >> 8) * (p >> 8)
	x1 = (x1 * 3038) >> 16
	x2 = (-7357 * p) >> 16
	p += (x1 + x2 + 3791) >> 4

	return Measurement{Temperature: float64(tenths) / 10, Pressure: int32(p)}, t, nil
}

// floorDiv divides a by b rounding toward negative infinity, the same way >>
// rounds. Go's / truncates toward zero.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
