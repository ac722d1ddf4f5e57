package bmp180_test

import (
	"errors"
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"

	"BaroServer/bmp180"
)

func TestNewI2CPlayback(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x77, W: []byte{0xD0}, R: []byte{0x55, 0x02}},
			{Addr: 0x77, W: []byte{0xAA}, R: datasheetEEPROM},
			{Addr: 0x77, W: []byte{0xF4, 0x2E}},
			{Addr: 0x77, W: []byte{0xF6}, R: []byte{0x6C, 0xFA}},
			{Addr: 0x77, W: []byte{0xF4, 0x34}},
			{Addr: 0x77, W: []byte{0xF6}, R: []byte{0x5D, 0x23, 0x00}},
		},
	}
	d, err := bmp180.NewI2C(bus, bmp180.DefaultAddr, nil)
	if err != nil {
		t.Fatal(err)
	}
	id, version, err := d.ReadChipID()
	if err != nil {
		t.Fatal(err)
	}
	if id != bmp180.ChipID || version != 2 {
		t.Fatalf("chip %#x version %d", id, version)
	}
	m, err := d.ReadMeasurement(bmp180.UltraLowPower)
	if err != nil {
		t.Fatal(err)
	}
	if want := (bmp180.Measurement{Temperature: 15.0, Pressure: 69964}); m != want {
		t.Fatalf("got %v, want %v", m, want)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	// Fails when operations were left over.
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSensePlayback(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x77, W: []byte{0xAA}, R: datasheetEEPROM},
			{Addr: 0x77, W: []byte{0xF4, 0x2E}},
			{Addr: 0x77, W: []byte{0xF6}, R: []byte{0x6C, 0xFA}},
			{Addr: 0x77, W: []byte{0xF4, 0xF4}},
			{Addr: 0x77, W: []byte{0xF6}, R: []byte{0x5D, 0x23, 0x00}},
		},
	}
	d, err := bmp180.NewI2C(bus, bmp180.DefaultAddr, nil)
	if err != nil {
		t.Fatal(err)
	}
	var e physic.Env
	if err := d.Sense(&e); err != nil {
		t.Fatal(err)
	}
	if want := 69963 * physic.Pascal; e.Pressure != want {
		t.Errorf("pressure = %s, want %s", e.Pressure, want)
	}
	if want := 15*physic.Kelvin + physic.ZeroCelsius; e.Temperature != want {
		t.Errorf("temperature = %s, want %s", e.Temperature, want)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewI2CErrors(t *testing.T) {
	if _, err := bmp180.NewI2C(nil, bmp180.DefaultAddr, nil); err == nil {
		t.Fatal("nil bus accepted")
	}

	bus := &i2ctest.Playback{DontPanic: true}
	d, err := bmp180.NewI2C(bus, bmp180.DefaultAddr, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = d.ReadChipID()
	var terr *bmp180.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("got %v, want *TransportError", err)
	}
	if terr.Op != "read" || terr.Reg != bmp180.AddrChipID {
		t.Fatalf("got %+v", terr)
	}
}

func TestPrecision(t *testing.T) {
	d, err := bmp180.NewI2C(&i2ctest.Playback{}, bmp180.DefaultAddr, nil)
	if err != nil {
		t.Fatal(err)
	}
	var e physic.Env
	d.Precision(&e)
	if e.Temperature != 100*physic.MilliKelvin || e.Pressure != physic.Pascal {
		t.Fatalf("Precision() = %+v", e)
	}
}
