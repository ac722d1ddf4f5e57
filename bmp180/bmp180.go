// Package bmp180 controls a Bosch BMP085/BMP180 barometric pressure sensor
// over I²C.
//
// The driver consumes a Transport and never enumerates buses itself. A Dev
// can be built on a caller-owned transport (New, NewI2C, NewEmbd) or open and
// own its bus (Open, OpenEmbd).
//
// Datasheet:
// https://cdn-shop.adafruit.com/datasheets/BST-BMP180-DS000-09.pdf
package bmp180

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
)

const (
	// DefaultAddr is the only address a BMP085/BMP180 answers on.
	DefaultAddr uint16 = 0x77

	// ChipID is the value both BMP085 and BMP180 report in AddrChipID.
	ChipID byte = 0x55
)

// Register map.
const (
	AddrCalibration byte = 0xAA // 22 bytes, AC1 through MD
	AddrChipID      byte = 0xD0 // chip id, followed by version
	AddrCtrlMeas    byte = 0xF4
	AddrOutMSB      byte = 0xF6
	AddrOutLSB      byte = 0xF7
	AddrOutXLSB     byte = 0xF8
)

// Control bytes written to AddrCtrlMeas.
const (
	cmdTemperature byte = 0x2E
	cmdPressure    byte = 0x34
)

// temperatureWait is the temperature conversion time, 4.5ms max per
// datasheet.
const temperatureWait = 5 * time.Millisecond

// Oversampling selects the pressure resolution. Higher settings take more
// samples internally and need a longer conversion time.
type Oversampling uint8

// Possible oversampling values.
const (
	UltraLowPower Oversampling = 0 // 1 sample
	Standard      Oversampling = 1 // 2 samples
	HighRes       Oversampling = 2 // 4 samples
	UltraHighRes  Oversampling = 3 // 8 samples
)

const oversamplingName = "1x2x4x8x"

var oversamplingIndex = [...]uint8{0, 2, 4, 6, 8}

func (o Oversampling) String() string {
	if o >= Oversampling(len(oversamplingIndex)-1) {
		return fmt.Sprintf("Oversampling(%d)", o)
	}
	return oversamplingName[oversamplingIndex[o]:oversamplingIndex[o+1]]
}

func (o Oversampling) valid() bool {
	return o <= UltraHighRes
}

// conversionTime returns how long a pressure conversion takes. The datasheet
// maxima are 4.5, 7.5, 13.5 and 25.5ms.
func (o Oversampling) conversionTime() time.Duration {
	switch o {
	case UltraLowPower:
		return 5 * time.Millisecond
	case Standard:
		return 8 * time.Millisecond
	case HighRes:
		return 14 * time.Millisecond
	default:
		return 26 * time.Millisecond
	}
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Pressure: UltraHighRes,
}

// Opts defines the options for the device.
type Opts struct {
	// Pressure is the oversampling used by Sense and SenseContinuous.
	Pressure Oversampling
	// Recalibrate reads the calibration EEPROM before every measurement
	// instead of once. The calibration never changes, but re-reading it
	// recovers from a sensor that was swapped or power cycled behind the
	// driver's back.
	Recalibrate bool
	// Logger receives the calibration dump at debug level and the
	// compensation terms at trace level. The driver is silent when nil.
	Logger logrus.FieldLogger
}

// New returns a Dev that talks to the sensor at addr through t.
//
// The caller keeps ownership of t; Close will not close it. No bus traffic
// happens until the first read.
func New(t Transport, addr uint16, opts *Opts) (*Dev, error) {
	if t == nil {
		return nil, errors.New("bmp180: nil transport")
	}
	if addr > 0x7F {
		return nil, fmt.Errorf("bmp180: address %#x is not a 7-bit address", addr)
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	if !opts.Pressure.valid() {
		return nil, &ProtocolError{Reg: AddrCtrlMeas, Msg: fmt.Sprintf("invalid oversampling %s", opts.Pressure)}
	}
	d := &Dev{
		t:    t,
		addr: addr,
		opts: *opts,
		name: "BMP180",
	}
	return d, nil
}

// Dev is a handle to a BMP085/BMP180 device.
type Dev struct {
	t      Transport
	closer io.Closer // set when the driver owns the transport
	addr   uint16
	opts   Opts
	name   string
	cal    *Calibration

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

func (d *Dev) String() string {
	return fmt.Sprintf("%s{%v@%#x}", d.name, d.t, d.addr)
}

// ReadChipID returns the chip id and version registers.
func (d *Dev) ReadChipID() (id, version byte, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, err := d.readReg(AddrChipID, 2)
	if err != nil {
		return 0, 0, err
	}
	return b[0], b[1], nil
}

// Calibration returns the cached calibration block. ok is false until the
// first measurement has read it.
func (d *Dev) Calibration() (c Calibration, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cal == nil {
		return Calibration{}, false
	}
	return *d.cal, true
}

// ReadMeasurement runs one full temperature and pressure conversion at
// oversampling o.
//
// The sequence cannot be interrupted. Any bus failure aborts it with a
// *TransportError; the conversion state of the sensor is then unknown.
func (d *Dev) ReadMeasurement(o Oversampling) (Measurement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return Measurement{}, d.wrap(errors.New("already sensing continuously"))
	}
	return d.measure(o)
}

// Sense requests a one time measurement as °C and Pa.
func (d *Dev) Sense(e *physic.Env) error {
	m, err := d.ReadMeasurement(d.opts.Pressure)
	if err != nil {
		return err
	}
	m.fill(e)
	return nil
}

// SenseContinuous returns measurements on a continuous basis. The first one
// is taken right away.
//
// The application must call Halt() to stop the sensing when done and close
// the channel. The channel is also closed when a measurement fails.
//
// It's the responsibility of the caller to retrieve the values from the
// channel as fast as possible, otherwise the interval may not be respected.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval <= 0 {
		return nil, d.wrap(fmt.Errorf("invalid interval %s", interval))
	}
	// Don't hold d.mu while waiting, the sensing goroutine needs it.
	d.stopSensing()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		// Another SenseContinuous started between stopSensing and here.
		return nil, d.wrap(errors.New("already sensing continuously"))
	}
	sensing := make(chan physic.Env)
	d.stop = make(chan struct{})
	d.wg.Add(1)
	go func(stop <-chan struct{}) {
		defer d.wg.Done()
		defer close(sensing)
		d.sensingContinuous(interval, sensing, stop)
	}(d.stop)
	return sensing, nil
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = 100 * physic.MilliKelvin
	e.Pressure = physic.Pascal
}

// Halt stops continuous sensing started by SenseContinuous(). The sensor
// itself has no continuous mode, so nothing is written to it.
func (d *Dev) Halt() error {
	d.stopSensing()
	return nil
}

// Close halts the device and releases the bus if the driver opened it.
func (d *Dev) Close() error {
	if err := d.Halt(); err != nil {
		return err
	}
	if d.closer == nil {
		return nil
	}
	if err := d.closer.Close(); err != nil {
		return d.wrap(err)
	}
	return nil
}

//

func (d *Dev) stopSensing() {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()
	if stop != nil {
		close(stop)
		d.wg.Wait()
	}
}

// measure must be called with d.mu held.
func (d *Dev) measure(o Oversampling) (Measurement, error) {
	if !o.valid() {
		return Measurement{}, &ProtocolError{Reg: AddrCtrlMeas, Msg: fmt.Sprintf("invalid oversampling %s", o)}
	}
	if d.cal == nil || d.opts.Recalibrate {
		if err := d.readCalibration(); err != nil {
			return Measurement{}, err
		}
	}

	if err := d.writeReg(AddrCtrlMeas, cmdTemperature); err != nil {
		return Measurement{}, err
	}
	doSleep(temperatureWait)
	b, err := d.readReg(AddrOutMSB, 2)
	if err != nil {
		return Measurement{}, err
	}
	ut := int32(b[0])<<8 | int32(b[1])

	if err := d.writeReg(AddrCtrlMeas, cmdPressure+byte(o)<<6); err != nil {
		return Measurement{}, err
	}
	doSleep(o.conversionTime())
	if b, err = d.readReg(AddrOutMSB, 3); err != nil {
		return Measurement{}, err
	}
	up := (int32(b[0])<<16 | int32(b[1])<<8 | int32(b[2])) >> (8 - o)

	m, tr, err := d.cal.compensate(ut, up, o)
	if err != nil {
		return Measurement{}, err
	}
	if l := d.opts.Logger; l != nil {
		l.WithFields(tr.fields()).WithField("oss", o.String()).Trace("bmp180: compensated")
	}
	return m, nil
}

// readCalibration must be called with d.mu held.
func (d *Dev) readCalibration() error {
	b, err := d.readReg(AddrCalibration, calibrationSize)
	if err != nil {
		return err
	}
	var c Calibration
	if err := c.UnmarshalBinary(b); err != nil {
		return err
	}
	d.cal = &c
	if l := d.opts.Logger; l != nil {
		l.WithFields(c.fields()).Debug("bmp180: calibration")
	}
	return nil
}

func (d *Dev) sensingContinuous(interval time.Duration, sensing chan<- physic.Env, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		// Do one initial sensing right away.
		d.mu.Lock()
		m, err := d.measure(d.opts.Pressure)
		d.mu.Unlock()
		if err != nil {
			if l := d.opts.Logger; l != nil {
				l.WithError(err).Warnf("%s: failed to sense", d)
			}
			return
		}
		e := physic.Env{}
		m.fill(&e)
		select {
		case sensing <- e:
		case <-stop:
			return
		}
		select {
		case <-stop:
			return
		case <-t.C:
		}
	}
}

func (d *Dev) readReg(reg uint8, n int) ([]byte, error) {
	b, err := d.t.ReadBlock(d.addr, reg, n)
	if err != nil {
		return nil, &TransportError{Op: "read", Reg: reg, Err: err}
	}
	if len(b) != n {
		return nil, &ProtocolError{Reg: reg, Msg: fmt.Sprintf("read %d bytes, want %d", len(b), n)}
	}
	return b, nil
}

func (d *Dev) writeReg(reg, v uint8) error {
	if err := d.t.WriteReg(d.addr, reg, v); err != nil {
		return &TransportError{Op: "write", Reg: reg, Err: err}
	}
	return nil
}

func (d *Dev) wrap(err error) error {
	return fmt.Errorf("bmp180: %w", err)
}

var doSleep = time.Sleep

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
