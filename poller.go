package main

import (
	"context"
	"errors"
	"time"

	humanize "github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"BaroServer/bmp180"
)

type measurer interface {
	ReadMeasurement(o bmp180.Oversampling) (bmp180.Measurement, error)
}

// poller reads the sensors from a single goroutine, so nothing else touches
// the shared bus while the BMP180 is converting.
type poller struct {
	dev   measurer
	oss   bmp180.Oversampling
	store *readingStore
	now   func() time.Time

	// companion reads relative humidity and CO2, nil without an SCD4x.
	companion func() (rh float64, co2 uint16, err error)
}

func (p *poller) run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		log.Errorf("Invalid polling interval %s", interval)
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		// Errors are already counted and logged; the next tick is the retry.
		_ = p.poll()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (p *poller) poll() error {
	m, err := p.dev.ReadMeasurement(p.oss)
	if err != nil {
		kind := errorKind(err)
		readErrors.WithLabelValues(kind).Inc()
		log.WithError(err).WithField("kind", kind).Warn("Reading BMP180 failed")
		return err
	}

	reading := NewSensorReading(p.now())
	reading.Temperature = m.Temperature
	reading.Pressure = m.Pressure
	temperatureGauge.Set(m.Temperature)
	pressureGauge.Set(float64(m.Pressure))
	readingsTotal.Inc()

	if p.companion != nil {
		rh, co2, err := p.companion()
		if err != nil {
			log.WithError(err).Warn("Reading SCD4x failed")
		} else {
			reading.Humidity = &rh
			reading.CO2 = &co2
			humidityGauge.Set(rh)
			co2Gauge.Set(float64(co2))
		}
	}

	p.store.set(reading)
	log.WithFields(log.Fields{
		"temperature": m.Temperature,
		"pressure":    humanize.Comma(int64(m.Pressure)),
	}).Debug("New reading")
	return nil
}

// errorKind tells "couldn't talk to the device" from "got malformed data".
func errorKind(err error) string {
	var terr *bmp180.TransportError
	var perr *bmp180.ProtocolError
	switch {
	case errors.As(err, &terr):
		return "transport"
	case errors.As(err, &perr):
		return "protocol"
	default:
		return "other"
	}
}
