// bmp180read prints the chip id and measurements of a BMP085/BMP180.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	"BaroServer/bmp180"
)

type options struct {
	Bus          string        `short:"b" long:"bus" description:"periph I2C bus name (default: first bus)"`
	Embd         bool          `long:"embd" description:"Use the embd I2C stack"`
	EmbdBus      uint8         `long:"embd-bus" default:"1" description:"I2C bus number for --embd"`
	Address      uint16        `short:"a" long:"address" base:"16" default:"77" description:"Sensor address (hex)"`
	Oversampling uint8         `short:"o" long:"oversampling" default:"3" choice:"0" choice:"1" choice:"2" choice:"3" description:"Pressure oversampling"`
	Count        int           `short:"n" long:"count" default:"1" description:"Number of measurements"`
	Watch        time.Duration `short:"w" long:"watch" description:"Stream measurements at this interval until interrupted"`
	Verbose      []bool        `short:"v" long:"verbose" description:"Log calibration (-v) and compensation terms (-vv)"`
}

func open(opts *options) (*bmp180.Dev, error) {
	devOpts := &bmp180.Opts{
		Pressure: bmp180.Oversampling(opts.Oversampling),
		Logger:   log.StandardLogger(),
	}
	if opts.Embd {
		return bmp180.OpenEmbd(opts.EmbdBus, opts.Address, devOpts)
	}
	return bmp180.Open(opts.Bus, opts.Address, devOpts)
}

func watch(dev *bmp180.Dev, interval time.Duration) error {
	c, err := dev.SenseContinuous(interval)
	if err != nil {
		return err
	}
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	for {
		select {
		case e, ok := <-c:
			if !ok {
				return nil
			}
			fmt.Printf("%8s %10s\n", e.Temperature, e.Pressure)
		case <-sig:
			return dev.Halt()
		}
	}
}

func mainImpl() error {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return nil
		}
		return err
	}
	switch {
	case len(opts.Verbose) >= 2:
		log.SetLevel(log.TraceLevel)
	case len(opts.Verbose) == 1:
		log.SetLevel(log.DebugLevel)
	}

	dev, err := open(&opts)
	if err != nil {
		return err
	}
	defer dev.Close()

	id, version, err := dev.ReadChipID()
	if err != nil {
		return err
	}
	fmt.Printf("%s: chip id %#x version %d\n", dev, id, version)
	if id != bmp180.ChipID {
		log.Warnf("expected chip id %#x", bmp180.ChipID)
	}

	if opts.Watch > 0 {
		return watch(dev, opts.Watch)
	}
	for i := 0; i < opts.Count; i++ {
		m, err := dev.ReadMeasurement(bmp180.Oversampling(opts.Oversampling))
		if err != nil {
			return err
		}
		fmt.Println(m)
	}
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "bmp180read: %s.\n", err)
		os.Exit(1)
	}
}
