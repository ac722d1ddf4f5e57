package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aldernero/scd4x"
	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"BaroServer/bmp180"
)

type ProgramArgs struct {
	// Server Options
	Host string `short:"H" long:"host" default:"127.0.0.1" description:"IP to listen on"`
	Port uint16 `short:"P" long:"port" default:"27315" description:"Port to listen on"`

	// Sensor Options
	Interval     uint16 `short:"I" long:"interval" default:"5" description:"Interval between readings"`
	I2CDevice    string `short:"D" long:"i2cdev" description:"The used I2C device (default: auto)"`
	Backend      string `short:"B" long:"backend" default:"periph" choice:"periph" choice:"embd" description:"I2C stack"`
	EmbdBus      uint8  `long:"embd-bus" default:"1" description:"I2C bus number for the embd backend"`
	Address      uint16 `short:"A" long:"address" base:"16" default:"77" description:"Sensor address (hex)"`
	Oversampling uint8  `short:"O" long:"oversampling" default:"3" choice:"0" choice:"1" choice:"2" choice:"3" description:"Pressure oversampling"`
	Recalibrate  bool   `long:"recalibrate" description:"Read the calibration EEPROM before every measurement"`
	SCD4x        bool   `long:"scd4x" description:"Also read humidity and CO2 from an SCD4x (periph backend only)"`

	Verbose []bool `short:"v" long:"verbose" description:"Log calibration (-v) and compensation terms (-vv)"`

	Positional struct {
		Command string `positional-arg-name:"command" description:"install | remove | start | stop | status"`
	} `positional-args:"yes"`
}

var (
	args ProgramArgs
)

const (
	MIN_TIMEOUT_SECONDS = 2
)

func setupLogging(verbosity int) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	switch {
	case verbosity >= 2:
		log.SetLevel(log.TraceLevel)
	case verbosity == 1:
		log.SetLevel(log.DebugLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

func getOutboundIP() net.IP {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP
}

func setupI2CBus(i2cdev string) i2c.BusCloser {
	if _, err := host.Init(); err != nil {
		log.Fatalf("Initialization failed: %v", err)
	}

	bus, err := i2creg.Open(i2cdev)
	if err != nil {
		log.Fatalf("Couldn't open I2C device: %v", err)
	}

	return bus
}

// setupBMPSensor borrows bus when it is set, otherwise the driver opens and
// owns an embd bus. Either way the caller closes the returned device.
func setupBMPSensor(bus i2c.Bus) *bmp180.Dev {
	opts := bmp180.Opts{
		Pressure:    bmp180.Oversampling(args.Oversampling),
		Recalibrate: args.Recalibrate,
		Logger:      log.StandardLogger(),
	}

	var (
		dev *bmp180.Dev
		err error
	)
	if bus != nil {
		dev, err = bmp180.NewI2C(bus, args.Address, &opts)
	} else {
		dev, err = bmp180.OpenEmbd(args.EmbdBus, args.Address, &opts)
	}
	if err != nil {
		log.Fatalf("Couldn't initialize sensor: %v", err)
	}

	return dev
}

func setupSCDSensor(i2cBus i2c.BusCloser) *scd4x.SCD4x {
	sensor, err := scd4x.SensorInit(i2cBus, false)
	if err != nil {
		log.Fatalln(err.Error())
	}

	log.Println("Initializing SCD4x…")
	if err := sensor.StopMeasurements(); err != nil {
		log.Fatalf("Error while trying to stop periodic measurements: %v", err)
	}
	if err := sensor.StartMeasurements(); err != nil {
		log.Fatalf("Error while trying to start periodic measurements: %v", err)
	}
	log.Println("Done")

	return sensor
}

func scdReader(sensor *scd4x.SCD4x) func() (float64, uint16, error) {
	return func() (float64, uint16, error) {
		data, err := sensor.ReadMeasurement()
		if err != nil {
			return 0, 0, err
		}
		return data.Rh, data.CO2, nil
	}
}

func run() {
	// Boring i2c setup (error handling happens in these functions)
	var bus i2c.BusCloser
	if args.Backend == "periph" {
		bus = setupI2CBus(args.I2CDevice)
		defer bus.Close()
	} else if args.SCD4x {
		log.Fatal("--scd4x needs the periph backend")
	}

	bmpDev := setupBMPSensor(bus)
	defer bmpDev.Close()

	id, version, err := bmpDev.ReadChipID()
	if err != nil {
		log.Fatalf("Couldn't read chip id: %v", err)
	}
	logger := log.WithFields(log.Fields{"device": bmpDev.String(), "id": fmt.Sprintf("%#x", id), "version": version})
	if id != bmp180.ChipID {
		logger.Warn("Unexpected chip id, not a BMP085/BMP180?")
	} else {
		logger.Info("Found sensor")
	}

	p := &poller{
		dev:   bmpDev,
		oss:   bmp180.Oversampling(args.Oversampling),
		store: &readingStore{},
		now:   time.Now,
	}
	if args.SCD4x {
		scdDev := setupSCDSensor(bus)
		defer scdDev.StopMeasurements()
		p.companion = scdReader(scdDev)

		log.Println("Waking up in a second…")
		// give the sensor time to wake up
		time.Sleep(1 * time.Second)
	}
	registerMetrics(args.SCD4x)

	// Start background measurements
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.run(ctx, time.Duration(args.Interval)*time.Second)
	}()

	timeoutLen := max(MIN_TIMEOUT_SECONDS, int(args.Interval))

	addr := fmt.Sprintf("%s:%d", args.Host, args.Port)
	srv := &http.Server{
		Addr:         addr,
		ReadTimeout:  time.Duration(timeoutLen) * time.Second,
		WriteTimeout: time.Duration(timeoutLen) * time.Second,
		IdleTimeout:  120 * time.Second,
		Handler:      newRouter(p.store, ChipInfo{ID: id, Version: version}, time.Now),
	}

	go func() {
		if args.Host == "0.0.0.0" {
			localIP := getOutboundIP() // resolve local IP for easier debugging
			log.Printf("Listening on %s:%d…", localIP.String(), args.Port)
		} else {
			log.Printf("Listening on %s…", addr)
		}

		err := srv.ListenAndServe()
		log.Printf("Shutdown (%v)", err)
	}()

	sigChan := make(chan os.Signal, 1)
	// SIGINT (Ctrl+C) from a terminal, SIGTERM from the service manager.
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	// Give the server a timeout period of 4 seconds
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer shutdownCancel()
	// Doesn't block if no connections, but will otherwise wait until the timeout deadline.
	_ = srv.Shutdown(shutdownCtx)

	cancel()
	wg.Wait()
}

func main() {
	args = ProgramArgs{}
	argParser := flags.NewParser(&args, flags.Default)

	_, err := argParser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		log.Fatal("arg parse fail")
	}

	setupLogging(len(args.Verbose))

	if args.Interval == 0 {
		log.Fatal("--interval must be at least 1 second")
	}

	if command := args.Positional.Command; command != "" {
		status, err := manageService(command, serviceArgs(os.Args[1:], command))
		if err != nil {
			log.Fatalf("%s: %v", status, err)
		}
		fmt.Println(status)
		return
	}

	run()
}
