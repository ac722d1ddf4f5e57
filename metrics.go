package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Initialize Prometheus metrics.
var (
	temperatureGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bmp180_temperature_celsius",
		Help: "Last compensated temperature.",
	})

	pressureGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bmp180_pressure_pascals",
		Help: "Last compensated pressure.",
	})

	humidityGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scd4x_relative_humidity_percent",
		Help: "Last relative humidity from the SCD4x.",
	})

	co2Gauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scd4x_co2_ppm",
		Help: "Last CO2 concentration from the SCD4x.",
	})

	readingsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bmp180_readings_total",
		Help: "Successful measurements.",
	})

	readErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bmp180_read_errors_total",
			Help: "Failed measurements by kind (transport, protocol, other).",
		},
		[]string{"kind"},
	)
)

func registerMetrics(withSCD bool) {
	prometheus.MustRegister(temperatureGauge)
	prometheus.MustRegister(pressureGauge)
	prometheus.MustRegister(readingsTotal)
	prometheus.MustRegister(readErrors)
	if withSCD {
		prometheus.MustRegister(humidityGauge)
		prometheus.MustRegister(co2Gauge)
	}
}
