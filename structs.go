package main

import (
	"sync"
	"time"
)

type SensorReading struct {
	Temperature float64 `json:"temperature"`
	Pressure    int32   `json:"pressure"`
	// only set when an SCD4x is attached
	Humidity   *float64  `json:"humidity,omitempty"`
	CO2        *uint16   `json:"co2,omitempty"`
	Updated    time.Time `json:"-"`
	UpdatedStr string    `json:"updated"`
	Age        string    `json:"age,omitempty"`
}

func NewSensorReading(date time.Time) SensorReading {
	return SensorReading{
		Updated:    date,
		UpdatedStr: date.Format("2006-01-02 15:04:05"), // ISO 8601 without timezone
	}
}

type ChipInfo struct {
	ID      byte `json:"id"`
	Version byte `json:"version"`
}

// readingStore holds the latest reading for the HTTP handlers.
type readingStore struct {
	mu      sync.RWMutex
	reading SensorReading
	valid   bool
}

func (s *readingStore) set(r SensorReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reading = r
	s.valid = true
}

func (s *readingStore) get() (SensorReading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reading, s.valid
}
