package main

import (
	"encoding/json"
	"net/http"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func newRouter(store *readingStore, chip ChipInfo, now func() time.Time) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		reading, ok := store.get()
		if !ok {
			http.Error(w, "no reading yet", http.StatusServiceUnavailable)
			return
		}
		reading.Age = humanize.RelTime(reading.Updated, now(), "ago", "from now")
		writeJSON(w, reading)
	}).Methods(http.MethodGet)

	// The chip id is read once at startup; reading it here would put
	// traffic on the bus in the middle of a conversion.
	r.HandleFunc("/chip", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, chip)
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	jsonStr, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(jsonStr); err != nil {
		log.Printf("Couldn't send response: %v", err)
	}
}
