// Package api provides the HTTP API handlers for calibration and profiles.
package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/ayusman/mimic/internal/calibration"
	"github.com/ayusman/mimic/internal/finger"
)

// Controller is the running application as seen by the API. *app.App
// implements it.
type Controller interface {
	IsEnabled() bool
	SetEnabled(enabled bool)
	CalibrationState() calibration.State
	StartCalibration() error
	StopCalibration() error
	CalibrationSnapshot() calibration.Result
	FinishCalibration(apply bool) (calibration.Result, error)
	Map() *calibration.Map
	SetMap(m *calibration.Map)
}

const timeFormat = time.RFC3339

type errorResponse struct {
	Error string `json:"error"`
}

// rangeJSON is one channel's range keyed by channel name.
type rangeJSON struct {
	Channel  string  `json:"channel"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Inverted bool    `json:"inverted"`
}

// rangesToJSON lists ranges in wire order.
func rangesToJSON(ranges map[finger.Channel]calibration.Range) []rangeJSON {
	out := make([]rangeJSON, 0, len(ranges))
	for ch, r := range ranges {
		out = append(out, rangeJSON{Channel: ch.String(), Min: r.Min, Max: r.Max, Inverted: r.Inverted})
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := finger.ParseChannel(out[i].Channel)
		b, _ := finger.ParseChannel(out[j].Channel)
		return a < b
	})
	return out
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
