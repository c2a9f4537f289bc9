package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/mimic/internal/calibration"
)

// CalibrationHandler exposes the live calibration session.
//
//	GET  /api/calibration          state and ranges learned so far
//	POST /api/calibration/start    begin updating ranges
//	POST /api/calibration/stop     pause updating ranges
//	POST /api/calibration/finish   end the session, {"apply": true} to use it
type CalibrationHandler struct {
	ctrl Controller
}

// NewCalibrationHandler creates a CalibrationHandler for ctrl.
func NewCalibrationHandler(ctrl Controller) *CalibrationHandler {
	return &CalibrationHandler{ctrl: ctrl}
}

type calibrationResponse struct {
	State   string      `json:"state"`
	Samples int         `json:"samples"`
	Ranges  []rangeJSON `json:"ranges"`
}

type finishRequest struct {
	Apply bool `json:"apply"`
}

// ServeHTTP routes calibration requests.
func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/api/calibration")
	action = strings.Trim(action, "/")

	if action == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.status(w)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch action {
	case "start":
		h.transition(w, h.ctrl.StartCalibration)
	case "stop":
		h.transition(w, h.ctrl.StopCalibration)
	case "finish":
		h.finish(w, r)
	default:
		writeError(w, http.StatusNotFound, "Unknown calibration action")
	}
}

func (h *CalibrationHandler) status(w http.ResponseWriter) {
	res := h.ctrl.CalibrationSnapshot()
	writeJSON(w, http.StatusOK, calibrationResponse{
		State:   h.ctrl.CalibrationState().String(),
		Samples: res.Samples,
		Ranges:  rangesToJSON(res.Ranges),
	})
}

func (h *CalibrationHandler) transition(w http.ResponseWriter, fn func() error) {
	if err := fn(); err != nil {
		if errors.Is(err, calibration.ErrFinished) {
			writeError(w, http.StatusConflict, "Calibration session already finished")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.status(w)
}

func (h *CalibrationHandler) finish(w http.ResponseWriter, r *http.Request) {
	var req finishRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	}

	res, err := h.ctrl.FinishCalibration(req.Apply)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, calibrationResponse{
		State:   calibration.Finished.String(),
		Samples: res.Samples,
		Ranges:  rangesToJSON(res.Ranges),
	})
}
