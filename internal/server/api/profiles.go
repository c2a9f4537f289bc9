package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/mimic/internal/calibration"
	"github.com/ayusman/mimic/internal/finger"
	"github.com/ayusman/mimic/internal/store"
)

// ProfileHandler handles HTTP requests for calibration profiles.
//
//	GET    /api/profiles             list profiles
//	POST   /api/profiles             save the current calibration as {"name": ...}
//	GET    /api/profiles/{id}        one profile
//	DELETE /api/profiles/{id}        remove a profile
//	POST   /api/profiles/{id}/apply  use a profile's ranges for the live map
type ProfileHandler struct {
	store *store.Store
	ctrl  Controller
}

// NewProfileHandler creates a ProfileHandler. ctrl may be nil, in which case
// saving and applying are unavailable.
func NewProfileHandler(s *store.Store, ctrl Controller) *ProfileHandler {
	return &ProfileHandler{store: s, ctrl: ctrl}
}

type createProfileRequest struct {
	Name string `json:"name"`
}

type profileResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Samples   int         `json:"samples"`
	Ranges    []rangeJSON `json:"ranges"`
	Active    bool        `json:"active"`
	CreatedAt string      `json:"created_at"`
	UpdatedAt string      `json:"updated_at"`
}

type listProfilesResponse struct {
	Profiles []profileResponse `json:"profiles"`
}

func toResponse(p *store.Profile, active string) profileResponse {
	return profileResponse{
		ID:        p.ID,
		Name:      p.Name,
		Samples:   p.Samples,
		Ranges:    rangesToJSON(p.Ranges),
		Active:    p.Name == active,
		CreatedAt: p.CreatedAt.Format(timeFormat),
		UpdatedAt: p.UpdatedAt.Format(timeFormat),
	}
}

// ServeHTTP routes collection and item requests.
func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/profiles")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if id, ok := strings.CutSuffix(path, "/apply"); ok {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.apply(w, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, path)
	case http.MethodDelete:
		h.delete(w, path)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ProfileHandler) active() string {
	name, err := h.store.Settings().Get(store.SettingActiveProfile)
	if err != nil {
		return ""
	}
	return name
}

// list handles GET /api/profiles.
func (h *ProfileHandler) list(w http.ResponseWriter) {
	profiles, err := h.store.Profiles().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles")
		return
	}

	active := h.active()
	response := listProfilesResponse{
		Profiles: make([]profileResponse, 0, len(profiles)),
	}
	for _, p := range profiles {
		response.Profiles = append(response.Profiles, toResponse(p, active))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/profiles/{id}.
func (h *ProfileHandler) get(w http.ResponseWriter, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(p, h.active()))
}

// create handles POST /api/profiles. It stores the ranges learned by the
// current calibration session under the given name, replacing a profile of
// the same name.
func (h *ProfileHandler) create(w http.ResponseWriter, r *http.Request) {
	if h.ctrl == nil {
		writeError(w, http.StatusServiceUnavailable, "No running pipeline")
		return
	}

	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	res := h.ctrl.CalibrationSnapshot()
	if res.Samples == 0 {
		writeError(w, http.StatusConflict, "Calibration has no samples yet")
		return
	}

	p := &store.Profile{Name: req.Name, Ranges: withPolarity(res.Ranges, h.ctrl.Map()), Samples: res.Samples}
	if err := h.store.Profiles().Save(p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save profile")
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(p, h.active()))
}

// withPolarity copies the polarity of each channel in m onto learned ranges.
func withPolarity(learned map[finger.Channel]calibration.Range, m *calibration.Map) map[finger.Channel]calibration.Range {
	out := make(map[finger.Channel]calibration.Range, len(learned))
	for ch, r := range learned {
		r.Inverted = m.Range(ch).Inverted
		out[ch] = r
	}
	return out
}

// apply handles POST /api/profiles/{id}/apply.
func (h *ProfileHandler) apply(w http.ResponseWriter, id string) {
	if h.ctrl == nil {
		writeError(w, http.StatusServiceUnavailable, "No running pipeline")
		return
	}

	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	h.ctrl.SetMap(h.ctrl.Map().WithRanges(p.Ranges))
	if err := h.store.Settings().Set(store.SettingActiveProfile, p.Name); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store active profile")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(p, p.Name))
}

// delete handles DELETE /api/profiles/{id}.
func (h *ProfileHandler) delete(w http.ResponseWriter, id string) {
	err := h.store.Profiles().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete profile")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
