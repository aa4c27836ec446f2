package restserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/satfire/firewatch/internal/constants"
	"github.com/satfire/firewatch/internal/detections"
	"github.com/satfire/firewatch/internal/pipeline"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{controller: ctrl}
}

// GetHealth reports process liveness
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type statusResponse struct {
	Version  string         `json:"version"`
	Uptime   string         `json:"uptime"`
	Pipeline pipeline.Stats `json:"pipeline"`
}

// GetStatus reports the version, uptime, and pipeline counters
func (h *Handlers) GetStatus(w http.ResponseWriter, req *http.Request) {
	status := statusResponse{
		Version:  constants.Version,
		Uptime:   time.Since(h.controller.started).Round(time.Second).String(),
		Pipeline: h.controller.engine.Stats(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.controller.logger.Errorf("error encoding status response: %v", err)
	}
}

// GetAlarms returns the alarms archived over a trailing window as a GeoJSON
// feature collection. The window defaults to 24 hours; the hours query
// parameter overrides it.
func (h *Handlers) GetAlarms(w http.ResponseWriter, req *http.Request) {
	hours := 24.0
	if param := req.URL.Query().Get("hours"); param != "" {
		parsed, err := strconv.ParseFloat(param, 64)
		if err != nil || parsed <= 0 {
			h.controller.logger.Errorf("invalid request: unable to parse hours: %v", param)
			http.Error(w, "error: invalid hours parameter", http.StatusBadRequest)
			return
		}
		hours = parsed
	}

	end := time.Now().UTC()
	start := end.Add(-time.Duration(hours * float64(time.Hour)))

	entries, err := h.controller.store.Between(start, end)
	if err != nil {
		h.controller.logger.Errorf("Error listing alarm archive: %v", err)
		http.Error(w, "error fetching archived alarms", http.StatusInternalServerError)
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, entry := range entries {
		alarm, err := h.controller.store.Read(entry)
		if err != nil {
			h.controller.logger.Errorf("Skipping archive record: %v", err)
			continue
		}
		fc.Append(detections.AlarmToFeature(alarm))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		h.controller.logger.Errorf("error encoding alarms response to JSON: %v", err)
	}
}
