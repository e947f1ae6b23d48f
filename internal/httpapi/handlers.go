package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"campussim/internal/config"
	"campussim/internal/params"
	"campussim/internal/weather"
)

// pointView is the JSON shape of one registry point in a structured
// snapshot response, after applying the active display unit system.
type pointView struct {
	Path       string  `json:"path"`
	Value      float64 `json:"value"`
	Units      string  `json:"units"`
	Writable   bool    `json:"writable"`
	Overridden bool    `json:"overridden"`
}

func (s *Server) snapshotView(prefix string) []pointView {
	// Serve the tick-boundary snapshot once the driver has published one,
	// so a view never mixes points from two ticks.
	entries := s.Reg.Snapshot(prefix)
	if snap, ok := s.Driver.LatestSnapshot(); ok {
		entries = nil
		for _, e := range snap.Entries {
			if strings.HasPrefix(e.Path, prefix) {
				entries = append(entries, e)
			}
		}
	}
	target := s.unitSystemValue()
	out := make([]pointView, 0, len(entries))
	for _, e := range entries {
		units := e.Value.Metadata.Units
		value := convertDisplayUnits(e.Value.Effective, units, target)
		out = append(out, pointView{
			Path:       e.Path,
			Value:      value,
			Units:      displayUnits(units, target),
			Writable:   e.Value.Metadata.Writable,
			Overridden: e.Value.Overridden,
		})
	}
	return out
}

// convertDisplayUnits converts a canonically-US-stored value for
// display only; the registry itself always holds the value the
// equipment model computed, in US units, per spec.md §3's unit_system
// note ("affects display units only").
func convertDisplayUnits(v float64, units string, target config.UnitSystem) float64 {
	if target != config.UnitsMetric {
		return v
	}
	switch units {
	case "F":
		return (v - 32) * 5 / 9
	default:
		return v
	}
}

func displayUnits(units string, target config.UnitSystem) string {
	if target == config.UnitsMetric && units == "F" {
		return "C"
	}
	return units
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"sim_now":     s.Clock.Now().Format(time.RFC3339),
		"scenario":    s.Campus.Scenario(),
		"unit_system": s.unitSystemValue(),
		"ticks":       s.Driver.Ticks(),
		"buildings":   len(s.Campus.Buildings),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePlant(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotView("CentralPlant."))
}

func (s *Server) handleElectrical(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotView("Electrical."))
}

func (s *Server) handleBuildings(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.Campus.Buildings))
	for _, b := range s.Campus.Buildings {
		names = append(names, b.Name)
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleBuilding(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	prefix := "Building_" + id + "."
	view := s.snapshotView(prefix)
	if len(view) == 0 {
		writeError(w, http.StatusNotFound, "unknown building "+id)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDataCenter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotView("DataCenter."))
}

func (s *Server) handleWastewater(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotView("Wastewater."))
}

func (s *Server) handleOverrides(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Reg.AllOverrides())
}

type overrideSetRequest struct {
	PointPath       string  `json:"point_path"`
	Value           float64 `json:"value"`
	Priority        int     `json:"priority"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

func (s *Server) handleOverrideSet(w http.ResponseWriter, r *http.Request) {
	var req overrideSetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var duration time.Duration
	if req.DurationSeconds > 0 {
		duration = time.Duration(req.DurationSeconds * float64(time.Second))
	}

	err := s.Reg.OverrideAt(req.PointPath, req.Value, req.Priority, "http", s.Clock.Now(), duration)
	if err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type overrideReleaseRequest struct {
	PointPath string `json:"point_path"`
	Priority  *int   `json:"priority,omitempty"`
}

func (s *Server) handleOverrideRelease(w http.ResponseWriter, r *http.Request) {
	var req overrideReleaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.Reg.Release(req.PointPath, req.Priority); err != nil {
		writeRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleParametersGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Campus.Params.Get())
}

func (s *Server) handleParametersSet(w http.ResponseWriter, r *http.Request) {
	var snap params.Snapshot
	if err := decodeJSON(r, &snap); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.Campus.Params.Set(snap)
	writeJSON(w, http.StatusOK, s.Campus.Params.Get())
}

type scenarioRequest struct {
	Scenario string `json:"scenario"`
}

var validScenarios = map[string]weather.Scenario{
	"Normal":       weather.ScenarioNormal,
	"Snow":         weather.ScenarioSnow,
	"Rainstorm":    weather.ScenarioRainstorm,
	"Windstorm":    weather.ScenarioWindstorm,
	"Thunderstorm": weather.ScenarioThunderstorm,
	"Heatwave":     weather.ScenarioHeatwave,
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	var req scenarioRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sc, ok := validScenarios[req.Scenario]
	if !ok {
		writeError(w, http.StatusBadRequest, "BAD_SCENARIO: "+req.Scenario)
		return
	}
	s.Campus.SetScenario(sc)
	writeJSON(w, http.StatusOK, map[string]string{"scenario": string(sc)})
}

type unitSystemRequest struct {
	UnitSystem string `json:"unit_system"`
}

func (s *Server) handleUnitSystem(w http.ResponseWriter, r *http.Request) {
	var req unitSystemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch config.UnitSystem(strings.TrimSpace(req.UnitSystem)) {
	case config.UnitsUS:
		s.unitSystem.Store(config.UnitsUS)
	case config.UnitsMetric:
		s.unitSystem.Store(config.UnitsMetric)
	default:
		writeError(w, http.StatusBadRequest, "invalid unit_system")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"unit_system": string(s.unitSystemValue())})
}
