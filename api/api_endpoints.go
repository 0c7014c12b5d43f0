package api

import (
	"encoding/json"
	"net/http"

	"github.com/0xERR0R/canarynet/log"
	"github.com/0xERR0R/canarynet/model"

	"github.com/go-chi/chi/v5"
)

const (
	contentTypeHeader = "content-type"
	jsonContentType   = "application/json"
)

// RunControl exposes the live run state and the finished report
type RunControl interface {
	RunStatus() RunState
	RunReport() *model.RunReport
}

// ServiceInspector exposes the states of all supervised services
type ServiceInspector interface {
	States() map[string]model.ServiceState
}

// ZoneInspector exposes the phases of all zones
type ZoneInspector interface {
	Phases() map[string]model.ZonePhase
}

// RunEndpoint endpoint for the run status
type RunEndpoint struct {
	control RunControl
}

// ServicesEndpoint endpoint for the service states
type ServicesEndpoint struct {
	inspector ServiceInspector
}

// ZonesEndpoint endpoint for the zone phases
type ZonesEndpoint struct {
	inspector ZoneInspector
}

// RegisterEndpoint registers an implementation as HTTP endpoint
func RegisterEndpoint(router chi.Router, t interface{}) {
	if a, ok := t.(RunControl); ok {
		registerRunEndpoints(router, a)
	}

	if a, ok := t.(ServiceInspector); ok {
		registerServicesEndpoints(router, a)
	}

	if a, ok := t.(ZoneInspector); ok {
		registerZonesEndpoints(router, a)
	}
}

func registerRunEndpoints(router chi.Router, control RunControl) {
	e := &RunEndpoint{control}

	router.Get(PathRunStatus, e.apiRunStatus)
	router.Get(PathRunReport, e.apiRunReport)
}

func registerServicesEndpoints(router chi.Router, inspector ServiceInspector) {
	e := &ServicesEndpoint{inspector}

	router.Get(PathServices, e.apiServices)
}

func registerZonesEndpoints(router chi.Router, inspector ZoneInspector) {
	e := &ZonesEndpoint{inspector}

	router.Get(PathZones, e.apiZones)
}

// apiRunStatus returns the live state of the run
// @Summary Run status
// @Description returns the live state of the current run
// @Tags run
// @Produce json
// @Success 200 {object} api.RunState "Current run state"
// @Router /run/status [get]
func (e *RunEndpoint) apiRunStatus(rw http.ResponseWriter, _ *http.Request) {
	respondJSON(rw, e.control.RunStatus())
}

// apiRunReport returns the report of a finished run
// @Summary Run report
// @Description returns the aggregated report, available once the run finished
// @Tags run
// @Produce json
// @Success 200 {object} model.RunReport "Aggregated run report"
// @Failure 404 "No report yet"
// @Router /run/report [get]
func (e *RunEndpoint) apiRunReport(rw http.ResponseWriter, _ *http.Request) {
	report := e.control.RunReport()
	if report == nil {
		http.Error(rw, "the run has not finished yet", http.StatusNotFound)

		return
	}

	respondJSON(rw, report)
}

// apiServices returns the state of every supervised service
// @Summary Service states
// @Description returns the lifecycle state of every supervised service
// @Tags services
// @Produce json
// @Success 200 {object} map[string]string "Service states by name"
// @Router /services [get]
func (e *ServicesEndpoint) apiServices(rw http.ResponseWriter, _ *http.Request) {
	states := make(map[string]string)
	for name, state := range e.inspector.States() {
		states[name] = state.String()
	}

	respondJSON(rw, states)
}

// apiZones returns the phase of every zone
// @Summary Zone phases
// @Description returns the signing phase of every zone in the chain
// @Tags zones
// @Produce json
// @Success 200 {object} map[string]string "Zone phases by name"
// @Router /zones [get]
func (e *ZonesEndpoint) apiZones(rw http.ResponseWriter, _ *http.Request) {
	phases := make(map[string]string)
	for name, phase := range e.inspector.Phases() {
		phases[name] = phase.String()
	}

	respondJSON(rw, phases)
}

func respondJSON(rw http.ResponseWriter, value interface{}) {
	rw.Header().Set(contentTypeHeader, jsonContentType)

	if err := json.NewEncoder(rw).Encode(value); err != nil {
		log.Log().Error("can't write response: ", err)
	}
}
