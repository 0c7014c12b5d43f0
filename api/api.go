// @title canarynet API
// @description status API of a canarynet run

// @contact.name canarynet@github
// @contact.url https://github.com/0xERR0R/canarynet

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @BasePath /api/
package api

import "time"

const (
	PathRunStatus = "/api/run/status"
	PathRunReport = "/api/run/report"
	PathServices  = "/api/services"
	PathZones     = "/api/zones"
	PathMetrics   = "/metrics"
)

// RunState is the live state of the current run
type RunState struct {
	// Run identifier, empty until the engine started
	RunID string `json:"runId,omitempty"`
	// Overall run status
	Status string `json:"status"`
	// Start of environment bring-up
	StartedAt time.Time `json:"startedAt"`
}
