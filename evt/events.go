package evt

import (
	"github.com/asaskevich/EventBus"
)

const (
	// ServiceStateChanged fires on every service state transition. Parameters: service name, new state as string
	ServiceStateChanged = "supervisor:stateChanged"

	// ZonePhaseChanged fires on every zone phase transition. Parameters: zone name, new phase as string
	ZonePhaseChanged = "chain:phaseChanged"

	// DelegationPublished fires after a parent acknowledged a delegation. Parameters: zone name, attempts used
	DelegationPublished = "chain:delegationPublished"

	// DelegationRetried fires on every delegation push retry. Parameter: zone name
	DelegationRetried = "chain:delegationRetried"

	// ChainVerified fires after the canary resolved through the validated chain. Parameter: canary name
	ChainVerified = "chain:verified"

	// FixtureProvisioned fires after fixture provisioning. Parameters: fixture hostname, success
	FixtureProvisioned = "targets:provisioned"

	// CaseCompleted fires after a case finished. Parameters: case name, outcome as string, duration in seconds
	CaseCompleted = "runner:caseCompleted"

	// RunCompleted fires once per run. Parameters: run status as string, duration in seconds
	RunCompleted = "runner:runCompleted"

	// ApplicationStarted fires on startup. Parameters: version, build time
	ApplicationStarted = "application:started"
)

// nolint
var evtBus = EventBus.New()

// Bus returns the global event bus
func Bus() EventBus.Bus {
	return evtBus
}
