package model

//go:generate go-enum -f=$GOFILE --marshal --names
import (
	"time"
)

// ServiceState represents the lifecycle state of a supervised service ENUM(
// pending // declared but not started yet
// starting // started, health probe not satisfied yet
// healthy // health probe satisfied
// failed // start or health probe failed permanently
// stopped // torn down
// )
type ServiceState int

// ZonePhase represents the signing progress of a zone ENUM(
// unsigned // declared, no key material yet
// keyGenerated // key pair exists, zone not served signed yet
// published // signed zone is served by its primary
// delegated // parent acknowledged the NS and DS set
// verified // canary resolution validated the full chain
// )
type ZonePhase int

// CaseOutcome represents the result of one test case ENUM(
// passed // expectations held
// failed // the application under test misbehaved
// error // the harness failed, verdict unknown
// skipped // never dispatched
// )
type CaseOutcome int

// RunStatus represents the overall state of a run ENUM(
// created // environment bring-up has not finished
// running // cases are being dispatched
// passed // all executed cases passed
// failed // at least one case failed or errored
// environmentFailed // the environment never became healthy
// )
type RunStatus int

// CaseResult is the persisted outcome of a single test case
type CaseResult struct {
	Name      string        `json:"name"`
	Target    string        `json:"target,omitempty"`
	Outcome   CaseOutcome   `json:"outcome"`
	Details   string        `json:"details,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
}

// Tally counts case outcomes of a run
type Tally struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errors  int `json:"errors"`
	Skipped int `json:"skipped"`
}

// Total returns the number of counted cases
func (t Tally) Total() int {
	return t.Passed + t.Failed + t.Errors + t.Skipped
}

// RunReport aggregates everything a finished run produced
type RunReport struct {
	ID          string        `json:"id"`
	Status      RunStatus     `json:"status"`
	Selector    string        `json:"selector"`
	StartedAt   time.Time     `json:"startedAt"`
	FinishedAt  time.Time     `json:"finishedAt"`
	Environment string        `json:"environment,omitempty"`
	Tally       Tally         `json:"tally"`
	Cases       []CaseResult  `json:"cases"`
	Coverage    string        `json:"coverage,omitempty"`
	Duration    time.Duration `json:"duration"`
}
