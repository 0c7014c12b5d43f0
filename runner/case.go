package runner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/0xERR0R/canarynet/grid"
)

// Browser is the surface a test case drives, one live session implements it
type Browser interface {
	Navigate(ctx context.Context, url string) error
	Execute(ctx context.Context, script string, args ...interface{}) (json.RawMessage, error)
	Close(ctx context.Context) error
}

// Sessions opens browser sessions for the worker pool
type Sessions interface {
	New(ctx context.Context) (Browser, error)
}

// GridSessions adapts the grid client to the Sessions interface
type GridSessions struct {
	Client *grid.Client
}

// New implements `Sessions`.
func (g GridSessions) New(ctx context.Context) (Browser, error) {
	return g.Client.NewSession(ctx)
}

// Case is one browser-driven test case. Cases run in declaration order,
// subject to the configured selector and parallelism.
type Case struct {
	Name string
	Run  func(ctx context.Context, browser Browser) error
}

// Failure marks a verdict against the application under test. A case run
// returning any other error is a harness error, the verdict is unknown.
type Failure struct {
	Reason string
}

// Error implements `error`.
func (f *Failure) Error() string {
	return f.Reason
}

// Failf builds a Failure verdict
func Failf(format string, args ...interface{}) error {
	return &Failure{Reason: fmt.Sprintf(format, args...)}
}
