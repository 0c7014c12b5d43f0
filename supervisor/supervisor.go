package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/0xERR0R/canarynet/evt"
	"github.com/0xERR0R/canarynet/log"
	"github.com/0xERR0R/canarynet/model"

	"github.com/hashicorp/go-multierror"
	"github.com/jmhodges/clock"
	"github.com/sirupsen/logrus"
)

// Runner is the runtime behavior behind a supervised service. Start blocks
// until the service process exists (not until it is healthy), Stop tears
// it down. Stop must tolerate being called on a never-started service.
type Runner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Probe is an externally supplied readiness predicate. It is called
// repeatedly until it succeeds or the start timeout elapses.
type Probe func(ctx context.Context) error

// Declaration describes one service before bring-up. A declaration without
// a probe counts healthy as soon as its runner returned, which is how
// build-only artifacts are modeled.
type Declaration struct {
	Name          string
	DependsOn     []string
	Runner        Runner
	Probe         Probe
	ProbeInterval time.Duration
	StartTimeout  time.Duration
}

type node struct {
	decl    Declaration
	state   model.ServiceState
	err     error
	healthy chan struct{} // closed on Healthy
	done    chan struct{} // closed on any terminal state
}

// Registry owns all service nodes of a run. All state mutation goes
// through it, guarded by a single lock.
type Registry struct {
	clock  clock.Clock
	logger *logrus.Entry

	lock  sync.Mutex
	nodes map[string]*node
	order []string
}

// New creates an empty registry using the wall clock
func New() *Registry {
	return NewWithClock(clock.New())
}

// NewWithClock creates an empty registry with an injectable clock
func NewWithClock(cl clock.Clock) *Registry {
	return &Registry{
		clock:  cl,
		logger: log.PrefixedLog("supervisor"),
		nodes:  make(map[string]*node),
	}
}

// Declare registers a service. Dependencies may be declared later, but a
// declaration closing a dependency cycle is rejected with a CycleError.
func (r *Registry) Declare(decl Declaration) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if decl.Name == "" {
		return fmt.Errorf("service declaration without name")
	}

	if _, ok := r.nodes[decl.Name]; ok {
		return fmt.Errorf("service '%s' is already declared", decl.Name)
	}

	if decl.Runner == nil {
		return fmt.Errorf("service '%s' has no runner", decl.Name)
	}

	r.nodes[decl.Name] = &node{
		decl:    decl,
		state:   model.ServiceStatePending,
		healthy: make(chan struct{}),
		done:    make(chan struct{}),
	}
	r.order = append(r.order, decl.Name)

	if cycle := r.findCycle(decl.Name); cycle != nil {
		delete(r.nodes, decl.Name)
		r.order = r.order[:len(r.order)-1]

		return &CycleError{Chain: cycle}
	}

	return nil
}

// findCycle runs a DFS from start over declared nodes, caller holds the lock
func (r *Registry) findCycle(start string) []string {
	var walk func(name string, path []string) []string

	walk = func(name string, path []string) []string {
		n, ok := r.nodes[name]
		if !ok {
			return nil
		}

		path = append(path, name)

		for _, dep := range n.decl.DependsOn {
			if dep == start {
				return append(path, start)
			}

			if cycle := walk(dep, path); cycle != nil {
				return cycle
			}
		}

		return nil
	}

	return walk(start, nil)
}

// StartAll brings up every declared service in dependency order. Nodes
// with all dependencies healthy start concurrently. It returns once every
// node reached a terminal state, with the collected failures. Canceling
// ctx aborts all pending waits and fails the affected nodes.
func (r *Registry) StartAll(ctx context.Context) error {
	r.lock.Lock()
	names := make([]string, len(r.order))
	copy(names, r.order)

	for _, name := range names {
		for _, dep := range r.nodes[name].decl.DependsOn {
			if _, ok := r.nodes[dep]; !ok {
				r.lock.Unlock()

				return fmt.Errorf("service '%s' depends on undeclared service '%s'", name, dep)
			}
		}
	}
	r.lock.Unlock()

	var wg sync.WaitGroup

	for _, name := range names {
		wg.Add(1)

		go func(name string) {
			defer wg.Done()
			r.startNode(ctx, name)
		}(name)
	}

	wg.Wait()

	var result *multierror.Error

	r.lock.Lock()
	defer r.lock.Unlock()

	for _, name := range names {
		if err := r.nodes[name].err; err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

func (r *Registry) startNode(ctx context.Context, name string) {
	r.lock.Lock()
	n := r.nodes[name]
	deps := n.decl.DependsOn
	r.lock.Unlock()

	for _, dep := range deps {
		if err := r.AwaitHealthy(ctx, dep, n.decl.StartTimeout); err != nil {
			r.fail(name, &DependencyError{Service: name, Dependency: dep})

			return
		}
	}

	r.transition(name, model.ServiceStateStarting, nil)

	if err := n.decl.Runner.Start(ctx); err != nil {
		r.fail(name, &StartError{Service: name, Cause: err})

		return
	}

	if n.decl.Probe == nil {
		r.markHealthy(name)

		return
	}

	if err := r.probeLoop(ctx, n); err != nil {
		r.fail(name, &HealthTimeoutError{Service: name, Timeout: n.decl.StartTimeout, Cause: err})

		return
	}

	r.markHealthy(name)
}

// probeLoop polls the probe until it succeeds or the start timeout (the
// grace period of the node) elapses. Retries belong to the probe itself,
// this loop only repeats the whole predicate.
func (r *Registry) probeLoop(ctx context.Context, n *node) error {
	deadline := r.clock.Now().Add(n.decl.StartTimeout)

	var lastErr error

	for {
		probeCtx, cancel := context.WithTimeout(ctx, n.decl.ProbeInterval)
		lastErr = n.decl.Probe(probeCtx)

		cancel()

		if lastErr == nil {
			return nil
		}

		if r.clock.Now().After(deadline) {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.clock.After(n.decl.ProbeInterval):
		}
	}
}

// AwaitHealthy blocks until the service is healthy. It returns a
// HealthTimeoutError when the timeout elapses first and the node's own
// failure when it reached a terminal state without becoming healthy.
func (r *Registry) AwaitHealthy(ctx context.Context, name string, timeout time.Duration) error {
	r.lock.Lock()
	n, ok := r.nodes[name]
	r.lock.Unlock()

	if !ok {
		return fmt.Errorf("unknown service '%s'", name)
	}

	timer := r.clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-n.healthy:
		return nil
	case <-n.done:
		r.lock.Lock()
		err := n.err
		r.lock.Unlock()

		if err == nil {
			err = fmt.Errorf("service '%s' stopped", name)
		}

		return err
	case <-timer.C:
		return &HealthTimeoutError{Service: name, Timeout: timeout}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current state of a service
func (r *Registry) State(name string) (model.ServiceState, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()

	n, ok := r.nodes[name]
	if !ok {
		return model.ServiceStatePending, false
	}

	return n.state, true
}

// States returns all services with their current state, in declaration order
func (r *Registry) States() map[string]model.ServiceState {
	r.lock.Lock()
	defer r.lock.Unlock()

	states := make(map[string]model.ServiceState, len(r.nodes))
	for name, n := range r.nodes {
		states[name] = n.state
	}

	return states
}

// Names returns all declared service names in declaration order
func (r *Registry) Names() []string {
	r.lock.Lock()
	defer r.lock.Unlock()

	names := make([]string, len(r.order))
	copy(names, r.order)

	return names
}

// Teardown stops all services in reverse declaration order, which is a
// reverse topological order since declaration requires cycle freedom.
// Already failed or stopped services are stopped anyway, their runners
// tolerate that.
func (r *Registry) Teardown(ctx context.Context) error {
	r.lock.Lock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	r.lock.Unlock()

	var result *multierror.Error

	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]

		r.lock.Lock()
		n := r.nodes[name]
		alreadyStopped := n.state == model.ServiceStateStopped
		r.lock.Unlock()

		if alreadyStopped {
			continue
		}

		if err := n.decl.Runner.Stop(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("stopping '%s': %w", name, err))
		}

		r.transition(name, model.ServiceStateStopped, nil)
	}

	return result.ErrorOrNil()
}

func (r *Registry) markHealthy(name string) {
	r.lock.Lock()
	n := r.nodes[name]

	if n.state == model.ServiceStateHealthy {
		r.lock.Unlock()

		return
	}

	n.state = model.ServiceStateHealthy
	close(n.healthy)
	r.lock.Unlock()

	r.logger.Infof("service '%s' is healthy", name)
	evt.Bus().Publish(evt.ServiceStateChanged, name, model.ServiceStateHealthy.String())
}

func (r *Registry) fail(name string, err error) {
	r.lock.Lock()
	n := r.nodes[name]

	if n.state == model.ServiceStateFailed {
		r.lock.Unlock()

		return
	}

	n.state = model.ServiceStateFailed
	n.err = err
	close(n.done)
	r.lock.Unlock()

	r.logger.Errorf("service '%s' failed: %v", name, err)
	evt.Bus().Publish(evt.ServiceStateChanged, name, model.ServiceStateFailed.String())
}

func (r *Registry) transition(name string, state model.ServiceState, err error) {
	r.lock.Lock()
	n := r.nodes[name]
	n.state = state
	n.err = err

	if state == model.ServiceStateStopped {
		select {
		case <-n.done:
		default:
			close(n.done)
		}
	}
	r.lock.Unlock()

	r.logger.Debugf("service '%s' is %s", name, state)
	evt.Bus().Publish(evt.ServiceStateChanged, name, state.String())
}
