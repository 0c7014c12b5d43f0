package chain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/0xERR0R/canarynet/addrpool"
	"github.com/0xERR0R/canarynet/authority"
	"github.com/0xERR0R/canarynet/evt"
	"github.com/0xERR0R/canarynet/log"
	"github.com/0xERR0R/canarynet/model"
	"github.com/0xERR0R/canarynet/zonetree"

	"github.com/avast/retry-go/v4"
	"github.com/jmhodges/clock"
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

const (
	delegationTTL = 3600

	secondarySyncInterval = 100 * time.Millisecond
	secondarySyncTimeout  = 10 * time.Second
)

// ZoneDecl registers one zone with the bootstrapper. Parent is empty for
// the root zone. NSName is the name of the authoritative server inside
// the zone, Addr its allocated address pair, PrimaryAddr the host:port the
// primary answers on. Secondaries are gated on zone transfer completion.
type ZoneDecl struct {
	Name        string
	Parent      string
	Zone        *authority.Zone
	NSName      string
	Addr        addrpool.Pair
	PrimaryAddr string
	Secondaries []*authority.Secondary
}

type zoneState struct {
	decl  ZoneDecl
	phase model.ZonePhase
	keys  *KeyMaterial
}

// Bootstrapper drives every zone through its phases: generate keys, serve
// the signed zone, push the delegation into the already-running parent,
// and finally verify the whole chain by resolving the canary name. The DS
// value only exists after key generation, so publication is a runtime call
// from child to parent, acknowledged by the parent after persistence.
type Bootstrapper struct {
	clk      clock.Clock
	logger   *logrus.Entry
	verifier *Verifier

	attempts     uint
	initialDelay time.Duration
	canary       string
	canaryAddr   addrpool.Pair

	lock   sync.Mutex
	zones  map[string]*zoneState
	byName *zonetree.Tree[*zoneState]
	order  []string
	anchor *dns.DNSKEY
}

// NewBootstrapper creates a bootstrapper for one run. The canary record
// is installed under canaryAddr right before the verification walk.
func NewBootstrapper(clk clock.Clock, canary string, canaryAddr addrpool.Pair,
	dnsPort uint16, attempts uint, initialDelay time.Duration,
) *Bootstrapper {
	return &Bootstrapper{
		clk:          clk,
		logger:       log.PrefixedLog("chain"),
		verifier:     NewVerifier(clk, dnsPort),
		attempts:     attempts,
		initialDelay: initialDelay,
		canary:       dns.Fqdn(canary),
		canaryAddr:   canaryAddr,
		zones:        make(map[string]*zoneState),
		byName:       zonetree.New[*zoneState](),
	}
}

// Register adds a zone and installs its apex record set, so probes and
// zone transfers see a complete zone before the chain is bootstrapped.
// Parents must be registered before their children.
func (b *Bootstrapper) Register(decl ZoneDecl) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	name := dns.Fqdn(decl.Name)

	if _, ok := b.zones[name]; ok {
		return fmt.Errorf("zone '%s' is already registered", name)
	}

	if decl.Parent != "" {
		if _, ok := b.zones[dns.Fqdn(decl.Parent)]; !ok {
			return fmt.Errorf("zone '%s': parent '%s' is not registered", name, decl.Parent)
		}
	}

	decl.Name = name

	if err := decl.Zone.SetApex(decl.NSName, decl.Addr.IPv4, decl.Addr.IPv6); err != nil {
		return fmt.Errorf("installing apex of zone '%s': %w", name, err)
	}

	state := &zoneState{decl: decl, phase: model.ZonePhaseUnsigned}
	b.zones[name] = state
	b.byName.Insert(name, state)
	b.order = append(b.order, name)

	return nil
}

// Bootstrap drives all zones to Delegated and the chain to Verified. Any
// publication exhaustion or verification failure is fatal for the run.
func (b *Bootstrapper) Bootstrap(ctx context.Context) error {
	b.lock.Lock()
	order := make([]string, len(b.order))
	copy(order, b.order)
	b.lock.Unlock()

	for _, name := range order {
		if err := b.bootstrapZone(ctx, name); err != nil {
			return err
		}
	}

	if err := b.installCanary(ctx); err != nil {
		return err
	}

	return b.Verify(ctx)
}

// installCanary places the canary record into its enclosing zone, it has
// to exist before the first verification walk.
func (b *Bootstrapper) installCanary(ctx context.Context) error {
	b.lock.Lock()
	state, ok := b.byName.Find(b.canary)
	b.lock.Unlock()

	if !ok {
		return fmt.Errorf("no zone encloses the canary '%s'", b.canary)
	}

	if err := state.decl.Zone.SetHost(b.canary, b.canaryAddr.IPv4, b.canaryAddr.IPv6); err != nil {
		return err
	}

	return b.awaitSecondaries(ctx, state.decl.Name)
}

func (b *Bootstrapper) bootstrapZone(ctx context.Context, name string) error {
	state := b.zone(name)

	keys, err := GenerateKey(name)
	if err != nil {
		return err
	}

	b.setKeys(name, keys)
	b.setPhase(name, model.ZonePhaseKeyGenerated)

	if err := state.decl.Zone.SetKey(keys.Key, keys.Signer); err != nil {
		return fmt.Errorf("signing zone '%s': %w", name, err)
	}

	b.setPhase(name, model.ZonePhasePublished)

	if state.decl.Parent == "" {
		// the root delegates to nobody, its key is the trust anchor
		b.lock.Lock()
		b.anchor = keys.Key
		b.lock.Unlock()

		b.setPhase(name, model.ZonePhaseDelegated)
	} else if err := b.PublishDelegation(ctx, name); err != nil {
		return err
	}

	return b.awaitSecondaries(ctx, name)
}

// PublishDelegation pushes the NS+DS set of a zone into its parent and
// waits for the acknowledgment, retrying with exponential backoff up to
// the bounded attempt count. Re-publishing an already acknowledged
// delegation is a no-op on the parent.
func (b *Bootstrapper) PublishDelegation(ctx context.Context, name string) error {
	state := b.zone(dns.Fqdn(name))
	if state == nil {
		return fmt.Errorf("unknown zone '%s'", name)
	}

	parent := b.zone(dns.Fqdn(state.decl.Parent))
	if parent == nil {
		return fmt.Errorf("zone '%s' has no parent to delegate from", name)
	}

	update := b.delegationUpdate(state, parent)

	client := &dns.Client{Net: "tcp", Timeout: queryTimeout}

	attempts := uint(0)

	err := retry.Do(
		func() error {
			attempts++

			response, _, err := client.ExchangeContext(ctx, update, parent.decl.PrimaryAddr)
			if err != nil {
				return err
			}

			if response.Rcode != dns.RcodeSuccess {
				return fmt.Errorf("parent answered %s", dns.RcodeToString[response.Rcode])
			}

			return nil
		},
		retry.Attempts(b.attempts),
		retry.Delay(b.initialDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			b.logger.Warnf("delegation push of '%s' attempt %d/%d failed: %v", name, n+1, b.attempts, err)
			evt.Bus().Publish(evt.DelegationRetried, state.decl.Name)
		}),
	)
	if err != nil {
		return &PublicationError{Zone: state.decl.Name, Attempts: b.attempts, Cause: err}
	}

	b.setPhase(state.decl.Name, model.ZonePhaseDelegated)
	evt.Bus().Publish(evt.DelegationPublished, state.decl.Name, attempts)

	// the delegation bumped the parent's serial, its secondaries have to
	// catch up before they are counted healthy
	return b.awaitSecondaries(ctx, parent.decl.Name)
}

// delegationUpdate builds the dynamic update carrying NS, glue and DS
func (b *Bootstrapper) delegationUpdate(state, parent *zoneState) *dns.Msg {
	update := new(dns.Msg)
	update.SetUpdate(parent.decl.Name)

	nsFqdn := dns.Fqdn(state.decl.NSName)

	update.Ns = append(update.Ns, &dns.NS{
		Hdr: dns.RR_Header{Name: state.decl.Name, Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: delegationTTL},
		Ns:  nsFqdn,
	})

	if state.decl.Addr.IPv4.IsValid() {
		update.Ns = append(update.Ns, &dns.A{
			Hdr: dns.RR_Header{Name: nsFqdn, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: delegationTTL},
			A:   state.decl.Addr.IPv4.AsSlice(),
		})
	}

	if state.decl.Addr.IPv6.IsValid() {
		update.Ns = append(update.Ns, &dns.AAAA{
			Hdr:  dns.RR_Header{Name: nsFqdn, Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: delegationTTL},
			AAAA: state.decl.Addr.IPv6.AsSlice(),
		})
	}

	update.Ns = append(update.Ns, state.keys.DS)

	return update
}

// awaitSecondaries blocks until every secondary of the zone serves the
// primary's current serial. The observed serial match is the sync-complete
// signal, not a timer.
func (b *Bootstrapper) awaitSecondaries(ctx context.Context, name string) error {
	state := b.zone(name)
	if len(state.decl.Secondaries) == 0 {
		return nil
	}

	deadline := b.clk.Now().Add(secondarySyncTimeout)

	for _, secondary := range state.decl.Secondaries {
		for secondary.Serial() != state.decl.Zone.Serial() {
			if err := secondary.Sync(ctx); err != nil {
				b.logger.Debugf("secondary of '%s' not in sync yet: %v", name, err)
			}

			if secondary.Serial() == state.decl.Zone.Serial() {
				break
			}

			if b.clk.Now().After(deadline) {
				return fmt.Errorf("secondary of zone '%s' did not synchronize in time", name)
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-b.clk.After(secondarySyncInterval):
			}
		}
	}

	b.logger.Infof("all %d secondaries of '%s' are in sync", len(state.decl.Secondaries), name)

	return nil
}

// Verify resolves the canary through the whole chain and moves every zone
// to Verified on success.
func (b *Bootstrapper) Verify(ctx context.Context) error {
	b.lock.Lock()
	anchor := b.anchor
	order := make([]string, len(b.order))
	copy(order, b.order)
	rootAddr := b.zones[order[0]].decl.PrimaryAddr
	b.lock.Unlock()

	if err := b.verifier.Verify(ctx, b.canary, dns.TypeA, rootAddr, anchor); err != nil {
		return err
	}

	for _, name := range order {
		b.setPhase(name, model.ZonePhaseVerified)
	}

	evt.Bus().Publish(evt.ChainVerified, b.canary)
	b.logger.Infof("chain verified, canary %s resolves with valid signatures", b.canary)

	return nil
}

// RotateKey generates fresh key material for a zone, re-signs it,
// re-publishes the delegation and re-verifies the chain. Signatures by the
// previous key become invalid immediately.
func (b *Bootstrapper) RotateKey(ctx context.Context, name string) error {
	state := b.zone(dns.Fqdn(name))
	if state == nil {
		return fmt.Errorf("unknown zone '%s'", name)
	}

	keys, err := GenerateKey(state.decl.Name)
	if err != nil {
		return err
	}

	b.setKeys(state.decl.Name, keys)

	if err := state.decl.Zone.SetKey(keys.Key, keys.Signer); err != nil {
		return fmt.Errorf("re-signing zone '%s': %w", name, err)
	}

	b.verifier.Flush()

	if state.decl.Parent == "" {
		b.lock.Lock()
		b.anchor = keys.Key
		b.lock.Unlock()
	} else if err := b.PublishDelegation(ctx, state.decl.Name); err != nil {
		return err
	}

	if err := b.awaitSecondaries(ctx, state.decl.Name); err != nil {
		return err
	}

	return b.Verify(ctx)
}

// RegisterHost places address records for a hostname into its enclosing
// zone. The zone must be at least Delegated, a record must never be
// client-visible before its zone is linked into the chain.
func (b *Bootstrapper) RegisterHost(ctx context.Context, hostname string, addr addrpool.Pair) error {
	fqdn := dns.Fqdn(hostname)

	b.lock.Lock()
	state, ok := b.byName.Find(fqdn)
	b.lock.Unlock()

	// the root zone holds only its apex and delegations, a name below an
	// undeclared cut has no home
	if ok && state.decl.Name == "." && dns.CountLabel(fqdn) > 1 {
		ok = false
	}

	if !ok {
		return fmt.Errorf("no zone encloses '%s'", hostname)
	}

	if phase := b.Phase(state.decl.Name); phase < model.ZonePhaseDelegated {
		return fmt.Errorf("zone '%s' is %s, not delegated yet", state.decl.Name, phase)
	}

	if err := state.decl.Zone.SetHost(hostname, addr.IPv4, addr.IPv6); err != nil {
		return err
	}

	b.verifier.Flush()

	return b.awaitSecondaries(ctx, state.decl.Name)
}

// ResolveHost resolves a fixture hostname through the verified chain,
// per address family, for dual-stack checks.
func (b *Bootstrapper) ResolveHost(ctx context.Context, hostname string, qtype uint16) ([]dns.RR, error) {
	b.lock.Lock()
	anchor := b.anchor
	rootAddr := b.zones[b.order[0]].decl.PrimaryAddr
	b.lock.Unlock()

	return b.verifier.Resolve(ctx, hostname, qtype, rootAddr, anchor)
}

// TrustAnchor returns the current root key, nil before bootstrap
func (b *Bootstrapper) TrustAnchor() *dns.DNSKEY {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.anchor
}

// Phase returns the current phase of a zone
func (b *Bootstrapper) Phase(name string) model.ZonePhase {
	b.lock.Lock()
	defer b.lock.Unlock()

	if state, ok := b.zones[dns.Fqdn(name)]; ok {
		return state.phase
	}

	return model.ZonePhaseUnsigned
}

// Phases returns all zones with their phases
func (b *Bootstrapper) Phases() map[string]model.ZonePhase {
	b.lock.Lock()
	defer b.lock.Unlock()

	phases := make(map[string]model.ZonePhase, len(b.zones))
	for name, state := range b.zones {
		phases[name] = state.phase
	}

	return phases
}

func (b *Bootstrapper) zone(name string) *zoneState {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.zones[name]
}

func (b *Bootstrapper) setKeys(name string, keys *KeyMaterial) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.zones[name].keys = keys
}

func (b *Bootstrapper) setPhase(name string, phase model.ZonePhase) {
	b.lock.Lock()
	state := b.zones[name]

	if state.phase == phase {
		b.lock.Unlock()

		return
	}

	state.phase = phase
	b.lock.Unlock()

	b.logger.Infof("zone '%s' is %s", name, phase)
	evt.Bus().Publish(evt.ZonePhaseChanged, name, phase.String())
}
