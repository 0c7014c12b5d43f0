package cmd

import (
	"context"
	"crypto/x509"
	"fmt"
	"net"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/0xERR0R/canarynet/addrpool"
	"github.com/0xERR0R/canarynet/api"
	"github.com/0xERR0R/canarynet/authority"
	"github.com/0xERR0R/canarynet/ca"
	"github.com/0xERR0R/canarynet/chain"
	"github.com/0xERR0R/canarynet/config"
	"github.com/0xERR0R/canarynet/deploy"
	"github.com/0xERR0R/canarynet/evt"
	"github.com/0xERR0R/canarynet/grid"
	"github.com/0xERR0R/canarynet/log"
	"github.com/0xERR0R/canarynet/metrics"
	"github.com/0xERR0R/canarynet/model"
	"github.com/0xERR0R/canarynet/report"
	"github.com/0xERR0R/canarynet/runner"
	"github.com/0xERR0R/canarynet/supervisor"
	"github.com/0xERR0R/canarynet/target"

	"github.com/avast/retry-go/v4"
	"github.com/jmhodges/clock"
	"github.com/miekg/dns"
	"github.com/spf13/cobra"
)

const (
	// name of the implicit service node backing the docker network
	networkNodeName = "closed-network"

	teardownTimeout = 30 * time.Second

	gridReadyAttempts = uint(20)
	gridReadyDelay    = 500 * time.Millisecond
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Args:  cobra.NoArgs,
		Short: "bring up the environment and execute the suite (default command)",
		RunE:  runEnvironment,
	}
}

func runEnvironment(_ *cobra.Command, _ []string) error {
	printBanner()

	cfg, err := initConfig()
	if err != nil {
		return &ExitCodeError{Code: ExitConfigInvalid, Err: err}
	}

	cfg.LogConfig(log.PrefixedLog("config"))

	if cfg.Prometheus.Enable {
		metrics.StartCollection()
	}

	orch, err := newOrchestrator(cfg, clock.New())
	if err != nil {
		return &ExitCodeError{Code: ExitConfigInvalid, Err: err}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	evt.Bus().Publish(evt.ApplicationStarted, version, buildTime)

	runReport, err := orch.Execute(ctx)
	if err != nil {
		return &ExitCodeError{Code: ExitEnvironmentFailed, Err: err}
	}

	if runReport.Status != model.RunStatusPassed {
		return &ExitCodeError{
			Code: ExitTestsFailed,
			Err: fmt.Errorf("%d of %d cases did not pass",
				runReport.Tally.Failed+runReport.Tally.Errors, runReport.Tally.Total()),
		}
	}

	return nil
}

// orchestrator wires the whole run: the supervised service graph, the
// DNSSEC chain, the CA, the fixture matrix, the grid and the engine.
type orchestrator struct {
	cfg      *config.Config
	clk      clock.Clock
	pool     *addrpool.Pool
	registry *supervisor.Registry
	boot     *chain.Bootstrapper

	network     *deploy.Network
	containers  map[string]*deploy.Container
	dnsServers  map[string]*authority.Server
	secondaries map[string]*authority.Secondary
	caAuthority *ca.Authority
	apiService  *api.Service

	targets []*target.Target

	lock      sync.Mutex
	status    model.RunStatus
	startedAt time.Time
	report    *model.RunReport
}

func newOrchestrator(cfg *config.Config, clk clock.Clock) (*orchestrator, error) {
	pool, err := addrpool.New(cfg.Network.IPv4CIDR, cfg.Network.IPv6CIDR)
	if err != nil {
		return nil, err
	}

	o := &orchestrator{
		cfg:         cfg,
		clk:         clk,
		pool:        pool,
		registry:    supervisor.NewWithClock(clk),
		containers:  make(map[string]*deploy.Container),
		dnsServers:  make(map[string]*authority.Server),
		secondaries: make(map[string]*authority.Secondary),
		status:      model.RunStatusCreated,
		startedAt:   clk.Now(),
	}

	canaryAddr, err := pool.Assign(dns.Fqdn(cfg.DNS.Canary))
	if err != nil {
		return nil, err
	}

	o.boot = chain.NewBootstrapper(clk, cfg.DNS.Canary, canaryAddr, cfg.DNS.Port,
		cfg.DNS.Publication.Attempts, cfg.DNS.Publication.InitialDelay.ToDuration())

	if err := o.setupDNS(); err != nil {
		return nil, err
	}

	if err := o.setupCA(); err != nil {
		return nil, err
	}

	if err := o.declareServices(); err != nil {
		return nil, err
	}

	o.apiService = api.NewService([]string{fmt.Sprintf(":%d", cfg.HTTPPort)}, o, o.registry, o.boot)

	return o, nil
}

// setupDNS creates the authoritative tier: one server per referenced
// service, the zone objects it serves, and the secondaries. Zones are
// registered with the bootstrapper parents first.
func (o *orchestrator) setupDNS() error {
	type zoneEntry struct {
		cfg  *config.Zone
		zone *authority.Zone
		pair addrpool.Pair
	}

	entries := make(map[string]*zoneEntry, len(o.cfg.DNS.Zones))

	for i := range o.cfg.DNS.Zones {
		zc := &o.cfg.DNS.Zones[i]

		svc := o.serviceByName(zc.ServiceRef)
		if svc == nil || !svc.IsBuiltin() {
			return fmt.Errorf("zone '%s': authoritative service '%s' must be builtin", zc.Name, zc.ServiceRef)
		}

		pair, err := o.pool.Assign(zc.ServiceRef)
		if err != nil {
			return err
		}

		server, ok := o.dnsServers[zc.ServiceRef]
		if !ok {
			server = authority.NewServer(zc.ServiceRef, o.dnsAddrs(pair)...)
			o.dnsServers[zc.ServiceRef] = server
		}

		zone := authority.NewZone(zc.FQDN(), o.clk)
		server.Serve(zone)

		entries[zc.FQDN()] = &zoneEntry{cfg: zc, zone: zone, pair: pair}
	}

	for fqdn, entry := range entries {
		primaryAddr := net.JoinHostPort(entry.pair.IPv4.String(), fmt.Sprint(o.cfg.DNS.Port))

		for _, ref := range entry.cfg.SecondaryRefs {
			if _, ok := o.secondaries[ref]; ok {
				return fmt.Errorf("secondary service '%s' serves more than one zone", ref)
			}

			svc := o.serviceByName(ref)
			if svc == nil || !svc.IsBuiltin() {
				return fmt.Errorf("zone '%s': secondary service '%s' must be builtin", fqdn, ref)
			}

			secPair, err := o.pool.Assign(ref)
			if err != nil {
				return err
			}

			o.secondaries[ref] = authority.NewSecondary(ref, fqdn, primaryAddr, o.clk, o.dnsAddrs(secPair)...)
		}
	}

	// parents before children, the suffix relation is validated by config
	registered := make(map[string]struct{}, len(entries))
	for len(registered) < len(entries) {
		progressed := false

		for i := range o.cfg.DNS.Zones {
			zc := &o.cfg.DNS.Zones[i]
			if _, done := registered[zc.FQDN()]; done {
				continue
			}

			if zc.Parent != "" {
				if _, ok := registered[dns.Fqdn(zc.Parent)]; !ok {
					continue
				}
			}

			entry := entries[zc.FQDN()]

			var secs []*authority.Secondary
			for _, ref := range zc.SecondaryRefs {
				secs = append(secs, o.secondaries[ref])
			}

			decl := chain.ZoneDecl{
				Name:        zc.FQDN(),
				Parent:      zc.Parent,
				Zone:        entry.zone,
				NSName:      nsNameFor(zc.FQDN()),
				Addr:        entry.pair,
				PrimaryAddr: net.JoinHostPort(entry.pair.IPv4.String(), fmt.Sprint(o.cfg.DNS.Port)),
				Secondaries: secs,
			}

			if err := o.boot.Register(decl); err != nil {
				return err
			}

			registered[zc.FQDN()] = struct{}{}
			progressed = true
		}

		if !progressed {
			return fmt.Errorf("zone tree contains unreachable parents")
		}
	}

	return nil
}

func nsNameFor(zone string) string {
	if zone == "." {
		return "ns."
	}

	return "ns." + zone
}

func (o *orchestrator) dnsAddrs(pair addrpool.Pair) []string {
	port := fmt.Sprint(o.cfg.DNS.Port)

	return []string{
		net.JoinHostPort(pair.IPv4.String(), port),
		net.JoinHostPort(pair.IPv6.String(), port),
	}
}

func (o *orchestrator) setupCA() error {
	if !o.cfg.CA.IsEnabled() {
		return nil
	}

	svc := o.serviceByName(o.cfg.CA.ServiceRef)
	if svc == nil || !svc.IsBuiltin() {
		// container backed, the client talks to its mapped endpoint
		return nil
	}

	auth, err := ca.NewAuthority(o.clk, o.cfg.CA.CommonName, o.cfg.CA.Validity.ToDuration())
	if err != nil {
		return err
	}

	o.caAuthority = auth

	return nil
}

func (o *orchestrator) serviceByName(name string) *config.Service {
	for i := range o.cfg.Services {
		if o.cfg.Services[i].Name == name {
			return &o.cfg.Services[i]
		}
	}

	return nil
}

// declareServices turns the configured service list into supervised
// declarations with their runners and probes.
func (o *orchestrator) declareServices() error {
	needsNetwork := false

	for i := range o.cfg.Services {
		if o.cfg.Services[i].Image != "" {
			needsNetwork = true
		}
	}

	if needsNetwork {
		if o.serviceByName(networkNodeName) != nil {
			return fmt.Errorf("service name '%s' is reserved", networkNodeName)
		}

		o.network = deploy.NewNetwork(o.cfg.Network)

		err := o.registry.Declare(supervisor.Declaration{
			Name:         networkNodeName,
			Runner:       o.network,
			StartTimeout: o.cfg.BringUpTimeout.ToDuration(),
		})
		if err != nil {
			return err
		}
	}

	for i := range o.cfg.Services {
		svc := &o.cfg.Services[i]

		decl := supervisor.Declaration{
			Name:          svc.Name,
			DependsOn:     svc.DependsOn,
			ProbeInterval: svc.Probe.Interval.ToDuration(),
			StartTimeout:  svc.StartTimeout.ToDuration(),
		}

		switch {
		case svc.Kind == config.ServiceKindBuild:
			decl.Runner = deploy.NewImageBuild(svc.Build)

		case svc.Image != "":
			container := deploy.NewContainer(*svc, o.network)
			o.containers[svc.Name] = container
			decl.Runner = container
			decl.DependsOn = append(decl.DependsOn, networkNodeName)
			decl.Probe = o.containerProbe(container, svc.Probe)

		default:
			builtin, probe, err := o.builtinRunner(svc)
			if err != nil {
				return err
			}

			decl.Runner = builtin
			decl.Probe = probe
		}

		if err := o.registry.Declare(decl); err != nil {
			return err
		}
	}

	return nil
}

// builtinRunner resolves a service without an image to the in-process
// component that backs it.
func (o *orchestrator) builtinRunner(svc *config.Service) (supervisor.Runner, supervisor.Probe, error) {
	if server, ok := o.dnsServers[svc.Name]; ok {
		pair, _ := o.pool.Lookup(svc.Name)
		addr := net.JoinHostPort(pair.IPv4.String(), fmt.Sprint(o.cfg.DNS.Port))

		return server, supervisor.DNSProbe(addr, o.probedZone(svc.Name)), nil
	}

	if secondary, ok := o.secondaries[svc.Name]; ok {
		pair, _ := o.pool.Lookup(svc.Name)
		addr := net.JoinHostPort(pair.IPv4.String(), fmt.Sprint(o.cfg.DNS.Port))

		return secondary, supervisor.DNSProbe(addr, "."), nil
	}

	if o.caAuthority != nil && svc.Name == o.cfg.CA.ServiceRef {
		pair, err := o.pool.Assign(svc.Name)
		if err != nil {
			return nil, nil, err
		}

		port := fmt.Sprint(o.cfg.CA.Port)
		service := ca.NewService(svc.Name, o.caAuthority,
			net.JoinHostPort(pair.IPv4.String(), port), net.JoinHostPort(pair.IPv6.String(), port))

		probeURL := fmt.Sprintf("http://%s%s", net.JoinHostPort(pair.IPv4.String(), port), ca.PathRoot)

		return service, supervisor.HTTPProbe(probeURL), nil
	}

	return nil, nil, fmt.Errorf("builtin service '%s' is not referenced by any dns, ca or grid section", svc.Name)
}

// probedZone returns one zone name the service answers for
func (o *orchestrator) probedZone(serviceRef string) string {
	for i := range o.cfg.DNS.Zones {
		if o.cfg.DNS.Zones[i].ServiceRef == serviceRef {
			return o.cfg.DNS.Zones[i].FQDN()
		}
	}

	return "."
}

// containerProbe adapts a configured probe to the mapped port of the
// running container, resolved lazily since the mapping only exists after
// start.
func (o *orchestrator) containerProbe(container *deploy.Container, probe config.Probe) supervisor.Probe {
	return func(ctx context.Context) error {
		addr, err := container.Endpoint(ctx, probe.Port)
		if err != nil {
			return err
		}

		switch probe.Type {
		case config.ProbeTypeHttp:
			return supervisor.HTTPProbe("http://" + addr + probe.Target)(ctx)
		case config.ProbeTypeDns:
			return supervisor.DNSProbe(addr, probe.Target)(ctx)
		case config.ProbeTypeTcp:
			return supervisor.TCPProbe(addr)(ctx)
		}

		return fmt.Errorf("unsupported probe type '%s'", probe.Type)
	}
}

// Execute runs the whole lifecycle: bring-up, chain bootstrap, fixture
// provisioning, test execution and report persistence. The returned error
// always means the environment failed, test verdicts live in the report.
func (o *orchestrator) Execute(ctx context.Context) (*model.RunReport, error) {
	if err := o.apiService.Start(ctx); err != nil {
		return nil, fmt.Errorf("can't start the status API: %w", err)
	}

	defer o.shutdown()

	bringUpCtx, cancel := context.WithTimeout(ctx, o.cfg.BringUpTimeout.ToDuration())
	defer cancel()

	if err := o.registry.StartAll(bringUpCtx); err != nil {
		o.setStatus(model.RunStatusEnvironmentFailed)

		return nil, fmt.Errorf("environment bring-up failed: %w", err)
	}

	if err := o.boot.Bootstrap(bringUpCtx); err != nil {
		o.setStatus(model.RunStatusEnvironmentFailed)

		return nil, fmt.Errorf("trust chain bootstrap failed: %w", err)
	}

	if err := o.registerHosts(bringUpCtx); err != nil {
		o.setStatus(model.RunStatusEnvironmentFailed)

		return nil, err
	}

	targets, roots, err := o.provisionTargets(ctx)
	if err != nil {
		o.setStatus(model.RunStatusEnvironmentFailed)

		return nil, err
	}

	gridClient, err := o.gridClient(ctx)
	if err != nil {
		o.setStatus(model.RunStatusEnvironmentFailed)

		return nil, err
	}

	engine := runner.NewEngine(o.cfg.Tests, o.clk, runner.GridSessions{Client: gridClient})

	o.setStatus(model.RunStatusRunning)

	runReport := engine.Run(ctx, o.buildCases(targets, roots))
	runReport.Environment = o.cfg.Network.Name

	if o.cfg.Tests.Coverage.Enabled {
		if merged, err := runner.MergeCoverage(o.cfg.Tests.Coverage.Dir); err != nil {
			log.PrefixedLog("runner").Warnf("coverage merge failed: %v", err)
		} else {
			runReport.Coverage = merged
		}
	}

	o.setReport(runReport)
	o.writeReport(runReport)

	return runReport, nil
}

func (o *orchestrator) writeReport(runReport *model.RunReport) {
	writer, err := report.NewWriter(o.cfg.Report)
	if err != nil {
		log.PrefixedLog("report").Errorf("can't create report writer: %v", err)

		return
	}

	if err := writer.Write(runReport); err != nil {
		log.PrefixedLog("report").Errorf("can't write report: %v", err)
	}
}

// registerHosts places every name of the run into its zone: the CA
// endpoint and the hostnames of container backed services. Zones are
// delegated at this point, fixture hostnames follow during provisioning.
func (o *orchestrator) registerHosts(ctx context.Context) error {
	if o.cfg.CA.IsEnabled() {
		pair, err := o.caAddresses()
		if err != nil {
			return err
		}

		fqdn := dns.Fqdn(o.cfg.CA.Hostname + "." + o.cfg.CA.ZoneRef)
		if err := o.boot.RegisterHost(ctx, fqdn, pair); err != nil {
			return fmt.Errorf("can't register the CA endpoint: %w", err)
		}
	}

	for name, container := range o.containers {
		fqdn := container.FQDN()
		if fqdn == "" {
			continue
		}

		if err := o.boot.RegisterHost(ctx, fqdn, container.Addresses()); err != nil {
			return fmt.Errorf("can't register service '%s': %w", name, err)
		}
	}

	return nil
}

func (o *orchestrator) caAddresses() (addrpool.Pair, error) {
	if o.caAuthority != nil {
		pair, ok := o.pool.Lookup(o.cfg.CA.ServiceRef)
		if !ok {
			return addrpool.Pair{}, fmt.Errorf("CA service '%s' has no address assignment", o.cfg.CA.ServiceRef)
		}

		return pair, nil
	}

	container, ok := o.containers[o.cfg.CA.ServiceRef]
	if !ok {
		return addrpool.Pair{}, fmt.Errorf("CA service '%s' is not running", o.cfg.CA.ServiceRef)
	}

	return container.Addresses(), nil
}

// caBaseURL returns the issuance endpoint as reachable from this process
func (o *orchestrator) caBaseURL(ctx context.Context) (string, error) {
	if o.caAuthority != nil {
		pair, _ := o.pool.Lookup(o.cfg.CA.ServiceRef)

		return "http://" + net.JoinHostPort(pair.IPv4.String(), fmt.Sprint(o.cfg.CA.Port)), nil
	}

	container, ok := o.containers[o.cfg.CA.ServiceRef]
	if !ok {
		return "", fmt.Errorf("CA service '%s' is not running", o.cfg.CA.ServiceRef)
	}

	endpoint, err := container.Endpoint(ctx, o.cfg.CA.Port)
	if err != nil {
		return "", err
	}

	return "http://" + endpoint, nil
}

// provisionTargets drives the fixture matrix and verifies the builtin
// fixtures answer with their declared capabilities. Per-fixture failures
// stay in the returned targets, only a missing CA fails the run.
func (o *orchestrator) provisionTargets(ctx context.Context) ([]*target.Target, *x509.CertPool, error) {
	if len(o.cfg.Targets.Fixtures) == 0 {
		return nil, nil, nil
	}

	baseURL, err := o.caBaseURL(ctx)
	if err != nil {
		return nil, nil, err
	}

	client := ca.NewClient(baseURL)

	caCert, err := client.RootCertificate(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("can't fetch the CA root: %w", err)
	}

	caHost := strings.TrimSuffix(dns.Fqdn(o.cfg.CA.Hostname+"."+o.cfg.CA.ZoneRef), ".")
	responderURL := fmt.Sprintf("http://%s:%d%s", caHost, o.cfg.CA.Port, ca.PathOCSP)

	provisioner := target.NewProvisioner(o.cfg.Targets, o.clk, client, caCert, o.boot, o.pool, responderURL)
	targets := provisioner.Provision(ctx)
	o.targets = targets

	for _, t := range targets {
		if !t.Ready() || t.Server == nil {
			continue
		}

		addrs := t.Addresses(o.cfg.Targets.Port)
		if err := target.VerifyCapabilities(ctx, addrs[0], t.Fixture.Profile); err != nil {
			t.Err = fmt.Errorf("capability verification failed: %w", err)
			log.PrefixedLog("target").Warnf("fixture '%s': %v", t.Fixture.Name, t.Err)
		}
	}

	roots := x509.NewCertPool()
	roots.AddCert(caCert)

	return targets, roots, nil
}

// gridClient builds the balanced session client over the configured
// endpoints and waits for each of them to report readiness.
func (o *orchestrator) gridClient(ctx context.Context) (*grid.Client, error) {
	endpoints := make([]string, 0, len(o.cfg.Grid.Endpoints)+1)
	endpoints = append(endpoints, o.cfg.Grid.Endpoints...)

	if ref := o.cfg.Grid.ServiceRef; ref != "" {
		container, ok := o.containers[ref]
		if !ok {
			return nil, fmt.Errorf("grid service '%s' must be container backed", ref)
		}

		endpoint, err := container.Endpoint(ctx, o.cfg.Grid.Port)
		if err != nil {
			return nil, err
		}

		endpoints = append(endpoints, "http://"+endpoint)
	}

	client := grid.NewClient(grid.NewBalancer(o.clk, endpoints...),
		o.cfg.Grid.Browser, o.cfg.Grid.SessionTimeout.ToDuration())

	for _, endpoint := range endpoints {
		err := retry.Do(
			func() error { return client.Ready(ctx, endpoint) },
			retry.Attempts(gridReadyAttempts),
			retry.Delay(gridReadyDelay),
			retry.DelayType(retry.FixedDelay),
			retry.Context(ctx),
			retry.LastErrorOnly(true),
		)
		if err != nil {
			return nil, fmt.Errorf("grid endpoint '%s' did not become ready: %w", endpoint, err)
		}
	}

	return client, nil
}

// shutdown tears the environment down in reverse declaration order. The
// builtin fixture servers are provisioned outside the registry and are
// stopped first.
func (o *orchestrator) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	for _, t := range o.targets {
		if t.Server != nil {
			if err := t.Server.Stop(ctx); err != nil {
				log.PrefixedLog("target").Warnf("fixture '%s' did not stop cleanly: %v", t.Fixture.Name, err)
			}
		}
	}

	if err := o.registry.Teardown(ctx); err != nil {
		log.PrefixedLog("supervisor").Warnf("teardown finished with errors: %v", err)
	}

	if err := o.apiService.Stop(ctx); err != nil {
		log.PrefixedLog("api").Warnf("status API did not stop cleanly: %v", err)
	}
}

// RunStatus implements `api.RunControl`.
func (o *orchestrator) RunStatus() api.RunState {
	o.lock.Lock()
	defer o.lock.Unlock()

	state := api.RunState{Status: o.status.String(), StartedAt: o.startedAt}
	if o.report != nil {
		state.RunID = o.report.ID
	}

	return state
}

// RunReport implements `api.RunControl`.
func (o *orchestrator) RunReport() *model.RunReport {
	o.lock.Lock()
	defer o.lock.Unlock()

	return o.report
}

func (o *orchestrator) setStatus(status model.RunStatus) {
	o.lock.Lock()
	defer o.lock.Unlock()

	o.status = status
}

func (o *orchestrator) setReport(runReport *model.RunReport) {
	o.lock.Lock()
	defer o.lock.Unlock()

	o.status = runReport.Status
	o.report = runReport
}

func printBanner() {
	log.Log().Info("_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/")
	log.Log().Info("_/                                                        _/")
	log.Log().Info("_/                 c a n a r y n e t                      _/")
	log.Log().Info("_/        a miniature Internet for your tests             _/")
	log.Log().Info("_/                                                        _/")
	log.Log().Infof("_/  Version: %-18s Build time: %-12s _/", version, buildTime)
	log.Log().Info("_/                                                        _/")
	log.Log().Info("_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/")
}
