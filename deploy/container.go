package deploy

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"github.com/0xERR0R/canarynet/addrpool"
	"github.com/0xERR0R/canarynet/config"
	"github.com/0xERR0R/canarynet/log"

	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
)

// Container runs one image-backed service inside the closed network. The
// network's address pools assign its addresses; after start the runner
// reads them back so the orchestrator can register the hostname with the
// addresses the container actually got.
type Container struct {
	cfg     config.Service
	network *Network
	logger  *logrus.Entry

	container testcontainers.Container
	addrs     addrpool.Pair
}

// NewContainer creates a runner for an image-backed service declaration
func NewContainer(cfg config.Service, net *Network) *Container {
	return &Container{
		cfg:     cfg,
		network: net,
		logger:  log.PrefixedLog("deploy"),
	}
}

// FQDN returns the canonical name the service is registered under, empty
// when the service declares no hostname.
func (c *Container) FQDN() string {
	if c.cfg.Hostname == "" {
		return ""
	}

	return dns.Fqdn(c.cfg.Hostname + "." + c.cfg.ZoneRef)
}

func (c *Container) request() testcontainers.ContainerRequest {
	aliases := []string{c.cfg.Name}
	if c.cfg.Hostname != "" {
		aliases = append(aliases, c.cfg.Hostname)
	}

	req := testcontainers.ContainerRequest{
		Image:          c.cfg.Image,
		Env:            c.cfg.Env,
		Cmd:            c.cfg.Cmd,
		Networks:       []string{c.network.Name()},
		NetworkAliases: map[string][]string{c.network.Name(): aliases},
	}

	if c.cfg.Probe.Port != 0 {
		req.ExposedPorts = []string{fmt.Sprintf("%d/tcp", c.cfg.Probe.Port)}
	}

	return req
}

// Start implements `supervisor.Runner`.
func (c *Container) Start(ctx context.Context) error {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: c.request(),
		Started:          true,
	})
	if err != nil {
		return fmt.Errorf("can't start container '%s': %w", c.cfg.Name, err)
	}

	c.container = container

	c.addrs, err = c.networkAddresses(ctx)
	if err != nil {
		return fmt.Errorf("container '%s': %w", c.cfg.Name, err)
	}

	c.logger.Infof("container '%s' up with %s", c.cfg.Name, c.addrs)

	return nil
}

// Stop implements `supervisor.Runner`.
func (c *Container) Stop(ctx context.Context) error {
	if c.container == nil {
		return nil
	}

	if err := c.container.Terminate(ctx); err != nil {
		return fmt.Errorf("can't terminate container '%s': %w", c.cfg.Name, err)
	}

	c.container = nil

	return nil
}

// Addresses returns the dual-stack pair of the running container
func (c *Container) Addresses() addrpool.Pair {
	return c.addrs
}

// Endpoint returns the host-reachable address of a container port, for
// clients that run in the orchestrator process instead of the network.
func (c *Container) Endpoint(ctx context.Context, port uint16) (string, error) {
	if c.container == nil {
		return "", fmt.Errorf("container '%s' is not running", c.cfg.Name)
	}

	mapped, err := c.container.MappedPort(ctx, nat.Port(fmt.Sprintf("%d/tcp", port)))
	if err != nil {
		return "", fmt.Errorf("container '%s' port %d is not exposed: %w", c.cfg.Name, port, err)
	}

	host, err := c.container.Host(ctx)
	if err != nil {
		return "", err
	}

	return net.JoinHostPort(host, mapped.Port()), nil
}

// networkAddresses reads the addresses the network assigned to the
// container from the docker endpoint of the closed network.
func (c *Container) networkAddresses(ctx context.Context) (addrpool.Pair, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return addrpool.Pair{}, fmt.Errorf("can't create docker client: %w", err)
	}

	defer cli.Close()

	inspect, err := cli.ContainerInspect(ctx, c.container.GetContainerID())
	if err != nil {
		return addrpool.Pair{}, fmt.Errorf("can't inspect container: %w", err)
	}

	settings, ok := inspect.NetworkSettings.Networks[c.network.Name()]
	if !ok {
		return addrpool.Pair{}, fmt.Errorf("container is not attached to network '%s'", c.network.Name())
	}

	return pairFromEndpoint(settings)
}

// pairFromEndpoint extracts the dual-stack pair from a docker endpoint
func pairFromEndpoint(settings *network.EndpointSettings) (addrpool.Pair, error) {
	v4, err := netip.ParseAddr(settings.IPAddress)
	if err != nil {
		return addrpool.Pair{}, fmt.Errorf("endpoint has no usable IPv4 address ('%s'): %w", settings.IPAddress, err)
	}

	v6, err := netip.ParseAddr(settings.GlobalIPv6Address)
	if err != nil {
		return addrpool.Pair{}, fmt.Errorf("endpoint has no usable IPv6 address ('%s'): %w",
			settings.GlobalIPv6Address, err)
	}

	return addrpool.Pair{IPv4: v4, IPv6: v6}, nil
}
