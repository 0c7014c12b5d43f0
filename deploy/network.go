package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/0xERR0R/canarynet/config"
	"github.com/0xERR0R/canarynet/log"

	"github.com/docker/docker/api/types/network"
	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
)

// Network is the closed docker network all container-backed services join.
// Its address pools are the same prefixes the builtin address pool carves
// from, so container addresses and builtin addresses never collide with
// anything routable. It implements `supervisor.Runner` and is declared as
// the dependency of every container-backed service.
type Network struct {
	cfg    config.Network
	name   string
	logger *logrus.Entry

	network testcontainers.Network
}

// NewNetwork creates the network runner. The docker network name carries a
// run-unique suffix so concurrent runs on one host don't collide.
func NewNetwork(cfg config.Network) *Network {
	return &Network{
		cfg:    cfg,
		name:   fmt.Sprintf("%s-%d", cfg.Name, time.Now().Unix()),
		logger: log.PrefixedLog("deploy"),
	}
}

// Name returns the docker network name containers have to join
func (n *Network) Name() string {
	return n.name
}

// Start implements `supervisor.Runner`.
func (n *Network) Start(ctx context.Context) error {
	net, err := testcontainers.GenericNetwork(ctx, testcontainers.GenericNetworkRequest{
		NetworkRequest: testcontainers.NetworkRequest{
			Name:           n.name,
			Driver:         "bridge",
			CheckDuplicate: true,
			Attachable:     true,
			EnableIPv6:     true,
			IPAM: &network.IPAM{
				Driver: "default",
				Config: []network.IPAMConfig{
					{Subnet: n.cfg.IPv4CIDR},
					{Subnet: n.cfg.IPv6CIDR},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("can't create network '%s': %w", n.name, err)
	}

	n.network = net
	n.logger.Infof("network '%s' up (%s, %s)", n.name, n.cfg.IPv4CIDR, n.cfg.IPv6CIDR)

	return nil
}

// Stop implements `supervisor.Runner`.
func (n *Network) Stop(ctx context.Context) error {
	if n.network == nil {
		return nil
	}

	if err := n.network.Remove(ctx); err != nil {
		return fmt.Errorf("can't remove network '%s': %w", n.name, err)
	}

	n.network = nil

	return nil
}
