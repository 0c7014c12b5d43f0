package config

import (
	"fmt"
	"net/netip"

	"github.com/sirupsen/logrus"
)

// Network is the configuration of the closed network the environment runs in.
// Both prefixes must be disjoint from anything routable; every address the
// run hands out is carved from them.
type Network struct {
	Name     string `yaml:"name" default:"canarynet"`
	IPv4CIDR string `yaml:"ipv4Cidr" default:"192.168.76.0/24"`
	IPv6CIDR string `yaml:"ipv6Cidr" default:"fd00:6361:6e61::/64"`
}

func (c *Network) validate() error {
	v4, err := netip.ParsePrefix(c.IPv4CIDR)
	if err != nil {
		return fmt.Errorf("network ipv4Cidr '%s' is invalid: %w", c.IPv4CIDR, err)
	}

	if !v4.Addr().Is4() {
		return fmt.Errorf("network ipv4Cidr '%s' is not an IPv4 prefix", c.IPv4CIDR)
	}

	v6, err := netip.ParsePrefix(c.IPv6CIDR)
	if err != nil {
		return fmt.Errorf("network ipv6Cidr '%s' is invalid: %w", c.IPv6CIDR, err)
	}

	if !v6.Addr().Is6() || v6.Addr().Is4In6() {
		return fmt.Errorf("network ipv6Cidr '%s' is not an IPv6 prefix", c.IPv6CIDR)
	}

	return nil
}

// IsEnabled implements `config.Configurable`.
func (c *Network) IsEnabled() bool {
	return true
}

// LogConfig implements `config.Configurable`.
func (c *Network) LogConfig(logger *logrus.Entry) {
	logger.Infof("name = %s", c.Name)
	logger.Infof("ipv4 = %s", c.IPv4CIDR)
	logger.Infof("ipv6 = %s", c.IPv6CIDR)
}
