package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// DNS configures the authoritative tier of the closed network: the zone
// tree, the canary name used for end-to-end chain verification and the
// delegation publication behavior.
type DNS struct {
	Port          uint16      `yaml:"port" default:"53"`
	Zones         []Zone      `yaml:"zones"`
	Canary        string      `yaml:"canary"`
	Publication   Publication `yaml:"publication"`
	VerifyTimeout Duration    `yaml:"verifyTimeout" default:"30s"`
}

// Zone declares one zone of the tree. Parent is empty for the root zone
// only. ServiceRef names the supervised service that answers for the zone;
// SecondaryRefs name supervised services that serve it as secondaries and
// must have completed a zone transfer before the zone counts as available.
type Zone struct {
	Name          string   `yaml:"name"`
	Parent        string   `yaml:"parent"`
	ServiceRef    string   `yaml:"serviceRef"`
	SecondaryRefs []string `yaml:"secondaryRefs"`
}

// Publication bounds the child to parent delegation push.
type Publication struct {
	Attempts     uint     `yaml:"attempts" default:"5"`
	InitialDelay Duration `yaml:"initialDelay" default:"250ms"`
}

// FQDN returns the zone name in canonical form with trailing dot
func (z *Zone) FQDN() string {
	return dnsFQDN(z.Name)
}

func dnsFQDN(name string) string {
	if name == "" || name == "." {
		return "."
	}

	return strings.TrimSuffix(name, ".") + "."
}

//nolint:gocognit
func (c *DNS) validate(serviceNames map[string]struct{}) error {
	var result *multierror.Error

	if len(c.Zones) == 0 {
		return fmt.Errorf("dns: at least one zone is required")
	}

	zones := make(map[string]*Zone, len(c.Zones))
	roots := 0

	for i := range c.Zones {
		z := &c.Zones[i]

		if _, ok := zones[z.FQDN()]; ok {
			result = multierror.Append(result, fmt.Errorf("dns: duplicate zone '%s'", z.Name))
		}

		zones[z.FQDN()] = z

		if z.Parent == "" {
			roots++
		}

		if z.ServiceRef == "" {
			result = multierror.Append(result, fmt.Errorf("dns: zone '%s' has no serviceRef", z.Name))
		} else if _, ok := serviceNames[z.ServiceRef]; !ok {
			result = multierror.Append(result,
				fmt.Errorf("dns: zone '%s' references unknown service '%s'", z.Name, z.ServiceRef))
		}

		for _, sec := range z.SecondaryRefs {
			if _, ok := serviceNames[sec]; !ok {
				result = multierror.Append(result,
					fmt.Errorf("dns: zone '%s' references unknown secondary service '%s'", z.Name, sec))
			}
		}
	}

	if roots != 1 {
		result = multierror.Append(result, fmt.Errorf("dns: exactly one zone without parent is required, got %d", roots))
	}

	for i := range c.Zones {
		z := &c.Zones[i]
		if z.Parent == "" {
			continue
		}

		parent, ok := zones[dnsFQDN(z.Parent)]
		if !ok {
			result = multierror.Append(result,
				fmt.Errorf("dns: zone '%s' references unknown parent zone '%s'", z.Name, z.Parent))

			continue
		}

		if !strings.HasSuffix(z.FQDN(), parent.FQDN()) && parent.FQDN() != "." {
			result = multierror.Append(result,
				fmt.Errorf("dns: zone '%s' is not inside its parent zone '%s'", z.Name, z.Parent))
		}
	}

	if c.Canary == "" {
		result = multierror.Append(result, fmt.Errorf("dns: canary name is required"))
	} else if c.enclosingZone(c.Canary) == nil {
		result = multierror.Append(result,
			fmt.Errorf("dns: canary '%s' is not inside any configured zone", c.Canary))
	}

	if c.Publication.Attempts == 0 {
		result = multierror.Append(result, fmt.Errorf("dns: publication attempts must be above zero"))
	}

	if !c.Publication.InitialDelay.IsAboveZero() {
		result = multierror.Append(result, fmt.Errorf("dns: publication initialDelay must be above zero"))
	}

	return result.ErrorOrNil()
}

func (c *DNS) zoneNames() map[string]struct{} {
	names := make(map[string]struct{}, len(c.Zones))
	for i := range c.Zones {
		names[c.Zones[i].FQDN()] = struct{}{}
	}

	return names
}

// enclosingZone returns the most specific configured zone containing name,
// or nil if no zone encloses it.
func (c *DNS) enclosingZone(name string) *Zone {
	fqdn := dnsFQDN(name)

	var best *Zone

	for i := range c.Zones {
		z := &c.Zones[i]
		if z.FQDN() == "." || strings.HasSuffix(fqdn, "."+z.FQDN()) || fqdn == z.FQDN() {
			if best == nil || len(z.FQDN()) > len(best.FQDN()) {
				best = z
			}
		}
	}

	return best
}

// IsEnabled implements `config.Configurable`.
func (c *DNS) IsEnabled() bool {
	return true
}

// LogConfig implements `config.Configurable`.
func (c *DNS) LogConfig(logger *logrus.Entry) {
	logger.Infof("port = %d", c.Port)
	logger.Infof("canary = %s", c.Canary)
	logger.Infof("publication attempts = %d, initial delay = %s", c.Publication.Attempts, c.Publication.InitialDelay)

	for i := range c.Zones {
		z := &c.Zones[i]
		if z.Parent == "" {
			logger.Infof("zone %s (root) served by '%s'", z.FQDN(), z.ServiceRef)
		} else {
			logger.Infof("zone %s in %s served by '%s', %d secondaries",
				z.FQDN(), dnsFQDN(z.Parent), z.ServiceRef, len(z.SecondaryRefs))
		}
	}
}
