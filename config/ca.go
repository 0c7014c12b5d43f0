package config

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// CA configures the issuing certificate authority of the run. Hostname is
// the DNS name of the issuance and OCSP HTTP endpoint and must live inside
// ZoneRef so that fixtures can carry resolvable responder URLs.
type CA struct {
	ServiceRef string   `yaml:"serviceRef"`
	Hostname   string   `yaml:"hostname"`
	ZoneRef    string   `yaml:"zoneRef"`
	Port       uint16   `yaml:"port" default:"80"`
	Validity   Duration `yaml:"validity" default:"72h"`
	CommonName string   `yaml:"commonName" default:"canarynet root CA"`
}

func (c *CA) validate(serviceNames map[string]struct{}) error {
	if !c.IsEnabled() {
		return nil
	}

	var result *multierror.Error

	if _, ok := serviceNames[c.ServiceRef]; !ok {
		result = multierror.Append(result, fmt.Errorf("ca: references unknown service '%s'", c.ServiceRef))
	}

	if c.Hostname == "" || c.ZoneRef == "" {
		result = multierror.Append(result, fmt.Errorf("ca: hostname and zoneRef are required"))
	}

	if !c.Validity.IsAboveZero() {
		result = multierror.Append(result, fmt.Errorf("ca: validity must be above zero"))
	}

	return result.ErrorOrNil()
}

// IsEnabled implements `config.Configurable`.
func (c *CA) IsEnabled() bool {
	return c.ServiceRef != ""
}

// LogConfig implements `config.Configurable`.
func (c *CA) LogConfig(logger *logrus.Entry) {
	logger.Infof("service = %s", c.ServiceRef)
	logger.Infof("hostname = %s (zone %s), port %d", c.Hostname, c.ZoneRef, c.Port)
	logger.Infof("validity = %s", c.Validity)
}
