package config

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// Grid configures the browser automation grid the engine drives. Either
// Endpoints lists running grid URLs, or ServiceRef names a supervised
// container that provides the grid inside the closed network.
type Grid struct {
	Endpoints      []string `yaml:"endpoints"`
	ServiceRef     string   `yaml:"serviceRef"`
	Port           uint16   `yaml:"port" default:"4444"`
	Browser        string   `yaml:"browser" default:"chromium"`
	SessionTimeout Duration `yaml:"sessionTimeout" default:"60s"`
}

func (c *Grid) validate(serviceNames map[string]struct{}) error {
	var result *multierror.Error

	if len(c.Endpoints) == 0 && c.ServiceRef == "" {
		result = multierror.Append(result, fmt.Errorf("grid: endpoints or serviceRef is required"))
	}

	if c.ServiceRef != "" {
		if _, ok := serviceNames[c.ServiceRef]; !ok {
			result = multierror.Append(result, fmt.Errorf("grid: references unknown service '%s'", c.ServiceRef))
		}
	}

	if !c.SessionTimeout.IsAboveZero() {
		result = multierror.Append(result, fmt.Errorf("grid: sessionTimeout must be above zero"))
	}

	return result.ErrorOrNil()
}

// IsEnabled implements `config.Configurable`.
func (c *Grid) IsEnabled() bool {
	return len(c.Endpoints) > 0 || c.ServiceRef != ""
}

// LogConfig implements `config.Configurable`.
func (c *Grid) LogConfig(logger *logrus.Entry) {
	if c.ServiceRef != "" {
		logger.Infof("service = %s (port %d)", c.ServiceRef, c.Port)
	}

	for _, ep := range c.Endpoints {
		logger.Infof("endpoint = %s", ep)
	}

	logger.Infof("browser = %s, session timeout = %s", c.Browser, c.SessionTimeout)
}
