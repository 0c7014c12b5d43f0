package config

import (
	"fmt"
	"path"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// Tests configures the execution engine: which cases run, how many browser
// sessions run concurrently and when a run gives up.
type Tests struct {
	Selector      string   `yaml:"selector" default:"*"`
	MaxFail       int      `yaml:"maxFail" default:"10"`
	Parallel      uint     `yaml:"parallel" default:"4"`
	CaseTimeout   Duration `yaml:"caseTimeout" default:"90s"`
	AppServiceRef string   `yaml:"appServiceRef"`
	Coverage      Coverage `yaml:"coverage"`
}

// Coverage enables collection of per-case coverage traces and their merge
// into a single artifact.
type Coverage struct {
	Enabled bool   `yaml:"enabled" default:"false"`
	Dir     string `yaml:"dir" default:"coverage"`
}

func (c *Tests) validate() error {
	var result *multierror.Error

	if c.MaxFail <= 0 {
		result = multierror.Append(result, fmt.Errorf("tests: maxFail must be above zero"))
	}

	if c.Parallel == 0 {
		result = multierror.Append(result, fmt.Errorf("tests: parallel must be above zero"))
	}

	if !c.CaseTimeout.IsAboveZero() {
		result = multierror.Append(result, fmt.Errorf("tests: caseTimeout must be above zero"))
	}

	if _, err := path.Match(c.Selector, "probe"); err != nil {
		result = multierror.Append(result, fmt.Errorf("tests: selector '%s' is invalid: %w", c.Selector, err))
	}

	if c.Coverage.Enabled && c.Coverage.Dir == "" {
		result = multierror.Append(result, fmt.Errorf("tests: coverage.dir is required when coverage is enabled"))
	}

	return result.ErrorOrNil()
}

// IsEnabled implements `config.Configurable`.
func (c *Tests) IsEnabled() bool {
	return true
}

// LogConfig implements `config.Configurable`.
func (c *Tests) LogConfig(logger *logrus.Entry) {
	logger.Infof("selector = %s", c.Selector)
	logger.Infof("maxFail = %d, parallel = %d", c.MaxFail, c.Parallel)
	logger.Infof("case timeout = %s", c.CaseTimeout)

	if c.Coverage.Enabled {
		logger.Infof("coverage dir = %s", c.Coverage.Dir)
	}
}
