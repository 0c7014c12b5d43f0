package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/0xERR0R/canarynet/log"
	"github.com/creasty/defaults"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Configurable is a configuration section that knows whether it is
// enabled and can describe itself in the startup log.
type Configurable interface {
	IsEnabled() bool
	LogConfig(*logrus.Entry)
}

// Config is the whole configuration of a single environment run
type Config struct {
	Log            log.Config    `yaml:"log"`
	Network        Network       `yaml:"network"`
	DNS            DNS           `yaml:"dns"`
	CA             CA            `yaml:"ca"`
	Services       []Service     `yaml:"services"`
	Targets        TargetMatrix  `yaml:"targets"`
	Grid           Grid          `yaml:"grid"`
	Tests          Tests         `yaml:"tests"`
	Report         ReportConfig  `yaml:"report"`
	Prometheus     MetricsConfig `yaml:"prometheus"`
	HTTPPort       uint16        `yaml:"httpPort" default:"4000"`
	BringUpTimeout Duration      `yaml:"bringUpTimeout" default:"5m"`
}

// LoadConfig reads the configuration from the YAML file at path. With
// mandatory false a missing file yields the default configuration.
func LoadConfig(path string, mandatory bool) (*Config, error) {
	cfg := Config{}
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("can't apply default values: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !mandatory {
			return &cfg, nil
		}

		return nil, fmt.Errorf("can't read config file: %w", err)
	}

	return unmarshalConfig(data, &cfg)
}

func unmarshalConfig(data []byte, cfg *Config) (*Config, error) {
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("wrong file structure: %w", err)
	}

	setSectionDefaults(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setSectionDefaults fills zero values of list entries, since defaults.Set
// ran before unmarshalling created them.
func setSectionDefaults(cfg *Config) {
	for i := range cfg.Services {
		cfg.Services[i].setDefaults(cfg.BringUpTimeout)
	}

	for i := range cfg.Targets.Fixtures {
		cfg.Targets.Fixtures[i].setDefaults()
	}
}

//nolint:gocognit
func validateConfig(cfg *Config) error {
	var result *multierror.Error

	if err := cfg.Network.validate(); err != nil {
		result = multierror.Append(result, err)
	}

	serviceNames := make(map[string]struct{}, len(cfg.Services))

	for i := range cfg.Services {
		svc := &cfg.Services[i]
		if svc.Name == "" {
			result = multierror.Append(result, fmt.Errorf("service %d has no name", i))

			continue
		}

		if _, ok := serviceNames[svc.Name]; ok {
			result = multierror.Append(result, fmt.Errorf("duplicate service name '%s'", svc.Name))
		}

		serviceNames[svc.Name] = struct{}{}

		if err := svc.validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	// every cross-service reference must name a declared service
	for i := range cfg.Services {
		for _, dep := range cfg.Services[i].DependsOn {
			if _, ok := serviceNames[dep]; !ok {
				result = multierror.Append(result,
					fmt.Errorf("service '%s' depends on unknown service '%s'", cfg.Services[i].Name, dep))
			}
		}
	}

	if err := cfg.DNS.validate(serviceNames); err != nil {
		result = multierror.Append(result, err)
	}

	if err := cfg.CA.validate(serviceNames); err != nil {
		result = multierror.Append(result, err)
	}

	if err := cfg.Targets.validate(cfg.DNS.zoneNames()); err != nil {
		result = multierror.Append(result, err)
	}

	if err := cfg.Grid.validate(serviceNames); err != nil {
		result = multierror.Append(result, err)
	}

	if err := cfg.Tests.validate(); err != nil {
		result = multierror.Append(result, err)
	}

	if cfg.Tests.AppServiceRef != "" {
		if _, ok := serviceNames[cfg.Tests.AppServiceRef]; !ok {
			result = multierror.Append(result,
				fmt.Errorf("tests: references unknown service '%s'", cfg.Tests.AppServiceRef))
		}
	}

	if len(cfg.Targets.Fixtures) > 0 && !cfg.CA.IsEnabled() {
		result = multierror.Append(result, fmt.Errorf("targets: fixtures are configured but no ca section is"))
	}

	if err := cfg.Report.validate(); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// LogConfig writes all enabled sections to the startup log
func (cfg *Config) LogConfig(logger *logrus.Entry) {
	logger.Info("network:")
	cfg.Network.LogConfig(logger)

	logger.Info("dns:")
	cfg.DNS.LogConfig(logger)

	logger.Info("ca:")
	cfg.CA.LogConfig(logger)

	logger.Infof("services (%d):", len(cfg.Services))

	for i := range cfg.Services {
		cfg.Services[i].LogConfig(logger)
	}

	logger.Infof("target fixtures (%d):", len(cfg.Targets.Fixtures))
	cfg.Targets.LogConfig(logger)

	logger.Info("grid:")
	cfg.Grid.LogConfig(logger)

	logger.Info("tests:")
	cfg.Tests.LogConfig(logger)

	logCfg(logger, "report", &cfg.Report)
	logCfg(logger, "prometheus", &cfg.Prometheus)
}

func logCfg(logger *logrus.Entry, name string, c Configurable) {
	if !c.IsEnabled() {
		logger.Infof("%s: disabled", name)

		return
	}

	logger.Infof("%s:", name)
	c.LogConfig(logger)
}
