package config

//go:generate go run github.com/abice/go-enum -f=$GOFILE --marshal --names

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// ServiceKind kind of a supervised service ENUM(
// runtime // long-running service with a health probe
// build // produces an artifact, satisfied once the build succeeded
// )
type ServiceKind int

// ProbeType health probe flavor ENUM(
// tcp // TCP connect to the service address
// http // HTTP GET, healthy on status < 500
// dns // DNS query against the service address
// )
type ProbeType int

// Service declares one supervised node of the environment. A service with
// neither image nor build section is backed by a built-in component and
// must be referenced by the dns, ca or grid section.
type Service struct {
	Name         string            `yaml:"name"`
	Kind         ServiceKind       `yaml:"kind" default:"runtime"`
	Image        string            `yaml:"image"`
	Build        Build             `yaml:"build"`
	DependsOn    []string          `yaml:"dependsOn"`
	Env          map[string]string `yaml:"env"`
	Cmd          []string          `yaml:"cmd"`
	Hostname     string            `yaml:"hostname"`
	ZoneRef      string            `yaml:"zoneRef"`
	Probe        Probe             `yaml:"probe"`
	StartTimeout Duration          `yaml:"startTimeout"`
}

// Build describes a build-only artifact, currently a container image built
// from a local context.
type Build struct {
	Context    string `yaml:"context"`
	Dockerfile string `yaml:"dockerfile" default:"Dockerfile"`
	Tag        string `yaml:"tag"`
}

// Probe is an externally supplied readiness predicate for a service.
type Probe struct {
	Type     ProbeType `yaml:"type" default:"tcp"`
	Target   string    `yaml:"target"`
	Port     uint16    `yaml:"port"`
	Interval Duration  `yaml:"interval"`
}

func (c *Service) setDefaults(bringUp Duration) {
	if c.StartTimeout == 0 {
		c.StartTimeout = Duration(bringUp.ToDuration() / 2)
	}

	if c.Probe.Interval == 0 {
		c.Probe.Interval = Duration(500 * time.Millisecond)
	}
}

func (c *Service) validate() error {
	var result *multierror.Error

	if c.Kind == ServiceKindBuild {
		if c.Image != "" {
			result = multierror.Append(result, fmt.Errorf("service '%s': build services can't have an image", c.Name))
		}

		if c.Build.Context == "" || c.Build.Tag == "" {
			result = multierror.Append(result,
				fmt.Errorf("service '%s': build services need build.context and build.tag", c.Name))
		}
	}

	if (c.Hostname == "") != (c.ZoneRef == "") {
		result = multierror.Append(result,
			fmt.Errorf("service '%s': hostname and zoneRef must be set together", c.Name))
	}

	if c.Image != "" && c.Kind == ServiceKindRuntime && c.Probe.Type == ProbeTypeHttp && c.Probe.Target == "" {
		result = multierror.Append(result,
			fmt.Errorf("service '%s': http probe needs a target path", c.Name))
	}

	return result.ErrorOrNil()
}

// IsBuiltin is true when no container backs this service
func (c *Service) IsBuiltin() bool {
	return c.Image == "" && c.Kind != ServiceKindBuild
}

// LogConfig implements `config.Configurable`.
func (c *Service) LogConfig(logger *logrus.Entry) {
	switch {
	case c.Kind == ServiceKindBuild:
		logger.Infof("  %s (build %s -> %s)", c.Name, c.Build.Context, c.Build.Tag)
	case c.IsBuiltin():
		logger.Infof("  %s (builtin), depends on %v", c.Name, c.DependsOn)
	default:
		logger.Infof("  %s (image %s), depends on %v", c.Name, c.Image, c.DependsOn)
	}
}

// UnmarshalYAML implements `yaml.Unmarshaler`.
func (x *ServiceKind) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var input string
	if err := unmarshal(&input); err != nil {
		return err
	}

	return x.UnmarshalText([]byte(input))
}

// UnmarshalYAML implements `yaml.Unmarshaler`.
func (x *ProbeType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var input string
	if err := unmarshal(&input); err != nil {
		return err
	}

	return x.UnmarshalText([]byte(input))
}
