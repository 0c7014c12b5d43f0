package config

//go:generate go run github.com/abice/go-enum -f=$GOFILE --marshal --names

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// ReportType sink for run reports ENUM(
// logger // write the report to the application log
// file // one JSON document per run in the target directory
// sqlite // sqlite database file at target
// mysql // external mysql database, target is the DSN
// postgresql // external postgresql database, target is the DSN
// none // discard the report
// )
type ReportType int

// ReportConfig configures where the aggregated run report is written.
type ReportConfig struct {
	Type             ReportType `yaml:"type" default:"file"`
	Target           string     `yaml:"target" default:"reports"`
	CreationAttempts uint       `yaml:"creationAttempts" default:"3"`
	CreationCooldown Duration   `yaml:"creationCooldown" default:"2s"`
}

func (c *ReportConfig) validate() error {
	var result *multierror.Error

	switch c.Type {
	case ReportTypeLogger, ReportTypeNone:
	case ReportTypeFile, ReportTypeSqlite, ReportTypeMysql, ReportTypePostgresql:
		if c.Target == "" {
			result = multierror.Append(result, fmt.Errorf("report: target is required for type %s", c.Type))
		}
	}

	if c.CreationAttempts == 0 {
		result = multierror.Append(result, fmt.Errorf("report: creationAttempts must be above zero"))
	}

	return result.ErrorOrNil()
}

// IsEnabled implements `config.Configurable`.
func (c *ReportConfig) IsEnabled() bool {
	return c.Type != ReportTypeNone
}

// LogConfig implements `config.Configurable`.
func (c *ReportConfig) LogConfig(logger *logrus.Entry) {
	logger.Infof("type = %s", c.Type)

	if c.Target != "" {
		logger.Infof("target = %s", c.Target)
	}
}

// UnmarshalYAML implements `yaml.Unmarshaler`.
func (x *ReportType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var input string
	if err := unmarshal(&input); err != nil {
		return err
	}

	return x.UnmarshalText([]byte(input))
}
