package report

import (
	"github.com/0xERR0R/canarynet/log"
	"github.com/0xERR0R/canarynet/model"

	"github.com/sirupsen/logrus"
)

const loggerPrefixLoggerWriter = "report"

// LoggerWriter writes the report into the application log
type LoggerWriter struct {
	logger *logrus.Entry
}

// NewLoggerWriter creates a log based writer
func NewLoggerWriter() *LoggerWriter {
	return &LoggerWriter{logger: log.PrefixedLog(loggerPrefixLoggerWriter)}
}

// Write implements `Writer`.
func (d *LoggerWriter) Write(report *model.RunReport) error {
	d.logger.WithFields(
		logrus.Fields{
			"run":      report.ID,
			"status":   report.Status,
			"selector": report.Selector,
			"passed":   report.Tally.Passed,
			"failed":   report.Tally.Failed,
			"errors":   report.Tally.Errors,
			"skipped":  report.Tally.Skipped,
			"duration": report.Duration,
		},
	).Infof("run finished")

	for i := range report.Cases {
		c := &report.Cases[i]

		d.logger.WithFields(
			logrus.Fields{
				"case":    c.Name,
				"outcome": c.Outcome,
				"time_ms": c.Duration.Milliseconds(),
			},
		).Infof("%s", c.Details)
	}

	return nil
}
