package report

import (
	"fmt"

	"github.com/0xERR0R/canarynet/config"
	"github.com/0xERR0R/canarynet/model"

	"github.com/avast/retry-go/v4"
)

// Writer persists one finished run report
type Writer interface {
	Write(report *model.RunReport) error
}

// NewWriter creates the writer the configuration selects. Database
// targets may still be starting when the run begins, creation is retried
// with the configured cooldown.
func NewWriter(cfg config.ReportConfig) (Writer, error) {
	switch cfg.Type {
	case config.ReportTypeLogger:
		return NewLoggerWriter(), nil

	case config.ReportTypeNone:
		return NewNoneWriter(), nil

	case config.ReportTypeFile:
		return NewFileWriter(cfg.Target)

	case config.ReportTypeSqlite, config.ReportTypeMysql, config.ReportTypePostgresql:
		var writer Writer

		err := retry.Do(
			func() error {
				var err error
				writer, err = newDatabaseWriterForType(cfg.Type, cfg.Target)

				return err
			},
			retry.Attempts(cfg.CreationAttempts),
			retry.Delay(cfg.CreationCooldown.ToDuration()),
			retry.LastErrorOnly(true),
		)

		return writer, err
	}

	return nil, fmt.Errorf("unsupported report type '%s'", cfg.Type)
}
