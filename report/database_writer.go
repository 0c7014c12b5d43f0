package report

import (
	"fmt"
	"time"

	"github.com/0xERR0R/canarynet/config"
	"github.com/0xERR0R/canarynet/model"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type runEntry struct {
	ID         uint   `gorm:"primaryKey"`
	RunID      string `gorm:"index"`
	Status     string
	Selector   string
	StartedAt  *time.Time
	FinishedAt *time.Time
	DurationMs int64
	Passed     int
	Failed     int
	Errors     int
	Skipped    int
	Cases      []caseEntry `gorm:"foreignKey:RunEntryID"`
}

type caseEntry struct {
	ID         uint `gorm:"primaryKey"`
	RunEntryID uint `gorm:"index"`
	Name       string
	Target     string
	Outcome    string `gorm:"index"`
	Details    string
	StartedAt  *time.Time
	DurationMs int64
}

// DatabaseWriter persists reports through gorm, one row per run plus one
// per case.
type DatabaseWriter struct {
	db *gorm.DB
}

func newDatabaseWriterForType(reportType config.ReportType, target string) (*DatabaseWriter, error) {
	switch reportType {
	case config.ReportTypeSqlite:
		return newDatabaseWriter(sqlite.Open(target))
	case config.ReportTypeMysql:
		return newDatabaseWriter(mysql.Open(target))
	case config.ReportTypePostgresql:
		return newDatabaseWriter(postgres.Open(target))
	default:
		return nil, fmt.Errorf("report type '%s' is not database backed", reportType)
	}
}

func newDatabaseWriter(target gorm.Dialector) (*DatabaseWriter, error) {
	db, err := gorm.Open(target, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("can't create database connection: %w", err)
	}

	if err := db.AutoMigrate(&runEntry{}, &caseEntry{}); err != nil {
		return nil, fmt.Errorf("can't perform auto migration: %w", err)
	}

	return &DatabaseWriter{db: db}, nil
}

// Write implements `Writer`.
func (d *DatabaseWriter) Write(report *model.RunReport) error {
	entry := runEntry{
		RunID:      report.ID,
		Status:     report.Status.String(),
		Selector:   report.Selector,
		StartedAt:  &report.StartedAt,
		FinishedAt: &report.FinishedAt,
		DurationMs: report.Duration.Milliseconds(),
		Passed:     report.Tally.Passed,
		Failed:     report.Tally.Failed,
		Errors:     report.Tally.Errors,
		Skipped:    report.Tally.Skipped,
	}

	for i := range report.Cases {
		c := &report.Cases[i]

		entry.Cases = append(entry.Cases, caseEntry{
			Name:       c.Name,
			Target:     c.Target,
			Outcome:    c.Outcome.String(),
			Details:    c.Details,
			StartedAt:  &c.StartedAt,
			DurationMs: c.Duration.Milliseconds(),
		})
	}

	return d.db.Create(&entry).Error
}
