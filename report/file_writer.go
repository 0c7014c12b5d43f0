package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/0xERR0R/canarynet/log"
	"github.com/0xERR0R/canarynet/model"

	"github.com/sirupsen/logrus"
)

const reportFileMode = 0o600

// FileWriter writes one JSON document per run into a target directory
type FileWriter struct {
	target string
	logger *logrus.Entry
}

// NewFileWriter creates a file based writer, the target directory must
// exist.
func NewFileWriter(target string) (*FileWriter, error) {
	if stat, err := os.Stat(target); err != nil || !stat.IsDir() {
		return nil, fmt.Errorf("report directory '%s' does not exist or is not a directory", target)
	}

	return &FileWriter{
		target: target,
		logger: log.PrefixedLog("report"),
	}, nil
}

// Write implements `Writer`.
func (d *FileWriter) Write(report *model.RunReport) error {
	document, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	file := filepath.Join(d.target, fmt.Sprintf("run-%s.json", report.ID))

	if err := os.WriteFile(file, document, reportFileMode); err != nil {
		return err
	}

	d.logger.Infof("report written to %s", file)

	return nil
}
