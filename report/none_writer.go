package report

import "github.com/0xERR0R/canarynet/model"

// NoneWriter discards the report
type NoneWriter struct{}

// NewNoneWriter creates a no-op writer
func NewNoneWriter() *NoneWriter {
	return &NoneWriter{}
}

// Write implements `Writer`.
func (d *NoneWriter) Write(_ *model.RunReport) error {
	return nil
}
