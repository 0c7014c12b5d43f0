package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/0xERR0R/canarynet/config"
	"github.com/0xERR0R/canarynet/helpertest"
	"github.com/0xERR0R/canarynet/model"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
)

func sampleReport() *model.RunReport {
	started := time.Now().Add(-time.Minute)
	finished := time.Now()

	return &model.RunReport{
		ID:         "9e51b3f2-0000-4000-8000-000000000001",
		Status:     model.RunStatusFailed,
		Selector:   "*",
		StartedAt:  started,
		FinishedAt: finished,
		Duration:   finished.Sub(started),
		Tally:      model.Tally{Passed: 1, Failed: 1},
		Cases: []model.CaseResult{
			{Name: "login", Outcome: model.CaseOutcomePassed, StartedAt: started, Duration: time.Second},
			{
				Name: "checkout", Outcome: model.CaseOutcomeFailed,
				Details: "missing banner", StartedAt: started, Duration: 2 * time.Second,
			},
		},
	}
}

var _ = Describe("Report writers", func() {
	Describe("file writer", func() {
		var folder *helpertest.TmpFolder

		BeforeEach(func() {
			folder = helpertest.NewTmpFolder("reports")
			DeferCleanup(folder.Clean)
		})

		It("should write one JSON document per run", func() {
			writer, err := NewFileWriter(folder.Path)
			Expect(err).Should(Succeed())

			report := sampleReport()
			Expect(writer.Write(report)).Should(Succeed())

			raw, err := os.ReadFile(filepath.Join(folder.Path, "run-"+report.ID+".json"))
			Expect(err).Should(Succeed())

			var restored model.RunReport
			Expect(json.Unmarshal(raw, &restored)).Should(Succeed())
			Expect(restored.ID).Should(Equal(report.ID))
			Expect(restored.Tally).Should(Equal(report.Tally))
			Expect(restored.Cases).Should(HaveLen(2))
		})

		It("should refuse a missing target directory", func() {
			_, err := NewFileWriter(folder.JoinPath("missing"))
			Expect(err).Should(MatchError(ContainSubstring("does not exist")))
		})
	})

	Describe("database writer", func() {
		It("should persist the run with its cases", func() {
			writer, err := newDatabaseWriter(sqlite.Open("file::memory:"))
			Expect(err).Should(Succeed())

			Expect(writer.Write(sampleReport())).Should(Succeed())

			var runs int64
			Expect(writer.db.Model(&runEntry{}).Count(&runs).Error).Should(Succeed())
			Expect(runs).Should(BeNumerically("==", 1))

			var cases int64
			Expect(writer.db.Model(&caseEntry{}).Count(&cases).Error).Should(Succeed())
			Expect(cases).Should(BeNumerically("==", 2))

			var failed caseEntry
			Expect(writer.db.Where("outcome = ?", "failed").First(&failed).Error).Should(Succeed())
			Expect(failed.Name).Should(Equal("checkout"))
			Expect(failed.Details).Should(Equal("missing banner"))
		})
	})

	Describe("writer selection", func() {
		It("should build the configured writer", func() {
			writer, err := NewWriter(config.ReportConfig{Type: config.ReportTypeLogger, CreationAttempts: 1})
			Expect(err).Should(Succeed())
			Expect(writer).Should(BeAssignableToTypeOf(&LoggerWriter{}))

			writer, err = NewWriter(config.ReportConfig{Type: config.ReportTypeNone, CreationAttempts: 1})
			Expect(err).Should(Succeed())
			Expect(writer).Should(BeAssignableToTypeOf(&NoneWriter{}))
		})

		It("should discard through the none writer", func() {
			Expect(NewNoneWriter().Write(sampleReport())).Should(Succeed())
		})

		It("should log through the logger writer", func() {
			Expect(NewLoggerWriter().Write(sampleReport())).Should(Succeed())
		})
	})
})
