package log

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Logger", func() {
	AfterEach(func() {
		ConfigureLogger(Config{Level: LevelInfo, Format: FormatTypeText, Timestamp: true})
		Silence()
	})

	Describe("ConfigureLogger", func() {
		It("should apply the configured level", func() {
			ConfigureLogger(Config{Level: LevelDebug, Format: FormatTypeText})

			Expect(Log().IsLevelEnabled(logrus.DebugLevel)).Should(BeTrue())
		})

		It("should use the json formatter for json format", func() {
			ConfigureLogger(Config{Level: LevelInfo, Format: FormatTypeJson})

			Expect(Log().Formatter).Should(BeAssignableToTypeOf(instanceIdLogger{}))
		})
	})

	Describe("PrefixedLog", func() {
		It("should carry the prefix field", func() {
			entry := PrefixedLog("supervisor")

			Expect(entry.Data).Should(HaveKeyWithValue("prefix", "supervisor"))
		})
	})

	Describe("instanceIdLogger", func() {
		It("should stamp entries with the instance id", func() {
			formatter := instanceIdLogger{formatter: &logrus.JSONFormatter{}}

			out, err := formatter.Format(logrus.WithField("k", "v"))
			Expect(err).Should(Succeed())

			var fields map[string]interface{}
			Expect(json.Unmarshal(out, &fields)).Should(Succeed())
			Expect(fields).Should(HaveKey("instanceId"))
			Expect(fields["instanceId"]).ShouldNot(BeEmpty())
		})
	})
})
