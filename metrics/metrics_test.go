package metrics

import (
	"github.com/0xERR0R/canarynet/evt"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = BeforeSuite(func() {
	StartCollection()
})

var _ = Describe("Metrics", func() {
	Describe("RegisterMetric", func() {
		It("should expose the metric through the registry", func() {
			g := prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "canarynet_test_gauge",
				Help: "test",
			})
			g.Set(42)

			RegisterMetric(g)

			Expect(gatheredValue("canarynet_test_gauge")).Should(Equal(42.0))
		})
	})

	Describe("event listeners", func() {
		It("should count service state changes", func() {
			evt.Bus().Publish(evt.ServiceStateChanged, "root-ns", "up")
			evt.Bus().Publish(evt.ServiceStateChanged, "root-ns", "up")

			Eventually(func() float64 {
				return gatheredValue("canarynet_service_state_changes_total")
			}).Should(BeNumerically(">=", 2))
		})

		It("should observe delegation attempts", func() {
			evt.Bus().Publish(evt.DelegationPublished, "lab.", uint(3))

			Eventually(func() float64 {
				return gatheredValue("canarynet_delegation_attempts")
			}).Should(BeNumerically(">=", 1))
		})

		It("should count case outcomes", func() {
			evt.Bus().Publish(evt.CaseCompleted, "fixture good.lab.", "passed", 1.5)

			Eventually(func() float64 {
				return gatheredValue("canarynet_case_outcomes_total")
			}).Should(BeNumerically(">=", 1))
		})

		It("should record the build info", func() {
			evt.Bus().Publish(evt.ApplicationStarted, "v1", "today")

			Eventually(func() float64 {
				return gatheredValue("canarynet_build_info")
			}).Should(Equal(1.0))
		})
	})
})

// gatheredValue returns the value of the first sample of the named metric
// family, counting samples for histograms.
func gatheredValue(name string) float64 {
	families, err := Registry().Gather()
	Expect(err).Should(Succeed())

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}

		if len(mf.GetMetric()) == 0 {
			return 0
		}

		m := mf.GetMetric()[0]

		switch mf.GetType() {
		case io_prometheus_client.MetricType_COUNTER:
			return m.GetCounter().GetValue()
		case io_prometheus_client.MetricType_GAUGE:
			return m.GetGauge().GetValue()
		case io_prometheus_client.MetricType_HISTOGRAM:
			return float64(m.GetHistogram().GetSampleCount())
		}
	}

	return 0
}
