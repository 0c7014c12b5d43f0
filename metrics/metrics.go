package metrics

import (
	"github.com/0xERR0R/canarynet/evt"
	"github.com/0xERR0R/canarynet/util"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

//nolint:gochecknoglobals
var reg = prometheus.NewRegistry()

// RegisterMetric registers prometheus collector
func RegisterMetric(c prometheus.Collector) {
	_ = reg.Register(c)
}

// Registry returns the private registry, exposed via the status API
func Registry() *prometheus.Registry {
	return reg
}

// StartCollection starts prometheus collection and event listening
func StartCollection() {
	_ = reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	_ = reg.Register(collectors.NewGoCollector())

	registerEventListeners()
}

func registerEventListeners() {
	registerSupervisorEventListeners()
	registerChainEventListeners()
	registerRunnerEventListeners()
	registerApplicationEventListeners()
}

func registerSupervisorEventListeners() {
	serviceStateChanges := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canarynet_service_state_changes_total",
			Help: "Number of service state transitions",
		}, []string{"service", "state"},
	)

	RegisterMetric(serviceStateChanges)

	subscribe(evt.ServiceStateChanged, func(service, state string) {
		serviceStateChanges.WithLabelValues(service, state).Inc()
	})
}

func registerChainEventListeners() {
	zonePhaseChanges := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canarynet_zone_phase_changes_total",
			Help: "Number of zone phase transitions",
		}, []string{"zone", "phase"},
	)

	delegationRetries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canarynet_delegation_retries_total",
			Help: "Number of retried delegation pushes",
		}, []string{"zone"},
	)

	delegationAttempts := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "canarynet_delegation_attempts",
			Help:    "Attempts needed until a parent acknowledged a delegation",
			Buckets: []float64{1, 2, 3, 5, 8},
		}, []string{"zone"},
	)

	RegisterMetric(zonePhaseChanges)
	RegisterMetric(delegationRetries)
	RegisterMetric(delegationAttempts)

	subscribe(evt.ZonePhaseChanged, func(zone, phase string) {
		zonePhaseChanges.WithLabelValues(zone, phase).Inc()
	})

	subscribe(evt.DelegationRetried, func(zone string) {
		delegationRetries.WithLabelValues(zone).Inc()
	})

	subscribe(evt.DelegationPublished, func(zone string, attempts uint) {
		delegationAttempts.WithLabelValues(zone).Observe(float64(attempts))
	})
}

func registerRunnerEventListeners() {
	caseOutcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canarynet_case_outcomes_total",
			Help: "Number of finished cases by outcome",
		}, []string{"outcome"},
	)

	caseDurations := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "canarynet_case_duration_seconds",
			Help:    "Duration of executed cases",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	runDuration := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "canarynet_run_duration_seconds",
			Help: "Duration of the whole run by final status",
		}, []string{"status"},
	)

	RegisterMetric(caseOutcomes)
	RegisterMetric(caseDurations)
	RegisterMetric(runDuration)

	subscribe(evt.CaseCompleted, func(name, outcome string, seconds float64) {
		caseOutcomes.WithLabelValues(outcome).Inc()
		caseDurations.Observe(seconds)
	})

	subscribe(evt.RunCompleted, func(status string, seconds float64) {
		runDuration.WithLabelValues(status).Set(seconds)
	})
}

func registerApplicationEventListeners() {
	buildInfo := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "canarynet_build_info",
			Help: "Build information",
		}, []string{"version", "build_time"},
	)

	RegisterMetric(buildInfo)

	subscribe(evt.ApplicationStarted, func(version, buildTime string) {
		buildInfo.WithLabelValues(version, buildTime).Set(1)
	})
}

func subscribe(topic string, fn interface{}) {
	util.FatalOnError("can't subscribe topic: ", evt.Bus().Subscribe(topic, fn))
}
