package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			metricPrefixOpt := WithMetricPrefix("test-prefix")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			metricsEnabledOpt := WithMetricsEnabled(true)
			refreshIntervalOpt := WithRefreshInterval(5 * time.Second)
			customLabelsOpt := WithCustomLabels(map[string]string{"env": "test"})

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(metricPrefixOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(metricsEnabledOpt, ShouldNotBeNil)
				So(refreshIntervalOpt, ShouldNotBeNil)
				So(customLabelsOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewMetricsManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewMetricsManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithMetricPrefix("test-prefix"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(10*time.Second),
				WithCustomLabels(map[string]string{"env": "test", "version": "1.0"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given metrics recording", t, func() {
		Convey("When recording matching metrics", func() {
			Convey("Then it should record match runs", func() {
				So(func() {
					RecordMatchRun("exact_fit")
					RecordMatchRun("exact_fit")
					RecordMatchFallback()
					RecordMatchNotReady()
				}, ShouldNotPanic)
			})

			Convey("And it should record matching latency", func() {
				So(func() {
					RecordMatchingLatency(2.5)
					RecordMatchingLatency(10.0)
				}, ShouldNotPanic)
			})

			Convey("And it should record stale entries and removals", func() {
				So(func() {
					RecordStaleEntries(3)
					RecordStaleEntries(0)
					RecordMemberRemoved("duplicate_owner")
					RecordMemberRemoved("duplicate_hero")
				}, ShouldNotPanic)
			})
		})

		Convey("When recording session metrics", func() {
			Convey("Then it should record warnings and escalations", func() {
				So(func() {
					RecordWarningIssued()
					RecordProxyEscalation()
					RecordDropInSeated()
					UpdateLiveSessions(4)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording persistence metrics", func() {
			Convey("Then it should record stored events and failures", func() {
				So(func() {
					RecordEventPersisted()
					RecordPersistError()
					RecordPersistLatency(1.25)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording queue metrics", func() {
			Convey("Then it should record queue traffic", func() {
				So(func() {
					RecordQueueEnqueue()
					RecordQueueEnqueueError("queue_full")
					RecordQueueDequeue()
				}, ShouldNotPanic)
			})

			Convey("And it should update queue gauges", func() {
				So(func() {
					UpdateQueueSize(100)
					UpdateQueueCapacity(1000)
					UpdateQueueUtilization(0.1)
					UpdateWorkerCount(8)
				}, ShouldNotPanic)
			})
		})
	})
}

func TestMetricsRegistry(t *testing.T) {
	Convey("Given the process registry", t, func() {
		Convey("When gathering", func() {
			families, err := Registry().Gather()

			Convey("Then the registered metrics are present", func() {
				So(err, ShouldBeNil)
				So(families, ShouldNotBeNil)
			})
		})
	})
}
