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
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			metricsEnabledOpt := WithMetricsEnabled(true)
			refreshIntervalOpt := WithRefreshInterval(5 * time.Second)
			customLabelsOpt := WithCustomLabels(map[string]string{"env": "test"})

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
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
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
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
		Convey("When recording scoring pipeline metrics", func() {
			Convey("Then the helpers should not panic", func() {
				So(func() {
					RecordNotificationDecoded()
					RecordDecodeError()
					RecordFusionUpdate()
					RecordResetIssued()
					RecordResultSaved()
				}, ShouldNotPanic)
			})
		})

		Convey("When recording link health metrics", func() {
			Convey("Then the helpers should not panic", func() {
				So(func() {
					UpdateSessionsConnected(2)
					RecordReconnectAttempt()
					RecordHeartbeatFailure()
					RecordLinkFailure("connect")
					RecordLinkFailure("subscribe")
				}, ShouldNotPanic)
			})
		})

		Convey("When recording append pipeline metrics", func() {
			Convey("Then the helpers should not panic", func() {
				So(func() {
					RecordLogAppend()
					RecordLogAppendError()
					UpdateAppendQueueSize(10)
					UpdateAppendQueueCapacity(1000)
					RecordAppendLatency(1.5)
					RecordAppendQueueDrop()
				}, ShouldNotPanic)
			})
		})

		Convey("When recording hub metrics", func() {
			Convey("Then the helpers should not panic", func() {
				So(func() {
					RecordHubPublish()
					RecordHubDrop()
					UpdateHubListeners(3)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording HTTP and error metrics", func() {
			Convey("Then the helpers should not panic", func() {
				So(func() {
					RecordHTTPRequest("setup", "POST", "200")
					RecordHTTPRequestDuration("setup", "POST", "200", 12.0)
					RecordErrorByComponent("session", "link_failure")
					RecordErrorByType("link_failure", "medium")
					RecordErrorByEndpoint("setup", "POST", "client_error")
					RecordErrorLatency("session", "link_failure", 5.0)
				}, ShouldNotPanic)
			})
		})

		Convey("When recording system metrics", func() {
			Convey("Then the helpers should not panic", func() {
				So(func() {
					UpdateSystemMemoryUsage(1024)
					UpdateSystemGoroutineCount(42)
					RecordSystemGCPauseTime(0.5)
				}, ShouldNotPanic)
			})
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the global registry", t, func() {
		Convey("When getting the registry", func() {
			registry := GetRegistry()

			Convey("Then it should not be nil", func() {
				So(registry, ShouldNotBeNil)
			})

			Convey("And gathering should succeed", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldNotBeNil)
			})
		})
	})
}
