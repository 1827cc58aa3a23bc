package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/uxlens/uxlens/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a manager on an isolated registry", t, func() {
		reg := prometheus.NewRegistry()
		m := metrics.NewManager(
			metrics.WithNamespace("test"),
			metrics.WithSubsystem("report"),
			metrics.WithPrometheusRegistry(reg),
		)

		Convey("When the manager initializes", func() {
			Convey("Then it registers its metric families", func() {
				So(m, ShouldNotBeNil)
				families, err := reg.Gather()
				So(err, ShouldBeNil)
				// CounterVec/HistogramVec families appear only after first
				// use, plain counters and gauges register up front.
				So(len(families), ShouldBeGreaterThan, 10)
			})
		})

		Convey("When building two managers on the same registry", func() {
			Convey("Then the duplicate registration panics, by prometheus contract", func() {
				So(func() {
					metrics.NewManager(
						metrics.WithNamespace("test"),
						metrics.WithSubsystem("report"),
						metrics.WithPrometheusRegistry(reg),
					)
				}, ShouldPanic)
			})
		})
	})

	Convey("Given the package-level helpers and global registry", t, func() {
		Convey("When recording a mix of metrics", func() {
			metrics.RecordEventIngested()
			metrics.RecordEventDuplicate()
			metrics.RecordEventInvalid()
			metrics.UpdateQueueSize(3)
			metrics.UpdateQueueCapacity(100)
			metrics.UpdateQueueUtilization(0.03)
			metrics.RecordQueueEnqueue()
			metrics.RecordQueueDequeue()
			metrics.RecordQueueEnqueueError()
			metrics.RecordQueueProcessingLatency(1.5)
			metrics.UpdateWorkerActiveCount(4)
			metrics.RecordWorkerProcessingLatency(2.0)
			metrics.RecordWorkerError()
			metrics.RecordStoreWriteLatency(0.5)
			metrics.RecordStoreQueryLatency(0.7)
			metrics.UpdateStoredEvents(42)
			metrics.RecordSessionClassified("completed")
			metrics.RecordReportBuilt("summary")
			metrics.RecordReportDuration("summary", 12)
			metrics.RecordRasterDuration(30)
			metrics.RecordHTTPRequest("events", "POST", "202")
			metrics.RecordHTTPRequestDuration("events", "POST", "202", 3)
			metrics.RecordErrorByComponent("worker", "store_error")
			metrics.UpdateSystemMemoryUsage(1 << 20)
			metrics.UpdateSystemGoroutineCount(12)
			metrics.RecordSystemGCPauseTime(0.2)

			Convey("Then the global registry gathers without errors", func() {
				families, err := metrics.GetRegistry().Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 15)
			})
		})
	})
}
