package metrics

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should register the collectors there", func() {
				So(manager, ShouldNotBeNil)
				manager.reportsSubmitted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("sake"),
				WithSubsystem("night"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"event": "autumn"}),
				WithPrometheusRegistry(registry),
			)
			manager.reportsSubmitted.Inc()

			Convey("Then names and labels should follow the options", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "sake_night_reports_submitted_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "autumn")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When options receive empty values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithConstLabels(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "tasting")
				So(manager.subsystem, ShouldEqual, "aggregator")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording report lifecycle metrics", func() {
			before := testutil.ToFloat64(globalManager.reportsSubmitted)
			RecordReportSubmitted()
			RecordReportSubmitted()
			RecordReportReplaced()
			RecordReportDeleted()
			RecordReportDuplicate()

			Convey("Then the counters should advance", func() {
				So(testutil.ToFloat64(globalManager.reportsSubmitted)-before, ShouldEqual, 2)
			})
		})

		Convey("When recording leaderboard metrics", func() {
			So(func() {
				RecordLeaderboardBuild("items", 1.5)
				RecordLeaderboardBuild("participants", 0.7)
				RecordLeaderboardError("items")
				UpdateTotalItems(12)
				UpdateTotalReports(40)
				UpdateTotalParticipants(9)
			}, ShouldNotPanic)

			Convey("Then gauges should hold the last value", func() {
				So(testutil.ToFloat64(globalManager.totalItems), ShouldEqual, 12)
				So(testutil.ToFloat64(globalManager.totalReports), ShouldEqual, 40)
				So(testutil.ToFloat64(globalManager.totalParticipants), ShouldEqual, 9)
			})
		})

		Convey("When recording label inference outcomes", func() {
			before := testutil.ToFloat64(globalManager.labelInferences.WithLabelValues("matched"))
			RecordLabelInference(true)
			RecordLabelInference(false)

			Convey("Then each outcome is counted separately", func() {
				So(testutil.ToFloat64(globalManager.labelInferences.WithLabelValues("matched"))-before, ShouldEqual, 1)
			})
		})

		Convey("When recording store metrics", func() {
			before := testutil.ToFloat64(globalManager.storeOpErrors.WithLabelValues("memory", "get"))
			RecordStoreOperation("memory", "get", 0.2)
			RecordStoreError("memory", "get")

			Convey("Then the error counter is labelled by backend and op", func() {
				So(testutil.ToFloat64(globalManager.storeOpErrors.WithLabelValues("memory", "get"))-before, ShouldEqual, 1)
			})
		})

		Convey("When recording aggregation, queue and worker metrics", func() {
			So(func() {
				RecordRecomputeLatency(3.2)
				RecordRecomputeError()
				UpdateQueueSize(3)
				UpdateQueueCapacity(10)
				UpdateQueueUtilization(0.3)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(1.1)
				UpdateWorkerCount(4)
				UpdateWorkerActiveCount(4)
				UpdateWorkerIdleCount(0)
				RecordWorkerProcessingLatency(2.0)
				RecordWorkerError()
			}, ShouldNotPanic)
			So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 10)
		})

		Convey("When recording HTTP, error and system metrics", func() {
			So(func() {
				RecordHTTPRequest("/community", "GET", "200")
				RecordHTTPRequestDuration("/community", "GET", "200", 12.5)
				RecordErrorByComponent("repository", "unavailable")
				RecordErrorByType("client_error", "medium")
				RecordErrorByEndpoint("/items", "POST", "client_error")
				RecordErrorLatency("http", "client_error", 4)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given many goroutines recording at once", t, func() {
		before := testutil.ToFloat64(globalManager.reportsDeleted)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				RecordReportDeleted()
				RecordHTTPRequest("/items", "DELETE", "204")
			}()
		}
		wg.Wait()

		Convey("Then no increment should be lost", func() {
			So(testutil.ToFloat64(globalManager.reportsDeleted)-before, ShouldEqual, 50)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the exported registry", t, func() {
		RecordReportSubmitted()
		families, err := GetRegistry().Gather()
		So(err, ShouldBeNil)

		Convey("Then it should expose the tasting namespace", func() {
			names := make([]string, 0, len(families))
			for _, f := range families {
				names = append(names, f.GetName())
			}
			So(strings.Join(names, ","), ShouldContainSubstring, "tasting_aggregator_reports_submitted_total")
		})
	})
}
