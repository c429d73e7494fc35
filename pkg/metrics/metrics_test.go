package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("ranking"),
				WithLatencyBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metrics are registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.batches.WithLabelValues("rank", "ok").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_ranking_batches_total"], ShouldBeTrue)
			})
		})

		Convey("When creating two managers on the same registry", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestRecordingFunctions(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording a batch", func() {
			before := testutil.ToFloat64(globalManager.batches.WithLabelValues("rank", "degraded"))
			RecordBatch("rank", "degraded", 12.5)

			Convey("Then the batch counter increases", func() {
				So(testutil.ToFloat64(globalManager.batches.WithLabelValues("rank", "degraded")), ShouldEqual, before+1)
			})
		})

		Convey("When recording scorer failures", func() {
			before := testutil.ToFloat64(globalManager.scorerFailures.WithLabelValues("xgboost", "schema_mismatch"))
			RecordScorerFailure("xgboost", "schema_mismatch")
			RecordScorerFailure("xgboost", "schema_mismatch")

			Convey("Then the labelled counter tracks each failure", func() {
				So(testutil.ToFloat64(globalManager.scorerFailures.WithLabelValues("xgboost", "schema_mismatch")), ShouldEqual, before+2)
			})
		})

		Convey("When recording temporal exclusions", func() {
			before := testutil.ToFloat64(globalManager.temporalExcluded)
			RecordTemporalExclusions(3)
			RecordTemporalExclusions(0)
			RecordTemporalExclusions(-1)

			Convey("Then only positive counts are added", func() {
				So(testutil.ToFloat64(globalManager.temporalExcluded), ShouldEqual, before+3)
			})
		})

		Convey("When updating gauges", func() {
			UpdateModelsLoaded(4)
			UpdateSystemGoroutineCount(17)

			Convey("Then gauges hold the last value", func() {
				So(testutil.ToFloat64(globalManager.modelsLoaded), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.systemGoroutineCount), ShouldEqual, 17)
			})
		})

		Convey("When recording the remaining series", func() {
			So(func() {
				RecordEntitiesScored(8)
				RecordEntityError("malformed_input")
				RecordScorerLatency("lightgbm", 0.4)
				RecordFusionLatency(0.2)
				RecordDegradedResult("fallback")
				RecordHistoryLookup("cache_hit")
				RecordHTTPRequest("rank", "POST", "200")
				RecordHTTPRequestDuration("rank", "POST", "200", 3)
				RecordErrorByType("client_error", "medium")
				RecordErrorByEndpoint("rank", "POST", "client_error")
				RecordErrorLatency("http", "client_error", 1)
				UpdateSystemMemoryUsage(1024)
				RecordSystemGCPauseTime(0.1)
			}, ShouldNotPanic)
		})

		Convey("Then the exported registry is the custom one", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
