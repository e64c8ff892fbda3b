package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

// sample returns the value of the first series of the named family, or -1.
func sample(reg *prometheus.Registry, name string) float64 {
	families, err := reg.Gather()
	if err != nil {
		return -1
	}
	for _, mf := range families {
		if mf.GetName() != name || len(mf.GetMetric()) == 0 {
			continue
		}
		m := mf.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			return m.GetCounter().GetValue()
		case m.GetGauge() != nil:
			return m.GetGauge().GetValue()
		case m.GetHistogram() != nil:
			return float64(m.GetHistogram().GetSampleCount())
		}
	}
	return -1
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a private registry", t, func() {
		reg := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(reg),
			)
			m.submissions.WithLabelValues("ranking").Inc()
			m.queueCapacity.Set(64)

			Convey("Then metrics are registered under the custom names", func() {
				So(sample(reg, "test_unit_submissions_total"), ShouldEqual, 1)
				So(sample(reg, "test_unit_queue_capacity"), ShouldEqual, 64)
			})

			Convey("And const labels are attached", func() {
				families, err := reg.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
				found := false
				for _, lp := range families[0].GetMetric()[0].GetLabel() {
					if lp.GetName() == "env" && lp.GetValue() == "test" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty options are given", func() {
			m := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithPrometheusRegistry(reg))

			Convey("Then defaults are kept", func() {
				So(m.namespace, ShouldEqual, "skating")
				So(m.subsystem, ShouldEqual, "scoring")
				So(m.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	reg := GetRegistry()

	Convey("Given the global manager", t, func() {
		Convey("When recording submissions", func() {
			before := sample(reg, "skating_scoring_submissions_duplicate_total")
			RecordSubmission("ranking")
			RecordSubmissionDuplicate()
			RecordSubmissionRejected("closed")

			Convey("Then the counters move", func() {
				So(sample(reg, "skating_scoring_submissions_duplicate_total"), ShouldEqual, before+1)
				So(sample(reg, "skating_scoring_submissions_total"), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording aggregation and queue activity", func() {
			RecordAggregation("final", "ok", 1.5)
			RecordStaleResult()
			RecordRoundClosed()
			UpdateQueueSize(3)
			UpdateQueueCapacity(10)
			UpdateQueueUtilization(0.3)
			RecordQueueEnqueue()
			RecordQueueDequeue()
			RecordQueueEnqueueError()
			RecordQueueWaitLatency(2)

			Convey("Then gauges hold the last value", func() {
				So(sample(reg, "skating_scoring_queue_size"), ShouldEqual, 3)
				So(sample(reg, "skating_scoring_queue_utilization_ratio"), ShouldEqual, 0.3)
				So(sample(reg, "skating_scoring_aggregation_latency_milliseconds"), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording the rest", func() {
			So(func() {
				RecordHTTPRequest("/rounds", "POST", "201")
				RecordHTTPRequestDuration("/rounds", "POST", "201", 4)
				RecordRateLimited()
				UpdateRepositoryShardCount(4)
				UpdateRepositoryRoundsTotal(2)
				UpdateRepositoryRoundsPerShard("shard_0", 2)
				RecordRepositoryWriteLatency(0.1)
				RecordRepositoryReadLatency(0.1)
				UpdateWorkerCount(4)
				UpdateWorkerActiveCount(1)
				RecordWorkerProcessingLatency(3)
				RecordWorkerError()
				RecordErrorByComponent("worker", "aggregate")
			}, ShouldNotPanic)
			So(sample(reg, "skating_scoring_repository_shard_count"), ShouldEqual, 4)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(reg))

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					m.submissionsDup.Inc()
				}
			}()
		}
		wg.Wait()

		Convey("Then no increment is lost", func() {
			So(sample(reg, "skating_scoring_submissions_duplicate_total"), ShouldEqual, 800)
		})
	})
}
