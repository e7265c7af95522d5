package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerRecording(t *testing.T) {
	Convey("Given a metrics manager on a private registry", t, func() {
		m := NewManager(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))

		Convey("When frames and outcomes are recorded", func() {
			m.RecordFrame()
			m.RecordFrame()
			So(m.RecordOutcome("correct"), ShouldBeNil)
			So(m.RecordOutcome("correct"), ShouldBeNil)
			So(m.RecordOutcome("wrong"), ShouldBeNil)

			Convey("Then the counters reflect them", func() {
				So(testutil.ToFloat64(m.framesProcessed), ShouldEqual, 2)
				So(testutil.ToFloat64(m.outcomes.WithLabelValues("correct")), ShouldEqual, 2)
				So(testutil.ToFloat64(m.outcomes.WithLabelValues("wrong")), ShouldEqual, 1)
			})
		})

		Convey("When an outcome has no kind", func() {
			err := m.RecordOutcome("")

			Convey("Then it is rejected", func() {
				So(errors.Is(err, ErrUnknownOutcome), ShouldBeTrue)
			})
		})

		Convey("When progress and completions are published", func() {
			m.SetProgress(7, 2)
			m.RecordCompletion("Hello")

			Convey("Then gauges hold the latest values", func() {
				So(testutil.ToFloat64(m.streak), ShouldEqual, 7)
				So(testutil.ToFloat64(m.score), ShouldEqual, 2)
				So(testutil.ToFloat64(m.completions.WithLabelValues("Hello")), ShouldEqual, 1)
			})
		})

		Convey("When detector calls are observed", func() {
			m.ObserveDetector(20*time.Millisecond, nil)
			m.ObserveDetector(30*time.Millisecond, errors.New("boom"))

			Convey("Then failures are counted", func() {
				So(testutil.ToFloat64(m.detectorErrors), ShouldEqual, 1)
				So(testutil.CollectAndCount(m.detectorLatency), ShouldEqual, 1)
			})
		})

		Convey("When the handler is scraped", func() {
			m.RecordDroppedBatch()
			m.RecordHTTPRequest("/api/state", "GET", "200")
			rec := httptest.NewRecorder()
			m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
			body, _ := io.ReadAll(rec.Body)

			Convey("Then the exposition contains the metrics", func() {
				So(rec.Code, ShouldEqual, 200)
				So(string(body), ShouldContainSubstring, "test_tutor_batches_dropped_total 1")
				So(string(body), ShouldContainSubstring, `test_http_requests_total{code="200",method="GET",route="/api/state"} 1`)
			})
		})
	})
}

func TestManagerDisabled(t *testing.T) {
	Convey("Given a disabled manager", t, func() {
		m := NewManager(WithEnabled(false))

		Convey("Then recording is a no-op", func() {
			m.RecordFrame()
			m.SetProgress(3, 3)
			m.RecordHookRun("notify", "ok")
			So(testutil.ToFloat64(m.framesProcessed), ShouldEqual, 0)
			So(testutil.ToFloat64(m.score), ShouldEqual, 0)
		})
	})

	Convey("Given a nil manager", t, func() {
		var m *Manager

		Convey("Then every method is safe to call", func() {
			So(func() {
				m.RecordFrame()
				_ = m.RecordOutcome("no_detection")
				m.RecordCompletion("Yes")
				m.SetProgress(1, 1)
				m.ObserveDetector(time.Millisecond, nil)
				m.RecordDroppedBatch()
				m.RecordCameraError()
				m.AddWebsocketClients(1)
				m.RecordHookRun("h", "error")
			}, ShouldNotPanic)
			So(m.Handler(), ShouldNotBeNil)
		})
	})
}
