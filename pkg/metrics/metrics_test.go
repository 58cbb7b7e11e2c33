package metrics

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

var _ = Describe("Metrics", func() {
	Describe("RecordIngested", func() {
		It("increments the ingested counter by source", func() {
			initial := testutil.ToFloat64(IncidentsIngestedTotal.WithLabelValues("ci"))
			RecordIngested("ci")
			Expect(testutil.ToFloat64(IncidentsIngestedTotal.WithLabelValues("ci"))).To(Equal(initial + 1.0))
		})
	})

	Describe("RecordResolved", func() {
		It("increments the resolved counter by outcome", func() {
			initial := testutil.ToFloat64(IncidentsResolvedTotal.WithLabelValues("RESOLVED"))
			RecordResolved("RESOLVED")
			Expect(testutil.ToFloat64(IncidentsResolvedTotal.WithLabelValues("RESOLVED"))).To(Equal(initial + 1.0))
		})
	})

	Describe("RecordStageError", func() {
		It("increments the stage error counter", func() {
			initial := testutil.ToFloat64(StageErrorsTotal.WithLabelValues("verifier", "sandbox_error"))
			RecordStageError("verifier", "sandbox_error")
			Expect(testutil.ToFloat64(StageErrorsTotal.WithLabelValues("verifier", "sandbox_error"))).To(Equal(initial + 1.0))
		})
	})

	Describe("RecordLLMCall", func() {
		It("increments the LLM call counter by model", func() {
			initial := testutil.ToFloat64(LLMAPICallsTotal.WithLabelValues("gpt-4o"))
			RecordLLMCall("gpt-4o")
			Expect(testutil.ToFloat64(LLMAPICallsTotal.WithLabelValues("gpt-4o"))).To(Equal(initial + 1.0))
		})
	})

	Describe("RecordSandboxRun", func() {
		It("increments the sandbox run counter by result", func() {
			initial := testutil.ToFloat64(SandboxRunsTotal.WithLabelValues("pass"))
			RecordSandboxRun("pass")
			Expect(testutil.ToFloat64(SandboxRunsTotal.WithLabelValues("pass"))).To(Equal(initial + 1.0))
		})
	})

	Describe("RecordWebhookRequest", func() {
		It("increments the webhook counter by source and outcome", func() {
			initial := testutil.ToFloat64(WebhookRequestsTotal.WithLabelValues("github", "created"))
			RecordWebhookRequest("github", "created")
			Expect(testutil.ToFloat64(WebhookRequestsTotal.WithLabelValues("github", "created"))).To(Equal(initial + 1.0))
		})
	})

	Describe("In-flight gauge", func() {
		It("tracks increments and decrements", func() {
			initial := testutil.ToFloat64(IncidentsInFlight)
			IncrementInFlight()
			Expect(testutil.ToFloat64(IncidentsInFlight)).To(Equal(initial + 1.0))
			DecrementInFlight()
			Expect(testutil.ToFloat64(IncidentsInFlight)).To(Equal(initial))
		})
	})

	Describe("Timer", func() {
		It("records stage duration into the histogram", func() {
			timer := NewTimer()
			time.Sleep(5 * time.Millisecond)
			timer.RecordStage("sanitizer")

			metric := &dto.Metric{}
			hist := StageDuration.WithLabelValues("sanitizer").(prometheus.Histogram)
			err := hist.Write(metric)
			Expect(err).NotTo(HaveOccurred())
			Expect(metric.GetHistogram().GetSampleCount()).To(BeNumerically(">", 0))
		})

		It("reports elapsed time at least as long as the sleep", func() {
			timer := NewTimer()
			time.Sleep(10 * time.Millisecond)
			Expect(timer.Elapsed()).To(BeNumerically(">=", 10*time.Millisecond))
		})
	})
})
