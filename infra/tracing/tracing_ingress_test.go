package tracing

import (
	"net/http"
	"net/http/httptest"
	"procurement/testinfra"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
)

func TestTracingIngress(t *testing.T) {
	RegisterTestingT(t)

	tracer := mocktracer.New()
	opentracing.SetGlobalTracer(tracer)
	defer opentracing.SetGlobalTracer(opentracing.NoopTracer{})

	router := gin.New()
	router.Use(TracingIngress())
	router.GET("/v1/requests/:id", func(c *gin.Context) {
		if c.Param("id") == "broken" {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	t.Run("new root trace named after the route", func(t *testing.T) {
		tracer.Reset()

		req := httptest.NewRequest(http.MethodGet, "/v1/requests/7", nil)
		status, _, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))

		spans := tracer.FinishedSpans()
		Expect(len(spans)).To(Equal(1))
		s := spans[0]
		Expect(s.OperationName).To(Equal("GET /v1/requests/:id"))
		Expect(s.ParentID).To(Equal(0))
		Expect(time.Since(s.StartTime) < time.Second).To(BeTrue())
		Expect(time.Since(s.FinishTime) < time.Second).To(BeTrue())
		Expect(s.SpanContext.SpanID).ToNot(BeZero())
		Expect(s.Tag("http.status_code")).To(Equal(uint16(http.StatusOK)))
		Expect(s.Tag("http.method")).To(Equal(http.MethodGet))
		Expect(s.Tag("error")).To(BeNil())
	})

	t.Run("child trace", func(t *testing.T) {
		tracer.Reset()

		clientSpan := tracer.StartSpan("client")

		req := httptest.NewRequest(http.MethodGet, "/v1/requests/7", nil)
		Expect(tracer.Inject(clientSpan.Context(), opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(req.Header))).To(BeNil())
		status, _, _ := testinfra.ExecuteRequest(req, router)

		clientSpan.Finish()

		Expect(status).To(Equal(http.StatusOK))

		spans := tracer.FinishedSpans()
		Expect(len(spans)).To(Equal(2))
		s0 := spans[1]
		Expect(s0.OperationName).To(Equal("client"))
		Expect(s0.ParentID).To(BeZero())

		s1 := spans[0]
		Expect(s1.OperationName).To(Equal("GET /v1/requests/:id"))
		Expect(s1.ParentID).To(Equal(s0.SpanContext.SpanID))
		Expect(s1.SpanContext.TraceID).To(Equal(s0.SpanContext.TraceID))
	})

	t.Run("server errors are flagged", func(t *testing.T) {
		tracer.Reset()

		status, _, _ := testinfra.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/v1/requests/broken", nil), router)
		Expect(status).To(Equal(http.StatusInternalServerError))

		spans := tracer.FinishedSpans()
		Expect(len(spans)).To(Equal(1))
		Expect(spans[0].Tag("error")).To(Equal(true))
	})

	t.Run("unmatched paths use the raw path", func(t *testing.T) {
		tracer.Reset()

		status, _, _ := testinfra.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/nowhere?x=1", nil), router)
		Expect(status).To(Equal(http.StatusNotFound))
		spans := tracer.FinishedSpans()
		Expect(len(spans)).To(Equal(1))
		Expect(spans[0].OperationName).To(Equal("GET /nowhere"))
		Expect(spans[0].Tag("http.status_code")).To(Equal(uint16(http.StatusNotFound)))
	})
}

func TestSetup(t *testing.T) {
	RegisterTestingT(t)

	closer, err := Setup("procurement", "", false)
	Expect(err).To(BeNil())
	Expect(closer.Close()).To(BeNil())
}
