package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_UsesRouteLabel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/prompts/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpReqs.WithLabelValues(http.MethodGet, "/prompts/:id", "200"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/prompts/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/prompts/def", nil))
	after := testutil.ToFloat64(httpReqs.WithLabelValues(http.MethodGet, "/prompts/:id", "200"))
	if after-before != 2 {
		t.Fatalf("expected 2 requests under the route label, got %v", after-before)
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	if testutil.ToFloat64(httpReqs.WithLabelValues(http.MethodGet, "unmatched", "404")) < 1 {
		t.Fatalf("unmatched routes should share one label")
	}
	if testutil.ToFloat64(httpInflight) != 0 {
		t.Fatalf("in-flight gauge should return to zero")
	}
}

func TestObserveUpload(t *testing.T) {
	stored := testutil.ToFloat64(uploadsTotal.WithLabelValues("stored"))
	rejected := testutil.ToFloat64(uploadsTotal.WithLabelValues("rejected"))

	ObserveUpload("image/png", 2048, nil)
	ObserveUpload("", 0, errors.New("too big"))

	if testutil.ToFloat64(uploadsTotal.WithLabelValues("stored"))-stored != 1 {
		t.Fatalf("stored counter not incremented")
	}
	if testutil.ToFloat64(uploadsTotal.WithLabelValues("rejected"))-rejected != 1 {
		t.Fatalf("rejected counter not incremented")
	}
}
