package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRegisterExposesMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	Register(r, "/metrics")

	BucketFetches.WithLabelValues("success").Inc()
	CacheHits.Inc()

	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "timeline_bucket_fetches_total") {
		t.Fatalf("expected fetch counter in metrics output")
	}
	if !strings.Contains(body, "timeline_cache_hits_total") {
		t.Fatalf("expected cache hit counter in metrics output")
	}
}
