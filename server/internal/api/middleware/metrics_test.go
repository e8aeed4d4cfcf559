package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"kabinet.io/kabinet/server/internal/metrics"
)

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	if err := metrics.Init(); err != nil {
		t.Fatalf("Failed to initialize metrics: %v", err)
	}

	router := gin.New()
	router.Use(MetricsMiddleware())
	router.GET("/test/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	router.GET("/error", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/test/:id", "200")
	before := testutil.ToFloat64(counter)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test/123", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Request %d: Expected status 200, got %d", i, w.Code)
		}
	}

	if got := testutil.ToFloat64(counter) - before; got != 5 {
		t.Errorf("Expected 5 requests counted under the route pattern, got %v", got)
	}

	errors := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/error", "500")
	before = testutil.ToFloat64(errors)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/error", nil))
	if got := testutil.ToFloat64(errors) - before; got != 1 {
		t.Errorf("Expected the 500 to be counted, got %v", got)
	}

	if got := testutil.ToFloat64(metrics.HTTPRequestsInFlight); got != 0 {
		t.Errorf("Expected no in-flight requests after completion, got %v", got)
	}
}

func TestMetricsMiddleware_UnmatchedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(MetricsMiddleware())

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")
	before := testutil.ToFloat64(counter)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/random/path", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unmatched route, got %d", w.Code)
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("Expected unmatched request under a shared label, got %v", got)
	}
}

func TestMetricsMiddleware_WebSocketUpgrade(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var inFlight float64
	router := gin.New()
	router.Use(MetricsMiddleware())
	router.GET("/graphql", func(c *gin.Context) {
		inFlight = testutil.ToFloat64(metrics.HTTPRequestsInFlight)
		c.Status(http.StatusSwitchingProtocols)
	})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/graphql", "101")
	before := testutil.ToFloat64(counter)

	req := httptest.NewRequest(http.MethodGet, "/graphql", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	router.ServeHTTP(httptest.NewRecorder(), req)

	if inFlight != 0 {
		t.Errorf("Expected upgrades not to count as in flight, got %v", inFlight)
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("Expected the upgrade to be counted, got %v", got)
	}
}
