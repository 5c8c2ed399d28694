package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) (*ProgressionMetrics, *prometheus.Registry) {
	t.Helper()
	m, err := New(&Config{Namespace: "test"})
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))
	return m, reg
}

func TestNewMergesDefaults(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, "arise", m.GetConfig().Namespace)
	assert.Equal(t, "/metrics", m.GetConfig().Path)
}

func TestRecordOperation(t *testing.T) {
	m, _ := newTestMetrics(t)
	m.RecordOperation("request_dungeon", ResultSuccess, time.Millisecond)
	m.RecordOperation("request_dungeon", ResultDomainError, time.Millisecond)
	m.RecordOperation("request_dungeon", ResultFailed, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationTotal.WithLabelValues("request_dungeon", ResultSuccess)))
	ops, failures := m.Totals()
	assert.Equal(t, int64(3), ops)
	assert.Equal(t, int64(1), failures)
}

func TestRecordDungeon(t *testing.T) {
	m, _ := newTestMetrics(t)
	score := 90
	m.RecordDungeon("GRAVITY", "completed", &score)
	m.RecordDungeon("GRAVITY", "abandoned", nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DungeonResolved.WithLabelValues("GRAVITY", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DungeonResolved.WithLabelValues("GRAVITY", "abandoned")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, reg := newTestMetrics(t)

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/players/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", Handler(reg))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/players/7", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/players/:id", "204")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "test_http_requests_total"))
}
