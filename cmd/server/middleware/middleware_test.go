package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newEngine builds an engine with the given middleware and a single GET /ok
// route returning 200.
func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func requestFrom(method, path, remote string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remote
	return req
}

type mockTimer struct{ value float64 }

func (t *mockTimer) Stop() float64 { return t.value }

type recordingCollector struct {
	mu         sync.Mutex
	counters   map[string][][]string
	histograms map[string][]float64
	timers     []string
}

func newRecordingCollector() *recordingCollector {
	return &recordingCollector{
		counters:   make(map[string][][]string),
		histograms: make(map[string][]float64),
	}
}

func (r *recordingCollector) IncrementCounter(name string, labels ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] = append(r.counters[name], labels)
}

func (r *recordingCollector) RecordHistogram(name string, value float64, labels ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histograms[name] = append(r.histograms[name], value)
}

func (r *recordingCollector) RecordGauge(string, float64, ...string) {}

func (r *recordingCollector) StartTimer(name string) Timer {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timers = append(r.timers, name)
	return &mockTimer{value: 0.25}
}
