package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCertificateIssued(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCertificateIssued(3)
	c.RecordCertificateIssued(1)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.certificates))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.warranties))
}

func TestRecordLoginAttempt(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordLoginAttempt(true)
	c.RecordLoginAttempt(false)
	c.RecordLoginAttempt(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.logins.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.logins.WithLabelValues("failure")))
}

func TestRecordEventsAndNotices(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordEventPublished("warranty", true)
	c.RecordEventPublished("warranty", false)
	c.RecordExpiryNotices(5)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.events.WithLabelValues("warranty", "failure")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.expiryNotices))
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/warranties/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/warranties/abc", nil))
		require.Equal(t, http.StatusNotFound, rr.Code)
	}

	got := testutil.ToFloat64(c.requests.WithLabelValues("/warranties/{id}", http.MethodGet, "404"))
	assert.Equal(t, 2.0, got)
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordCertificateIssued(1)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "warranty_certificates_issued_total 1"))
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.RecordCertificateIssued(1)
	r.RecordLoginAttempt(true)
	r.RecordEventPublished("user", true)
	r.RecordExpiryNotices(1)
}
