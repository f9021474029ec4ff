package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.RecordUpload(10)
	r.RecordDownload()
	r.RecordDelete(ScopeOwner)
	r.RecordLogin(LoginFailure)
	r.RecordSweep(SweepOrphanBlob, 2)
	r.RecordRequest(http.MethodGet, "/", http.StatusOK)
	assert.Nil(t, r.Registry())

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.RecordUpload(5)
	r.RecordUpload(7)
	r.RecordDownload()
	r.RecordDelete(ScopeAdmin)
	r.RecordLogin(LoginSuccess)
	r.RecordSweep(SweepDanglingRecord, 3)
	r.RecordSweep(SweepDanglingRecord, 0)
	r.RecordRequest(http.MethodPost, "/upload", http.StatusFound)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.uploads))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.uploadBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.downloads))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.deletes.WithLabelValues(ScopeAdmin)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.logins.WithLabelValues(LoginSuccess)))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.sweepRemoved.WithLabelValues(SweepDanglingRecord)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("POST", "/upload", "302")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.RecordUpload(1)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "dbdrive_uploads_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
