// Package metrics exposes Prometheus counters for the file lifecycle and the
// HTTP surface. A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ScopeOwner = "owner"
	ScopeAdmin = "admin"

	LoginSuccess = "success"
	LoginFailure = "failure"

	SweepOrphanBlob     = "orphan_blob"
	SweepDanglingRecord = "dangling_record"
	SweepSession        = "session"
)

type Recorder struct {
	registry *prometheus.Registry

	uploads      prometheus.Counter
	uploadBytes  prometheus.Counter
	downloads    prometheus.Counter
	deletes      *prometheus.CounterVec
	logins       *prometheus.CounterVec
	sweepRemoved *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
}

// New registers all collectors on a dedicated registry together with the Go
// runtime and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		uploads: factory.NewCounter(prometheus.CounterOpts{
			Name: "dbdrive_uploads_total",
			Help: "Total number of stored uploads",
		}),
		uploadBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "dbdrive_upload_bytes_total",
			Help: "Total bytes written by uploads",
		}),
		downloads: factory.NewCounter(prometheus.CounterOpts{
			Name: "dbdrive_downloads_total",
			Help: "Total number of served downloads",
		}),
		deletes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dbdrive_deletes_total",
			Help: "Total number of deleted files by scope",
		}, []string{"scope"}),
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dbdrive_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		sweepRemoved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dbdrive_sweep_removed_total",
			Help: "Entries removed by the reconciliation sweeper by kind",
		}, []string{"kind"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dbdrive_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
	}
}

func (r *Recorder) RecordUpload(size int64) {
	if r == nil {
		return
	}
	r.uploads.Inc()
	if size > 0 {
		r.uploadBytes.Add(float64(size))
	}
}

func (r *Recorder) RecordDownload() {
	if r == nil {
		return
	}
	r.downloads.Inc()
}

func (r *Recorder) RecordDelete(scope string) {
	if r == nil {
		return
	}
	r.deletes.WithLabelValues(scope).Inc()
}

func (r *Recorder) RecordLogin(outcome string) {
	if r == nil {
		return
	}
	r.logins.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordSweep(kind string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.sweepRemoved.WithLabelValues(kind).Add(float64(n))
}

func (r *Recorder) RecordRequest(method, route string, status int) {
	if r == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Registry returns the underlying registry, or nil for a nil recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
