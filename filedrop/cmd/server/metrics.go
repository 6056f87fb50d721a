package server

import (
	"strconv"
	"time"

	"emperror.dev/errors"
	"github.com/ocfl-archive/filedrop/pkg/allocator"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports upload, allocation and listing telemetry to Prometheus.
type Metrics struct {
	registry           *prometheus.Registry
	uploads            *prometheus.CounterVec
	uploadBytes        *prometheus.CounterVec
	uploadDuration     *prometheus.HistogramVec
	allocationAttempts *prometheus.HistogramVec
	allocationLength   *prometheus.GaugeVec
	allocationErrors   *prometheus.CounterVec
	listings           *prometheus.CounterVec
}

func NewMetrics(service string, reg *prometheus.Registry) (*Metrics, error) {
	if service == "" {
		service = "filedrop"
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: reg,
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "uploads_total",
			Help:      "Upload requests by namespace and response status.",
		}, []string{"namespace", "status"}),
		uploadBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "uploaded_bytes_total",
			Help:      "Cumulative size of stored uploads.",
		}, []string{"namespace"}),
		uploadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: service,
			Name:      "upload_duration_seconds",
			Help:      "Latency of upload requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"namespace"}),
		allocationAttempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: service,
			Name:      "allocation_attempts",
			Help:      "Candidates tried until a file name was reserved.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}, []string{"namespace"}),
		allocationLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: service,
			Name:      "allocation_name_length",
			Help:      "Length of the last generated file name.",
		}, []string{"namespace"}),
		allocationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "allocation_errors_total",
			Help:      "Failed file name allocations.",
		}, []string{"namespace"}),
		listings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "listings_total",
			Help:      "Rendered directory listings by namespace and result.",
		}, []string{"namespace", "result"}),
	}
	collectors := []prometheus.Collector{
		m.uploads, m.uploadBytes, m.uploadDuration,
		m.allocationAttempts, m.allocationLength, m.allocationErrors,
		m.listings,
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			return nil, errors.Wrap(err, "cannot register metric")
		}
	}
	return m, nil
}

func (m *Metrics) RecordAllocation(namespace string, attempts int, length uint, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.allocationErrors.WithLabelValues(namespace).Inc()
		return
	}
	m.allocationAttempts.WithLabelValues(namespace).Observe(float64(attempts))
	if length > 0 {
		m.allocationLength.WithLabelValues(namespace).Set(float64(length))
	}
}

func (m *Metrics) RecordUpload(namespace string, status int, size int64, duration time.Duration) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(namespace, strconv.Itoa(status)).Inc()
	m.uploadDuration.WithLabelValues(namespace).Observe(duration.Seconds())
	if size > 0 {
		m.uploadBytes.WithLabelValues(namespace).Add(float64(size))
	}
}

func (m *Metrics) RecordListing(namespace string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.listings.WithLabelValues(namespace, result).Inc()
}

var _ allocator.Observer = (*Metrics)(nil)
