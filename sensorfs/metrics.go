package sensorfs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	common "github.com/404wolf/gpusensorfs/common"
)

var (
	// Filesystem request metrics
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpusensorfs_requests_total",
			Help: "Total number of filesystem requests",
		},
		[]string{"op", "status"},
	)

	// Namespace metrics
	rebuildsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gpusensorfs_rebuilds_total",
			Help: "Total number of namespace rebuilds",
		},
	)

	devicesGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gpusensorfs_devices",
			Help: "Number of devices in the current namespace",
		},
	)

	// Sampling metrics
	sampleErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpusensorfs_sample_errors_total",
			Help: "Total number of sensor samples that rendered as N/A",
		},
		[]string{"class"},
	)
)

const (
	sampleUnsupported = "unsupported"
	sampleTransient   = "transient"
)

// registerSessionGauge exports the number of open sessions of the registry.
// Only the first registry registered is exported.
func registerSessionGauge(registry *Registry) {
	err := prometheus.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "gpusensorfs_open_sessions",
			Help: "Number of sensor files currently open",
		},
		func() float64 { return float64(registry.Len()) },
	))
	var already prometheus.AlreadyRegisteredError
	if err != nil && !errors.As(err, &already) {
		common.Logger.Warnw("Could not register session gauge", "error", err)
	}
}

// ServeMetrics serves prometheus metrics on addr until ctx is done
func ServeMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			common.Logger.Warnw("Metrics endpoint did not shut down cleanly", "addr", addr, "error", err)
		}
	}()

	common.Logger.Infow("Serving metrics", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving metrics on %s: %w", addr, err)
	}
	return nil
}
