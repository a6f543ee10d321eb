// Copyright (c) The Pacemaker Authors
// SPDX-License-Identifier: MPL-2.0

package ctlrd

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	gometrics "github.com/hashicorp/go-metrics"
	gometricsprom "github.com/hashicorp/go-metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StartMetrics wires go-metrics' global sink to a Prometheus exporter
// served at /v1/metrics, matching SPEC_FULL.md §6's observability section:
// every metrics.IncrCounter/MeasureSince call the scheduler and executor
// packages already make flows through this sink once it's installed.
func StartMetrics(cfg *Config, log hclog.Logger) (*http.Server, error) {
	sink, err := gometricsprom.NewPrometheusSink()
	if err != nil {
		return nil, err
	}
	if err := prometheus.Register(sink); err != nil {
		return nil, err
	}
	conf := gometrics.DefaultConfig("pacemaker")
	conf.EnableHostname = false
	conf.TimerGranularity = time.Millisecond
	if _, err := gometrics.NewGlobal(conf, sink); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/v1/metrics", promhttp.Handler())
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server stopped", "error", err)
		}
	}()
	return srv, nil
}

// StopMetrics shuts the metrics HTTP server down gracefully within the
// given context's deadline.
func StopMetrics(ctx context.Context, srv *http.Server) error {
	return srv.Shutdown(ctx)
}
