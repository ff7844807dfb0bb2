// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// exportEnabled gates Observe* from the hot path when no Prometheus endpoint
// has been requested, mirroring the enabled-flag short-circuit of the
// teacher's churn package.
var exportEnabled atomic.Bool

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "surge_requests_total",
		Help: "Total requests issued, labeled by method, name and outcome",
	}, []string{"method", "name", "outcome"})

	requestDurationMS = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "surge_request_duration_ms",
		Help:    "Request response time in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"method", "name"})

	usersActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "surge_users_active",
		Help: "Virtual users launched so far",
	})

	stepsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "surge_steps_total",
		Help: "Total step invocations, labeled by scenario, step and outcome",
	}, []string{"scenario", "step", "outcome"})
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDurationMS, usersActive, stepsTotal)
}

// EnableExport starts a dedicated /metrics HTTP endpoint on addr and turns
// on the Observe* hot-path calls below. Disabled by default: a run that
// never calls EnableExport pays no atomic-increment cost per request.
func EnableExport(addr string) {
	exportEnabled.Store(true)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}

// ObserveRequest feeds a completed request into the Prometheus vectors. A
// no-op unless EnableExport has been called.
func ObserveRequest(method, name string, success bool, ms int64) {
	if !exportEnabled.Load() {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	requestsTotal.WithLabelValues(method, name, outcome).Inc()
	requestDurationMS.WithLabelValues(method, name).Observe(float64(ms))
}

// ObserveStep feeds a completed step into the Prometheus vectors.
func ObserveStep(scenario, step string, success bool) {
	if !exportEnabled.Load() {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	stepsTotal.WithLabelValues(scenario, step, outcome).Inc()
}

// SetUsersActive reports the current virtual user count.
func SetUsersActive(n int64) {
	if !exportEnabled.Load() {
		return
	}
	usersActive.Set(float64(n))
}
