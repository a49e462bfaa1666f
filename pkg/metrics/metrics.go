// Package metrics exposes Prometheus counters for the task-distribution API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TasksCreatedTotal counts tasks successfully created.
	TasksCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskpool_tasks_created_total",
			Help: "Total number of tasks created",
		},
	)

	// TasksClaimedTotal counts successful free->claimed transitions.
	TasksClaimedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskpool_tasks_claimed_total",
			Help: "Total number of tasks claimed by workers",
		},
	)

	// ClaimMissesTotal counts claim attempts that found no free task.
	ClaimMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskpool_claim_misses_total",
			Help: "Total number of claim attempts that found no free task",
		},
	)

	// APIRequestsTotal counts API requests by method and status.
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskpool_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)
)

// Register registers all metrics with the given registry, or the default
// registry if nil.
func Register(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		TasksCreatedTotal,
		TasksClaimedTotal,
		ClaimMissesTotal,
		APIRequestsTotal,
	)
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
