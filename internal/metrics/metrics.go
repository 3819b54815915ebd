// Package metrics declares the prometheus collectors shared across the workflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	NodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blogflow_node_duration_seconds",
			Help:    "Duration of workflow nodes",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"node"},
	)
	NodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogflow_node_errors_total",
			Help: "Total number of failed workflow node executions",
		},
		[]string{"node"},
	)
	SourceResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogflow_source_results_total",
			Help: "Retrieval results per source and status",
		},
		[]string{"source", "status"},
	)
	ReviewTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogflow_review_transitions_total",
			Help: "Approval loop transitions by resulting state",
		},
		[]string{"state"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blogflow_http_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"route", "status"},
	)
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

func init() {
	prometheus.MustRegister(NodeDuration)
	prometheus.MustRegister(NodeErrors)
	prometheus.MustRegister(SourceResults)
	prometheus.MustRegister(ReviewTransitions)
	prometheus.MustRegister(HTTPRequests)
}
