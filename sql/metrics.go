package sql

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/biadnet/go-biadnet/metrics"
)

const namespace = "database"

var (
	queryDuration = metrics.NewHistogramWithBuckets(
		"query_duration_seconds",
		namespace,
		"Duration of the query",
		[]string{},
		prometheus.ExponentialBuckets(0.0001, 2, 20),
	).WithLabelValues()
	connWaitLatency = metrics.NewHistogramWithBuckets(
		"conn_wait_seconds",
		namespace,
		"Time spent waiting for a pooled connection",
		[]string{},
		prometheus.ExponentialBuckets(0.0001, 2, 20),
	).WithLabelValues()
)
