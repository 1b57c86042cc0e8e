// Package metrics exports alert session counters to Prometheus.
package metrics
