// Package metrics defines the Prometheus collectors exported by the worker.
package metrics
