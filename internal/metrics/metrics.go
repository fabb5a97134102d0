// Package metrics exposes Prometheus counters for the acquisition pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalRequests tracks the number of HTTP requests dispatched by the fetcher.
	TotalRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_requests_total",
		Help: "The total number of HTTP requests sent.",
	})
	// TotalRequestErrors tracks the number of requests that resulted in an error.
	TotalRequestErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_request_errors_total",
		Help: "The total number of failed HTTP requests.",
	})
	// TotalRateLimitHits tracks the number of throttled responses (HTTP 403/429).
	TotalRateLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_rate_limit_hits_total",
		Help: "The total number of times the source rate limited us.",
	})
	// TotalNotFoundHits tracks the number of permanent 404 responses.
	TotalNotFoundHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_not_found_total",
		Help: "The total number of documents confirmed absent at their URL.",
	})
	// TotalDownloads tracks the number of filings downloaded and persisted.
	TotalDownloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_downloads_total",
		Help: "The total number of filings successfully downloaded and saved.",
	})
	// TotalBytesStored tracks bytes written to durable storage.
	TotalBytesStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvester_stored_bytes_total",
		Help: "The total number of document bytes written to storage.",
	})
)
