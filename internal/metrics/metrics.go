// Package metrics provides Prometheus metrics for the item search bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "jx3_item_bot"
)

var (
	// MessagesTotal counts inbound chat messages by channel and how they were handled
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "messages_total",
		Help:      "Inbound chat messages by channel and result",
	}, []string{"channel", "result"})

	// SearchesTotal counts item searches by outcome kind
	SearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "searches_total",
		Help:      "Item searches by outcome",
	}, []string{"outcome"})

	// SearchDuration measures JX3Box API latency
	SearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "search_duration_seconds",
		Help:      "JX3Box search latency distribution by outcome",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"outcome"})

	// SearchResults tracks how many items a successful search returned
	SearchResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "search_results",
		Help:      "Number of items returned per successful search",
		Buckets:   []float64{0, 1, 2, 3, 4, 5},
	})

	// RepliesTotal counts replies handed to a transport
	RepliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "replies_total",
		Help:      "Replies sent by channel and status",
	}, []string{"channel", "status"})

	// PanicsRecovered counts panics caught while handling a message
	PanicsRecovered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "panics_recovered_total",
		Help:      "Panics recovered in the message handler",
	})

	// HTTPRequestsTotal counts HTTP API requests
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method and status",
	}, []string{"method", "status"})
)

// RecordSearch records a completed search call
func RecordSearch(outcome string, duration float64, results int) {
	SearchesTotal.WithLabelValues(outcome).Inc()
	SearchDuration.WithLabelValues(outcome).Observe(duration)
	if results >= 0 {
		SearchResults.Observe(float64(results))
	}
}

// RecordMessage records how an inbound message was handled
func RecordMessage(channel, result string) {
	MessagesTotal.WithLabelValues(channel, result).Inc()
}

// RecordReply records a reply delivery attempt
func RecordReply(channel string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	RepliesTotal.WithLabelValues(channel, status).Inc()
}
