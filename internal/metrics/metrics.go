package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)
)

// Tracking metrics
var (
	ScrapeCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_cycles_total",
			Help: "Total number of scrape cycles by outcome",
		},
		[]string{"status"},
	)

	ScrapeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scrape_duration_seconds",
			Help:    "Full scrape cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	PlayersScraped = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "players_scraped",
			Help: "Number of players on the most recently scraped highscores page",
		},
	)

	GainRecordsComputed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gain_records_computed_total",
			Help: "Total number of daily gain records computed",
		},
	)
)
