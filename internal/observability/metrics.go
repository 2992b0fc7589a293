package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	checksTotal           *prometheus.CounterVec
	submissionsTotal      *prometheus.CounterVec
	rosterSyncRunsTotal   *prometheus.CounterVec
	rosterSyncPagesFailed prometheus.Counter
	notificationsTotal    *prometheus.CounterVec
	sseClientsActive      prometheus.Gauge
	chatMessagesTotal     *prometheus.CounterVec
	chatConnectionsTotal  prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ijara_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ijara_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ijara_errors_total",
			Help: "Total number of error responses returned.",
		}, []string{"method", "route", "status"})

		checksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ijara_checks_total",
			Help: "Housing checks recorded, labelled by resulting status.",
		}, []string{"status"})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ijara_submissions_total",
			Help: "Apartment submissions accepted, labelled by housing type.",
		}, []string{"type"})

		rosterSyncRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ijara_roster_sync_runs_total",
			Help: "Roster sync runs, labelled by outcome.",
		}, []string{"outcome"})

		rosterSyncPagesFailed = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ijara_roster_sync_pages_failed_total",
			Help: "Roster pages that failed after all retries.",
		})

		notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ijara_notifications_published_total",
			Help: "Student notifications published, labelled by color.",
		}, []string{"color"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ijara_sse_clients_active",
			Help: "Currently connected notification stream clients.",
		})

		chatMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ijara_chat_messages_total",
			Help: "Chat messages delivered, labelled by sender role.",
		}, []string{"sender"})

		chatConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ijara_chat_connections_total",
			Help: "Chat websocket connections accepted.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			checksTotal,
			submissionsTotal,
			rosterSyncRunsTotal,
			rosterSyncPagesFailed,
			notificationsTotal,
			sseClientsActive,
			chatMessagesTotal,
			chatConnectionsTotal,
		)
	})
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// Latency exposes the latency histogram for API requests.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// Errors exposes the counter for API error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// Checks exposes the counter for recorded housing checks.
func Checks() *prometheus.CounterVec {
	RegisterMetrics()
	return checksTotal
}

// Submissions exposes the counter for accepted apartment submissions.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// SyncRuns exposes the counter for roster sync runs.
func SyncRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return rosterSyncRunsTotal
}

// SyncPagesFailed exposes the counter for roster pages lost to retries.
func SyncPagesFailed() prometheus.Counter {
	RegisterMetrics()
	return rosterSyncPagesFailed
}

// NotificationsPublished exposes the counter for published notifications.
func NotificationsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsTotal
}

// SSEClientsActive exposes the notification stream client gauge.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}

// ChatMessages exposes the counter for delivered chat messages.
func ChatMessages() *prometheus.CounterVec {
	RegisterMetrics()
	return chatMessagesTotal
}

// ChatConnections exposes the counter for accepted chat connections.
func ChatConnections() prometheus.Counter {
	RegisterMetrics()
	return chatConnectionsTotal
}
