package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline metrics shared by the processor and the HTTP façade.
var (
	transactionsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_transactions_processed_total",
			Help: "Transactions applied successfully, by type.",
		},
		[]string{"type"},
	)

	transactionsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_transactions_rejected_total",
			Help: "Transactions rejected by a business rule, by reason.",
		},
		[]string{"reason"},
	)

	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "payments_queue_depth",
		Help: "Transactions waiting in the ingestion queue.",
	})
)

// Init registers the collectors with the default registry.
func Init() {
	prometheus.MustRegister(transactionsProcessed, transactionsRejected, queueDepth)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// TransactionProcessed counts one successfully applied transaction.
func TransactionProcessed(transactionType string) {
	transactionsProcessed.WithLabelValues(transactionType).Inc()
}

// TransactionRejected counts one transaction dropped by a business rule.
func TransactionRejected(reason string) {
	transactionsRejected.WithLabelValues(reason).Inc()
}

// SetQueueDepth records the current ingestion queue backlog.
func SetQueueDepth(depth int) {
	queueDepth.Set(float64(depth))
}
