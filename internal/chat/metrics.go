package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_connected_clients",
		Help: "Number of currently registered clients",
	})

	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Total messages processed by type",
	}, []string{"type"})

	FanoutDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_fanout_seconds",
		Help:    "Time to broadcast and record a join, chat or leave line",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	DeliveryFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_delivery_failures_total",
		Help: "Recipients dropped after a failed broadcast send",
	})
)

func init() {
	prometheus.MustRegister(ConnectedClients)
	prometheus.MustRegister(MessagesTotal)
	prometheus.MustRegister(FanoutDuration)
	prometheus.MustRegister(DeliveryFailures)
}
