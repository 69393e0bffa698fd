package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ChatMetrics records messaging activity.
type ChatMetrics struct {
	inboxDuration prometheus.Histogram
	messagesSent  prometheus.Counter
	sendRejected  *prometheus.CounterVec
	subscribers   prometheus.Gauge
}

// NewChatMetrics registers the chat metrics on reg. A nil registerer yields
// a recorder that drops everything.
func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	if reg == nil {
		return &ChatMetrics{}
	}
	inboxDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "inbox_aggregation_duration_seconds",
		Help:    "Time to query and aggregate one inbox snapshot.",
		Buckets: prometheus.DefBuckets,
	})
	messagesSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "messages_sent_total",
		Help: "Messages appended to the message log.",
	})
	sendRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "messages_rejected_total",
		Help: "Message sends rejected before reaching the store.",
	}, []string{"reason"})
	subscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inbox_subscribers",
		Help: "Open inbox subscriptions.",
	})
	reg.MustRegister(inboxDuration, messagesSent, sendRejected, subscribers)
	return &ChatMetrics{
		inboxDuration: inboxDuration,
		messagesSent:  messagesSent,
		sendRejected:  sendRejected,
		subscribers:   subscribers,
	}
}

func (m *ChatMetrics) ObserveInbox(duration time.Duration) {
	if m == nil || m.inboxDuration == nil {
		return
	}
	m.inboxDuration.Observe(duration.Seconds())
}

func (m *ChatMetrics) IncMessagesSent() {
	if m == nil || m.messagesSent == nil {
		return
	}
	m.messagesSent.Inc()
}

func (m *ChatMetrics) IncRejected(reason string) {
	if m == nil || m.sendRejected == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.sendRejected.WithLabelValues(reason).Inc()
}

func (m *ChatMetrics) SubscriberAdded() {
	if m == nil || m.subscribers == nil {
		return
	}
	m.subscribers.Inc()
}

func (m *ChatMetrics) SubscriberRemoved() {
	if m == nil || m.subscribers == nil {
		return
	}
	m.subscribers.Dec()
}
