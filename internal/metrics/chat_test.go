package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestChatMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewChatMetrics(reg)

	metrics.IncMessagesSent()
	metrics.IncMessagesSent()
	metrics.IncRejected("rate_limited")
	metrics.IncRejected("")
	metrics.ObserveInbox(15 * time.Millisecond)
	metrics.SubscriberAdded()
	metrics.SubscriberAdded()
	metrics.SubscriberRemoved()

	if got := testutil.ToFloat64(metrics.messagesSent); got != 2 {
		t.Fatalf("expected messages_sent_total=2, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.sendRejected.WithLabelValues("rate_limited")); got != 1 {
		t.Fatalf("expected rate_limited=1, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.sendRejected.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected unknown=1, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.subscribers); got != 1 {
		t.Fatalf("expected inbox_subscribers=1, got %f", got)
	}
	if got := testutil.CollectAndCount(metrics.inboxDuration); got != 1 {
		t.Fatalf("expected one histogram series, got %d", got)
	}
}

func TestNilChatMetricsIsSafe(t *testing.T) {
	var metrics *ChatMetrics
	metrics.IncMessagesSent()
	metrics.IncRejected("x")
	metrics.ObserveInbox(time.Second)
	metrics.SubscriberAdded()

	NewChatMetrics(nil).IncMessagesSent()
}
