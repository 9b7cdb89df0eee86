package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/notifyhub/chatbridge/internal/chat"
	"github.com/notifyhub/chatbridge/internal/dispatch"
	"github.com/notifyhub/chatbridge/internal/domain"
	"github.com/notifyhub/chatbridge/internal/worker"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	NotificationsDispatched *prometheus.CounterVec
	DispatchLatency         *prometheus.HistogramVec
	Fetches                 *prometheus.CounterVec
	TicksSkipped            prometheus.Counter
	ChatSends               *prometheus.CounterVec
	ChatSessionState        prometheus.Gauge
	Replies                 *prometheus.CounterVec
}

// New registers all instruments with the given Prometheus registerer.
// A custom registry (instead of prometheus.DefaultRegisterer) keeps tests isolated.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NotificationsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_notifications_dispatched_total",
			Help: "Notifications processed by the dispatcher, by kind and outcome.",
		}, []string{"kind", "outcome"}),

		DispatchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bridge_dispatch_seconds",
			Help:    "Time from dispatch start to delivery or abort.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),

		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_upstream_fetches_total",
			Help: "Fetches from the messages service, by result (ok, empty, error).",
		}, []string{"result"}),

		TicksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_poll_ticks_skipped_total",
			Help: "Poll ticks skipped because the previous tick was still running.",
		}),

		ChatSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_chat_sends_total",
			Help: "Outbound chat posts, by route and result.",
		}, []string{"route", "result"}),

		ChatSessionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_chat_session_state",
			Help: "Chat session state: 0 disconnected, 1 connecting, 2 connected.",
		}),

		Replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_inbound_replies_total",
			Help: "Inbound chat replies, by result (accepted, dropped).",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.NotificationsDispatched,
		m.DispatchLatency,
		m.Fetches,
		m.TicksSkipped,
		m.ChatSends,
		m.ChatSessionState,
		m.Replies,
	)

	return m
}

// RegisterQueueDepth exposes the intake queue tiers as gauges read at scrape time.
func RegisterQueueDepth(reg prometheus.Registerer, depths func() (high, normal, low int)) {
	tier := func(name, help string, pick func(h, n, l int) int) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
			return float64(pick(depths()))
		})
	}
	reg.MustRegister(
		tier("bridge_queue_depth_high", "Items waiting in the high-priority intake tier.", func(h, _, _ int) int { return h }),
		tier("bridge_queue_depth_normal", "Items waiting in the normal-priority intake tier.", func(_, n, _ int) int { return n }),
		tier("bridge_queue_depth_low", "Items waiting in the low-priority intake tier.", func(_, _, l int) int { return l }),
	)
}

// DispatchHook returns the callback for dispatch.Dispatcher.SetOutcomeHook.
// Unregistered kinds share one label value to bound cardinality.
func (m *Metrics) DispatchHook() func(domain.EventKind, dispatch.Outcome, time.Duration) {
	return func(kind domain.EventKind, outcome dispatch.Outcome, elapsed time.Duration) {
		label := string(kind)
		if !dispatch.Known(kind) {
			label = "unknown"
		}
		m.NotificationsDispatched.WithLabelValues(label, string(outcome)).Inc()
		m.DispatchLatency.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) PollerHooks() worker.PollerHooks {
	return worker.PollerHooks{
		OnFetch:   func(result string) { m.Fetches.WithLabelValues(result).Inc() },
		OnSkipped: func() { m.TicksSkipped.Inc() },
	}
}

func (m *Metrics) ChannelHooks() chat.Hooks {
	return chat.Hooks{
		OnSend: func(route domain.Route, err error) {
			result := "ok"
			if err != nil {
				result = "error"
			}
			m.ChatSends.WithLabelValues(string(route), result).Inc()
		},
		OnStateChange: func(s chat.State) { m.ChatSessionState.Set(float64(s)) },
		OnReply: func(accepted bool) {
			result := "accepted"
			if !accepted {
				result = "dropped"
			}
			m.Replies.WithLabelValues(result).Inc()
		},
	}
}
