package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	namespace       string
	reg             prometheus.Registerer
	updates         *prometheus.CounterVec
	replies         *prometheus.CounterVec
	webViewPayloads *prometheus.CounterVec
	quoteRequests   prometheus.Counter
	documentsSaved  *prometheus.CounterVec
}

// New builds the collectors and registers them with reg. A nil reg means the
// default registerer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		namespace: namespace,
		reg:       reg,
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "updates_total",
			Help:      "Telegram updates by classified kind.",
		}, []string{"kind"}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "replies_total",
			Help:      "Replies sent to Telegram by outcome.",
		}, []string{"status"}),
		webViewPayloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "web_view_payloads_total",
			Help:      "Mini-app payloads by decoded format.",
		}, []string{"format"}),
		quoteRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "quote_requests_total",
			Help:      "Product quote requests received from the mini-app.",
		}),
		documentsSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admin",
			Name:      "documents_saved_total",
			Help:      "Catalog and config saves by outcome.",
		}, []string{"kind", "status"}),
	}
	reg.MustRegister(m.updates, m.replies, m.webViewPayloads, m.quoteRequests, m.documentsSaved)
	return m
}

// TrackActiveChats registers a gauge reading the number of chats with a live
// send limiter from fn at scrape time.
func (m *Metrics) TrackActiveChats(fn func() int) {
	if m == nil {
		return
	}
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "bot",
		Name:      "throttled_chats",
		Help:      "Chats currently holding a send rate limiter.",
	}, func() float64 { return float64(fn()) }))
}

func (m *Metrics) ObserveUpdate(kind string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveReply(err error) {
	if m == nil {
		return
	}
	m.replies.WithLabelValues(status(err)).Inc()
}

func (m *Metrics) ObserveWebViewPayload(format string) {
	if m == nil {
		return
	}
	m.webViewPayloads.WithLabelValues(format).Inc()
}

func (m *Metrics) ObserveQuoteRequest() {
	if m == nil {
		return
	}
	m.quoteRequests.Inc()
}

func (m *Metrics) ObserveDocumentSaved(kind string, err error) {
	if m == nil {
		return
	}
	m.documentsSaved.WithLabelValues(kind, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
