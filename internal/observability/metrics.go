package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what a single scrape run did. It owns a private registry so
// runs and tests never share state.
type Metrics struct {
	Registry *prometheus.Registry

	Itineraries   *prometheus.CounterVec
	Alternatives  prometheus.Counter
	Options       prometheus.Counter
	ParseFailures *prometheus.CounterVec
	Cookies       *prometheus.CounterVec
	PageLoad      prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Itineraries: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: "flightscraper", Name: "itineraries_total", Help: "Itineraries processed."},
			[]string{"status"}, // status: ok|failed
		),
		Alternatives: prometheus.NewCounter(
			prometheus.CounterOpts{Namespace: "flightscraper", Name: "alternatives_parsed_total", Help: "Price calendar cells turned into alternatives."},
		),
		Options: prometheus.NewCounter(
			prometheus.CounterOpts{Namespace: "flightscraper", Name: "options_parsed_total", Help: "Result cards turned into options."},
		),
		ParseFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: "flightscraper", Name: "parse_failures_total", Help: "Rows skipped by the parsers."},
			[]string{"kind"}, // kind: calendar|option
		),
		Cookies: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: "flightscraper", Name: "cookie_dialog_total", Help: "Cookie dialog dismissal attempts."},
			[]string{"result"}, // result: dismissed|missing
		),
		PageLoad: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "flightscraper", Name: "page_load_duration_seconds",
				Help:    "Time from navigation start to a ready body.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
		),
	}
	m.Registry.MustRegister(m.Itineraries, m.Alternatives, m.Options, m.ParseFailures, m.Cookies, m.PageLoad)
	return m
}

func (m *Metrics) ObserveItinerary(err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	m.Itineraries.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveParse(kind string, parsed, failed int) {
	switch kind {
	case "calendar":
		m.Alternatives.Add(float64(parsed))
	case "option":
		m.Options.Add(float64(parsed))
	}
	if failed > 0 {
		m.ParseFailures.WithLabelValues(kind).Add(float64(failed))
	}
}

func (m *Metrics) ObserveCookies(dismissed bool) {
	result := "missing"
	if dismissed {
		result = "dismissed"
	}
	m.Cookies.WithLabelValues(result).Inc()
}

func (m *Metrics) ObservePageLoad(d time.Duration) {
	m.PageLoad.Observe(d.Seconds())
}

// WriteTextfile writes every metric to path in the text exposition format,
// for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
