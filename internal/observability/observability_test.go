package observability

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.ObserveItinerary(nil)
	m.ObserveItinerary(errors.New("boom"))
	m.ObserveItinerary(nil)
	m.ObserveParse("calendar", 12, 2)
	m.ObserveParse("option", 3, 0)
	m.ObserveCookies(false)

	require.Equal(t, float64(2), testutil.ToFloat64(m.Itineraries.WithLabelValues("ok")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Itineraries.WithLabelValues("failed")))
	require.Equal(t, float64(12), testutil.ToFloat64(m.Alternatives))
	require.Equal(t, float64(3), testutil.ToFloat64(m.Options))
	require.Equal(t, float64(2), testutil.ToFloat64(m.ParseFailures.WithLabelValues("calendar")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Cookies.WithLabelValues("missing")))
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.ObserveItinerary(nil)
	m.ObservePageLoad(1500 * time.Millisecond)

	path := filepath.Join(t.TempDir(), "flightscraper.prom")
	require.NoError(t, m.WriteTextfile(path))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(contents)
	require.True(t, strings.Contains(out, `flightscraper_itineraries_total{status="ok"} 1`), out)
	require.Contains(t, out, "flightscraper_page_load_duration_seconds_count 1")
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, "prod", false)
	l.Debug().Msg("hidden")
	l.Info().Str("origin", "MAD").Msg("visible")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, `"origin":"MAD"`)
}
