package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flightscraper/internal/flight"
	"flightscraper/internal/observability"
	"flightscraper/internal/report"

	"github.com/rs/zerolog/log"
)

var ErrAllFailed = errors.New("every itinerary failed")

// RouteScraper is implemented by *scraper.Scraper.
type RouteScraper interface {
	ScrapeFlights(ctx context.Context, it flight.Itinerary, bestDay bool) (*flight.FlightRoute, error)
}

// Recorder is implemented by history.Store.
type Recorder interface {
	Record(ctx context.Context, route *flight.FlightRoute, file string) error
}

type Runner struct {
	Scraper RouteScraper
	History Recorder // optional
	Metrics *observability.Metrics
	WorkDir string
	BestDay bool
	Now     func() time.Time
}

// Run scrapes the itineraries one after the other and saves every route. A
// failing itinerary is logged and does not stop the batch; cancellation of
// ctx does.
func (r Runner) Run(ctx context.Context, itineraries []flight.Itinerary) ([]report.Result, error) {
	now := r.Now
	if now == nil {
		now = time.Now
	}
	metrics := r.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics()
	}

	results := make([]report.Result, 0, len(itineraries))
	failed := 0
	for i, it := range itineraries {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		logger := log.With().Int("n", i+1).Int("of", len(itineraries)).Str("itinerary", it.String()).Logger()
		result := r.runOne(ctx, it, now)
		metrics.ObserveItinerary(result.Err)
		if result.Err != nil {
			failed++
			logger.Error().Err(result.Err).Msg("itinerary failed")
		} else {
			logger.Info().Str("file", result.File).Msg("route saved")
		}
		results = append(results, result)
	}

	if len(itineraries) > 0 && failed == len(itineraries) {
		return results, ErrAllFailed
	}
	return results, nil
}

func (r Runner) runOne(ctx context.Context, it flight.Itinerary, now func() time.Time) report.Result {
	result := report.Result{Requested: it}

	route, err := r.Scraper.ScrapeFlights(ctx, it, r.BestDay)
	if err != nil {
		result.Err = fmt.Errorf("scrape: %w", err)
		return result
	}
	result.Route = route

	file, err := route.SaveJSON(r.WorkDir, now())
	if err != nil {
		result.Err = fmt.Errorf("save: %w", err)
		return result
	}
	result.File = file

	if r.History != nil {
		if err := r.History.Record(ctx, route, file); err != nil {
			// the route file is already on disk
			log.Warn().Err(err).Str("file", file).Msg("failed to record history")
		}
	}
	return result
}
