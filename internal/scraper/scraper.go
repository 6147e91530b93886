package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"flightscraper/internal/config"
	"flightscraper/internal/flight"
	"flightscraper/internal/observability"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// cookieTimeout bounds the wait for the consent dialog, which only shows up
// for fresh sessions in some regions.
var cookieTimeout = 5 * time.Second

type Scraper struct {
	ctx     context.Context
	cfg     *config.Config
	limiter *rate.Limiter
	metrics *observability.Metrics
	now     func() time.Time
}

// New returns a Scraper driving the browser behind ctx. metrics may be nil.
func New(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) *Scraper {
	limit := rate.Inf
	if cfg.NavigationInterval > 0 {
		limit = rate.Every(cfg.NavigationInterval)
	}
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	return &Scraper{
		ctx:     ctx,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		metrics: metrics,
		now:     time.Now,
	}
}

// runWithTimeout runs actions with the configured action timeout.
func (s *Scraper) runWithTimeout(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("parent context canceled: %w", ctx.Err())
	default:
		timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		err := chromedp.Run(timeoutCtx, actions...)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return fmt.Errorf("action context canceled during execution: %w", err)
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("action timed out after %v: %w", timeout, err)
			}
			return err
		}
		return nil
	}
}

// browserCtx scopes ctx to the browser session so cancellation of either
// one stops the actions.
func (s *Scraper) browserCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(s.ctx)
	stop := context.AfterFunc(ctx, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}

// ScrapeFlights searches one itinerary. With bestDay it moves to the
// cheapest date of the price calendar before reading the result cards.
func (s *Scraper) ScrapeFlights(ctx context.Context, it flight.Itinerary, bestDay bool) (*flight.FlightRoute, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, cancel := s.browserCtx(ctx)
	defer cancel()

	log.Info().Str("origin", it.Origin).Str("destination", it.Destination).Msg("scraping flights")

	link := SearchURL(s.cfg.BaseURL, it)
	if err := s.setupPage(ctx, link); err != nil {
		return nil, err
	}
	s.handleCookies(ctx)

	route := flight.NewRoute(it)
	route.URL = link
	route.ScrapedAt = s.now()

	alternatives, err := s.FindAlternatives(ctx)
	if err != nil {
		log.Warn().Err(err).Str("itinerary", it.String()).Msg("price calendar unavailable")
	}
	route.Alternatives = alternatives

	if bestDay {
		return s.ScrapeBestDay(ctx, route)
	}

	route.Options, err = s.GetResults(ctx, s.cfg.NumResults)
	if err != nil {
		return nil, err
	}
	return route, nil
}

// ScrapeBestDay re-runs the search on the cheapest alternative of route.
// Without alternatives it falls back to the options of the requested dates.
func (s *Scraper) ScrapeBestDay(ctx context.Context, route *flight.FlightRoute) (*flight.FlightRoute, error) {
	best, err := route.BestAlternative()
	if errors.Is(err, flight.ErrNoAlternatives) {
		log.Warn().Str("itinerary", route.Itinerary.String()).Msg("no alternatives, keeping requested dates")
		route.Options, err = s.GetResults(ctx, s.cfg.NumResults)
		if err != nil {
			return nil, err
		}
		return route, nil
	}

	it := flight.Itinerary{
		Origin:        route.Itinerary.Origin,
		Destination:   route.Itinerary.Destination,
		DepartureDate: best.DepartureDate,
		ReturnDate:    best.ReturnDate,
	}
	log.Info().
		Str("departure", it.DepartureDate).
		Str("return", it.ReturnDate).
		Float64("price", best.Price).
		Msg("best day found")

	link := SearchURL(s.cfg.BaseURL, it)
	if err := s.setupPage(ctx, link); err != nil {
		return nil, err
	}

	newRoute := flight.NewRoute(it)
	newRoute.URL = link
	newRoute.ScrapedAt = s.now()

	newRoute.Options, err = s.GetResults(ctx, s.cfg.NumResults)
	if err != nil {
		return nil, err
	}

	newRoute.Alternatives, err = s.FindAlternatives(ctx)
	if err != nil {
		log.Warn().Err(err).Str("itinerary", it.String()).Msg("price calendar unavailable")
	}
	return newRoute, nil
}

// FindAlternatives opens the price calendar and reads its cells.
func (s *Scraper) FindAlternatives(ctx context.Context) ([]flight.FlightAlternative, error) {
	sel := s.cfg.Selectors

	var table string
	if err := s.runWithTimeout(ctx, s.cfg.ActionTimeout,
		chromedp.Click(sel.CalendarButton, chromedp.BySearch),
		chromedp.WaitVisible(sel.CalendarTable, chromedp.BySearch),
	); err != nil {
		return []flight.FlightAlternative{}, fmt.Errorf("open price calendar: %w", err)
	}

	// cells keep filling in after the table shows up
	if err := s.runWithTimeout(ctx, s.cfg.ActionTimeout+s.cfg.Delay,
		chromedp.Sleep(s.cfg.Delay),
		chromedp.OuterHTML(sel.CalendarTable, &table, chromedp.BySearch),
	); err != nil {
		return []flight.FlightAlternative{}, fmt.Errorf("read price calendar: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(table))
	if err != nil {
		return []flight.FlightAlternative{}, err
	}

	alternatives, errs := ParseCalendar(doc, sel, s.cfg.Days, s.now())
	for _, err := range errs {
		log.Warn().Err(err).Msg("skipping price calendar cell")
	}
	s.metrics.ObserveParse("calendar", len(alternatives), len(errs))
	log.Info().Int("alternatives", len(alternatives)).Msg("price calendar parsed")

	return alternatives, nil
}

// GetResults reads the first n result cards of the current page.
func (s *Scraper) GetResults(ctx context.Context, n int) ([]flight.FlightOption, error) {
	var html, link string
	if err := s.runWithTimeout(ctx, s.cfg.ActionTimeout+s.cfg.Delay,
		chromedp.Sleep(s.cfg.Delay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&link),
	); err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	options, errs := ParseOptions(doc, s.cfg.Selectors, n, link)
	for _, err := range errs {
		log.Warn().Err(err).Msg("skipping result card")
	}
	s.metrics.ObserveParse("option", len(options), len(errs))
	log.Info().Int("options", len(options)).Msg("results parsed")

	return options, nil
}

// setupPage handles navigation and initial page setup
func (s *Scraper) setupPage(ctx context.Context, link string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	log.Debug().Str("url", link).Msg("navigating")
	start := time.Now()

	if err := s.runWithTimeout(ctx, 2*s.cfg.ActionTimeout,
		chromedp.Navigate(link),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	s.metrics.ObservePageLoad(time.Since(start))
	return nil
}

// handleCookies dismisses the consent dialog when it shows up. Failing to
// find it is expected outside the EU.
func (s *Scraper) handleCookies(ctx context.Context) {
	err := s.runWithTimeout(ctx, cookieTimeout,
		chromedp.Click(s.cfg.Selectors.CookieButton, chromedp.BySearch),
	)
	s.metrics.ObserveCookies(err == nil)
	if err != nil {
		log.Warn().Err(err).Msg("failed to handle cookies pop-up")
	}
}
