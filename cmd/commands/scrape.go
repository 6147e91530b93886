package commands

import (
	"time"

	"flightscraper/internal/browser"
	"flightscraper/internal/flight"
	"flightscraper/internal/history"
	"flightscraper/internal/observability"
	"flightscraper/internal/report"
	"flightscraper/internal/runner"
	"flightscraper/internal/scraper"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var scrapeFlags struct {
	itineraries   string
	workdir       string
	baseURL       string
	historyDB     string
	metricsFile   string
	headless      bool
	bestDay       bool
	days          int
	results       int
	timeout       int
	actionTimeout int
	delay         int
	interval      int
}

func init() {
	f := scrapeCmd.Flags()
	f.StringVar(&scrapeFlags.itineraries, "itineraries", "", "JSON file listing the itineraries to search")
	f.StringVar(&scrapeFlags.workdir, "workdir", "", "Directory that receives flights_data/")
	f.StringVar(&scrapeFlags.baseURL, "base-url", "", "Flight search page")
	f.StringVar(&scrapeFlags.historyDB, "history-db", "", "Record route prices in this sqlite database")
	f.StringVar(&scrapeFlags.metricsFile, "metrics-file", "", "Write run metrics to this prometheus textfile")
	f.BoolVar(&scrapeFlags.headless, "headless", true, "Run in headless mode")
	f.BoolVar(&scrapeFlags.bestDay, "best-day", true, "Move to the cheapest date of the price calendar")
	f.IntVar(&scrapeFlags.days, "days", 0, "Departure columns in the price calendar")
	f.IntVar(&scrapeFlags.results, "results", 0, "Result cards kept per route")
	f.IntVar(&scrapeFlags.timeout, "timeout", 0, "Global timeout in minutes")
	f.IntVar(&scrapeFlags.actionTimeout, "action-timeout", 0, "Individual action timeout in seconds")
	f.IntVar(&scrapeFlags.delay, "delay", 0, "Seconds to wait for late rendering before a scrape")
	f.IntVar(&scrapeFlags.interval, "interval", 0, "Minimum seconds between page loads")
	rootCmd.AddCommand(scrapeCmd)
}

func applyScrapeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("itineraries") {
		cfg.ItinerariesPath = scrapeFlags.itineraries
	}
	if f.Changed("workdir") {
		cfg.WorkDir = scrapeFlags.workdir
	}
	if f.Changed("base-url") {
		cfg.BaseURL = scrapeFlags.baseURL
	}
	if f.Changed("history-db") {
		cfg.HistoryDB = scrapeFlags.historyDB
	}
	if f.Changed("metrics-file") {
		cfg.MetricsFile = scrapeFlags.metricsFile
	}
	if f.Changed("headless") {
		cfg.Headless = scrapeFlags.headless
	}
	if f.Changed("best-day") {
		cfg.BestDay = scrapeFlags.bestDay
	}
	if f.Changed("days") {
		cfg.Days = scrapeFlags.days
	}
	if f.Changed("results") {
		cfg.NumResults = scrapeFlags.results
	}
	cfg.SetTimeouts(scrapeFlags.timeout*60, scrapeFlags.actionTimeout, scrapeFlags.delay, scrapeFlags.interval)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--itineraries <file.json>] [--workdir <dir>]",
	Short: "Searches every itinerary of a file and writes one JSON file per route.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyScrapeFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}

		itineraries, err := flight.LoadItineraries(cfg.ItinerariesPath)
		if err != nil {
			return err
		}
		log.Info().Int("itineraries", len(itineraries)).Str("file", cfg.ItinerariesPath).Msg("itineraries loaded")

		metrics := observability.NewMetrics()
		r := runner.Runner{
			Metrics: metrics,
			WorkDir: cfg.WorkDir,
			BestDay: cfg.BestDay,
		}

		if cfg.HistoryDB != "" {
			store, err := history.Open(cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()
			r.History = store
		}

		log.Info().Msg("initializing browser")
		ctx, cancel, err := browser.NewChrome(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() {
			log.Info().Msg("cleaning up browser")
			cancel()
		}()

		r.Scraper = scraper.New(ctx, cfg, metrics)

		t1 := time.Now()
		results, runErr := r.Run(cmd.Context(), itineraries)
		log.Info().Float64("seconds", time.Since(t1).Seconds()).Msg("scraping time")

		writeRunOutput(cmd, results, metrics)
		return runErr
	},
}

// writeRunOutput prints the summary table and dumps the run metrics when a
// textfile is configured.
func writeRunOutput(cmd *cobra.Command, results []report.Result, metrics *observability.Metrics) {
	report.Summary(cmd.OutOrStdout(), results)

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Error().Err(err).Str("file", cfg.MetricsFile).Msg("failed to write metrics")
		}
	}
}
