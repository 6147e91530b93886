package commands

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"flightscraper/internal/scraper"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var parseFlags struct {
	calendar string
	results  string
	days     int
	n        int
}

func init() {
	f := parseCmd.Flags()
	f.StringVar(&parseFlags.calendar, "calendar", "", "Saved price calendar HTML")
	f.StringVar(&parseFlags.results, "results", "", "Saved results page HTML")
	f.IntVar(&parseFlags.days, "days", 0, "Departure columns in the price calendar")
	f.IntVar(&parseFlags.n, "n", 0, "Result cards to keep")
	rootCmd.AddCommand(parseCmd)
}

func readDocument(path string) (*goquery.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return goquery.NewDocumentFromReader(f)
}

var parseCmd = &cobra.Command{
	Use:   "parse --calendar <page.html> | --results <page.html>",
	Short: "Runs the parsers over saved HTML and prints what they extract.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("days") {
			cfg.Days = parseFlags.days
		}
		if cmd.Flags().Changed("n") {
			cfg.NumResults = parseFlags.n
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		days, n := cfg.Days, cfg.NumResults

		var out any
		var errs []error
		switch {
		case parseFlags.calendar != "":
			doc, err := readDocument(parseFlags.calendar)
			if err != nil {
				return err
			}
			out, errs = scraper.ParseCalendar(doc, cfg.Selectors, days, time.Now())
		case parseFlags.results != "":
			doc, err := readDocument(parseFlags.results)
			if err != nil {
				return err
			}
			out, errs = scraper.ParseOptions(doc, cfg.Selectors, n, parseFlags.results)
		default:
			return errors.New("one of --calendar or --results is required")
		}

		for _, err := range errs {
			log.Warn().Err(err).Msg("skipped")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "    ")
		return enc.Encode(out)
	},
}
