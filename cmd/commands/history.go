package commands

import (
	"errors"

	"flightscraper/internal/history"
	"flightscraper/internal/report"

	"github.com/spf13/cobra"
)

var historyFlags struct {
	db          string
	origin      string
	destination string
	limit       int
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyFlags.db, "db", "", "History database, defaults to history_db from the config")
	f.StringVar(&historyFlags.origin, "origin", "", "Only routes from this origin")
	f.StringVar(&historyFlags.destination, "destination", "", "Only routes to this destination")
	f.IntVar(&historyFlags.limit, "limit", 50, "Maximum entries to print")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--origin X] [--destination Y]",
	Short: "Prints the prices recorded by previous scrapes.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.HistoryDB
		if historyFlags.db != "" {
			path = historyFlags.db
		}
		if path == "" {
			return errors.New("no history database, set history_db or pass --db")
		}

		store, err := history.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List(cmd.Context(), history.Query{
			Origin:      historyFlags.origin,
			Destination: historyFlags.destination,
			Limit:       historyFlags.limit,
		})
		if err != nil {
			return err
		}
		report.History(cmd.OutOrStdout(), entries)
		return nil
	},
}
