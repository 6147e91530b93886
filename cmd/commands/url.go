package commands

import (
	"fmt"

	"flightscraper/internal/flight"
	"flightscraper/internal/scraper"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(urlCmd)
}

var urlCmd = &cobra.Command{
	Use:   "url <origin> <destination> <departure> [return]",
	Short: "Prints the search URL used for an itinerary.",
	Args:  cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		it := flight.Itinerary{
			Origin:        args[0],
			Destination:   args[1],
			DepartureDate: args[2],
		}
		if len(args) == 4 {
			it.ReturnDate = args[3]
		}
		fmt.Fprintln(cmd.OutOrStdout(), scraper.SearchURL(cfg.BaseURL, it))
		return nil
	},
}
