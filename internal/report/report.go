package report

import (
	"fmt"
	"io"
	"strconv"

	"flightscraper/internal/flight"
	"flightscraper/internal/history"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Result is the outcome of one itinerary in a scrape run.
type Result struct {
	Requested flight.Itinerary
	Route     *flight.FlightRoute
	File      string
	Err       error
}

func NewTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func formatPrice(p float64) string {
	if p <= 0 {
		return "-"
	}
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func formatNull(valid bool, p float64) string {
	if !valid {
		return "-"
	}
	return formatPrice(p)
}

func orOneWay(date string) string {
	if date == "" {
		return "one way"
	}
	return date
}

// Summary renders one row per itinerary of a run.
func Summary(w io.Writer, results []Result) {
	t := NewTable(w)
	t.AppendHeader(table.Row{"Route", "Requested", "Scraped dates", "Best calendar price", "Cheapest option", "Options", "File / error"})

	ok := 0
	for _, r := range results {
		requested := fmt.Sprintf("%s / %s", r.Requested.DepartureDate, orOneWay(r.Requested.ReturnDate))
		route := fmt.Sprintf("%s → %s", r.Requested.Origin, r.Requested.Destination)
		if r.Err != nil || r.Route == nil {
			msg := "no route"
			if r.Err != nil {
				msg = r.Err.Error()
			}
			t.AppendRow(table.Row{route, requested, "-", "-", "-", 0, msg})
			continue
		}
		ok++

		best := "-"
		if alt, err := r.Route.BestAlternative(); err == nil {
			best = formatPrice(alt.Price)
		}
		cheapest := "-"
		if opt, found := r.Route.CheapestOption(); found {
			cheapest = fmt.Sprintf("%s (%s)", formatPrice(opt.Price), opt.Carrier)
		}
		scraped := fmt.Sprintf("%s / %s", r.Route.Itinerary.DepartureDate, orOneWay(r.Route.Itinerary.ReturnDate))

		t.AppendRow(table.Row{route, requested, scraped, best, cheapest, len(r.Route.Options), r.File})
	}

	t.AppendFooter(table.Row{"", "", "", "", "", "", fmt.Sprintf("%d/%d ok", ok, len(results))})
	t.Render()
}

// History renders recorded prices, newest first.
func History(w io.Writer, entries []history.Entry) {
	t := NewTable(w)
	t.AppendHeader(table.Row{"Scraped at", "Route", "Departure", "Return", "Best calendar price", "Cheapest option", "File"})
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.ScrapedAt.Format("2006-01-02 15:04"),
			fmt.Sprintf("%s → %s", e.Origin, e.Destination),
			e.DepartureDate,
			orOneWay(e.ReturnDate),
			formatNull(e.BestPrice.Valid, e.BestPrice.Float64),
			formatNull(e.OptionPrice.Valid, e.OptionPrice.Float64),
			e.File,
		})
	}
	t.Render()
}
