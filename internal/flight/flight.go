package flight

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DataDir is the directory under the work dir that receives route files.
const DataDir = "flights_data"

var ErrNoAlternatives = errors.New("route has no alternatives")

// Itinerary is a requested origin/destination/date search.
type Itinerary struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
	ReturnDate    string `json:"return_date,omitempty"`
}

func (i Itinerary) OneWay() bool {
	return i.ReturnDate == ""
}

// FileName derives the route file name from the day the scrape ran and
// the itinerary itself, e.g. "10-17_MAD_LHR_2026-11-02_2026-11-09.json".
func (i Itinerary) FileName(now time.Time) string {
	ret := i.ReturnDate
	if ret == "" {
		ret = "oneway"
	}
	return fmt.Sprintf(
		"%d-%d_%s_%s_%s_%s.json",
		int(now.Month()), now.Day(),
		i.Origin, i.Destination, i.DepartureDate, ret,
	)
}

func (i Itinerary) String() string {
	if i.OneWay() {
		return fmt.Sprintf("%s -> %s on %s", i.Origin, i.Destination, i.DepartureDate)
	}
	return fmt.Sprintf("%s -> %s on %s through %s", i.Origin, i.Destination, i.DepartureDate, i.ReturnDate)
}

// FlightOption is one bookable result card.
type FlightOption struct {
	Departure string  `json:"departure"`
	Carrier   string  `json:"carrier"`
	Stops     string  `json:"stops"`
	StopCount int     `json:"stop_count"`
	Price     float64 `json:"price"`
	Link      string  `json:"link"`
}

// FlightAlternative is one cell of the price calendar.
type FlightAlternative struct {
	DepartureDate string  `json:"departure_date"`
	ReturnDate    string  `json:"return_date,omitempty"`
	Price         float64 `json:"price"`
}

type FlightRoute struct {
	Itinerary    Itinerary           `json:"itinerary"`
	Options      []FlightOption      `json:"options"`
	Alternatives []FlightAlternative `json:"alternatives"`
	ScrapedAt    time.Time           `json:"scraped_at"`
	URL          string              `json:"url,omitempty"`
}

func NewRoute(itinerary Itinerary) *FlightRoute {
	return &FlightRoute{
		Itinerary:    itinerary,
		Options:      []FlightOption{},
		Alternatives: []FlightAlternative{},
	}
}

// BestAlternative returns the cheapest alternative, the first one wins on ties.
func (r *FlightRoute) BestAlternative() (FlightAlternative, error) {
	if len(r.Alternatives) == 0 {
		return FlightAlternative{}, ErrNoAlternatives
	}
	best := r.Alternatives[0]
	for _, alt := range r.Alternatives[1:] {
		if alt.Price < best.Price {
			best = alt
		}
	}
	return best, nil
}

// CheapestOption returns the cheapest option that carries a price.
func (r *FlightRoute) CheapestOption() (FlightOption, bool) {
	var best FlightOption
	found := false
	for _, opt := range r.Options {
		if opt.Price <= 0 {
			continue
		}
		if !found || opt.Price < best.Price {
			best = opt
			found = true
		}
	}
	return best, found
}

// SaveJSON writes the route under <workdir>/flights_data and returns the
// path of the written file.
func (r *FlightRoute) SaveJSON(workdir string, now time.Time) (string, error) {
	dir := filepath.Join(workdir, DataDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	contents, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return "", err
	}

	out := filepath.Join(dir, r.Itinerary.FileName(now))
	if err := os.WriteFile(out, contents, 0o644); err != nil {
		return "", fmt.Errorf("write route: %w", err)
	}
	return out, nil
}
