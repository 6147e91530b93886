package scraper

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"flightscraper/internal/config"
	"flightscraper/internal/flight"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func loadFixture(t testing.TB, name string) *goquery.Document {
	f, err := os.Open(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestParseMonthDay(t *testing.T) {
	october := time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)
	december := time.Date(2026, time.December, 28, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		text     string
		now      time.Time
		expected string
	}{
		{text: "Oct 20", now: october, expected: "2026-10-20"},
		{text: "Nov 3", now: october, expected: "2026-11-03"},
		{text: "20 oct", now: october, expected: "2026-10-20"},
		{text: "12 dic", now: october, expected: "2026-12-12"},
		{text: "ene 4", now: october, expected: "2027-01-04"},
		{text: "Sep 30", now: october, expected: "2027-09-30"},
		{text: "3 SET", now: october, expected: "2027-09-03"},
		{text: "15 abr.", now: october, expected: "2027-04-15"},
		{text: "Dec 31", now: december, expected: "2026-12-31"},
		{text: "Jan 1", now: december, expected: "2027-01-01"},
	}

	for _, test := range testCases {
		date, err := ParseMonthDay(test.text, test.now)
		require.NoError(t, err, test.text)
		require.Equal(t, test.expected, date, test.text)
	}
}

func TestParseMonthDayInvalid(t *testing.T) {
	now := time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC)

	_, err := ParseMonthDay("Foo 12", now)
	require.ErrorIs(t, err, ErrUnknownMonth)

	_, err = ParseMonthDay("Oct", now)
	require.ErrorIs(t, err, ErrBadDate)

	_, err = ParseMonthDay("Oct twelve", now)
	require.ErrorIs(t, err, ErrBadDate)

	// rolls over to 2027, which is not a leap year
	_, err = ParseMonthDay("Feb 29", now)
	require.ErrorIs(t, err, ErrBadDate)
}

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		text     string
		expected float64
	}{
		{text: "€120", expected: 120},
		{text: "120 €", expected: 120},
		{text: "1.210 €", expected: 1210},
		{text: "$1,045", expected: 1045},
		{text: "from £89", expected: 89},
	}
	for _, test := range testCases {
		price, err := ParsePrice(test.text)
		require.NoError(t, err, test.text)
		require.Equal(t, test.expected, price, test.text)
	}

	for _, text := range []string{"120", "Price unavailable", "€", ""} {
		_, err := ParsePrice(text)
		require.ErrorIs(t, err, ErrNoPrice, text)
	}
}

func TestParseDepartureTime(t *testing.T) {
	out, err := ParseDepartureTime("10:30 AM on Mon, Oct 21")
	require.NoError(t, err)
	require.Equal(t, "21/10 10:30", out)

	out, err = ParseDepartureTime("11:05 PM on Sat, Jan 3")
	require.NoError(t, err)
	require.Equal(t, "03/01 23:05", out)

	_, err = ParseDepartureTime("7:15 AM – 8:40 AM")
	require.ErrorIs(t, err, ErrBadDeparture)
}

func TestParseStops(t *testing.T) {
	require.Equal(t, 0, ParseStops("Nonstop"))
	require.Equal(t, 0, ParseStops("Directo"))
	require.Equal(t, 0, ParseStops("Sin escalas"))
	require.Equal(t, 1, ParseStops("1 stop"))
	require.Equal(t, 2, ParseStops("2 escalas"))
	require.Equal(t, -1, ParseStops(""))
}

func TestSearchURL(t *testing.T) {
	base := "https://www.google.com/travel/flights"

	require.Equal(t,
		"https://www.google.com/travel/flights?q=Flights%20to%20LHR%20from%20MAD%20on%202026-11-02%20through%202026-11-09",
		SearchURL(base, flight.Itinerary{Origin: "MAD", Destination: "LHR", DepartureDate: "2026-11-02", ReturnDate: "2026-11-09"}),
	)
	require.Equal(t,
		"https://www.google.com/travel/flights?q=Flights%20to%20JFK%20from%20BCN%20on%202026-12-01",
		SearchURL(base, flight.Itinerary{Origin: "BCN", Destination: "JFK", DepartureDate: "2026-12-01"}),
	)
	require.Equal(t,
		"https://www.google.com/travel/flights?q=Flights%20to%20A%26B%2BC%20from%20St.%20John%27s%20on%202026-11-02",
		SearchURL(base, flight.Itinerary{Origin: "St. John's", Destination: "A&B+C", DepartureDate: "2026-11-02"}),
	)
}

func TestParseCalendar(t *testing.T) {
	sel := config.Default().Selectors
	now := time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC)

	alternatives, errs := ParseCalendar(loadFixture(t, "calendar_en.html"), sel, 3, now)
	require.Empty(t, errs)

	expected := []flight.FlightAlternative{
		{DepartureDate: "2026-10-20", ReturnDate: "2026-10-27", Price: 120},
		{DepartureDate: "2026-10-21", ReturnDate: "2026-10-27", Price: 95},
		{DepartureDate: "2026-10-22", ReturnDate: "2026-10-27", Price: 130},
		{DepartureDate: "2026-10-20", ReturnDate: "2026-10-28", Price: 110},
		{DepartureDate: "2026-10-21", ReturnDate: "2026-10-28", Price: 88},
		{DepartureDate: "2026-10-22", ReturnDate: "2026-10-28", Price: 140},
	}
	if diff := cmp.Diff(expected, alternatives); diff != "" {
		t.Fatalf("alternatives mismatch (-want +got):\n%s", diff)
	}

	route := flight.NewRoute(flight.Itinerary{})
	route.Alternatives = alternatives
	best, err := route.BestAlternative()
	require.NoError(t, err)
	require.Equal(t, float64(88), best.Price)
}

func TestParseCalendarSpanishRollover(t *testing.T) {
	sel := config.Default().Selectors
	now := time.Date(2026, time.December, 15, 0, 0, 0, 0, time.UTC)

	alternatives, errs := ParseCalendar(loadFixture(t, "calendar_es.html"), sel, 2, now)
	require.Empty(t, errs)
	require.Equal(t, []flight.FlightAlternative{
		{DepartureDate: "2026-12-30", ReturnDate: "2027-01-01", Price: 1210},
		{DepartureDate: "2026-12-31", ReturnDate: "2027-01-01", Price: 95},
		{DepartureDate: "2026-12-30", ReturnDate: "2027-01-06", Price: 87},
		{DepartureDate: "2026-12-31", ReturnDate: "2027-01-06", Price: 150},
	}, alternatives)
}

func TestParseCalendarSkipsUnpairedCells(t *testing.T) {
	sel := config.Default().Selectors
	now := time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC)

	// with 4 departure columns there is only one return row for six prices
	alternatives, errs := ParseCalendar(loadFixture(t, "calendar_en.html"), sel, 4, now)
	require.Len(t, alternatives, 4)
	require.Len(t, errs, 2)
	for _, err := range errs {
		require.ErrorIs(t, err, ErrMissingColumn)
	}
}

func TestParseCalendarOneWay(t *testing.T) {
	sel := config.Default().Selectors
	now := time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC)

	// all five headers fit in the departure row
	alternatives, errs := ParseCalendar(loadFixture(t, "calendar_en.html"), sel, 7, now)
	require.Len(t, alternatives, 5)
	require.Len(t, errs, 1)
	require.Equal(t, flight.FlightAlternative{DepartureDate: "2026-10-20", Price: 120}, alternatives[0])
	require.Equal(t, flight.FlightAlternative{DepartureDate: "2026-10-28", Price: 88}, alternatives[4])
}

func TestParseCalendarRejectsNonPositiveDays(t *testing.T) {
	sel := config.Default().Selectors
	now := time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC)

	for _, days := range []int{0, -1} {
		alternatives, errs := ParseCalendar(loadFixture(t, "calendar_en.html"), sel, days, now)
		require.Empty(t, alternatives)
		require.Len(t, errs, 1)
		require.ErrorIs(t, errs[0], config.ErrInvalidDays)
	}
}

func TestParseOptions(t *testing.T) {
	sel := config.Default().Selectors
	link := "https://www.google.com/travel/flights/search?tfs=abc"

	options, errs := ParseOptions(loadFixture(t, "results.html"), sel, 3, link)
	require.Len(t, errs, 1)

	expected := []flight.FlightOption{
		{
			Departure: "02/11 07:15 -> 02/11 08:40",
			Carrier:   "Iberia",
			Stops:     "Nonstop",
			StopCount: 0,
			Price:     132,
			Link:      link,
		},
		{
			Departure: "02/11 18:00 -> 02/11 23:55",
			Carrier:   "Vueling, Iberia",
			Stops:     "1 stop",
			StopCount: 1,
			Price:     98,
			Link:      link,
		},
		{
			Departure: "02/11 09:10 -> 02/11 22:20",
			Carrier:   "Air Europa",
			Stops:     "2 stops",
			StopCount: 2,
			Price:     -1,
			Link:      link,
		},
	}
	if diff := cmp.Diff(expected, options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestParseOptionsLimit(t *testing.T) {
	sel := config.Default().Selectors

	options, _ := ParseOptions(loadFixture(t, "results.html"), sel, 1, "")
	require.Len(t, options, 1)
	require.Equal(t, "Iberia", options[0].Carrier)

	options, errs := ParseOptions(loadFixture(t, "results.html"), sel, 10, "")
	require.Len(t, options, 4)
	require.Len(t, errs, 1)
}
