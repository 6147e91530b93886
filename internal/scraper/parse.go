package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"flightscraper/internal/config"
	"flightscraper/internal/flight"

	"github.com/PuerkitoBio/goquery"
)

const dateFormat = "2006-01-02"

var (
	ErrNoPrice       = errors.New("no price in text")
	ErrUnknownMonth  = errors.New("unknown month")
	ErrBadDate       = errors.New("unrecognized date")
	ErrBadDeparture  = errors.New("unrecognized departure time")
	ErrMissingColumn = errors.New("calendar cell has no matching date column")
)

// English and Spanish abbreviations as the calendar shows them.
var monthMapping = map[string]time.Month{
	"jan": time.January,
	"ene": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"abr": time.April,
	"may": time.May,
	"jun": time.June,
	"jul": time.July,
	"aug": time.August,
	"ago": time.August,
	"sep": time.September,
	"set": time.September,
	"oct": time.October,
	"nov": time.November,
	"dec": time.December,
	"dic": time.December,
}

var (
	dateESRegex   = regexp.MustCompile(`\d{1,2} [a-z]{3}`)
	dateENGRegex  = regexp.MustCompile(`\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec) \d{1,2}\b`)
	priceRegex    = regexp.MustCompile(`^(?:\d[\d.,]*\s?[€$£]|[€$£]\s?\d)`)
	stopsRegex    = regexp.MustCompile(`^\s*(\d+)`)
	whitespace    = regexp.MustCompile(`\s+`)
	nonstopPrefix = []string{"nonstop", "non-stop", "directo", "sin escalas"}

	nbsp = strings.NewReplacer("\u00a0", " ", "\u202f", " ")
)

func normalizeSpace(s string) string {
	// the site separates times and meridiems with U+202F, which \s does not match
	return strings.TrimSpace(whitespace.ReplaceAllString(nbsp.Replace(s), " "))
}

// ParseMonthDay converts a calendar header such as "Oct 12" or "12 oct" to
// YYYY-MM-DD. Months earlier than now's month belong to next year.
func ParseMonthDay(text string, now time.Time) (string, error) {
	fields := strings.Fields(strings.ToLower(normalizeSpace(text)))
	if len(fields) != 2 {
		return "", fmt.Errorf("%w: %q", ErrBadDate, text)
	}

	monthText, dayText := fields[0], fields[1]
	if _, err := strconv.Atoi(monthText); err == nil {
		monthText, dayText = dayText, monthText
	}
	monthText = strings.TrimSuffix(monthText, ".")

	month, ok := monthMapping[monthText]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMonth, monthText)
	}
	day, err := strconv.Atoi(dayText)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrBadDate, text)
	}

	year := now.Year()
	if month < now.Month() {
		year++
	}

	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if date.Month() != month || date.Day() != day {
		return "", fmt.Errorf("%w: %q", ErrBadDate, text)
	}
	return date.Format(dateFormat), nil
}

// ParsePrice returns the number formed by the digits of a price text. Texts
// without a currency mark are not prices.
func ParsePrice(text string) (float64, error) {
	if !strings.ContainsAny(text, "€$£") {
		return 0, fmt.Errorf("%w: %q", ErrNoPrice, text)
	}

	var digits strings.Builder
	for _, c := range text {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	if digits.Len() == 0 {
		return 0, fmt.Errorf("%w: %q", ErrNoPrice, text)
	}
	return strconv.ParseFloat(digits.String(), 64)
}

// ParseDepartureTime turns "10:30 AM on Mon, Oct 21" into "21/10 10:30".
func ParseDepartureTime(text string) (string, error) {
	t, err := time.Parse("3:04 PM on Mon, Jan 2", normalizeSpace(text))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrBadDeparture, text)
	}
	return t.Format("02/01 15:04"), nil
}

// ParseStops reads the number of stops out of a label like "1 stop" or
// "Nonstop". Unknown labels give -1.
func ParseStops(text string) int {
	text = strings.ToLower(normalizeSpace(text))
	for _, prefix := range nonstopPrefix {
		if strings.HasPrefix(text, prefix) {
			return 0
		}
	}
	m := stopsRegex.FindStringSubmatch(text)
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}

// SearchURL builds the natural-language search query for an itinerary.
func SearchURL(base string, it flight.Itinerary) string {
	q := fmt.Sprintf("Flights to %s from %s on %s", it.Destination, it.Origin, it.DepartureDate)
	if !it.OneWay() {
		q += " through " + it.ReturnDate
	}
	// the site reads "+" literally, so spaces go out as %20
	return base + "?q=" + strings.ReplaceAll(url.QueryEscape(q), "+", "%20")
}

// ParseCalendar reads the price calendar. Date headers come first: the
// first `days` are departure dates, the rest return dates. Prices follow in
// row-major order, departure varying fastest. Rows that cannot be resolved
// are skipped and reported.
func ParseCalendar(doc *goquery.Document, sel config.Selectors, days int, now time.Time) ([]flight.FlightAlternative, []error) {
	if days < 1 {
		return []flight.FlightAlternative{}, []error{fmt.Errorf("%w: got %d", config.ErrInvalidDays, days)}
	}

	var headers []string
	var prices []float64

	doc.Find(sel.CalendarCell).Each(func(_ int, cell *goquery.Selection) {
		line := normalizeSpace(cell.Text())
		if m := dateESRegex.FindString(line); m != "" {
			headers = append(headers, m)
			return
		}
		if m := dateENGRegex.FindString(line); m != "" {
			headers = append(headers, m)
			return
		}
		if priceRegex.MatchString(line) {
			price, err := ParsePrice(line)
			if err == nil {
				prices = append(prices, price)
			}
		}
	})

	departures := headers
	var returns []string
	if len(headers) > days {
		departures, returns = headers[:days], headers[days:]
	}

	var errs []error
	alternatives := []flight.FlightAlternative{}
	for i, price := range prices {
		alt, err := pairCalendarCell(i, price, departures, returns, days, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("cell %d: %w", i, err))
			continue
		}
		alternatives = append(alternatives, alt)
	}
	return alternatives, errs
}

func pairCalendarCell(i int, price float64, departures, returns []string, days int, now time.Time) (flight.FlightAlternative, error) {
	if i%days >= len(departures) {
		return flight.FlightAlternative{}, ErrMissingColumn
	}
	departure, err := ParseMonthDay(departures[i%days], now)
	if err != nil {
		return flight.FlightAlternative{}, err
	}

	alt := flight.FlightAlternative{DepartureDate: departure, Price: price}
	if len(returns) == 0 {
		return alt, nil
	}
	if i/days >= len(returns) {
		return flight.FlightAlternative{}, ErrMissingColumn
	}
	alt.ReturnDate, err = ParseMonthDay(returns[i/days], now)
	if err != nil {
		return flight.FlightAlternative{}, err
	}
	return alt, nil
}

// ParseOptions extracts the first n result cards. link is the page the
// cards were read from.
func ParseOptions(doc *goquery.Document, sel config.Selectors, n int, link string) ([]flight.FlightOption, []error) {
	var errs []error
	options := []flight.FlightOption{}

	doc.Find(sel.OptionCard).EachWithBreak(func(i int, card *goquery.Selection) bool {
		if len(options) >= n {
			return false
		}
		opt, err := parseOptionCard(card, sel, link)
		if err != nil {
			errs = append(errs, fmt.Errorf("card %d: %w", i, err))
			return true
		}
		options = append(options, opt)
		return true
	})
	return options, errs
}

func parseOptionCard(card *goquery.Selection, sel config.Selectors, link string) (flight.FlightOption, error) {
	times := card.Find(sel.OptionTimes).First().Find("div")
	if times.Length() < 3 {
		return flight.FlightOption{}, fmt.Errorf("expected departure and arrival times, got %d blocks", times.Length())
	}

	var legs []string
	times.Slice(1, 3).Each(func(_ int, s *goquery.Selection) {
		leg, err := ParseDepartureTime(s.Text())
		if err != nil {
			leg = ""
		}
		legs = append(legs, leg)
	})

	stops := normalizeSpace(card.Find(sel.OptionStops).First().Find("div").First().Text())

	price, err := ParsePrice(card.Find(sel.OptionPrice).First().Text())
	if err != nil {
		price = -1
	}

	return flight.FlightOption{
		Departure: strings.Join(legs, " -> "),
		Carrier:   normalizeSpace(times.Last().Text()),
		Stops:     stops,
		StopCount: ParseStops(stops),
		Price:     price,
		Link:      link,
	}, nil
}
