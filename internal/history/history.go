// Package history keeps a log of what every scrape found so price changes
// for a route can be followed across runs.
package history

import (
	"context"
	"database/sql"
	"time"

	"flightscraper/internal/flight"

	_ "modernc.org/sqlite"
)

const Schema = `
create table if not exists route_prices (
	id integer primary key autoincrement,
	scraped_at integer not null,
	origin text not null,
	destination text not null,
	departure_date text not null,
	return_date text not null,
	best_price real,
	option_price real,
	options integer not null,
	alternatives integer not null,
	file text not null
);

create index if not exists route_prices_by_route
	on route_prices (origin, destination, scraped_at);
`

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path.
func Open(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, err
	}
	store, err := NewStore(db)
	if err != nil {
		db.Close()
		return Store{}, err
	}
	return store, nil
}

func NewStore(db *sql.DB) (Store, error) {
	if _, err := db.Exec(Schema); err != nil {
		return Store{}, err
	}
	return Store{db: db}, nil
}

func (s Store) Close() error {
	return s.db.Close()
}

type Entry struct {
	ScrapedAt     time.Time
	Origin        string
	Destination   string
	DepartureDate string
	ReturnDate    string
	// BestPrice is the cheapest calendar price, OptionPrice the cheapest
	// result card. Either is absent when nothing was scraped.
	BestPrice    sql.NullFloat64
	OptionPrice  sql.NullFloat64
	Options      int
	Alternatives int
	File         string
}

// Record appends what route contains. file is where the route was saved.
func (s Store) Record(ctx context.Context, route *flight.FlightRoute, file string) error {
	var best, option sql.NullFloat64
	if alt, err := route.BestAlternative(); err == nil {
		best = sql.NullFloat64{Float64: alt.Price, Valid: true}
	}
	if opt, ok := route.CheapestOption(); ok {
		option = sql.NullFloat64{Float64: opt.Price, Valid: true}
	}

	scrapedAt := route.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`insert into route_prices (
			scraped_at, origin, destination, departure_date, return_date,
			best_price, option_price, options, alternatives, file
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		scrapedAt.Unix(),
		route.Itinerary.Origin,
		route.Itinerary.Destination,
		route.Itinerary.DepartureDate,
		route.Itinerary.ReturnDate,
		best,
		option,
		len(route.Options),
		len(route.Alternatives),
		file,
	)
	return err
}

// Query filters on origin and destination when they are not empty. Newest
// entries come first.
type Query struct {
	Origin      string
	Destination string
	Limit       int
}

func (s Store) List(ctx context.Context, q Query) ([]Entry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`select scraped_at, origin, destination, departure_date, return_date,
			best_price, option_price, options, alternatives, file
		from route_prices
		where (? = '' or origin = ?) and (? = '' or destination = ?)
		order by scraped_at desc, id desc
		limit ?`,
		q.Origin, q.Origin, q.Destination, q.Destination, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var scrapedAt int64
		err := rows.Scan(
			&scrapedAt, &e.Origin, &e.Destination, &e.DepartureDate, &e.ReturnDate,
			&e.BestPrice, &e.OptionPrice, &e.Options, &e.Alternatives, &e.File,
		)
		if err != nil {
			return nil, err
		}
		e.ScrapedAt = time.Unix(scrapedAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
