package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"stocksim/market"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS bars (
	symbol TEXT NOT NULL,
	date   TEXT NOT NULL,
	open   REAL NOT NULL,
	high   REAL NOT NULL,
	low    REAL NOT NULL,
	close  REAL NOT NULL,
	volume REAL NOT NULL,
	PRIMARY KEY (symbol, date)
);

CREATE TABLE IF NOT EXISTS spans (
	symbol     TEXT NOT NULL,
	start_date TEXT NOT NULL,
	end_date   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_spans_symbol ON spans(symbol);
`

const dateLayout = "2006-01-02"

// Cache is a read-through sqlite cache in front of another Provider. A
// request served once is recorded as a covered span; later requests inside
// a covered span are answered from disk without touching the upstream.
//
// Only fetched input data is stored, never simulation results.
type Cache struct {
	db       *sql.DB
	upstream Provider
}

// NewCache opens (creating if needed) the cache database at path, caching
// fetches from upstream.
func NewCache(path string, upstream Provider) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open bar cache: %w", err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bar cache schema: %w", err)
	}
	return &Cache{db: db, upstream: upstream}, nil
}

// Close releases the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// DailyHistory serves [start, end] for symbol from the cache when a
// previously fetched span covers the range, and falls through to the
// upstream provider otherwise.
func (c *Cache) DailyHistory(ctx context.Context, symbol string, start, end time.Time) (*market.Series, error) {
	start, end = market.Day(start), market.Day(end)

	covered, err := c.spanCovers(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if covered {
		return c.readBars(ctx, symbol, start, end)
	}

	series, err := c.upstream.DailyHistory(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if err := c.store(ctx, symbol, start, end, series); err != nil {
		return nil, err
	}
	return series, nil
}

func (c *Cache) spanCovers(ctx context.Context, symbol string, start, end time.Time) (bool, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM spans
		WHERE symbol = ? AND start_date <= ? AND end_date >= ?`,
		symbol, start.Format(dateLayout), end.Format(dateLayout),
	)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("query cached spans: %w", err)
	}
	return n > 0, nil
}

func (c *Cache) readBars(ctx context.Context, symbol string, start, end time.Time) (*market.Series, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume FROM bars
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date`,
		symbol, start.Format(dateLayout), end.Format(dateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("read cached bars: %w", err)
	}
	defer rows.Close()

	var bars []market.Bar
	for rows.Next() {
		var dateStr string
		var b market.Bar
		if err := rows.Scan(&dateStr, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan cached bar: %w", err)
		}
		date, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parse cached date %q: %w", dateStr, err)
		}
		b.Date = market.Day(date)
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read cached bars: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: cached span for %q has no bars in range", ErrNoData, symbol)
	}
	return market.NewSeries(bars)
}

func (c *Cache) store(ctx context.Context, symbol string, start, end time.Time, series *market.Series) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache write: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO bars (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare bar insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range series.Bars() {
		if _, err := stmt.ExecContext(ctx,
			symbol, b.Date.Format(dateLayout), b.Open, b.High, b.Low, b.Close, b.Volume,
		); err != nil {
			return fmt.Errorf("insert bar: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO spans (symbol, start_date, end_date) VALUES (?, ?, ?)`,
		symbol, start.Format(dateLayout), end.Format(dateLayout),
	); err != nil {
		return fmt.Errorf("record span: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cache write: %w", err)
	}
	return nil
}
