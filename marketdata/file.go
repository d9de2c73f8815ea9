package marketdata

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/xyproto/unzip"

	"stocksim/market"
)

// FileProvider serves daily history from a local CSV export instead of a
// network provider, for offline backtests. The file holds one symbol with a
// header line and rows of Date,Open,High,Low,Close,Volume (volume optional).
//
// Supported inputs: plain .csv, .csv.xz, and zip archives containing a
// single .csv entry.
type FileProvider struct {
	path string
}

// NewFileProvider wraps the CSV (or compressed CSV) file at path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// DailyHistory loads the file and returns the bars within [start, end].
// The symbol argument is ignored; the file is the symbol.
func (p *FileProvider) DailyHistory(ctx context.Context, _ string, start, end time.Time) (*market.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bars, err := p.load()
	if err != nil {
		return nil, err
	}

	series, err := market.NewSeries(bars)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.path, err)
	}

	window := series.SliceRange(start, end)
	if len(window) == 0 {
		return nil, fmt.Errorf("%w: %s has no bars in range", ErrNoData, p.path)
	}
	return market.NewSeries(window)
}

func (p *FileProvider) load() ([]market.Bar, error) {
	switch {
	case strings.HasSuffix(p.path, ".zip"):
		return p.loadZip()
	case strings.HasSuffix(p.path, ".xz"):
		return p.loadXZ()
	default:
		f, err := os.Open(p.path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return parseCSV(f)
	}
}

func (p *FileProvider) loadXZ() ([]market.Bar, error) {
	f, err := os.Open(p.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := xz.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open xz stream %s: %w", p.path, err)
	}
	return parseCSV(r)
}

func (p *FileProvider) loadZip() ([]market.Bar, error) {
	dir, err := os.MkdirTemp("", "stocksim-zip-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	if err := unzip.Extract(p.path, dir); err != nil {
		return nil, fmt.Errorf("extract %s: %w", p.path, err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%s: no .csv entry in archive", p.path)
	}
	if len(matches) > 1 {
		return nil, fmt.Errorf("%s: archive holds %d .csv entries, want one", p.path, len(matches))
	}

	f, err := os.Open(matches[0])
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseCSV(f)
}

// parseCSV reads Date,Open,High,Low,Close[,Volume] rows. A single header
// line is skipped; blank lines are ignored.
func parseCSV(r io.Reader) ([]market.Bar, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var bars []market.Bar
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if lineNo == 1 && strings.HasPrefix(strings.ToLower(line), "date") {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) < 5 {
			return nil, fmt.Errorf("line %d: want at least 5 fields, got %d", lineNo, len(fields))
		}

		date, err := time.Parse(dateLayout, strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: parse date: %w", lineNo, err)
		}

		vals := make([]float64, 4)
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(fields[i+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: parse field %d: %w", lineNo, i+1, err)
			}
			vals[i] = v
		}

		bar := market.Bar{
			Date:  market.Day(date),
			Open:  vals[0],
			High:  vals[1],
			Low:   vals[2],
			Close: vals[3],
		}
		if len(fields) > 5 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(fields[5]), 64); err == nil {
				bar.Volume = v
			}
		}
		bars = append(bars, bar)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: file holds no bars", ErrNoData)
	}
	return bars, nil
}
