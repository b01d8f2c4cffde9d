package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ForecastSentinel/internal/model"
)

// MT4 period codes are bar sizes in minutes.
const (
	PeriodDaily  = "1440"
	PeriodHourly = "60"
)

var mt4TimeLayouts = []string{
	"2006.01.02 15:04",
	"2006.01.02 15:04:05",
	"2006.01.02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// MT4Fetcher reads bars exported by an MT4 script as {symbol}_{period}.csv.
type MT4Fetcher struct {
	BaseDir string
}

// NewMT4Fetcher creates a fetcher reading from baseDir.
func NewMT4Fetcher(baseDir string) *MT4Fetcher {
	return &MT4Fetcher{BaseDir: baseDir}
}

func (f *MT4Fetcher) Name() string { return "mt4" }

// PeriodCode maps a timeframe onto the MT4 file suffix.
func PeriodCode(tf model.Timeframe) string {
	if tf == model.TimeframeHourly {
		return PeriodHourly
	}
	return PeriodDaily
}

// Path returns the feed file for a symbol and timeframe.
func (f *MT4Fetcher) Path(symbol string, tf model.Timeframe) string {
	return filepath.Join(f.BaseDir, fmt.Sprintf("%s_%s.csv", symbol, PeriodCode(tf)))
}

// Fetch reads the semicolon-delimited, headerless date;open;high;low;close file.
func (f *MT4Fetcher) Fetch(ctx context.Context, inst model.Instrument, tf model.Timeframe) (model.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return model.PriceSeries{}, err
	}
	path := f.Path(inst.Symbol, tf)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.PriceSeries{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return model.PriceSeries{}, fmt.Errorf("open feed %s: %w", path, err)
	}
	defer file.Close()

	bars, err := ParseMT4(file)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("%s: %w", path, err)
	}
	if len(bars) == 0 {
		return model.PriceSeries{}, fmt.Errorf("%w: empty feed %s", ErrDataUnavailable, path)
	}
	return model.PriceSeries{
		Symbol:    inst.Symbol,
		Timeframe: tf,
		Bars:      bars,
		FetchedAt: time.Now(),
	}, nil
}

// ParseMT4 decodes feed rows. Any malformed row fails the whole read with ErrParse.
func ParseMT4(r io.Reader) ([]model.Bar, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = 5
	reader.TrimLeadingSpace = true

	var bars []model.Bar
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
		line, _ := reader.FieldPos(0)
		bar, err := parseMT4Record(record)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrParse, line, err)
		}
		bars = append(bars, bar)
	}
	return Normalize(bars), nil
}

func parseMT4Record(record []string) (model.Bar, error) {
	t, err := parseMT4Time(strings.TrimSpace(record[0]))
	if err != nil {
		return model.Bar{}, err
	}
	vals := make([]float64, 4)
	for i, s := range record[1:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return model.Bar{}, fmt.Errorf("column %d %q: %w", i+2, s, err)
		}
		vals[i] = v
	}
	return model.Bar{Time: t, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3]}, nil
}

func parseMT4Time(s string) (time.Time, error) {
	for _, layout := range mt4TimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
