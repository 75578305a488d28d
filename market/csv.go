package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadCSV reads a candle series from a CSV file with columns
// time,open,high,low,close,volume. The time column is RFC3339. A
// leading header row is skipped if present.
func LoadCSV(path, instrument string, granularity time.Duration) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var candles []Candle
	first := true

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 {
			continue
		}
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}
		c, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		candles = append(candles, c)
	}

	return NewSeries(instrument, granularity, candles), nil
}

// WriteCSV writes the series in the format LoadCSV reads, including a
// header row.
func WriteCSV(path string, s *Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, c := range s.Candles {
		rec := []string{
			c.Time.UTC().Format(time.RFC3339),
			ftoa(c.Open), ftoa(c.High), ftoa(c.Low), ftoa(c.Close), ftoa(c.Volume),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func parseRow(row []string) (Candle, error) {
	if len(row) < 6 {
		return Candle{}, fmt.Errorf("bad row (need time,open,high,low,close,volume): %v", row)
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(row[0]))
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, strings.TrimSpace(row[0]))
		if err != nil {
			return Candle{}, fmt.Errorf("bad time %q: %w", row[0], err)
		}
	}

	vals := make([]float64, 5)
	for i := 1; i < 6; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		if err != nil {
			return Candle{}, fmt.Errorf("bad value %q: %w", row[i], err)
		}
		vals[i-1] = v
	}

	return Candle{
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
		Time:   t,
	}, nil
}

func ftoa(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
