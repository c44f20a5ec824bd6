// Package dataset loads the crash extract and holds the process-wide dataset.
package dataset

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
)

// Options names the source columns holding coordinates.
type Options struct {
	LatField string
	LonField string
}

// DefaultOptions reads the extract's own column names.
func DefaultOptions() Options {
	return Options{LatField: domain.FieldLatitude, LonField: domain.FieldLongitude}
}

// Stats describes one load.
type Stats struct {
	Rows      int
	ShortRows int // rows with fewer cells than the header; missing cells read as empty
}

// LoadFile opens path and parses it with Load.
func LoadFile(ctx context.Context, path string, opts Options) ([]domain.CrashRecord, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	records, stats, err := Load(ctx, f, opts)
	if err != nil {
		return nil, stats, fmt.Errorf("load %s: %w", path, err)
	}
	return records, stats, nil
}

// Load parses a comma-delimited extract with a header row. The header must name both
// coordinate columns; every other column is optional.
func Load(ctx context.Context, r io.Reader, opts Options) ([]domain.CrashRecord, Stats, error) {
	var stats Stats

	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, stats, errors.New("read header: empty file")
	}
	if err != nil {
		return nil, stats, fmt.Errorf("read header: %w", err)
	}
	colIdx, err := columnIndex(header, opts)
	if err != nil {
		return nil, stats, err
	}

	var records []domain.CrashRecord
	fields := make(map[string]string, len(colIdx))
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read row: %w", err)
		}
		stats.Rows++
		if stats.Rows%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}
		if len(row) < len(header) {
			stats.ShortRows++
		}

		for name, i := range colIdx {
			if i < len(row) {
				fields[name] = row[i]
			} else {
				fields[name] = ""
			}
		}
		records = append(records, domain.ParseRecord(fields))
	}
	return records, stats, nil
}

// columnIndex maps the explorer's field names to header positions, renaming the
// configured coordinate columns to Latitude and Longitude.
func columnIndex(header []string, opts Options) (map[string]int, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := byName[h]; !dup {
			byName[h] = i
		}
	}

	idx := make(map[string]int, len(domain.Fields))
	for _, f := range domain.Fields {
		if i, ok := byName[f]; ok {
			idx[f] = i
		}
	}
	delete(idx, domain.FieldLatitude)
	delete(idx, domain.FieldLongitude)

	lat, ok := byName[opts.LatField]
	if !ok {
		return nil, fmt.Errorf("read header: no latitude column %q", opts.LatField)
	}
	lon, ok := byName[opts.LonField]
	if !ok {
		return nil, fmt.Errorf("read header: no longitude column %q", opts.LonField)
	}
	idx[domain.FieldLatitude] = lat
	idx[domain.FieldLongitude] = lon
	return idx, nil
}
