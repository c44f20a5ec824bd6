// Command inspect checks a crash dataset before it is served: it loads the file the
// way the viewer does and reports on coordinates, severity labels, dates, and
// whether the matrix and density views can be built from it.
//
// Usage:
//
//	go run ./cmd/inspect -data data/bike_crashes.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/bike-crash-explorer/internal/breakdown"
	"github.com/couchcryptid/bike-crash-explorer/internal/config"
	"github.com/couchcryptid/bike-crash-explorer/internal/dataset"
	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
	"github.com/couchcryptid/bike-crash-explorer/internal/geo"
	"github.com/couchcryptid/bike-crash-explorer/internal/hexbin"
	"github.com/couchcryptid/bike-crash-explorer/internal/matrix"
)

// phase tracks pass/fail for an inspection phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataPath := flag.String("data", sharedcfg.EnvOrDefault("DATA_PATH", "data/bike_crashes.csv"), "crash CSV to inspect")
	latField := flag.String("lat", sharedcfg.EnvOrDefault("LAT_FIELD", domain.FieldLatitude), "latitude column")
	lonField := flag.String("lon", sharedcfg.EnvOrDefault("LON_FIELD", domain.FieldLongitude), "longitude column")
	gridSize := flag.Int("grid", hexbin.DefaultGridSize, "hexagons across the map")
	flag.Parse()

	if *dataPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dataPath, dataset.Options{LatField: *latField, LonField: *lonField}, *gridSize); code != 0 {
		os.Exit(code)
	}
}

func run(path string, opts dataset.Options, gridSize int) int {
	fmt.Println("=== Bike Crash Dataset Inspection ===")
	fmt.Println()

	records, stats, err := dataset.LoadFile(context.Background(), path, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	projector, err := geo.NewProjector(config.DefaultBounds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	points, drops := projector.Project(records, domain.FieldLatitude, domain.FieldLongitude)

	phases := []*phase{
		inspectLoad(records, stats),
		inspectCoordinates(records, points, drops, projector.Box()),
		inspectSeverity(records),
		inspectDates(records),
		inspectMatrix(records),
		inspectHexbin(points, gridSize),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-36s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d rows, %d short, %d projected, %d missing coordinates, %d out of range\n",
		stats.Rows, stats.ShortRows, len(points), drops.Missing, drops.OutOfRange)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll checks passed.")
		return 0
	}
	fmt.Println("\nInspection FAILED.")
	return 1
}

func inspectLoad(records []domain.CrashRecord, stats dataset.Stats) *phase {
	p := &phase{name: "Load"}
	if len(records) == 0 {
		p.errorf("file has a header but no rows")
	}
	if stats.ShortRows > 0 {
		fmt.Printf("  note: %d rows shorter than the header, missing cells read as empty\n", stats.ShortRows)
	}
	return p
}

func inspectCoordinates(records []domain.CrashRecord, points []domain.ProjectedPoint, drops geo.Drops, box geo.Box) *phase {
	p := &phase{name: "Coordinates"}
	if len(points) == 0 {
		p.errorf("no record has usable coordinates inside %+v", box)
		return p
	}
	if dropped := drops.Missing + drops.OutOfRange; 2*dropped > len(records) {
		p.errorf("%d of %d records cannot be placed on the map", dropped, len(records))
	}
	if extent, ok := geo.Extent(points); ok {
		latLo, lonLo := geo.ToLatLon(extent.Lo())
		latHi, lonHi := geo.ToLatLon(extent.Hi())
		fmt.Printf("  extent: lat [%.4f, %.4f], lon [%.4f, %.4f]\n", latLo, latHi, lonLo, lonHi)
	}
	return p
}

func inspectSeverity(records []domain.CrashRecord) *phase {
	p := &phase{name: "Severity labels"}
	unknownInjury := make(map[string]int)
	unknownCrash := make(map[string]int)
	for _, r := range records {
		if r.BikeInjury != "" && r.BikeInjury.Rank() < 0 {
			unknownInjury[string(r.BikeInjury)]++
		}
		if r.CrashSevr != "" && !slices.Contains(domain.SeverityLevels[:], r.CrashSevr) {
			unknownCrash[string(r.CrashSevr)]++
		}
	}
	for _, label := range breakdown.SortedKeys(unknownInjury) {
		p.errorf("BikeInjury %q on %d records is not a known severity", label, unknownInjury[label])
	}
	for _, label := range breakdown.SortedKeys(unknownCrash) {
		p.errorf("CrashSevr %q on %d records is not one of the five levels", label, unknownCrash[label])
	}
	return p
}

func inspectDates(records []domain.CrashRecord) *phase {
	p := &phase{name: "Dates"}
	var noYear, noMonth, noHour int
	for _, r := range records {
		if r.Year == 0 {
			noYear++
		}
		if r.Month == "" {
			noMonth++
		}
		if r.Hour == nil {
			noHour++
		}
	}
	if len(records) > 0 && noYear == len(records) {
		p.errorf("no record has a crash year")
	}
	if len(records) > 0 && noMonth == len(records) {
		p.errorf("no record has a recognizable crash month")
	}
	fmt.Printf("  dates: %d without year, %d without month, %d without hour\n", noYear, noMonth, noHour)
	return p
}

func inspectMatrix(records []domain.CrashRecord) *phase {
	p := &phase{name: "Severity matrix"}
	grid, err := matrix.Layout(records, domain.FieldRdSurface, domain.FieldSpeedLimit)
	if err != nil {
		p.errorf("unfiltered matrix: %v", err)
		return p
	}
	features := matrix.FeatureChoices(records, domain.FieldRdFeature, domain.FieldRdSurface, domain.FieldSpeedLimit)
	fmt.Printf("  matrix: %d rows x %d columns, %d road features selectable\n",
		len(grid.Rows), len(grid.Columns), len(features)-1)
	return p
}

func inspectHexbin(points []domain.ProjectedPoint, gridSize int) *phase {
	p := &phase{name: "Hexbin"}
	extent, ok := geo.Extent(points)
	if !ok {
		p.errorf("no extent to bin on")
		return p
	}
	b, err := hexbin.Bin(points, extent, gridSize)
	if err != nil {
		p.errorf("bin: %v", err)
		return p
	}
	total := 0
	for _, bin := range b.Bins {
		total += bin.Count
	}
	if total != b.Points {
		p.errorf("bin counts sum to %d, want %d", total, b.Points)
	}
	if b.Points+b.Outside != len(points) {
		p.errorf("%d binned + %d outside != %d points", b.Points, b.Outside, len(points))
	}
	fmt.Printf("  hexbin: %d of %d tiles populated, max count %d\n", len(b.Bins), b.Tiles, b.MaxCount())
	return p
}
