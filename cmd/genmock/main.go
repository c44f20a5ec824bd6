// Command genmock writes a synthetic bike crash CSV with the columns the explorer
// reads. Output is fully determined by the flags, so fixtures can be regenerated.
//
// Usage:
//
//	go run ./cmd/genmock -n 5000 -seed 7 -out data/bike_crashes_synthetic.csv
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/bike-crash-explorer/internal/breakdown"
	"github.com/couchcryptid/bike-crash-explorer/internal/dataset"
	"github.com/couchcryptid/bike-crash-explorer/internal/domain"
	"github.com/couchcryptid/bike-crash-explorer/internal/matrix"
)

// city is a crash cluster center.
type city struct {
	lat, lon float64
	weight   int
}

var cities = []city{
	{35.2271, -80.8431, 5}, // Charlotte
	{35.7796, -78.6382, 5}, // Raleigh
	{35.9940, -78.8986, 3}, // Durham
	{35.9132, -79.0558, 3}, // Chapel Hill
	{36.0726, -79.7920, 3}, // Greensboro
	{34.2257, -77.9447, 2}, // Wilmington
	{35.5951, -82.5515, 2}, // Asheville
}

var (
	features = []string{"No Special Feature", "Four-Way Intersection", "T-Intersection", "Non-Intersection Median", "Driveway, Private"}
	sexes    = []string{"Male", "Female"}
	areas    = []string{"Urban", "Rural"}
	yesNo    = []string{"Yes", "No"}
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	n := flag.Int("n", 2000, "number of crashes to generate")
	seed := flag.Uint64("seed", 1, "random seed")
	years := flag.Int("years", 5, "number of crash years, ending the year before -as-of")
	asOf := flag.String("as-of", "2020-01-01", "reference date for the year range (YYYY-MM-DD)")
	missing := flag.Float64("missing", 0.02, "fraction of rows without coordinates")
	out := flag.String("out", "", "output CSV path")
	flag.Parse()

	if *out == "" || *n < 1 || *years < 1 {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out, -n >= 1, -years >= 1")
	}
	ref, err := time.Parse(time.DateOnly, *asOf)
	if err != nil {
		return fmt.Errorf("parse -as-of: %w", err)
	}

	// A fixed clock keeps the year range independent of when the command runs.
	clock := clockwork.NewFakeClockAt(ref)
	g := &generator{
		rng:       rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)),
		lastYear:  clock.Now().Year() - 1,
		years:     *years,
		missing:   *missing,
		cityTotal: totalWeight(),
	}

	rows := make([][]string, 0, *n+1)
	rows = append(rows, append([]string{"CrashID"}, domain.Fields...))
	for i := range *n {
		rows = append(rows, g.row(i+1))
	}

	if err := writeCSV(*out, rows); err != nil {
		return fmt.Errorf("writing %s: %w", *out, err)
	}
	log.Printf("wrote %d crashes: %s", *n, *out)

	// Read the file back the way the viewer does.
	records, stats, err := dataset.LoadFile(context.Background(), *out, dataset.DefaultOptions())
	if err != nil {
		return fmt.Errorf("reload %s: %w", *out, err)
	}
	printStats(records, stats)
	return nil
}

type generator struct {
	rng       *rand.Rand
	lastYear  int
	years     int
	missing   float64
	cityTotal int
}

func totalWeight() int {
	total := 0
	for _, c := range cities {
		total += c.weight
	}
	return total
}

func (g *generator) pick(values []string) string {
	return values[g.rng.IntN(len(values))]
}

// pickChoice draws from a filter choice set, skipping its leading "Any".
func (g *generator) pickChoice(choices []string) string {
	return g.pick(choices[1:])
}

func (g *generator) city() city {
	w := g.rng.IntN(g.cityTotal)
	for _, c := range cities {
		if w < c.weight {
			return c
		}
		w -= c.weight
	}
	return cities[0]
}

func (g *generator) row(id int) []string {
	lat, lon := "", ""
	if g.rng.Float64() >= g.missing {
		c := g.city()
		lat = strconv.FormatFloat(c.lat+g.rng.NormFloat64()*0.03, 'f', 6, 64)
		lon = strconv.FormatFloat(c.lon+g.rng.NormFloat64()*0.03, 'f', 6, 64)
	}

	hour := ""
	if g.rng.IntN(50) > 0 {
		// Mean of two draws, so midday hours dominate.
		hour = strconv.Itoa((g.rng.IntN(24) + g.rng.IntN(24)) / 2)
	}

	severity := domain.SeverityCategories
	levels := domain.SeverityLevels

	values := map[string]string{
		domain.FieldLatitude:   lat,
		domain.FieldLongitude:  lon,
		domain.FieldCrashYear:  strconv.Itoa(g.lastYear - g.rng.IntN(g.years)),
		domain.FieldCrashMonth: domain.Months[g.rng.IntN(len(domain.Months))],
		domain.FieldCrashHour:  hour,
		domain.FieldBikeInjury: string(severity[g.rng.IntN(len(severity))]),
		domain.FieldCrashSevr:  string(levels[g.rng.IntN(len(levels))]),
		domain.FieldRdSurface:  g.surface(),
		domain.FieldSpeedLimit: g.pickChoice(domain.SpeedLimitChoices),
		domain.FieldRdFeature:  g.pick(features),
		domain.FieldCrashAlcoh: g.weighted("Yes", 8),
		domain.FieldHitRun:     g.weighted("Yes", 10),
		domain.FieldLightCond:  g.pickChoice(domain.LightCondChoices),
		domain.FieldBikePos:    g.pickChoice(domain.BikePosChoices),
		domain.FieldTraffCntrl: g.pickChoice(domain.TraffCntrlChoices),
		domain.FieldBikeAlcFlg: g.pick(yesNo),
		domain.FieldBikeSex:    g.pick(sexes),
		domain.FieldRuralUrban: g.pick(areas),
	}

	row := make([]string, 0, len(domain.Fields)+1)
	row = append(row, strconv.Itoa(id))
	for _, f := range domain.Fields {
		row = append(row, values[f])
	}
	return row
}

// surface favors smooth asphalt the way real road networks do.
func (g *generator) surface() string {
	if g.rng.IntN(4) > 0 {
		return "Smooth Asphalt"
	}
	return g.pick(matrix.Surfaces)
}

// weighted returns yes with probability 1/oneIn, otherwise "No".
func (g *generator) weighted(yes string, oneIn int) string {
	if g.rng.IntN(oneIn) == 0 {
		return yes
	}
	return "No"
}

func writeCSV(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printStats(records []domain.CrashRecord, stats dataset.Stats) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d (%d short rows)\n", len(records), stats.ShortRows)

	years := breakdown.GroupCounts(records, nil, domain.FieldCrashYear)
	fmt.Print("By year:")
	for _, y := range breakdown.SortedKeys(years.Flat) {
		fmt.Printf(" %s=%d", y, years.Flat[y])
	}
	fmt.Println()

	h := breakdown.SeverityHistogram(records)
	fmt.Print("By injury:")
	for _, bar := range h.Bars {
		fmt.Printf(" %s=%d", bar.Severity.Short(), bar.Count)
	}
	fmt.Println()

	missing := 0
	for _, r := range records {
		if r.Latitude == nil || r.Longitude == nil {
			missing++
		}
	}
	fmt.Printf("Missing coordinates: %d\n", missing)
}
