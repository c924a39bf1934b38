// Command genmock generates the deterministic precipitation fixture used by
// the pipeline test suite and cmd/validate: a three-year daily CSV for two
// synthetic basins, plus the index tables the engine computes from it. The
// tables go through the actual domain package so the fixture always matches
// real pipeline output.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv-out data/mock/basins_2019_2021.csv \
//	  -tables-out data/mock/basins_2019_2021_tables.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hydro-index-service/internal/adapter/csvfile"
	"github.com/couchcryptid/hydro-index-service/internal/domain"
)

// clockAt pins ComputedAt so regenerated fixtures differ only when the data
// or the engine changes.
var clockAt = time.Date(2022, time.January, 15, 6, 0, 0, 0, time.UTC)

// basinDef parameterizes one synthetic basin: a per-month wet chance in
// per-mille and a magnitude range in tenths of a millimeter.
type basinDef struct {
	name        string
	seed        uint64
	wetPerMille [12]uint64
	magScale    uint64
}

var basins = []basinDef{
	{
		name:        "danube",
		seed:        17,
		wetPerMille: [12]uint64{540, 530, 480, 440, 400, 370, 350, 360, 410, 450, 500, 540},
		magScale:    170,
	},
	{
		name:        "rhine",
		seed:        43,
		wetPerMille: [12]uint64{360, 370, 420, 450, 490, 530, 550, 540, 480, 440, 400, 370},
		magScale:    140,
	},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvOut := flag.String("csv-out", "", "output path for the observations CSV fixture")
	tablesOut := flag.String("tables-out", "", "output path for the expected tables JSON fixture")
	flag.Parse()

	if *csvOut == "" || *tablesOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv-out, -tables-out")
	}

	// Fix the clock so ComputedAt is reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(clockAt))
	defer domain.SetClock(nil)

	ds := csvfile.Dataset{}
	for _, b := range basins {
		ds[b.name] = generate(b)
		log.Printf("%s: %d days", b.name, len(ds[b.name]))
	}

	if err := os.MkdirAll(filepath.Dir(*csvOut), 0o755); err != nil {
		return err
	}
	if err := csvfile.Save(*csvOut, ds); err != nil {
		return fmt.Errorf("writing CSV fixture: %w", err)
	}
	log.Printf("wrote CSV fixture: %s", *csvOut)

	tables, err := computeTables(ds)
	if err != nil {
		return err
	}
	if err := writeJSON(*tablesOut, tables); err != nil {
		return fmt.Errorf("writing tables fixture: %w", err)
	}
	log.Printf("wrote tables fixture: %s", *tablesOut)

	printStats(ds, tables)
	return nil
}

// generate builds one basin's series for 2019-01-01 through 2021-12-31.
// Each day is a pure function of (seed, day ordinal), so any regeneration
// reproduces the series exactly.
func generate(def basinDef) domain.Series {
	start := time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, time.December, 31, 0, 0, 0, 0, time.UTC)

	var obs []domain.Observation
	ord := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		obs = append(obs, domain.Observation{
			Date:   domain.NewDate(d.Year(), d.Month(), d.Day()),
			Precip: precipFor(def, ord, d.Month()),
		})
		ord++
	}
	return domain.NewSeries(obs)
}

// precipFor draws one day's precipitation in mm. Sub-threshold drizzle
// (0.1..0.9 mm) and an occasional tripled heavy day are both part of the
// distribution so the wet/dry rule and the R95 tail have work to do.
func precipFor(def basinDef, ord int, m time.Month) float64 {
	h := mix(def.seed<<32 | uint64(ord))
	if h%1000 >= def.wetPerMille[m-1] {
		return 0
	}
	tenths := 1 + (h>>16)%def.magScale
	if (h>>40)%16 == 0 {
		tenths *= 3
	}
	return float64(tenths) / 10
}

// mix is the splitmix64 finalizer.
func mix(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}

// computeTables runs the engine for every basin with year and season blocks,
// default rule, and a 2019-2020 baseline.
func computeTables(ds csvfile.Dataset) ([]domain.Table, error) {
	rule, err := domain.NewWetDryRule(1.0, domain.OpAtLeast)
	if err != nil {
		return nil, err
	}
	baseline := &domain.BaselineRange{StartYear: 2019, EndYear: 2020}

	var tables []domain.Table
	for _, name := range ds.Groups() {
		for _, kind := range []domain.BlockKind{domain.BlockYear, domain.BlockSeason} {
			t, err := domain.ComputeTable(ds[name], domain.TableOptions{
				Group:    name,
				Rule:     rule,
				Kind:     kind,
				Baseline: baseline,
			})
			if err != nil {
				return nil, fmt.Errorf("computing %s/%s: %w", name, kind, err)
			}
			tables = append(tables, t)
		}
	}
	return tables, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(ds csvfile.Dataset, tables []domain.Table) {
	rule, _ := domain.NewWetDryRule(1.0, domain.OpAtLeast)

	fmt.Println("\n=== Stats for updating test assertions ===")
	for _, name := range ds.Groups() {
		s := ds[name]
		var wet, drizzle int
		var total float64
		for _, o := range s {
			total += o.Precip
			if rule.IsWet(o.Precip) {
				wet++
			}
			if o.Precip > 0 && o.Precip < 1 {
				drizzle++
			}
		}
		fmt.Printf("%s: days=%d wet=%d dry=%d drizzle=%d total=%.1f fingerprint=%s\n",
			name, len(s), wet, len(s)-wet, drizzle, total, s.Fingerprint())
	}

	fmt.Println()
	for i := range tables {
		t := &tables[i]
		line := fmt.Sprintf("%s/%s: %d rows, fingerprint=%s", t.Group, t.Kind, len(t.Rows), t.Fingerprint)
		if t.R95Threshold != nil {
			line += fmt.Sprintf(", r95=%.2f mm", *t.R95Threshold)
		}
		fmt.Println(line)
		if t.Kind != domain.BlockYear {
			continue
		}
		for j := range t.Rows {
			r := &t.Rows[j]
			fmt.Printf("  %s: days=%d wet=%d int=%s dsl=%.4f cdd=%d spells=%d int_norm=%s hy_int=%s\n",
				r.Block.Key(), r.Days, r.WetDays, fmtPtr(r.Intensity), r.MeanDrySpell,
				r.MaxDrySpell, r.DrySpells, fmtPtr(r.IntensityNorm), fmtPtr(r.HyInt))
		}
	}
}

func fmtPtr(v *float64) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%.4f", *v)
}
