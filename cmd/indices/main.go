// Command indices computes hydroclimatic index tables from a daily
// precipitation CSV without running the full service. It loads the CSV,
// computes one table per basin through the same engine the pipeline uses, and
// writes the tables as a JSON array.
//
// Usage:
//
//	go run ./cmd/indices \
//	  -csv data/mock/basins_2019_2021.csv \
//	  -block year \
//	  -baseline-start 2019 -baseline-end 2020 \
//	  -out tables.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/hydro-index-service/internal/adapter/csvfile"
	"github.com/couchcryptid/hydro-index-service/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "input CSV with date,precip_mm or basin,date,precip_mm columns")
	block := flag.String("block", "year", "block kind: year, season, or half_year")
	threshold := flag.Float64("threshold", 1.0, "wet-day threshold in mm")
	wet := flag.String("wet", ">=", "wet comparison: > or >=")
	baselineStart := flag.Int("baseline-start", 0, "first year of the R95 baseline period")
	baselineEnd := flag.Int("baseline-end", 0, "last year of the R95 baseline period")
	from := flag.Int("from", 0, "first year of the selection")
	to := flag.Int("to", 0, "last year of the selection")
	out := flag.String("out", "", "output path for the tables JSON (stdout if empty)")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -csv")
	}

	opts, err := buildOptions(*block, *threshold, *wet, *baselineStart, *baselineEnd, *from, *to)
	if err != nil {
		return err
	}

	ds, err := csvfile.Load(*csvPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", *csvPath, err)
	}

	tables, err := computeAll(ds, opts)
	if err != nil {
		return err
	}

	if *out == "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tables); err != nil {
			return fmt.Errorf("encoding tables: %w", err)
		}
	} else {
		if err := writeJSON(*out, tables); err != nil {
			return fmt.Errorf("writing %s: %w", *out, err)
		}
		log.Printf("wrote %d tables: %s", len(tables), *out)
	}

	printStats(tables)
	return nil
}

func buildOptions(block string, threshold float64, wet string, baselineStart, baselineEnd, from, to int) (domain.TableOptions, error) {
	rule, err := domain.NewWetDryRule(threshold, domain.Op(wet))
	if err != nil {
		return domain.TableOptions{}, err
	}
	kind, err := domain.ParseBlockKind(block)
	if err != nil {
		return domain.TableOptions{}, err
	}

	opts := domain.TableOptions{Rule: rule, Kind: kind}

	if (baselineStart == 0) != (baselineEnd == 0) {
		return domain.TableOptions{}, fmt.Errorf("set both -baseline-start and -baseline-end or neither")
	}
	if baselineStart != 0 {
		opts.Baseline = &domain.BaselineRange{StartYear: baselineStart, EndYear: baselineEnd}
		if err := opts.Baseline.Validate(); err != nil {
			return domain.TableOptions{}, err
		}
	}

	if (from == 0) != (to == 0) {
		return domain.TableOptions{}, fmt.Errorf("set both -from and -to or neither")
	}
	if from != 0 {
		opts.Years = &domain.YearSelection{From: from, To: to}
		if err := opts.Years.Validate(); err != nil {
			return domain.TableOptions{}, err
		}
	}

	return opts, nil
}

// computeAll runs the engine once per basin, in parallel. Output order
// follows the sorted basin names regardless of completion order.
func computeAll(ds csvfile.Dataset, opts domain.TableOptions) ([]domain.Table, error) {
	groups := ds.Groups()
	tables := make([]domain.Table, len(groups))

	var g errgroup.Group
	for i, name := range groups {
		g.Go(func() error {
			o := opts
			o.Group = name
			table, err := domain.ComputeTable(ds[name], o)
			if err != nil {
				return fmt.Errorf("computing %s: %w", name, err)
			}
			tables[i] = table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
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

func printStats(tables []domain.Table) {
	fmt.Fprintln(os.Stderr, "\n=== Table summary ===")
	for i := range tables {
		t := &tables[i]
		days := 0
		for j := range t.Rows {
			days += t.Rows[j].Days
		}
		line := fmt.Sprintf("%s: %d blocks, %d days, fingerprint %s", t.Group, len(t.Rows), days, t.Fingerprint)
		if t.R95Threshold != nil {
			line += fmt.Sprintf(", r95 threshold %.2f mm", *t.R95Threshold)
		}
		fmt.Fprintln(os.Stderr, line)
	}
}
