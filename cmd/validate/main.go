// Command validate performs end-to-end integrity checks on the mock data
// fixtures: the observations CSV and the expected tables JSON. It verifies
// series continuity, reproduces every table through the engine, and checks
// the index invariants and cross-table sums that must hold for any input.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -csv data/mock/basins_2019_2021.csv \
//	  -tables data/mock/basins_2019_2021_tables.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hydro-index-service/internal/adapter/csvfile"
	"github.com/couchcryptid/hydro-index-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvPath := flag.String("csv", "", "path to the observations CSV fixture")
	tablesPath := flag.String("tables", "", "path to the expected tables JSON fixture")
	flag.Parse()

	if *csvPath == "" || *tablesPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*csvPath, *tablesPath); code != 0 {
		os.Exit(code)
	}
}

func run(csvPath, tablesPath string) int {
	// Set a fixed clock matching genmock for ComputedAt reproducibility.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2022, time.January, 15, 6, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	// ── Load all data sources ──
	fmt.Println("=== Hydro Index Fixture Validation ===")
	fmt.Println()

	ds, err := csvfile.Load(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load CSV: %v\n", err)
		return 1
	}

	tables, err := loadTables(tablesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load tables JSON: %v\n", err)
		return 1
	}

	// ── Run validation phases ──
	phases := []*phase{
		validateSeriesIntegrity(ds),
		validateEngineReproduction(ds, tables),
		validateIndexInvariants(tables),
		validateCrossTableConsistency(tables),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d basins, %d observation days, %d tables, %d rows\n",
		len(ds), countDays(ds), len(tables), countRows(tables))

	// Print detailed errors.
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
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadTables(path string) ([]domain.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tables []domain.Table
	if err := json.Unmarshal(data, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

func countDays(ds csvfile.Dataset) int {
	n := 0
	for _, s := range ds {
		n += len(s)
	}
	return n
}

func countRows(tables []domain.Table) int {
	n := 0
	for i := range tables {
		n += len(tables[i].Rows)
	}
	return n
}

// ── Phase 1: Series Integrity ──
// Validates that every basin series is daily-continuous with sane values.

func validateSeriesIntegrity(ds csvfile.Dataset) *phase {
	p := &phase{name: "Phase 1: Series Integrity (CSV)"}

	if len(ds) == 0 {
		p.errorf("dataset holds no basins")
		return p
	}

	for _, basin := range ds.Groups() {
		s := ds[basin]
		if len(s) == 0 {
			p.errorf("%s: empty series", basin)
			continue
		}
		for i, o := range s {
			if o.Precip < 0 {
				p.errorf("%s %s: negative precipitation %g", basin, o.Date, o.Precip)
			}
			if i == 0 {
				continue
			}
			want := s[i-1].Date.AddDate(0, 0, 1)
			switch {
			case o.Date.Equal(s[i-1].Date.Time):
				p.errorf("%s %s: duplicate date", basin, o.Date)
			case !o.Date.Equal(want):
				p.errorf("%s: gap between %s and %s", basin, s[i-1].Date, o.Date)
			}
		}
	}
	return p
}

// ── Phase 2: Engine Reproduction ──
// Recomputes every fixture table through the engine and compares field by
// field.

func validateEngineReproduction(ds csvfile.Dataset, tables []domain.Table) *phase {
	p := &phase{name: "Phase 2: Engine Reproduction (tables)"}

	for ti := range tables {
		want := &tables[ti]
		id := want.Group + "/" + string(want.Kind)

		series, ok := ds[want.Group]
		if !ok {
			p.errorf("%s: basin not in CSV", id)
			continue
		}

		got, err := domain.ComputeTable(series, domain.TableOptions{
			Group:    want.Group,
			Rule:     want.Rule,
			Kind:     want.Kind,
			Baseline: want.Baseline,
		})
		if err != nil {
			p.errorf("%s: recompute: %v", id, err)
			continue
		}

		compareTables(p, id, want, &got)
	}
	return p
}

func compareTables(p *phase, id string, want, got *domain.Table) {
	if got.Fingerprint != want.Fingerprint {
		p.errorf("%s: fingerprint: expected %s, got %s", id, want.Fingerprint, got.Fingerprint)
	}
	if !ptrFloatEq(got.R95Threshold, want.R95Threshold) {
		p.errorf("%s: r95 threshold: expected %s, got %s", id, ptrFmt(want.R95Threshold), ptrFmt(got.R95Threshold))
	}
	if !got.ComputedAt.Equal(want.ComputedAt) {
		p.errorf("%s: computed_at: expected %s, got %s", id,
			want.ComputedAt.Format(time.RFC3339), got.ComputedAt.Format(time.RFC3339))
	}
	if len(got.Rows) != len(want.Rows) {
		p.errorf("%s: expected %d rows, got %d", id, len(want.Rows), len(got.Rows))
		return
	}
	for i := range want.Rows {
		compareRows(p, id, &want.Rows[i], &got.Rows[i])
	}
}

func compareRows(p *phase, id string, want, got *domain.Row) {
	key := fmt.Sprintf("%s row %s", id, want.Block.Key())

	if got.Block != want.Block {
		p.errorf("%s: block: expected %s, got %s", key, want.Block.Key(), got.Block.Key())
	}
	if got.Days != want.Days {
		p.errorf("%s: days: expected %d, got %d", key, want.Days, got.Days)
	}
	if !floatEq(got.TotalPrecip, want.TotalPrecip) {
		p.errorf("%s: total: expected %g, got %g", key, want.TotalPrecip, got.TotalPrecip)
	}
	if got.WetDays != want.WetDays {
		p.errorf("%s: wet days: expected %d, got %d", key, want.WetDays, got.WetDays)
	}
	if got.DryDays != want.DryDays {
		p.errorf("%s: dry days: expected %d, got %d", key, want.DryDays, got.DryDays)
	}
	if !ptrFloatEq(got.Intensity, want.Intensity) {
		p.errorf("%s: intensity: expected %s, got %s", key, ptrFmt(want.Intensity), ptrFmt(got.Intensity))
	}
	if !floatEq(got.MeanDrySpell, want.MeanDrySpell) {
		p.errorf("%s: mean dry spell: expected %g, got %g", key, want.MeanDrySpell, got.MeanDrySpell)
	}
	if got.MaxDrySpell != want.MaxDrySpell {
		p.errorf("%s: max dry spell: expected %d, got %d", key, want.MaxDrySpell, got.MaxDrySpell)
	}
	if got.DrySpells != want.DrySpells {
		p.errorf("%s: dry spells: expected %d, got %d", key, want.DrySpells, got.DrySpells)
	}
	if !ptrFloatEq(got.R95Total, want.R95Total) {
		p.errorf("%s: r95 total: expected %s, got %s", key, ptrFmt(want.R95Total), ptrFmt(got.R95Total))
	}
	if !ptrIntEq(got.R95Days, want.R95Days) {
		p.errorf("%s: r95 days mismatch", key)
	}
	if !ptrFloatEq(got.IntensityNorm, want.IntensityNorm) {
		p.errorf("%s: intensity norm: expected %s, got %s", key, ptrFmt(want.IntensityNorm), ptrFmt(got.IntensityNorm))
	}
	if !ptrFloatEq(got.DrySpellNorm, want.DrySpellNorm) {
		p.errorf("%s: dry spell norm: expected %s, got %s", key, ptrFmt(want.DrySpellNorm), ptrFmt(got.DrySpellNorm))
	}
	if !ptrFloatEq(got.HyInt, want.HyInt) {
		p.errorf("%s: hy-int: expected %s, got %s", key, ptrFmt(want.HyInt), ptrFmt(got.HyInt))
	}
}

// ── Phase 3: Index Invariants ──
// Checks the laws that hold for any table regardless of input data.

func validateIndexInvariants(tables []domain.Table) *phase {
	p := &phase{name: "Phase 3: Index Invariants"}
	for ti := range tables {
		t := &tables[ti]
		id := t.Group + "/" + string(t.Kind)
		checkRowInvariants(p, id, t)
		checkNormalizationMeans(p, id, t)
		checkChronology(p, id, t)
	}
	return p
}

func checkRowInvariants(p *phase, id string, t *domain.Table) {
	for i := range t.Rows {
		r := &t.Rows[i]
		key := fmt.Sprintf("%s row %s", id, r.Block.Key())

		if r.WetDays+r.DryDays != r.Days {
			p.errorf("%s: wet %d + dry %d != days %d", key, r.WetDays, r.DryDays, r.Days)
		}
		if (r.Intensity == nil) != (r.WetDays == 0) {
			p.errorf("%s: intensity defined=%v with %d wet days", key, r.Intensity != nil, r.WetDays)
		}
		if r.DrySpells == 0 && (r.MeanDrySpell != 0 || r.MaxDrySpell != 0) {
			p.errorf("%s: no dry spells but mean=%g max=%d", key, r.MeanDrySpell, r.MaxDrySpell)
		}
		if r.DrySpells > 0 && float64(r.MaxDrySpell) < r.MeanDrySpell {
			p.errorf("%s: max dry spell %d below mean %g", key, r.MaxDrySpell, r.MeanDrySpell)
		}
		if r.MaxDrySpell > r.Days {
			p.errorf("%s: max dry spell %d exceeds %d days", key, r.MaxDrySpell, r.Days)
		}

		if (r.R95Total == nil) != (t.R95Threshold == nil) || (r.R95Days == nil) != (t.R95Threshold == nil) {
			p.errorf("%s: r95 columns do not match threshold presence", key)
		}
		if r.R95Days != nil && *r.R95Days > r.WetDays {
			p.errorf("%s: r95 days %d exceed wet days %d", key, *r.R95Days, r.WetDays)
		}

		if (r.HyInt == nil) != (r.IntensityNorm == nil || r.DrySpellNorm == nil) {
			p.errorf("%s: hy-int presence inconsistent with its factors", key)
		}
		if r.HyInt != nil && !floatEq(*r.HyInt, *r.IntensityNorm**r.DrySpellNorm) {
			p.errorf("%s: hy-int %g != %g * %g", key, *r.HyInt, *r.IntensityNorm, *r.DrySpellNorm)
		}

		if !validLabel(t.Kind, r.Block.Label) {
			p.errorf("%s: label %q invalid for %s blocks", key, r.Block.Label, t.Kind)
		}
	}
}

func validLabel(kind domain.BlockKind, label string) bool {
	switch kind {
	case domain.BlockSeason:
		return label == "DJF" || label == "MAM" || label == "JJA" || label == "SON"
	case domain.BlockHalfYear:
		return label == "JFMAMJ" || label == "JASOND"
	default:
		return label == ""
	}
}

// checkNormalizationMeans verifies the normalization contract: the mean of
// the defined intensity norms is 1, and the dry-spell norm is either defined
// for every row with mean 1 or for none.
func checkNormalizationMeans(p *phase, id string, t *domain.Table) {
	var intSum float64
	var intN int
	var dslSum float64
	var dslN int
	for i := range t.Rows {
		if t.Rows[i].IntensityNorm != nil {
			intSum += *t.Rows[i].IntensityNorm
			intN++
		}
		if t.Rows[i].DrySpellNorm != nil {
			dslSum += *t.Rows[i].DrySpellNorm
			dslN++
		}
	}
	if intN > 0 && !floatEqTol(intSum/float64(intN), 1, 1e-9) {
		p.errorf("%s: mean intensity norm %.12f != 1", id, intSum/float64(intN))
	}
	if dslN > 0 && dslN != len(t.Rows) {
		p.errorf("%s: dry spell norm defined for %d of %d rows", id, dslN, len(t.Rows))
	}
	if dslN == len(t.Rows) && dslN > 0 && !floatEqTol(dslSum/float64(dslN), 1, 1e-9) {
		p.errorf("%s: mean dry spell norm %.12f != 1", id, dslSum/float64(dslN))
	}
}

func checkChronology(p *phase, id string, t *domain.Table) {
	for i := 1; i < len(t.Rows); i++ {
		if blockOrder(t.Rows[i].Block) <= blockOrder(t.Rows[i-1].Block) {
			p.errorf("%s: rows out of order at %s", id, t.Rows[i].Block.Key())
		}
	}
}

// blockOrder maps a block to a sortable integer within its kind.
func blockOrder(b domain.Block) int {
	sub := 0
	switch b.Label {
	case "MAM", "JASOND":
		sub = 1
	case "JJA":
		sub = 2
	case "SON":
		sub = 3
	}
	return b.Year*4 + sub
}

// ── Phase 4: Cross-Table Consistency ──
// Additive quantities must agree between block kinds of the same basin: the
// blocks partition the same days.

func validateCrossTableConsistency(tables []domain.Table) *phase {
	p := &phase{name: "Phase 4: Cross-Table Consistency"}

	byGroup := map[string]map[domain.BlockKind]*domain.Table{}
	for i := range tables {
		t := &tables[i]
		if byGroup[t.Group] == nil {
			byGroup[t.Group] = map[domain.BlockKind]*domain.Table{}
		}
		if _, dup := byGroup[t.Group][t.Kind]; dup {
			p.errorf("%s/%s: duplicate table", t.Group, t.Kind)
			continue
		}
		byGroup[t.Group][t.Kind] = t
	}

	groups := make([]string, 0, len(byGroup))
	for g := range byGroup {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	for _, group := range groups {
		kinds := byGroup[group]
		year, season := kinds[domain.BlockYear], kinds[domain.BlockSeason]
		if year == nil || season == nil {
			p.errorf("%s: expected both year and season tables", group)
			continue
		}
		compareSums(p, group, year, season)
	}
	return p
}

func compareSums(p *phase, group string, year, season *domain.Table) {
	yd, yw, yr95, yt := tableSums(year)
	sd, sw, sr95, st := tableSums(season)

	if yd != sd {
		p.errorf("%s: year covers %d days, season covers %d", group, yd, sd)
	}
	if yw != sw {
		p.errorf("%s: year has %d wet days, season has %d", group, yw, sw)
	}
	if !floatEqTol(yt, st, 1e-6) {
		p.errorf("%s: year total %g != season total %g", group, yt, st)
	}
	if yr95 != sr95 {
		p.errorf("%s: year has %d r95 days, season has %d", group, yr95, sr95)
	}
	if !ptrFloatEq(year.R95Threshold, season.R95Threshold) {
		p.errorf("%s: r95 thresholds differ between kinds", group)
	}
	if year.Fingerprint == season.Fingerprint {
		p.errorf("%s: year and season tables share fingerprint %s", group, year.Fingerprint)
	}
}

func tableSums(t *domain.Table) (days, wet, r95 int, total float64) {
	for i := range t.Rows {
		r := &t.Rows[i]
		days += r.Days
		wet += r.WetDays
		total += r.TotalPrecip
		if r.R95Days != nil {
			r95 += *r.R95Days
		}
	}
	return days, wet, r95, total
}

// ── Helpers ──

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func floatEqTol(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

func ptrFloatEq(a, b *float64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return floatEq(*a, *b)
}

func ptrIntEq(a, b *int) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func ptrFmt(v *float64) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%g", *v)
}
