// Package csvfile loads and saves daily observation series as CSV, the
// interchange format of the batch tools. The header contract is strict: a
// malformed file fails as a whole, because a partially loaded series would
// silently skew every downstream index.
package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/couchcryptid/hydro-index-service/internal/domain"
)

// Dataset is the parsed content of one observations file: one date-sorted
// series per group. Files without a basin column load into the "" group.
type Dataset map[string]domain.Series

// Load reads an observations CSV from disk.
func Load(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open observations file: %w", err)
	}
	defer f.Close()

	ds, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Read parses observation rows. The header must be exactly
// "date,precip_mm" or "basin,date,precip_mm". Rows with unparseable dates,
// non-numeric or negative amounts, or duplicate dates within a group are
// rejected with their row number.
func Read(r io.Reader) (Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	hasBasin, err := validateHeader(header)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]domain.Observation)
	seen := make(map[string]int) // group|date -> row number
	row := 1

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		group := ""
		if hasBasin {
			group = strings.TrimSpace(rec[0])
			rec = rec[1:]
		}

		date, err := domain.ParseDate(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		precip, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: precip_mm %q is not a number", row, rec[1])
		}
		if precip < 0 {
			return nil, fmt.Errorf("row %d: negative precip_mm %g", row, precip)
		}

		key := group + "|" + date.String()
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("row %d: duplicate date %s for basin %q (first at row %d)", row, date, group, prev)
		}
		seen[key] = row

		groups[group] = append(groups[group], domain.Observation{Date: date, Precip: precip})
	}

	ds := make(Dataset, len(groups))
	for g, obs := range groups {
		ds[g] = domain.NewSeries(obs)
	}
	return ds, nil
}

func validateHeader(header []string) (hasBasin bool, err error) {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
	}
	switch {
	case len(cols) == 2 && cols[0] == "date" && cols[1] == "precip_mm":
		return false, nil
	case len(cols) == 3 && cols[0] == "basin" && cols[1] == "date" && cols[2] == "precip_mm":
		return true, nil
	default:
		return false, fmt.Errorf("header %q: want \"date,precip_mm\" or \"basin,date,precip_mm\"", strings.Join(cols, ","))
	}
}

// Groups lists the dataset's group keys in sorted order.
func (ds Dataset) Groups() []string {
	keys := make([]string, 0, len(ds))
	for k := range ds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Write emits the dataset in the canonical three-column format, rows sorted
// by group then date.
func Write(w io.Writer, ds Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"basin", "date", "precip_mm"}); err != nil {
		return err
	}
	for _, group := range ds.Groups() {
		for _, o := range ds[group] {
			rec := []string{group, o.Date.String(), strconv.FormatFloat(o.Precip, 'g', -1, 64)}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save writes the dataset to a file.
func Save(path string, ds Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create observations file: %w", err)
	}
	if err := Write(f, ds); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
