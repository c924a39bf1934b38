package domain

// Run is a maximal stretch of consecutive same-state days within a scanned
// sequence. Start and End are half-open indices into that sequence, so runs
// cover the input exactly: no gaps, no overlaps, adjacent runs alternate
// state.
type Run struct {
	Dry   bool
	Start int
	End   int
}

// Length is the number of days in the run.
func (r Run) Length() int { return r.End - r.Start }

// Runs segments a dry-flag sequence into runs with a single left-to-right
// scan. An empty input yields no runs; a uniform input yields one run
// covering everything.
func Runs(dry []bool) []Run {
	if len(dry) == 0 {
		return nil
	}
	var runs []Run
	start := 0
	for i := 1; i < len(dry); i++ {
		if dry[i] != dry[start] {
			runs = append(runs, Run{Dry: dry[start], Start: start, End: i})
			start = i
		}
	}
	return append(runs, Run{Dry: dry[start], Start: start, End: len(dry)})
}

// dryLengths extracts the dry-run lengths as floats for the stats helpers.
func dryLengths(runs []Run) []float64 {
	var lengths []float64
	for _, r := range runs {
		if r.Dry {
			lengths = append(lengths, float64(r.Length()))
		}
	}
	return lengths
}

// Spell is one dry spell with its calendar span.
type Spell struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
	Days  int  `json:"days"`
}

// DrySpells lists every dry spell in the series under the given rule, in
// order. This is the input for duration histograms downstream.
func DrySpells(s Series, rule WetDryRule) ([]Spell, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	var spells []Spell
	for _, r := range Runs(rule.DryFlags(s)) {
		if !r.Dry {
			continue
		}
		spells = append(spells, Spell{
			Start: s[r.Start].Date,
			End:   s[r.End-1].Date,
			Days:  r.Length(),
		})
	}
	return spells, nil
}
