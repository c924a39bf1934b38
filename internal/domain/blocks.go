package domain

import (
	"fmt"
	"time"
)

// BlockKind selects the temporal partition used for aggregation.
type BlockKind string

const (
	BlockYear     BlockKind = "year"
	BlockSeason   BlockKind = "season"
	BlockHalfYear BlockKind = "half_year"
)

// ParseBlockKind validates a block kind string (exact matches only).
func ParseBlockKind(s string) (BlockKind, error) {
	switch BlockKind(s) {
	case BlockYear, BlockSeason, BlockHalfYear:
		return BlockKind(s), nil
	default:
		return "", fmt.Errorf("%w: unknown block kind %q", ErrConfig, s)
	}
}

// Block identifies one aggregation bucket. Label is empty for year blocks,
// a season code (DJF/MAM/JJA/SON) for seasons, and JFMAMJ/JASOND for
// half-years.
type Block struct {
	Year  int    `json:"year"`
	Label string `json:"label,omitempty"`
}

// Key renders a stable block identifier, e.g. "2020" or "2020-DJF".
func (b Block) Key() string {
	if b.Label == "" {
		return fmt.Sprintf("%d", b.Year)
	}
	return fmt.Sprintf("%d-%s", b.Year, b.Label)
}

// seasonOf maps a month to its meteorological season code.
func seasonOf(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "DJF"
	case time.March, time.April, time.May:
		return "MAM"
	case time.June, time.July, time.August:
		return "JJA"
	default:
		return "SON"
	}
}

// BlockFor assigns a date to its block. December belongs to the FOLLOWING
// year's DJF (Dec 2019 + Jan/Feb 2020 form DJF 2020). Half-years keep the
// plain calendar year with no shift.
func BlockFor(kind BlockKind, d Date) Block {
	switch kind {
	case BlockSeason:
		year := d.Year()
		if d.Month() == time.December {
			year++
		}
		return Block{Year: year, Label: seasonOf(d.Month())}
	case BlockHalfYear:
		label := "JFMAMJ"
		if d.Month() >= time.July {
			label = "JASOND"
		}
		return Block{Year: d.Year(), Label: label}
	default:
		return Block{Year: d.Year()}
	}
}
