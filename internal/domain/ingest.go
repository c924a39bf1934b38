package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ObservationRecord is the flat JSON produced by the gauge collector: one
// record per basin-day, every field string-valued.
type ObservationRecord struct {
	Basin    string `json:"basin"`
	Date     string `json:"date"`      // "2006-01-02"
	PrecipMM string `json:"precip_mm"` // decimal millimeters
}

// RawObservation is an unprocessed message from the source topic.
type RawObservation struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// GroupedObservation is a parsed observation tagged with its group key.
// An empty group is legal; ungrouped feeds land in the "" series.
type GroupedObservation struct {
	Group string
	Obs   Observation
}

// ParseRawObservation deserializes and validates one raw message. Records
// with malformed dates or non-numeric or negative amounts are rejected here
// so they never reach the engine; callers skip and count them rather than
// zero-filling.
func ParseRawObservation(raw RawObservation) (GroupedObservation, error) {
	var rec ObservationRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return GroupedObservation{}, fmt.Errorf("parse raw observation: %w", err)
	}

	date, err := ParseDate(strings.TrimSpace(rec.Date))
	if err != nil {
		return GroupedObservation{}, fmt.Errorf("parse raw observation: %w", err)
	}

	precipStr := strings.TrimSpace(rec.PrecipMM)
	if precipStr == "" {
		return GroupedObservation{}, fmt.Errorf("parse raw observation: empty precip_mm")
	}
	precip, err := strconv.ParseFloat(precipStr, 64)
	if err != nil {
		return GroupedObservation{}, fmt.Errorf("parse raw observation: precip_mm %q: %w", rec.PrecipMM, err)
	}
	if precip < 0 {
		return GroupedObservation{}, fmt.Errorf("parse raw observation: negative precip_mm %g", precip)
	}

	return GroupedObservation{
		Group: strings.TrimSpace(rec.Basin),
		Obs:   Observation{Date: date, Precip: precip},
	}, nil
}
