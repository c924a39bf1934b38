// Package domain implements the hydroclimatic index engine: wet/dry day
// classification, dry-spell run-length segmentation, per-block aggregation,
// and the INT / DSL / CDD / HY-INT / R95 index family over daily
// precipitation series.
//
// # Data Source
//
// Observations are daily rain-gauge readings in millimeters, one per
// basin-day. The upstream collector publishes each reading as flat JSON
// ({"basin","date","precip_mm"}, all string-valued) to the Kafka source
// topic; [ParseRawObservation] validates and types them. Batch callers load
// the same observations from CSV through the csvfile adapter. Either way the
// engine only ever sees parsed, non-negative values — rows that fail to
// parse are excluded by the loaders, never zero-filled.
//
// # Index Conventions
//
// Wet/dry classification:
//
//	A day is wet when its precipitation clears the configured threshold
//	(default 1.0 mm with ">=", the ETCCDI wet-day convention). The dry
//	comparison is always the exact complement ("<" for ">=", "<=" for ">"),
//	so the two predicates partition every value. [WetDryRule.Validate]
//	rejects any other pairing before computation starts.
//
// Blocks:
//
//	year       calendar year
//	season     DJF / MAM / JJA / SON; December counts toward the FOLLOWING
//	           year's DJF, so DJF 2020 = Dec 2019 + Jan 2020 + Feb 2020
//	half_year  JFMAMJ (Jan-Jun) / JASOND (Jul-Dec), plain calendar year
//
//	Block boundaries always reset run state: a dry spell never spans two
//	blocks, even when the days are consecutive.
//
// Indices per block:
//
//	INT       mean precipitation on wet days (intensity)
//	DSL       mean dry-spell length in days (0 when no dry spells)
//	CDD       longest dry spell (consecutive dry days)
//	INT_norm  INT / mean(INT) over the selected blocks
//	DSL_norm  DSL / mean(DSL) over the selected blocks
//	HY-INT    INT_norm * DSL_norm (Giorgi et al. 2011)
//	R95pTOT   precipitation total on days at or above the R95 threshold
//	R95pDAYS  count of those days
//
// The R95 threshold is the 95th percentile of wet-day precipitation over a
// caller-chosen baseline year range, by linear interpolation between order
// statistics (h = (n-1)*p). The same threshold applies to every block.
//
// Normalization is relative to the active selection: the means are taken
// over exactly the blocks in the requested table, so narrowing the year
// range changes every normalized value. HY-INT compares each block against
// the norm of the period under study; this sensitivity is part of the
// index's definition.
//
// # Undefined Values
//
// A block with no wet days has no INT; a baseline with no wet days has no
// R95 threshold. These are soft conditions, carried as nil pointer fields
// (omitted in JSON) and propagated through normalization and HY-INT as nil.
// They are never coerced to zero and never turned into errors. Hard
// configuration mistakes fail fast with [ErrConfig] instead.
package domain
