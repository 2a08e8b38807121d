// Package suspect implements the rule that decides whether an incoming
// pitcher warrants an alert: a current-season rookie whose aggregate numbers
// breach at least one poor-performance threshold, in a late enough inning.
package suspect

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pitchwatch/internal/config"
	"pitchwatch/internal/mlb"
)

// Thresholds hold the canonical suspicion rule parameters.
//
// Comparison semantics are fixed: ERA and stolen-base percentage and wild
// pitches are strict (>), inherited runners scored is inclusive (>=).
type Thresholds struct {
	MinInning              int
	ERA                    decimal.Decimal
	StolenBasePct          decimal.Decimal
	InheritedRunnersScored int
	WildPitches            int

	// RookieSeason pins the season a debut must fall in. Zero means the
	// calendar year of the evaluation instant.
	RookieSeason int
}

// Default returns the stock thresholds: inning 6+, ERA > 5.00, SB% > 80,
// inherited runners scored >= 5, wild pitches > 3.
func Default() Thresholds {
	return Thresholds{
		MinInning:              6,
		ERA:                    decimal.RequireFromString("5.00"),
		StolenBasePct:          decimal.RequireFromString("80"),
		InheritedRunnersScored: 5,
		WildPitches:            3,
	}
}

// FromConfig parses configured threshold strings into decimals.
func FromConfig(cfg config.ThresholdsConfig) (Thresholds, error) {
	era, err := decimal.NewFromString(cfg.ERA)
	if err != nil {
		return Thresholds{}, fmt.Errorf("parse thresholds.era: %w", err)
	}
	sbPct, err := decimal.NewFromString(cfg.StolenBasePct)
	if err != nil {
		return Thresholds{}, fmt.Errorf("parse thresholds.stolen_base_pct: %w", err)
	}
	return Thresholds{
		MinInning:              cfg.MinInning,
		ERA:                    era,
		StolenBasePct:          sbPct,
		InheritedRunnersScored: cfg.InheritedRunnersScored,
		WildPitches:            cfg.WildPitches,
		RookieSeason:           cfg.RookieSeason,
	}, nil
}

// Verdict is the evaluation outcome. Reasons name the clauses that fired,
// ready for message rendering.
type Verdict struct {
	Suspicious bool
	Reasons    []string
}

// Evaluate applies the suspicion rule to a stat snapshot in game context.
// Nil stat fields never satisfy their own clause, so an all-nil snapshot is
// never suspicious. Evaluate does not fail: missing or malformed data only
// degrades the affected clause.
func (t Thresholds) Evaluate(snap mlb.Snapshot, inning int, now time.Time) Verdict {
	if inning < t.MinInning {
		return Verdict{}
	}

	season := t.RookieSeason
	if season == 0 {
		season = now.Year()
	}
	if snap.DebutYear != season {
		return Verdict{}
	}

	var reasons []string
	if snap.ERA != nil && snap.ERA.GreaterThan(t.ERA) {
		reasons = append(reasons, fmt.Sprintf("ERA %s > %s", snap.ERA.String(), t.ERA.String()))
	}
	if snap.StolenBasePct != nil && snap.StolenBasePct.GreaterThan(t.StolenBasePct) {
		reasons = append(reasons, fmt.Sprintf("SB%% %s > %s", snap.StolenBasePct.String(), t.StolenBasePct.String()))
	}
	if snap.InheritedRunnersScored != nil && *snap.InheritedRunnersScored >= t.InheritedRunnersScored {
		reasons = append(reasons, fmt.Sprintf("inherited runners scored %d >= %d", *snap.InheritedRunnersScored, t.InheritedRunnersScored))
	}
	if snap.WildPitches != nil && *snap.WildPitches > t.WildPitches {
		reasons = append(reasons, fmt.Sprintf("wild pitches %d > %d", *snap.WildPitches, t.WildPitches))
	}

	return Verdict{Suspicious: len(reasons) > 0, Reasons: reasons}
}
