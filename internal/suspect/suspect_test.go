package suspect

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pitchwatch/internal/config"
	"pitchwatch/internal/mlb"
)

func configThresholds(era, sbPct string) config.ThresholdsConfig {
	return config.ThresholdsConfig{
		MinInning:              6,
		ERA:                    era,
		StolenBasePct:          sbPct,
		InheritedRunnersScored: 5,
		WildPitches:            3,
	}
}

var now = time.Date(2025, time.July, 10, 19, 30, 0, 0, time.UTC)

func dec(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return &d
}

func intp(v int) *int {
	return &v
}

func rookie(t *testing.T) mlb.Snapshot {
	t.Helper()
	return mlb.Snapshot{PitcherID: 1, FullName: "Test Pitcher", DebutYear: now.Year()}
}

func TestBelowMinInningNeverSuspicious(t *testing.T) {
	snap := rookie(t)
	snap.ERA = dec(t, "9.00")

	v := Default().Evaluate(snap, 4, now)
	if v.Suspicious {
		t.Fatalf("inning 4 must never be suspicious, got %+v", v)
	}
}

func TestNonRookieNeverSuspicious(t *testing.T) {
	snap := rookie(t)
	snap.DebutYear = now.Year() - 3
	snap.ERA = dec(t, "12.00")
	snap.WildPitches = intp(10)

	if v := Default().Evaluate(snap, 8, now); v.Suspicious {
		t.Fatalf("veteran must never be suspicious, got %+v", v)
	}
}

func TestAllNilStatsNeverSuspicious(t *testing.T) {
	if v := Default().Evaluate(rookie(t), 9, now); v.Suspicious {
		t.Fatalf("all-nil snapshot must never be suspicious, got %+v", v)
	}
}

func TestHighERATriggersAlert(t *testing.T) {
	snap := rookie(t)
	snap.ERA = dec(t, "6.20")

	v := Default().Evaluate(snap, 7, now)
	if !v.Suspicious {
		t.Fatal("rookie with ERA 6.20 in inning 7 should be suspicious")
	}
	if len(v.Reasons) != 1 {
		t.Fatalf("expected one reason, got %v", v.Reasons)
	}
}

func TestERAThresholdIsStrict(t *testing.T) {
	snap := rookie(t)
	snap.ERA = dec(t, "5.00")

	if v := Default().Evaluate(snap, 7, now); v.Suspicious {
		t.Fatal("ERA exactly at threshold must not trigger")
	}
}

func TestInheritedRunnersThresholdIsInclusive(t *testing.T) {
	snap := rookie(t)
	snap.InheritedRunnersScored = intp(5)

	if v := Default().Evaluate(snap, 7, now); !v.Suspicious {
		t.Fatal("5 inherited runners scored should trigger")
	}

	snap.InheritedRunnersScored = intp(4)
	if v := Default().Evaluate(snap, 7, now); v.Suspicious {
		t.Fatal("4 inherited runners scored must not trigger")
	}
}

func TestWildPitchesClause(t *testing.T) {
	snap := rookie(t)
	snap.WildPitches = intp(4)

	if v := Default().Evaluate(snap, 6, now); !v.Suspicious {
		t.Fatal("4 wild pitches should trigger")
	}

	snap.WildPitches = intp(3)
	if v := Default().Evaluate(snap, 6, now); v.Suspicious {
		t.Fatal("3 wild pitches must not trigger")
	}
}

func TestStolenBaseClause(t *testing.T) {
	snap := rookie(t)
	snap.StolenBasePct = dec(t, "85")

	v := Default().Evaluate(snap, 6, now)
	if !v.Suspicious {
		t.Fatal("SB% 85 should trigger")
	}
}

func TestMultipleClausesCollectAllReasons(t *testing.T) {
	snap := rookie(t)
	snap.ERA = dec(t, "7.50")
	snap.WildPitches = intp(6)

	v := Default().Evaluate(snap, 8, now)
	if !v.Suspicious {
		t.Fatal("expected suspicious")
	}
	if len(v.Reasons) != 2 {
		t.Fatalf("expected two reasons, got %v", v.Reasons)
	}
}

func TestPinnedRookieSeason(t *testing.T) {
	thresholds := Default()
	thresholds.RookieSeason = 2024

	snap := rookie(t)
	snap.DebutYear = 2024
	snap.ERA = dec(t, "6.00")

	if v := thresholds.Evaluate(snap, 7, now); !v.Suspicious {
		t.Fatal("pinned rookie season should match a 2024 debut")
	}
}

func TestFromConfigRejectsBadDecimal(t *testing.T) {
	_, err := FromConfig(configThresholds("abc", "80"))
	if err == nil {
		t.Fatal("non-numeric era threshold should fail")
	}

	_, err = FromConfig(configThresholds("5.00", ""))
	if err == nil {
		t.Fatal("empty stolen base threshold should fail")
	}
}

func TestFromConfigRoundTrip(t *testing.T) {
	thresholds, err := FromConfig(configThresholds("5.00", "80"))
	if err != nil {
		t.Fatalf("valid config should parse: %v", err)
	}
	if thresholds.MinInning != 6 || thresholds.WildPitches != 3 {
		t.Fatalf("unexpected thresholds: %+v", thresholds)
	}
}
