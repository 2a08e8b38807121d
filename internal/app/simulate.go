package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pitchwatch/internal/alerting"
	"pitchwatch/internal/mlb"
	"pitchwatch/internal/suspect"
)

// SimulateAlert drives a synthetic substitution through the evaluator and
// the live notifier, to verify channel wiring without touching the Stats API.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting disabled in config")
	}
	if err := opts.validate(); err != nil {
		return err
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channels enabled")
	}

	thresholds, err := suspect.FromConfig(a.Config.Thresholds)
	if err != nil {
		return err
	}

	snap := syntheticSnapshot(opts)
	verdict := thresholds.Evaluate(snap, opts.Inning, time.Now())
	if !verdict.Suspicious {
		return fmt.Errorf("synthetic pitcher does not trip the thresholds; nothing sent")
	}

	note := alerting.Notification{
		HomeTeam:      "Home Club",
		AwayTeam:      "Away Club",
		Pitcher:       snap.FullName,
		DebutYear:     snap.DebutYear,
		Inning:        opts.Inning,
		ERA:           snap.ERA,
		StolenBasePct: snap.StolenBasePct,
		Reasons:       verdict.Reasons,
	}

	if err := notifier.Notify(ctx, note); err != nil {
		return fmt.Errorf("dispatch simulated alert: %w", err)
	}

	a.Logger.Info().Str("pitcher", opts.Pitcher).Msg("simulated alert delivered")
	return nil
}

func syntheticSnapshot(opts SimulateOptions) (snap mlb.Snapshot) {
	snap.FullName = opts.Pitcher
	snap.DebutYear = opts.DebutYear
	if snap.DebutYear == 0 {
		snap.DebutYear = time.Now().Year()
	}
	if opts.ERA != "" {
		if era, err := decimal.NewFromString(opts.ERA); err == nil {
			snap.ERA = &era
		}
	}
	return snap
}
