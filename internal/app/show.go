package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
)

// Show prints recent alert audit rows.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show alerts")
	}
	if closeStore != nil {
		defer closeStore()
	}

	alerts, err := store.ListRecentAlerts(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tGame\tPitcher\tInning\tERA\tSB%\tReasons")

	for _, alert := range alerts {
		fmt.Fprintf(
			writer,
			"%s\t%d\t%s\t%d\t%s\t%s\t%s\n",
			alert.CreatedAt.UTC().Format(time.RFC3339),
			alert.GamePk,
			alert.Pitcher,
			alert.Inning,
			formatStat(alert.ERA),
			formatStat(alert.StolenBasePct),
			sanitizeInline(strings.Join(alert.Reasons, "; ")),
		)
	}

	writer.Flush()

	total, err := store.CountAlerts(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "showing %d of %d alerts\n", len(alerts), total)
	return nil
}

func formatStat(d *decimal.Decimal) string {
	if d == nil {
		return "N/A"
	}
	return d.String()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
