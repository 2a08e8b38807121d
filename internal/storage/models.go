package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertRecord captures an emitted alert for auditing. Uniqueness follows the
// ledger key: one row per (game, pitcher).
type AlertRecord struct {
	ID                     int64
	GamePk                 int64
	PitcherID              int64
	Pitcher                string
	DebutYear              int
	Inning                 int
	ERA                    *decimal.Decimal
	StolenBasePct          *decimal.Decimal
	WildPitches            *int
	InheritedRunnersScored *int
	Reasons                []string
	Channels               []string
	CreatedAt              time.Time
}
