package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertAlertSQL = `INSERT INTO alerts (
        game_pk,
        pitcher_id,
        pitcher,
        debut_year,
        inning,
        era,
        stolen_base_pct,
        wild_pitches,
        inherited_runners_scored,
        reasons,
        channels
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
    )
    ON CONFLICT (game_pk, pitcher_id) DO NOTHING;`

	listRecentAlertsSQL = `SELECT
        id,
        game_pk,
        pitcher_id,
        pitcher,
        debut_year,
        inning,
        era::text,
        stolen_base_pct::text,
        wild_pitches,
        inherited_runners_scored,
        reasons,
        channels,
        created_at
    FROM alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	countAlertsSQL = `SELECT COUNT(*) FROM alerts;`

	deleteAlertsBeforeSQL = `DELETE FROM alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (bool, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	CountAlerts(ctx context.Context) (int64, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store provides access to the alert audit table.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a
// release func. A second bot instance failing to take the lock skips its
// cycle instead of double-posting.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// best-effort unlock; releasing the conn drops the lock anyway
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertAlert persists an alert emission. It reports whether a row was
// written; a duplicate (game, pitcher) pair is silently skipped.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}

	tag, execErr := pool.Exec(ctx, insertAlertSQL,
		alert.GamePk,
		alert.PitcherID,
		alert.Pitcher,
		alert.DebutYear,
		alert.Inning,
		decimalArg(alert.ERA),
		decimalArg(alert.StolenBasePct),
		intArg(alert.WildPitches),
		intArg(alert.InheritedRunnersScored),
		alert.Reasons,
		alert.Channels,
	)
	if execErr != nil {
		return false, fmt.Errorf("insert alert: %w", execErr)
	}
	return tag.RowsAffected() > 0, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// CountAlerts counts stored alerts.
func (s *Store) CountAlerts(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countAlertsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count alerts: %w", scanErr)
	}
	return count, nil
}

// DeleteAlertsBefore deletes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

func scanAlert(rows pgx.Rows) (AlertRecord, error) {
	var (
		rec   AlertRecord
		era   *string
		sbPct *string
		wp    *int
		irs   *int
	)

	if err := rows.Scan(
		&rec.ID,
		&rec.GamePk,
		&rec.PitcherID,
		&rec.Pitcher,
		&rec.DebutYear,
		&rec.Inning,
		&era,
		&sbPct,
		&wp,
		&irs,
		&rec.Reasons,
		&rec.Channels,
		&rec.CreatedAt,
	); err != nil {
		return AlertRecord{}, err
	}

	if era != nil {
		d, err := decimal.NewFromString(*era)
		if err != nil {
			return AlertRecord{}, fmt.Errorf("parse era: %w", err)
		}
		rec.ERA = &d
	}
	if sbPct != nil {
		d, err := decimal.NewFromString(*sbPct)
		if err != nil {
			return AlertRecord{}, fmt.Errorf("parse stolen base pct: %w", err)
		}
		rec.StolenBasePct = &d
	}
	rec.WildPitches = wp
	rec.InheritedRunnersScored = irs

	return rec, nil
}

func decimalArg(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func intArg(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
