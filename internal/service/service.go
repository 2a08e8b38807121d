package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pitchwatch/internal/alerting"
	"pitchwatch/internal/config"
	"pitchwatch/internal/detect"
	"pitchwatch/internal/ledger"
	"pitchwatch/internal/mlb"
	"pitchwatch/internal/scheduler"
	"pitchwatch/internal/storage"
	"pitchwatch/internal/suspect"
)

// Provider is the slice of the Stats API the orchestrator touches directly.
// Feed and boxscore access belong to the extractor.
type Provider interface {
	mlb.GameLister
	mlb.StatsSource
}

// Service orchestrates polling, extraction, evaluation, and alerting.
type Service struct {
	scheduler  *scheduler.Scheduler
	provider   Provider
	extractor  detect.Extractor
	thresholds suspect.Thresholds
	ledger     *ledger.Ledger
	alertStore storage.AlertStore
	notifier   alerting.Notifier
	logger     zerolog.Logger

	channels []string
	alertsOn bool
	locker   storage.AdvisoryLocker
	lockKey  int64
}

// New constructs the monitoring service. The ledger is owned by the service:
// construct one per service instance, never share module-level state.
func New(cfg *config.Config, sched *scheduler.Scheduler, provider Provider, extractor detect.Extractor, thresholds suspect.Thresholds, led *ledger.Ledger, alertStore storage.AlertStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := alertStore.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:  sched,
		provider:   provider,
		extractor:  extractor,
		thresholds: thresholds,
		ledger:     led,
		alertStore: alertStore,
		notifier:   notifier,
		logger:     logger.With().Str("component", "service").Logger(),
		channels:   cfg.Alerting.Channels,
		alertsOn:   cfg.Alerting.Enabled,
		locker:     locker,
		lockKey:    cfg.Scheduler.AdvisoryLockKey,
	}
}

// Run begins the polling loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessCycle)
}

// ProcessCycle executes one polling cycle. A failure listing games skips the
// whole cycle; failures inside one game or one event are logged and never
// stop the remaining work.
func (s *Service) ProcessCycle(ctx context.Context, now time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("cycle", now).Msg("skip cycle because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	games, err := s.provider.ListLiveGames(ctx, now)
	if err != nil {
		return fmt.Errorf("list live games: %w", err)
	}
	if len(games) == 0 {
		s.logger.Debug().Time("cycle", now).Msg("no live games")
		return nil
	}

	for _, game := range games {
		if err := s.processGame(ctx, game, now); err != nil {
			s.logger.Error().Err(err).Int64("game_pk", game.GamePk).Msg("game processing failed")
		}
	}

	s.logger.Debug().Time("cycle", now).Int("games", len(games)).Int("alerted_total", s.ledger.Size()).Msg("cycle complete")
	return nil
}

func (s *Service) processGame(ctx context.Context, game mlb.Game, now time.Time) error {
	subs, err := s.extractor.Extract(ctx, game)
	if err != nil {
		return fmt.Errorf("extract substitutions: %w", err)
	}

	for _, sub := range subs {
		if err := s.processSubstitution(ctx, game, sub, now); err != nil {
			s.logger.Error().Err(err).
				Int64("game_pk", game.GamePk).
				Int64("pitcher_id", sub.PitcherID).
				Msg("substitution processing failed")
		}
	}
	return nil
}

func (s *Service) processSubstitution(ctx context.Context, game mlb.Game, sub detect.Substitution, now time.Time) error {
	key := sub.Key()
	if s.ledger.Contains(key) {
		return nil
	}

	snap, err := s.snapshotFor(ctx, sub)
	if err != nil {
		return err
	}

	verdict := s.thresholds.Evaluate(snap, sub.Inning, now)
	if !verdict.Suspicious {
		// Deliberately not admitted: updated stats on a later poll may
		// still qualify this substitution.
		s.logger.Debug().Str("key", key).Str("pitcher", snap.FullName).Msg("substitution not suspicious")
		return nil
	}

	// The key is claimed before dispatch: a raced duplicate drops out
	// here, and a failed delivery is never retried.
	if !s.ledger.AdmitOnce(key) {
		return nil
	}

	s.logger.Info().Str("key", key).
		Str("pitcher", snap.FullName).
		Int("inning", sub.Inning).
		Strs("reasons", verdict.Reasons).
		Msg("suspicious substitution detected")

	note := alerting.Notification{
		GamePk:                 game.GamePk,
		HomeTeam:               game.Home,
		AwayTeam:               game.Away,
		Pitcher:                snap.FullName,
		DebutYear:              snap.DebutYear,
		Inning:                 sub.Inning,
		ERA:                    snap.ERA,
		StolenBasePct:          snap.StolenBasePct,
		WildPitches:            snap.WildPitches,
		InheritedRunnersScored: snap.InheritedRunnersScored,
		Reasons:                verdict.Reasons,
	}

	if s.alertStore != nil {
		record := storage.AlertRecord{
			GamePk:                 game.GamePk,
			PitcherID:              sub.PitcherID,
			Pitcher:                snap.FullName,
			DebutYear:              snap.DebutYear,
			Inning:                 sub.Inning,
			ERA:                    snap.ERA,
			StolenBasePct:          snap.StolenBasePct,
			WildPitches:            snap.WildPitches,
			InheritedRunnersScored: snap.InheritedRunnersScored,
			Reasons:                verdict.Reasons,
			Channels:               s.channels,
		}
		if _, err := s.alertStore.InsertAlert(ctx, record); err != nil {
			s.logger.Error().Err(err).Str("key", key).Msg("failed to persist alert record")
		}
	}

	if s.alertsOn && s.notifier != nil {
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Str("key", key).Msg("failed to dispatch alert")
		}
	}
	return nil
}

// snapshotFor prefers stats embedded by the extractor; the boxscore path
// sometimes lacks the debut date, in which case the person record is fetched
// to resolve it.
func (s *Service) snapshotFor(ctx context.Context, sub detect.Substitution) (mlb.Snapshot, error) {
	if sub.Snapshot != nil && sub.Snapshot.DebutYear != 0 {
		return *sub.Snapshot, nil
	}

	snap, err := s.provider.FetchPitcherStats(ctx, sub.PitcherID)
	if err != nil {
		return mlb.Snapshot{}, fmt.Errorf("fetch pitcher stats: %w", err)
	}
	return snap, nil
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
