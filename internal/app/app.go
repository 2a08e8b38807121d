package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pitchwatch/internal/alerting"
	"pitchwatch/internal/config"
	"pitchwatch/internal/detect"
	"pitchwatch/internal/ledger"
	"pitchwatch/internal/mlb"
	"pitchwatch/internal/scheduler"
	"pitchwatch/internal/service"
	"pitchwatch/internal/storage"
	"pitchwatch/internal/suspect"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newClient() *mlb.Client {
	return mlb.NewClient(mlb.Options{
		BaseURL:   a.Config.MLB.BaseURL,
		SportID:   a.Config.MLB.SportID,
		TeamID:    a.Config.MLB.TeamID,
		Timeout:   a.Config.MLB.RequestTimeout,
		UserAgent: a.Config.MLB.UserAgent,
		TimeZone:  a.Config.MLB.TimeZone,
	}, a.Logger)
}

func (a *App) newExtractor(client *mlb.Client) detect.Extractor {
	if a.Config.MLB.Source == "boxscore" {
		return detect.NewBoxscoreExtractor(client)
	}
	return detect.NewFeedExtractor(client, a.Config.Thresholds.MinInning)
}

func (a *App) newNotifier() alerting.Notifier {
	var channels alerting.Multi
	for _, name := range a.Config.Alerting.Channels {
		switch name {
		case "telegram":
			if a.Config.Alerting.Telegram.Enabled {
				cfg := a.Config.Alerting.Telegram
				channels = append(channels, alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger))
			}
		case "discord":
			if a.Config.Alerting.Discord.Enabled {
				channels = append(channels, alerting.NewDiscordNotifier(a.Config.Alerting.Discord.WebhookURL, 10*time.Second, a.Logger))
			}
		default:
			a.Logger.Warn().Str("channel", name).Msg("unknown alert channel ignored")
		}
	}
	if len(channels) == 0 {
		return nil
	}
	return channels
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running monitoring service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	thresholds, err := suspect.FromConfig(a.Config.Thresholds)
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; alert audit disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}
	if store != nil && a.Config.Database.Retention > 0 {
		cutoff := time.Now().Add(-a.Config.Database.Retention)
		if err := store.DeleteAlertsBefore(ctx, cutoff); err != nil {
			a.Logger.Warn().Err(err).Time("cutoff", cutoff).Msg("audit retention prune failed")
		}
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	client := a.newClient()
	extractor := a.newExtractor(client)
	notifier := a.newNotifier()
	if notifier == nil {
		a.Logger.Warn().Msg("no alert channels enabled; detections will only be logged")
	}

	var alertStore storage.AlertStore
	if store != nil {
		alertStore = store
	}

	svc := service.New(a.Config, sched, client, extractor, thresholds, ledger.New(), alertStore, notifier, a.Logger)

	a.Logger.Info().
		Str("source", a.Config.MLB.Source).
		Dur("interval", a.Config.Scheduler.Interval).
		Msg("starting pitching substitution monitor")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("monitor terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitor stopped")
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// SimulateOptions describe the synthetic substitution driven through the
// alert pipeline by the simulate-alert command.
type SimulateOptions struct {
	Pitcher   string
	DebutYear int
	Inning    int
	ERA       string
}

func (o SimulateOptions) validate() error {
	if o.Pitcher == "" {
		return errors.New("--pitcher is required")
	}
	if o.Inning <= 0 {
		return fmt.Errorf("--inning must be greater than zero")
	}
	return nil
}
