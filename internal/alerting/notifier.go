package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Notification carries everything the alert message needs. Nil stat fields
// render as "N/A".
type Notification struct {
	GamePk                 int64
	HomeTeam               string
	AwayTeam               string
	Pitcher                string
	DebutYear              int
	Inning                 int
	ERA                    *decimal.Decimal
	StolenBasePct          *decimal.Decimal
	WildPitches            *int
	InheritedRunnersScored *int
	Reasons                []string
}

// Notifier delivers a formatted alert to one channel.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier posts alerts through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram sender.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls the sendMessage API with the rendered alert text.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    RenderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram responded ok=false")
		}
	}

	n.logger.Info().Int64("game_pk", note.GamePk).
		Str("pitcher", note.Pitcher).
		Msg("alert delivered (telegram)")
	return nil
}

// DiscordNotifier posts alerts to a Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
	logger     zerolog.Logger
}

// NewDiscordNotifier constructs a Discord webhook sender.
func NewDiscordNotifier(webhookURL string, timeout time.Duration, logger zerolog.Logger) *DiscordNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DiscordNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "alert_discord").Logger(),
	}
}

// Notify executes the webhook with the rendered alert text.
func (n *DiscordNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"content": RenderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord unexpected status: %d", resp.StatusCode)
	}

	n.logger.Info().Int64("game_pk", note.GamePk).
		Str("pitcher", note.Pitcher).
		Msg("alert delivered (discord)")
	return nil
}

// Multi fans one notification out to several channels. Every channel is
// attempted; failures are joined.
type Multi []Notifier

// Notify delivers to all wrapped notifiers.
func (m Multi) Notify(ctx context.Context, note Notification) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, note); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RenderMessage formats the alert text. Stat fields the provider omitted
// show as "N/A" rather than zero.
func RenderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("🚨 Suspicious substitution alert! 🚨\n")
	builder.WriteString(fmt.Sprintf("%s vs %s\n", note.HomeTeam, note.AwayTeam))
	builder.WriteString(fmt.Sprintf("New pitcher: %s (debut %d)\n", note.Pitcher, note.DebutYear))
	builder.WriteString(fmt.Sprintf("Inning: %d\n", note.Inning))
	builder.WriteString(fmt.Sprintf("ERA: %s | SB%%: %s\n", formatDecimal(note.ERA), formatDecimal(note.StolenBasePct)))
	builder.WriteString(fmt.Sprintf("Wild pitches: %s | Inherited runners scored: %s\n", formatInt(note.WildPitches), formatInt(note.InheritedRunnersScored)))
	if len(note.Reasons) > 0 {
		builder.WriteString(fmt.Sprintf("Flagged: %s\n", strings.Join(note.Reasons, "; ")))
	}
	return builder.String()
}

func formatDecimal(d *decimal.Decimal) string {
	if d == nil {
		return "N/A"
	}
	return d.String()
}

func formatInt(v *int) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *v)
}

var _ Notifier = (*TelegramNotifier)(nil)
var _ Notifier = (*DiscordNotifier)(nil)
var _ Notifier = (Multi)(nil)
