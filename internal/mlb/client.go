package mlb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	schedulePath = "/api/v1/schedule"
	feedPath     = "/api/v1.1/game/%d/feed/live"
	boxscorePath = "/api/v1/game/%d/boxscore"
	peoplePath   = "/api/v1/people/%d"

	statsHydrate = "stats(group=[pitching],type=[season])"
)

// GameLister returns the games currently in progress for a date.
type GameLister interface {
	ListLiveGames(ctx context.Context, date time.Time) ([]Game, error)
}

// FeedSource retrieves a game's live play-by-play feed.
type FeedSource interface {
	FetchGameFeed(ctx context.Context, gamePk int64) (*Feed, error)
}

// BoxscoreSource retrieves a game's aggregated boxscore.
type BoxscoreSource interface {
	FetchBoxscore(ctx context.Context, gamePk int64) (*Boxscore, error)
}

// StatsSource retrieves a pitcher's season stat snapshot.
type StatsSource interface {
	FetchPitcherStats(ctx context.Context, personID int64) (Snapshot, error)
}

// Options parameterise the Stats API client.
type Options struct {
	BaseURL   string
	SportID   int
	TeamID    int
	Timeout   time.Duration
	UserAgent string

	// TimeZone is the IANA zone whose wall clock decides what "today"
	// means for the schedule query. Empty means the process-local zone.
	TimeZone string
}

// Client talks to the MLB Stats API.
type Client struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	loc     *time.Location
}

// NewClient constructs a Stats API client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://statsapi.mlb.com"
	}

	componentLogger := logger.With().Str("component", "mlb_client").Logger()

	loc := time.Local
	if opts.TimeZone != "" {
		parsed, err := time.LoadLocation(opts.TimeZone)
		if err != nil {
			componentLogger.Warn().Err(err).Str("time_zone", opts.TimeZone).Msg("unknown time zone, using process-local")
		} else {
			loc = parsed
		}
	}

	return &Client{
		opts:    opts,
		logger:  componentLogger,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		loc:     loc,
	}
}

// ListLiveGames returns the games in progress on the given date, narrowed to
// the configured team when one is set. The instant is rendered as a calendar
// date in the configured zone: evening games must not roll onto the next
// day's schedule when UTC midnight passes mid-game.
func (c *Client) ListLiveGames(ctx context.Context, date time.Time) ([]Game, error) {
	sport := c.opts.SportID
	if sport <= 0 {
		sport = 1
	}

	url := fmt.Sprintf("%s%s?sportId=%d&date=%s&hydrate=linescore", c.baseURL, schedulePath, sport, date.In(c.loc).Format("2006-01-02"))
	if c.opts.TeamID > 0 {
		url += fmt.Sprintf("&teamId=%d", c.opts.TeamID)
	}

	var sched scheduleResponse
	if err := c.getJSON(ctx, url, &sched); err != nil {
		return nil, fmt.Errorf("list live games: %w", err)
	}

	var games []Game
	for _, d := range sched.Dates {
		for _, g := range d.Games {
			game := Game{
				GamePk: g.GamePk,
				Home:   g.Teams.Home.Team.Name,
				Away:   g.Teams.Away.Team.Name,
				Status: classifyStatus(g.Status.AbstractGameState, g.Status.DetailedState),
				Inning: g.Linescore.CurrentInning,
			}
			if game.Status == StatusLive {
				games = append(games, game)
			}
		}
	}
	return games, nil
}

// FetchGameFeed retrieves the full play-by-play feed for one game.
func (c *Client) FetchGameFeed(ctx context.Context, gamePk int64) (*Feed, error) {
	url := c.baseURL + fmt.Sprintf(feedPath, gamePk)
	var feed Feed
	if err := c.getJSON(ctx, url, &feed); err != nil {
		return nil, fmt.Errorf("fetch game feed %d: %w", gamePk, err)
	}
	return &feed, nil
}

// FetchBoxscore retrieves the aggregated boxscore for one game.
func (c *Client) FetchBoxscore(ctx context.Context, gamePk int64) (*Boxscore, error) {
	url := c.baseURL + fmt.Sprintf(boxscorePath, gamePk)
	var box Boxscore
	if err := c.getJSON(ctx, url, &box); err != nil {
		return nil, fmt.Errorf("fetch boxscore %d: %w", gamePk, err)
	}
	return &box, nil
}

// FetchPitcherStats retrieves a person's season pitching stats. A person
// without a season stat entry yields a snapshot with nil stat fields; that
// is not an error.
func (c *Client) FetchPitcherStats(ctx context.Context, personID int64) (Snapshot, error) {
	url := c.baseURL + fmt.Sprintf(peoplePath, personID) + "?hydrate=" + statsHydrate

	var people peopleResponse
	if err := c.getJSON(ctx, url, &people); err != nil {
		return Snapshot{}, fmt.Errorf("fetch pitcher stats %d: %w", personID, err)
	}
	if len(people.People) == 0 {
		return Snapshot{}, fmt.Errorf("fetch pitcher stats %d: person not found", personID)
	}

	person := people.People[0]
	snap := Snapshot{
		PitcherID: person.ID,
		FullName:  person.FullName,
		DebutYear: debutYear(person.MLBDebutDate),
	}

	for _, group := range person.Stats {
		if !isSeasonGroup(group.Type.DisplayName) {
			continue
		}
		if len(group.Splits) == 0 {
			continue
		}
		line := group.Splits[0].Stat
		snap.ERA = parseStat(line.ERA)
		snap.StolenBasePct = parseStat(line.StolenBasePercentage)
		snap.WildPitches = line.WildPitches
		snap.InheritedRunnersScored = line.InheritedRunnersScored
		break
	}

	return snap, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "pitchwatch/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return parseHTTPError(resp.StatusCode, payload)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type scheduleResponse struct {
	Dates []struct {
		Games []struct {
			GamePk int64 `json:"gamePk"`
			Status struct {
				AbstractGameState string `json:"abstractGameState"`
				DetailedState     string `json:"detailedState"`
			} `json:"status"`
			Teams struct {
				Home struct {
					Team struct {
						Name string `json:"name"`
					} `json:"team"`
				} `json:"home"`
				Away struct {
					Team struct {
						Name string `json:"name"`
					} `json:"team"`
				} `json:"away"`
			} `json:"teams"`
			Linescore struct {
				CurrentInning int `json:"currentInning"`
			} `json:"linescore"`
		} `json:"games"`
	} `json:"dates"`
}

type peopleResponse struct {
	People []struct {
		ID           int64  `json:"id"`
		FullName     string `json:"fullName"`
		MLBDebutDate string `json:"mlbDebutDate"`
		Stats        []struct {
			Type struct {
				DisplayName string `json:"displayName"`
			} `json:"type"`
			Splits []struct {
				Stat PitchingLine `json:"stat"`
			} `json:"splits"`
		} `json:"stats"`
	} `json:"people"`
}

type errorResponse struct {
	Message       string `json:"message"`
	MessageNumber int    `json:"messageNumber"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("stats api error (%d): %s", status, apiErr.Message)
	}
	if len(payload) > 0 {
		return fmt.Errorf("stats api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("stats api error (%d)", status)
}

func classifyStatus(abstract, detailed string) GameStatus {
	switch detailed {
	case "In Progress", "Live":
		return StatusLive
	}
	switch abstract {
	case "Live":
		return StatusLive
	case "Final":
		return StatusFinal
	case "Preview":
		return StatusScheduled
	}
	return StatusOther
}

// isSeasonGroup accepts both names the API has used for the season stat
// grouping depending on hydration.
func isSeasonGroup(displayName string) bool {
	return displayName == "season" || displayName == "statsSingleSeason"
}

// parseStat coerces a Stats API numeric string. Empty values and the API's
// placeholder strings for undefined stats ("-.--", ".---", "-") come back
// nil, as does anything unparseable.
func parseStat(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	switch s {
	case "", "-", "-.--", ".---", "*.**":
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

func debutYear(debutDate string) int {
	if len(debutDate) < 4 {
		return 0
	}
	t, err := time.Parse("2006-01-02", debutDate)
	if err != nil {
		return 0
	}
	return t.Year()
}

var _ GameLister = (*Client)(nil)
var _ FeedSource = (*Client)(nil)
var _ BoxscoreSource = (*Client)(nil)
var _ StatsSource = (*Client)(nil)
