package mlb

import (
	"github.com/shopspring/decimal"
)

// GameStatus enumerates the coarse game states the monitor cares about.
type GameStatus string

const (
	StatusScheduled GameStatus = "scheduled"
	StatusLive      GameStatus = "live"
	StatusFinal     GameStatus = "final"
	StatusOther     GameStatus = "other"
)

// Game is one schedule entry, rebuilt fresh on every poll cycle.
type Game struct {
	GamePk int64
	Home   string
	Away   string
	Status GameStatus
	Inning int
}

// Snapshot aggregates a pitcher's current-season numbers. Stat fields are
// pointers because the Stats API freely omits them; a nil field means the
// provider had nothing, not zero.
type Snapshot struct {
	PitcherID              int64
	FullName               string
	DebutYear              int
	ERA                    *decimal.Decimal
	StolenBasePct          *decimal.Decimal
	WildPitches            *int
	InheritedRunnersScored *int
}

// Feed is the live play-by-play payload for one game.
type Feed struct {
	GamePk   int64 `json:"gamePk"`
	GameData struct {
		Teams struct {
			Home struct {
				Name string `json:"name"`
			} `json:"home"`
			Away struct {
				Name string `json:"name"`
			} `json:"away"`
		} `json:"teams"`
		Status struct {
			AbstractGameState string `json:"abstractGameState"`
			DetailedState     string `json:"detailedState"`
		} `json:"status"`
	} `json:"gameData"`
	LiveData struct {
		Plays struct {
			AllPlays []Play `json:"allPlays"`
		} `json:"plays"`
		Linescore struct {
			CurrentInning int `json:"currentInning"`
		} `json:"linescore"`
	} `json:"liveData"`
}

// Play is a single feed entry. Only the fields the substitution scan reads
// are modelled; everything else in the payload is ignored.
type Play struct {
	Result struct {
		EventType   string `json:"eventType"`
		Description string `json:"description"`
	} `json:"result"`
	About struct {
		Inning int `json:"inning"`
	} `json:"about"`
	Players struct {
		Pitcher struct {
			ID int64 `json:"id"`
		} `json:"pitcher"`
	} `json:"players"`
}

// Boxscore is the per-game aggregated statistics payload.
type Boxscore struct {
	Teams struct {
		Home BoxscoreTeam `json:"home"`
		Away BoxscoreTeam `json:"away"`
	} `json:"teams"`
}

// BoxscoreTeam is one side's roster within a boxscore.
type BoxscoreTeam struct {
	Team struct {
		Name string `json:"name"`
	} `json:"team"`
	Players map[string]BoxscorePlayer `json:"players"`
}

// BoxscorePlayer carries a roster entry's in-game and season pitching lines.
type BoxscorePlayer struct {
	Person struct {
		ID           int64  `json:"id"`
		FullName     string `json:"fullName"`
		MLBDebutDate string `json:"mlbDebutDate"`
	} `json:"person"`
	Stats struct {
		Pitching PitchingLine `json:"pitching"`
	} `json:"stats"`
	SeasonStats struct {
		Pitching PitchingLine `json:"pitching"`
	} `json:"seasonStats"`
}

// PitchingLine mirrors the Stats API pitching stat block. Numeric-looking
// values arrive as strings ("6.20", ".800", "1.2 IP") and are coerced later.
type PitchingLine struct {
	InningsPitched         string `json:"inningsPitched"`
	ERA                    string `json:"era"`
	StolenBasePercentage   string `json:"stolenBasePercentage"`
	WildPitches            *int   `json:"wildPitches"`
	InheritedRunnersScored *int   `json:"inheritedRunnersScored"`
}

// HasPitched reports whether this line shows any innings pitched, which is
// how the boxscore marks players who have taken the mound in this game.
func (l PitchingLine) HasPitched() bool {
	return l.InningsPitched != ""
}

// SnapshotFromBoxscore builds a Snapshot from a boxscore roster entry's
// season line. The debut year is only populated when the boxscore happens to
// hydrate it; callers must treat zero as unknown.
func SnapshotFromBoxscore(p BoxscorePlayer) Snapshot {
	line := p.SeasonStats.Pitching
	return Snapshot{
		PitcherID:              p.Person.ID,
		FullName:               p.Person.FullName,
		DebutYear:              debutYear(p.Person.MLBDebutDate),
		ERA:                    parseStat(line.ERA),
		StolenBasePct:          parseStat(line.StolenBasePercentage),
		WildPitches:            line.WildPitches,
		InheritedRunnersScored: line.InheritedRunnersScored,
	}
}
