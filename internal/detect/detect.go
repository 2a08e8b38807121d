// Package detect extracts pitching-substitution events from live game
// payloads. Two strategies exist because the Stats API exposes the same
// information in two shapes: the play-by-play feed and the boxscore.
package detect

import (
	"context"
	"fmt"

	"pitchwatch/internal/mlb"
)

// Substitution is one observed pitching change. Identity is (game, pitcher),
// stable across repeated polls of the same underlying game state.
type Substitution struct {
	GamePk      int64
	PitcherID   int64
	Inning      int
	Description string

	// Snapshot is populated when the source payload embedded season stats
	// (boxscore extraction); nil means the caller must fetch them.
	Snapshot *mlb.Snapshot
}

// Key returns the ledger key for this substitution.
func (s Substitution) Key() string {
	return fmt.Sprintf("%d-%d", s.GamePk, s.PitcherID)
}

// Extractor produces the set of substitutions currently visible for a game.
// Output is a set: duplicates within one payload are collapsed by key, and
// order carries no meaning.
type Extractor interface {
	Extract(ctx context.Context, game mlb.Game) ([]Substitution, error)
}

// FromFeed scans a chronological play list for pitching substitutions at or
// after minInning. Plays without an incoming pitcher id are skipped.
func FromFeed(feed *mlb.Feed, minInning int) []Substitution {
	if feed == nil {
		return nil
	}

	seen := make(map[int64]struct{})
	var subs []Substitution
	for _, play := range feed.LiveData.Plays.AllPlays {
		if play.Result.EventType != "pitchingSubstitution" {
			continue
		}
		if play.About.Inning < minInning {
			continue
		}
		pitcher := play.Players.Pitcher.ID
		if pitcher == 0 {
			continue
		}
		if _, dup := seen[pitcher]; dup {
			continue
		}
		seen[pitcher] = struct{}{}
		subs = append(subs, Substitution{
			GamePk:      feed.GamePk,
			PitcherID:   pitcher,
			Inning:      play.About.Inning,
			Description: play.Result.Description,
		})
	}
	return subs
}

// FromBoxscore yields every roster entry on either side that has pitched in
// this game, with the season stat line embedded. The boxscore carries no
// per-event inning, so the game's current inning is attributed.
func FromBoxscore(gamePk int64, box *mlb.Boxscore, inning int) []Substitution {
	if box == nil {
		return nil
	}

	seen := make(map[int64]struct{})
	var subs []Substitution
	for _, side := range []mlb.BoxscoreTeam{box.Teams.Home, box.Teams.Away} {
		for _, player := range side.Players {
			if !player.Stats.Pitching.HasPitched() {
				continue
			}
			if player.Person.ID == 0 {
				continue
			}
			if _, dup := seen[player.Person.ID]; dup {
				continue
			}
			seen[player.Person.ID] = struct{}{}

			snap := mlb.SnapshotFromBoxscore(player)
			subs = append(subs, Substitution{
				GamePk:    gamePk,
				PitcherID: player.Person.ID,
				Inning:    inning,
				Snapshot:  &snap,
			})
		}
	}
	return subs
}

// FeedExtractor extracts substitutions from the live play-by-play feed.
type FeedExtractor struct {
	feeds     mlb.FeedSource
	minInning int
}

// NewFeedExtractor builds a feed-based extractor.
func NewFeedExtractor(feeds mlb.FeedSource, minInning int) *FeedExtractor {
	return &FeedExtractor{feeds: feeds, minInning: minInning}
}

// Extract fetches the game feed and scans it for substitutions.
func (e *FeedExtractor) Extract(ctx context.Context, game mlb.Game) ([]Substitution, error) {
	feed, err := e.feeds.FetchGameFeed(ctx, game.GamePk)
	if err != nil {
		return nil, err
	}
	return FromFeed(feed, e.minInning), nil
}

// BoxscoreExtractor extracts pitchers from the boxscore roster instead of the
// play list. Season stats come embedded, so no per-pitcher stats fetch is
// needed downstream.
type BoxscoreExtractor struct {
	box mlb.BoxscoreSource
}

// NewBoxscoreExtractor builds a boxscore-based extractor.
func NewBoxscoreExtractor(box mlb.BoxscoreSource) *BoxscoreExtractor {
	return &BoxscoreExtractor{box: box}
}

// Extract fetches the boxscore and yields everyone who has pitched.
func (e *BoxscoreExtractor) Extract(ctx context.Context, game mlb.Game) ([]Substitution, error) {
	box, err := e.box.FetchBoxscore(ctx, game.GamePk)
	if err != nil {
		return nil, err
	}
	return FromBoxscore(game.GamePk, box, game.Inning), nil
}

var _ Extractor = (*FeedExtractor)(nil)
var _ Extractor = (*BoxscoreExtractor)(nil)
