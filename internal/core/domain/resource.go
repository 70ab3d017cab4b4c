package domain

import "fmt"

// ResourceKind identifies a category of upstream resource. Each kind maps to
// its own quota bucket and cache key namespace.
type ResourceKind string

const (
	KindScoreboard ResourceKind = "scoreboard"
	KindGame       ResourceKind = "game"
	KindBoxScore   ResourceKind = "boxscore"
	KindStandings  ResourceKind = "standings"
	KindRoster     ResourceKind = "roster"
)

// ScoreboardKey builds the cache key for a league's scoreboard on a date
// (YYYY-MM-DD).
func ScoreboardKey(league League, date string) string {
	return fmt.Sprintf("scoreboard:%s:%s", league, date)
}

// GameKey builds the cache key for a single game.
func GameKey(gameID string) string {
	return fmt.Sprintf("game:%s", gameID)
}

// BoxScoreKey builds the cache key for a game's box score.
func BoxScoreKey(gameID string) string {
	return fmt.Sprintf("boxscore:%s", gameID)
}

// StandingsKey builds the cache key for a league's standings in a season.
func StandingsKey(league League, season string) string {
	return fmt.Sprintf("standings:%s:%s", league, season)
}

// RosterKey builds the cache key for a team's roster.
func RosterKey(teamID string) string {
	return fmt.Sprintf("roster:%s", teamID)
}
