// Package policy computes cache TTLs and permanence decisions from game
// state. All functions are pure; callers supply the domain state and apply
// the result.
package policy

import (
	"time"

	"github.com/scoregate/scoregate/internal/core/domain"
)

const (
	// TTLLiveScoreboard is used while any game on the board is in progress.
	TTLLiveScoreboard = 60 * time.Second
	// TTLUpcoming covers today's boards with scheduled games not yet started.
	TTLUpcoming = 5 * time.Minute
	// TTLSettledToday covers today's boards once every game has gone final.
	TTLSettledToday = 6 * time.Hour
	// TTLHistorical covers boards for past or future dates.
	TTLHistorical = 24 * time.Hour

	// TTLLiveBoxScore refreshes an in-progress box score.
	TTLLiveBoxScore = 90 * time.Second
	// TTLFinalSameDay holds a final box score from earlier today; late stat
	// corrections still land within the same day.
	TTLFinalSameDay = 6 * time.Hour
	// TTLFinalHistorical holds a final box score from a prior day.
	TTLFinalHistorical = 7 * 24 * time.Hour

	// TTLStandings covers league standings, which settle once per day's
	// games complete.
	TTLStandings = 6 * time.Hour
	// TTLRoster covers team rosters, which change on transactions only.
	TTLRoster = 24 * time.Hour

	// TTLNoDataVerified marks dates confirmed upstream to have no events.
	TTLNoDataVerified = 24 * time.Hour
	// TTLNoDataOffSeason marks dates falling in the off-season.
	TTLNoDataOffSeason = 7 * 24 * time.Hour
	// TTLNoDataUnknown marks in-season dates with an unexplained empty result.
	TTLNoDataUnknown = 6 * time.Hour
)

// NoDataReason explains why a fetch produced no events for a date.
type NoDataReason string

const (
	NoDataVerified        NoDataReason = "verified"
	NoDataOffSeason       NoDataReason = "off_season"
	NoDataUnknownInSeason NoDataReason = "unknown_in_season"
)

// ScoreboardTTL returns the cache TTL for a scoreboard given its game states.
//
// Ladder:
//   - any live game: refresh every minute
//   - today with scheduled games: 5 minutes
//   - today, all final: 6 hours
//   - any other date: 24 hours
func ScoreboardTTL(hasLive, isToday, hasScheduled, allFinal bool) time.Duration {
	switch {
	case hasLive:
		return TTLLiveScoreboard
	case isToday && hasScheduled:
		return TTLUpcoming
	case isToday && allFinal:
		return TTLSettledToday
	default:
		return TTLHistorical
	}
}

// BoxScoreTTL returns the cache TTL for a box score given the game status and
// whether the game date is the current day.
func BoxScoreTTL(status domain.GameStatus, isSameDay bool) time.Duration {
	if status == domain.StatusLive {
		return TTLLiveBoxScore
	}
	if status.IsTerminal() && isSameDay {
		return TTLFinalSameDay
	}
	if status.IsTerminal() {
		return TTLFinalHistorical
	}
	// Scheduled or postponed games change when the schedule does.
	return TTLUpcoming
}

// NoDataTTL returns how long to suppress re-polling a date confirmed to have
// no events.
func NoDataTTL(reason NoDataReason) time.Duration {
	switch reason {
	case NoDataVerified:
		return TTLNoDataVerified
	case NoDataOffSeason:
		return TTLNoDataOffSeason
	default:
		return TTLNoDataUnknown
	}
}

// ShouldPersistPermanently reports whether an artifact with the given status
// should be written to the durable tier. Only terminal games qualify.
func ShouldPersistPermanently(status domain.GameStatus) bool {
	return status.IsTerminal()
}
