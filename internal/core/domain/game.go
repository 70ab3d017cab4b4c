package domain

// GameStatus represents the lifecycle state of a game as reported upstream.
type GameStatus string

const (
	StatusScheduled GameStatus = "scheduled"
	StatusLive      GameStatus = "live"
	StatusFinal     GameStatus = "final"
	StatusPostponed GameStatus = "postponed"
	StatusCancelled GameStatus = "cancelled"
)

// IsTerminal reports whether the game will not meaningfully change further.
func (s GameStatus) IsTerminal() bool {
	return s == StatusFinal || s == StatusCancelled
}

// League identifies an upstream league feed.
type League string

const (
	LeagueNBA  League = "nba"
	LeagueWNBA League = "wnba"
	LeagueNHL  League = "nhl"
	LeagueMLB  League = "mlb"
)

// Sport identifies the sport for sport-specific payload validation.
type Sport string

const (
	SportBasketball Sport = "basketball"
	SportHockey     Sport = "hockey"
	SportBaseball   Sport = "baseball"
)
