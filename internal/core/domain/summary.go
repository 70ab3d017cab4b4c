package domain

// Summary is the gateway's view of an upstream payload: just enough derived
// state to drive TTL policy and completeness validation, independent of any
// provider's JSON schema.
type Summary struct {
	Kind ResourceKind

	// Scoreboard state
	HasLive      bool
	HasScheduled bool
	AllFinal     bool
	GameCount    int

	// Single-game state
	Status GameStatus

	// EventDate is the game's calendar date (YYYY-MM-DD) when the payload
	// carries one; empty otherwise.
	EventDate string

	// ParticipantCount is the number of players present in a box score
	// payload, used to reject incomplete "final" payloads.
	ParticipantCount int
}
