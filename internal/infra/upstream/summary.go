package upstream

import (
	"encoding/json"

	"github.com/scoregate/scoregate/internal/core/domain"
)

// The provider's payloads stay opaque except for the few fields summarized
// here. Parsing is tolerant: an unreadable payload yields a zero summary,
// which policy treats conservatively (short TTL, no permanence).

type payloadGame struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Date   string `json:"date"`
}

type scoreboardPayload struct {
	Games []payloadGame `json:"games"`
}

type boxScorePayload struct {
	Game    payloadGame       `json:"game"`
	Players []json.RawMessage `json:"players"`
}

// ParseStatus normalizes the provider's status strings.
func ParseStatus(s string) domain.GameStatus {
	switch s {
	case "live", "in_progress", "halftime":
		return domain.StatusLive
	case "final", "completed":
		return domain.StatusFinal
	case "scheduled", "pre", "pregame":
		return domain.StatusScheduled
	case "postponed", "delayed":
		return domain.StatusPostponed
	case "cancelled", "canceled", "forfeit":
		return domain.StatusCancelled
	default:
		return domain.StatusScheduled
	}
}

func summarizeScoreboard(body []byte) domain.Summary {
	sum := domain.Summary{Kind: domain.KindScoreboard}
	var p scoreboardPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return sum
	}
	sum.GameCount = len(p.Games)
	sum.AllFinal = len(p.Games) > 0
	for _, g := range p.Games {
		switch ParseStatus(g.Status) {
		case domain.StatusLive:
			sum.HasLive = true
			sum.AllFinal = false
		case domain.StatusScheduled, domain.StatusPostponed:
			sum.HasScheduled = true
			sum.AllFinal = false
		case domain.StatusFinal, domain.StatusCancelled:
		}
	}
	return sum
}

func summarizeGame(body []byte) domain.Summary {
	sum := domain.Summary{Kind: domain.KindGame, Status: domain.StatusScheduled}
	var g payloadGame
	if err := json.Unmarshal(body, &g); err != nil {
		return sum
	}
	sum.Status = ParseStatus(g.Status)
	sum.EventDate = g.Date
	return sum
}

func summarizeBoxScore(body []byte) domain.Summary {
	sum := domain.Summary{Kind: domain.KindBoxScore, Status: domain.StatusScheduled}
	var p boxScorePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return sum
	}
	sum.Status = ParseStatus(p.Game.Status)
	sum.EventDate = p.Game.Date
	sum.ParticipantCount = len(p.Players)
	return sum
}

// Summarize re-derives the gateway's view of a payload, used when a cached
// artifact must be re-evaluated against current policy.
func Summarize(kind domain.ResourceKind, payload []byte) domain.Summary {
	switch kind {
	case domain.KindScoreboard:
		return summarizeScoreboard(payload)
	case domain.KindGame:
		return summarizeGame(payload)
	case domain.KindBoxScore:
		return summarizeBoxScore(payload)
	default:
		return domain.Summary{Kind: kind}
	}
}
