package fetch

import (
	"fmt"

	"github.com/scoregate/scoregate/internal/core/domain"
	"github.com/scoregate/scoregate/internal/infra/cache"
)

// MinParticipants builds the box-score completeness validator. Upstream
// occasionally flips a game to final before the full stat lines land; a
// "final" box score with fewer players than any real game could have is an
// upstream race artifact and must not be frozen into the durable tier.
func MinParticipants(min int) cache.Validator {
	return func(_ []byte, sum domain.Summary) error {
		if sum.ParticipantCount < min {
			return fmt.Errorf("box score has %d participants, need at least %d", sum.ParticipantCount, min)
		}
		return nil
	}
}
