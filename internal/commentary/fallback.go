package commentary

import (
	"fmt"

	"matchherald/internal/stats"
)

// FallbackComment synthesizes a deterministic one-sentence comment from a
// participant's own statistics. It is used whenever the generation backend
// fails or its response cannot be attributed, so every tracked participant
// still gets a non-empty line in the report.
func FallbackComment(p *stats.PlayerPerformance) string {
	switch {
	case p.Won && p.Kills >= p.Deaths:
		return fmt.Sprintf("%s went %d/%d and carried the team to a win.",
			p.Name, p.Kills, p.Deaths)
	case p.Won:
		return fmt.Sprintf("%s went %d/%d, but the team pulled off the win anyway.",
			p.Name, p.Kills, p.Deaths)
	case p.Kills >= p.Deaths:
		return fmt.Sprintf("%s went %d/%d, which sadly was not enough to avoid the loss.",
			p.Name, p.Kills, p.Deaths)
	default:
		return fmt.Sprintf("%s went %d/%d in a match best forgotten.",
			p.Name, p.Kills, p.Deaths)
	}
}
