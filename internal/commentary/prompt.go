package commentary

import (
	"fmt"
	"strings"

	"matchherald/internal/stats"
)

const systemPromptPrefix = "You are a witty CS2 match commentator. "

// defaultTone is the commentator persona appended to the system prompt unless
// overridden via WithTone.
const defaultTone = "Keep responses short, funny, and savage. " +
	"Roast bad performances, hype good ones. Mention specific stats."

// buildSinglePrompt produces the user message for a one-participant cycle.
// The full match context is included so the model can mention teammates who
// carried or enemies who dominated.
func buildSinglePrompt(m *stats.Match, subject *stats.PlayerPerformance, trackedIDs []string) string {
	var b strings.Builder
	b.WriteString("Write a funny, entertaining comment about ")
	b.WriteString(subject.Name)
	b.WriteString("'s performance in this CS2 match. ")
	b.WriteString("Be playful and humorous - roast them if they did bad, celebrate if they did well. ")
	b.WriteString("Keep it 2-3 sentences max. Be creative and specific about the stats!\n\n")

	writeMatchContext(&b, m, trackedIDs)

	b.WriteString("\nWrite a witty comment about ")
	b.WriteString(subject.Name)
	b.WriteString(" (mention standout enemies/teammates if relevant):")
	return b.String()
}

// buildBatchedPrompt produces the user message for a multi-participant cycle.
// The model is instructed to start each participant's paragraph with a
// bracketed name tag so the response can be split back per participant.
func buildBatchedPrompt(m *stats.Match, tracked []*stats.PlayerPerformance, trackedIDs []string) string {
	var b strings.Builder
	b.WriteString("Write a funny, entertaining comment about each TRACKED player in this CS2 match. ")
	b.WriteString("Be playful and humorous - roast players who did bad, celebrate those who did well. ")
	b.WriteString("Keep each comment 2-3 sentences max. Be creative and specific about the stats!\n\n")

	writeMatchContext(&b, m, trackedIDs)

	b.WriteString("\nWrite one comment per tracked player. Start each player's comment on its own ")
	b.WriteString("line with their name in square brackets, exactly like this:\n")
	for _, p := range tracked {
		fmt.Fprintf(&b, "[%s]: your comment about %s here\n", p.Name, p.Name)
	}
	return b.String()
}

// writeMatchContext appends the shared match context block: map, score, and
// every participant partitioned into tracked players, teammates, and enemies.
func writeMatchContext(b *strings.Builder, m *stats.Match, trackedIDs []string) {
	fmt.Fprintf(b, "Match details:\nMap: %s\nScore: %s\n\n", m.MapName, m.ScoreString())

	tracked := m.TrackedPlayers(trackedIDs)

	trackedTeam := -1
	if len(tracked) > 0 {
		trackedTeam = tracked[0].TeamNumber
	}

	b.WriteString("=== TRACKED PLAYERS (the ones we care about) ===\n")
	for _, p := range tracked {
		result := "LOST"
		if p.Won {
			result = "WON"
		}
		fmt.Fprintf(b, "- %s: K/D/A %d/%d/%d, ADR %d, HS%% %d%%, KD %.2f (%s)\n",
			p.Name, p.Kills, p.Deaths, p.Assists, p.ADR, p.HeadshotPct, p.KDRatio, result)
	}

	isTracked := make(map[string]bool, len(trackedIDs))
	for _, id := range trackedIDs {
		isTracked[id] = true
	}

	var teammates, enemies []*stats.PlayerPerformance
	for i := range m.Players {
		p := &m.Players[i]
		if isTracked[p.SteamID] {
			continue
		}
		if p.TeamNumber == trackedTeam {
			teammates = append(teammates, p)
		} else {
			enemies = append(enemies, p)
		}
	}

	writeRoster(b, "TEAMMATES", teammates)
	writeRoster(b, "ENEMIES", enemies)
}

func writeRoster(b *strings.Builder, heading string, players []*stats.PlayerPerformance) {
	if len(players) == 0 {
		return
	}
	fmt.Fprintf(b, "\n=== %s ===\n", heading)
	for _, p := range players {
		fmt.Fprintf(b, "- %s: K/D/A %d/%d/%d, ADR %d, KD %.2f\n",
			p.Name, p.Kills, p.Deaths, p.Assists, p.ADR, p.KDRatio)
	}
}
