// Package report assembles delivery-ready match reports from match facts and
// attributed commentary. It owns formatting only; transport belongs to the
// notification sink.
package report

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"matchherald/internal/stats"
)

// embedColorWin is the embed sidebar color when the tracked players won.
const embedColorWin = 0x2ECC71

// embedColorLoss is the embed sidebar color when the tracked players lost.
const embedColorLoss = 0xE74C3C

// Report is one delivery-ready payload for a single match.
type Report struct {
	// MatchID identifies the match this report describes.
	MatchID string

	// Content is the plain message body shown above the embed.
	Content string

	// Embed carries the per-player scoreboard. Nil when the match has no
	// tracked participants.
	Embed *discordgo.MessageEmbed
}

// Build assembles a Report for m from the per-participant commentary map
// (keyed by Steam ID). Tracked participants appear in scoreboard order. A
// participant missing from comments is listed in the embed but contributes no
// commentary paragraph.
func Build(m *stats.Match, comments map[string]string, trackedIDs []string) *Report {
	tracked := m.TrackedPlayers(trackedIDs)

	var b strings.Builder
	fmt.Fprintf(&b, "🎮 **%s** (%s)\n\n", m.MapName, m.ScoreString())
	b.WriteString(commentaryBlock(tracked, comments))

	return &Report{
		MatchID: m.ID,
		Content: b.String(),
		Embed:   buildEmbed(m, tracked),
	}
}

// commentaryBlock renders the attributed commentary. A lone participant's
// comment stands on its own; a group gets one bold-named paragraph each.
func commentaryBlock(tracked []*stats.PlayerPerformance, comments map[string]string) string {
	if len(tracked) == 1 {
		return comments[tracked[0].SteamID]
	}
	var paragraphs []string
	for _, p := range tracked {
		text, ok := comments[p.SteamID]
		if !ok || text == "" {
			continue
		}
		paragraphs = append(paragraphs, fmt.Sprintf("**%s**: %s", p.Name, text))
	}
	return strings.Join(paragraphs, "\n\n")
}

// buildEmbed creates the scoreboard embed listing each tracked participant's
// stat line, with the match finish time in the footer.
func buildEmbed(m *stats.Match, tracked []*stats.PlayerPerformance) *discordgo.MessageEmbed {
	if len(tracked) == 0 {
		return nil
	}

	fields := make([]*discordgo.MessageEmbedField, 0, len(tracked))
	for _, p := range tracked {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   p.Name,
			Value:  statLine(p),
			Inline: false,
		})
	}

	color := embedColorLoss
	if tracked[0].Won {
		color = embedColorWin
	}

	embed := &discordgo.MessageEmbed{
		Title:  fmt.Sprintf("%s (%s)", m.MapName, m.ScoreString()),
		Color:  color,
		Fields: fields,
	}
	if m.FinishedAt != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: m.FinishedAt}
	}
	return embed
}

// statLine formats one participant's scoreboard row.
func statLine(p *stats.PlayerPerformance) string {
	result := "LOST"
	if p.Won {
		result = "WON"
	}
	return fmt.Sprintf("K/D/A %d/%d/%d · ADR %d · HS%% %d%% · KD %.2f (%s)",
		p.Kills, p.Deaths, p.Assists, p.ADR, p.HeadshotPct, p.KDRatio, result)
}
