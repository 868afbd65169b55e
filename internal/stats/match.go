// Package stats defines the core match data model: one completed game session,
// the per-player performance lines inside it, and the team score pair used to
// derive win/loss and the printable score.
package stats

import (
	"sort"
	"strconv"
)

// PlayerPerformance is one player's stat line in a completed match.
// Produced once per match per participant by parsing; immutable after creation.
type PlayerPerformance struct {
	// SteamID is the player's steam64 identifier.
	SteamID string

	// Name is the display name the player used in this match.
	Name string

	Kills   int
	Deaths  int
	Assists int

	// ADR is the average damage per round, rounded to the nearest integer.
	ADR int

	// HeadshotPct is the headshot kill percentage, 0 when the player had no kills.
	HeadshotPct int

	// KDRatio is the kill/death ratio as reported by the stats provider.
	KDRatio float64

	// TeamNumber is the team the player started on. -1 when unknown.
	TeamNumber int

	// Won reports whether the player's team won the match.
	Won bool
}

// TeamScore is one team's final score. A completed match has two entries.
type TeamScore struct {
	TeamNumber int
	Score      int
}

// Match is the parsed result of one completed game session.
// ID is globally unique per underlying match and is the dedup key.
type Match struct {
	ID         string
	MapName    string
	FinishedAt string

	// Players is the full scoreboard in provider order.
	Players []PlayerPerformance

	TeamScores []TeamScore
}

// IsUsable reports whether the match carries enough data to process.
// An unusable match is treated identically to "no match found."
func (m *Match) IsUsable() bool {
	return m != nil && m.ID != "" && len(m.Players) > 0
}

// Player returns the stat line for the given steam ID, or nil if the player
// did not take part in this match.
func (m *Match) Player(steamID string) *PlayerPerformance {
	for i := range m.Players {
		if m.Players[i].SteamID == steamID {
			return &m.Players[i]
		}
	}
	return nil
}

// TrackedPlayers returns the stat lines of every tracked steam ID present in
// this match, in scoreboard order. The pointers alias m.Players.
func (m *Match) TrackedPlayers(trackedIDs []string) []*PlayerPerformance {
	var result []*PlayerPerformance
	for i := range m.Players {
		for _, id := range trackedIDs {
			if m.Players[i].SteamID == id {
				result = append(result, &m.Players[i])
				break
			}
		}
	}
	return result
}

// HasTrackedPlayers reports whether any tracked steam ID took part in this match.
func (m *Match) HasTrackedPlayers(trackedIDs []string) bool {
	return len(m.TrackedPlayers(trackedIDs)) > 0
}

// ScoreString renders the final score as "A-B" with the lower team number
// first. Returns "?-?" when fewer than two team scores are known.
func (m *Match) ScoreString() string {
	if len(m.TeamScores) < 2 {
		return "?-?"
	}
	scores := make([]TeamScore, len(m.TeamScores))
	copy(scores, m.TeamScores)
	sort.Slice(scores, func(i, j int) bool { return scores[i].TeamNumber < scores[j].TeamNumber })

	return strconv.Itoa(scores[0].Score) + "-" + strconv.Itoa(scores[1].Score)
}
