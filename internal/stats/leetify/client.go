// Package leetify provides a stats.Source backed by the public Leetify CS2
// stats API. It implements the two-step fetch the API requires: the match
// list endpoint to learn the most recent match id for a steam ID, then the
// match details endpoint for the full scoreboard.
//
// Typical usage:
//
//	c := leetify.New(apiKey, leetify.WithTimeout(15*time.Second))
//	match, err := c.FetchRecentMatch(ctx, "76561198000000000")
//
// A nil match with a nil error means the player has no recorded matches or
// the record was too incomplete to use.
package leetify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"matchherald/internal/stats"
)

const (
	defaultBaseURL = "https://api-public.cs-prod.leetify.com"
	defaultTimeout = 30 * time.Second

	matchListEndpoint    = "/v3/profile/matches"
	matchDetailsEndpoint = "/v3/matches/"
)

// Client fetches recent matches from the Leetify API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Compile-time interface check.
var _ stats.Source = (*Client)(nil)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithBaseURL overrides the default Leetify API base URL. Used in tests to
// point the client at a local server.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = base
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates a Client authenticating with the given API key.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ---- wire types ----

// matchListEntry is one element of the match list response. Only the id is needed.
type matchListEntry struct {
	ID string `json:"id"`
}

// matchDetails is the match details response body.
type matchDetails struct {
	MapName        string          `json:"map_name"`
	GameFinishedAt string          `json:"game_finished_at"`
	TeamScores     []teamScoreWire `json:"team_scores"`
	Stats          []playerWire    `json:"stats"`
}

type teamScoreWire struct {
	TeamNumber int `json:"team_number"`
	Score      int `json:"score"`
}

type playerWire struct {
	SteamID           string  `json:"steam64_id"`
	Name              string  `json:"name"`
	TotalKills        int     `json:"total_kills"`
	TotalDeaths       int     `json:"total_deaths"`
	TotalAssists      int     `json:"total_assists"`
	KDRatio           float64 `json:"kd_ratio"`
	InitialTeamNumber *int    `json:"initial_team_number"`
	DPR               float64 `json:"dpr"`
	TotalHSKills      int     `json:"total_hs_kills"`
}

// ---- fetching ----

// FetchRecentMatch implements stats.Source. It returns (nil, nil) when the
// player has no matches or the details are too incomplete to use.
func (c *Client) FetchRecentMatch(ctx context.Context, steamID string) (*stats.Match, error) {
	matchID, err := c.fetchRecentMatchID(ctx, steamID)
	if err != nil {
		return nil, err
	}
	if matchID == "" {
		return nil, nil
	}

	match, err := c.fetchMatchDetails(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.IsUsable() {
		return nil, nil
	}
	return match, nil
}

// fetchRecentMatchID returns the id of the most recent match for steamID, or
// "" when the player has no recorded matches.
func (c *Client) fetchRecentMatchID(ctx context.Context, steamID string) (string, error) {
	q := url.Values{}
	q.Set("steam64_id", steamID)
	q.Set("limit", "1")

	body, err := c.get(ctx, matchListEndpoint+"?"+q.Encode())
	if err != nil {
		return "", fmt.Errorf("leetify: match list for %s: %w", steamID, err)
	}

	var entries []matchListEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return "", fmt.Errorf("leetify: decode match list for %s: %w", steamID, err)
	}
	if len(entries) == 0 {
		return "", nil
	}
	return entries[0].ID, nil
}

// fetchMatchDetails retrieves and parses the full scoreboard for a match id.
func (c *Client) fetchMatchDetails(ctx context.Context, matchID string) (*stats.Match, error) {
	body, err := c.get(ctx, matchDetailsEndpoint+url.PathEscape(matchID))
	if err != nil {
		return nil, fmt.Errorf("leetify: match details %s: %w", matchID, err)
	}

	var details matchDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, fmt.Errorf("leetify: decode match details %s: %w", matchID, err)
	}
	return buildMatch(matchID, details), nil
}

// get performs an authenticated GET and returns the response body.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}

// ---- parsing ----

// buildMatch converts wire details into the domain model, deriving ADR,
// headshot percentage, and the per-player win flag.
func buildMatch(matchID string, d matchDetails) *stats.Match {
	m := &stats.Match{
		ID:         matchID,
		MapName:    d.MapName,
		FinishedAt: d.GameFinishedAt,
	}

	for _, ts := range d.TeamScores {
		m.TeamScores = append(m.TeamScores, stats.TeamScore{
			TeamNumber: ts.TeamNumber,
			Score:      ts.Score,
		})
	}

	for _, s := range d.Stats {
		p := stats.PlayerPerformance{
			SteamID:    s.SteamID,
			Name:       s.Name,
			Kills:      s.TotalKills,
			Deaths:     s.TotalDeaths,
			Assists:    s.TotalAssists,
			KDRatio:    s.KDRatio,
			ADR:        int(math.Round(s.DPR)),
			TeamNumber: -1,
		}
		if s.InitialTeamNumber != nil {
			p.TeamNumber = *s.InitialTeamNumber
		}
		if p.Kills > 0 {
			p.HeadshotPct = int(math.Round(100 * float64(s.TotalHSKills) / float64(p.Kills)))
		}
		p.Won = wonMatch(p.TeamNumber, m.TeamScores)

		m.Players = append(m.Players, p)
	}

	return m
}

// wonMatch derives the win flag by comparing the player's team score against
// the opponent's. Unknown team or incomplete scores yield false.
func wonMatch(teamNumber int, scores []stats.TeamScore) bool {
	if teamNumber == -1 || len(scores) < 2 {
		return false
	}
	var own, opponent int
	for _, ts := range scores {
		if ts.TeamNumber == teamNumber {
			own = ts.Score
		} else {
			opponent = ts.Score
		}
	}
	return own > opponent
}
