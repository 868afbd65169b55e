// Package webhook implements notify.Sink on top of a Discord webhook.
package webhook

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/bwmarrin/discordgo"

	"matchherald/internal/notify"
	"matchherald/internal/report"
)

// executor is the slice of discordgo.Session the sink needs. Tests substitute
// a recording fake.
type executor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Sink posts reports to a single Discord webhook.
type Sink struct {
	session executor
	id      string
	token   string
}

// Compile-time interface check.
var _ notify.Sink = (*Sink)(nil)

// New creates a Sink from a full Discord webhook URL
// (https://discord.com/api/webhooks/<id>/<token>).
func New(webhookURL string) (*Sink, error) {
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}
	// Webhook execution is unauthenticated; no bot token needed.
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("webhook: create session: %w", err)
	}
	return &Sink{session: session, id: id, token: token}, nil
}

// DeliverReport posts the report content and scoreboard embed.
func (s *Sink) DeliverReport(ctx context.Context, r *report.Report) error {
	params := &discordgo.WebhookParams{Content: r.Content}
	if r.Embed != nil {
		params.Embeds = []*discordgo.MessageEmbed{r.Embed}
	}
	if _, err := s.session.WebhookExecute(s.id, s.token, true, params, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("webhook: deliver report for match %s: %w", r.MatchID, err)
	}
	return nil
}

// Announce posts a plain content message.
func (s *Sink) Announce(ctx context.Context, message string) error {
	params := &discordgo.WebhookParams{Content: message}
	if _, err := s.session.WebhookExecute(s.id, s.token, true, params, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("webhook: announce: %w", err)
	}
	return nil
}

// parseWebhookURL extracts the webhook id and token from a Discord webhook
// URL. The expected path shape is /api/webhooks/<id>/<token>.
func parseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("webhook: parse url: %w", err)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	idx := -1
	for i, seg := range segments {
		if seg == "webhooks" {
			idx = i
			break
		}
	}
	if idx < 0 || idx+2 >= len(segments) {
		return "", "", fmt.Errorf("webhook: url %q does not look like a Discord webhook", raw)
	}
	id, token = segments[idx+1], segments[idx+2]
	if id == "" || token == "" {
		return "", "", fmt.Errorf("webhook: url %q has empty id or token", raw)
	}
	return id, token, nil
}
