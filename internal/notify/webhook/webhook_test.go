package webhook

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"

	"matchherald/internal/report"
)

type fakeExecutor struct {
	calls []*discordgo.WebhookParams
	ids   []string
	err   error
}

func (f *fakeExecutor) WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.calls = append(f.calls, data)
	f.ids = append(f.ids, webhookID+"/"+token)
	if f.err != nil {
		return nil, f.err
	}
	return &discordgo.Message{}, nil
}

func TestParseWebhookURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		url       string
		wantID    string
		wantToken string
		wantErr   bool
	}{
		{
			name:      "standard discord webhook",
			url:       "https://discord.com/api/webhooks/123456789/abc-def_token",
			wantID:    "123456789",
			wantToken: "abc-def_token",
		},
		{
			name:      "versioned api path",
			url:       "https://discord.com/api/v10/webhooks/42/tok",
			wantID:    "42",
			wantToken: "tok",
		},
		{
			name:    "missing token segment",
			url:     "https://discord.com/api/webhooks/123456789",
			wantErr: true,
		},
		{
			name:    "no webhooks segment",
			url:     "https://discord.com/api/channels/1/2",
			wantErr: true,
		},
		{
			name:    "empty url",
			url:     "",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			id, token, err := parseWebhookURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatal("want error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseWebhookURL: %v", err)
			}
			if id != tt.wantID || token != tt.wantToken {
				t.Errorf("got %s/%s, want %s/%s", id, token, tt.wantID, tt.wantToken)
			}
		})
	}
}

func TestDeliverReport(t *testing.T) {
	t.Parallel()
	exec := &fakeExecutor{}
	s := &Sink{session: exec, id: "id1", token: "tok1"}

	embed := &discordgo.MessageEmbed{Title: "de_nuke (13-2)"}
	err := s.DeliverReport(context.Background(), &report.Report{
		MatchID: "m1",
		Content: "🎮 **de_nuke** (13-2)\n\ngg",
		Embed:   embed,
	})
	if err != nil {
		t.Fatalf("DeliverReport: %v", err)
	}
	if len(exec.calls) != 1 {
		t.Fatalf("executor calls = %d, want 1", len(exec.calls))
	}
	if exec.ids[0] != "id1/tok1" {
		t.Errorf("webhook identity = %s, want id1/tok1", exec.ids[0])
	}
	params := exec.calls[0]
	if params.Content != "🎮 **de_nuke** (13-2)\n\ngg" {
		t.Errorf("content = %q", params.Content)
	}
	if len(params.Embeds) != 1 || params.Embeds[0] != embed {
		t.Errorf("embeds = %v, want the report embed", params.Embeds)
	}
}

func TestDeliverReport_NoEmbed(t *testing.T) {
	t.Parallel()
	exec := &fakeExecutor{}
	s := &Sink{session: exec, id: "i", token: "t"}

	if err := s.DeliverReport(context.Background(), &report.Report{MatchID: "m", Content: "c"}); err != nil {
		t.Fatalf("DeliverReport: %v", err)
	}
	if len(exec.calls[0].Embeds) != 0 {
		t.Errorf("embeds = %v, want none", exec.calls[0].Embeds)
	}
}

func TestDeliverReport_Error(t *testing.T) {
	t.Parallel()
	exec := &fakeExecutor{err: errors.New("429")}
	s := &Sink{session: exec, id: "i", token: "t"}

	err := s.DeliverReport(context.Background(), &report.Report{MatchID: "m1"})
	if err == nil {
		t.Fatal("want error")
	}
}

func TestAnnounce(t *testing.T) {
	t.Parallel()
	exec := &fakeExecutor{}
	s := &Sink{session: exec, id: "i", token: "t"}

	if err := s.Announce(context.Background(), "online"); err != nil {
		t.Fatalf("Announce: %v", err)
	}
	if exec.calls[0].Content != "online" {
		t.Errorf("content = %q, want online", exec.calls[0].Content)
	}
}

func TestNew_InvalidURL(t *testing.T) {
	t.Parallel()
	if _, err := New("https://example.com/not-a-webhook"); err == nil {
		t.Fatal("want error for non-webhook url")
	}
}
