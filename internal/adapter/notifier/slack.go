package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hive-corporation/pivotlink/internal/core/ports"
)

type SlackNotifier struct {
	botToken   string
	channel    string
	httpClient *http.Client
}

func NewSlackNotifier(botToken, channel string) *SlackNotifier {
	return &SlackNotifier{
		botToken: botToken,
		channel:  channel,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NotifyCycleSummary sends a formatted digest of one sync cycle to Slack
func (s *SlackNotifier) NotifyCycleSummary(summary ports.CycleSummary) error {
	blocks := s.buildSummaryBlocks(summary)

	payload := SlackMessage{
		Channel: s.channel,
		Blocks:  blocks,
		Text:    fmt.Sprintf("🔗 Endace enrichment: %d enriched, %d updated, %d failed", summary.Enriched, summary.Updated, summary.Failed),
	}

	return s.sendMessage(payload)
}

// NotifyCycleFailure sends an alert when a reconciliation cycle aborts
func (s *SlackNotifier) NotifyCycleFailure(cycleID string, reason string) error {
	payload := SlackMessage{
		Channel: s.channel,
		Blocks: []SlackBlock{
			{
				Type: "header",
				Text: &SlackText{
					Type: "plain_text",
					Text: "🚨 Endace Enrichment Cycle Failed",
				},
			},
			{
				Type: "section",
				Text: &SlackText{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Cycle*: `%s`\n*Reason*: %s", cycleID, reason),
				},
			},
		},
		Text: fmt.Sprintf("🚨 Endace enrichment cycle %s failed", cycleID),
	}

	return s.sendMessage(payload)
}

// Build Slack message blocks for a cycle summary
func (s *SlackNotifier) buildSummaryBlocks(summary ports.CycleSummary) []SlackBlock {
	emoji := "✅"
	if summary.Failed > 0 {
		emoji = "⚠️"
	}

	return []SlackBlock{
		{
			Type: "header",
			Text: &SlackText{
				Type: "plain_text",
				Text: fmt.Sprintf("%s Endace Enrichment Cycle Complete", emoji),
			},
		},
		{
			Type: "section",
			Fields: []SlackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Enriched*\n%d", summary.Enriched)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Updated*\n%d", summary.Updated)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Failed*\n%d", summary.Failed)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Duration*\n%s", summary.Duration.Round(time.Millisecond))},
			},
		},
		{
			Type: "context",
			Elements: []SlackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("Cycle `%s`", summary.CycleID)},
			},
		},
	}
}

// Send message to Slack
func (s *SlackNotifier) sendMessage(msg SlackMessage) error {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	req, err := http.NewRequest("POST", "https://slack.com/api/chat.postMessage", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.botToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack API returned status %d", resp.StatusCode)
	}

	return nil
}

// Slack API structures

type SlackMessage struct {
	Channel string       `json:"channel"`
	Blocks  []SlackBlock `json:"blocks"`
	Text    string       `json:"text"` // Fallback text
}

type SlackBlock struct {
	Type     string      `json:"type"`
	Text     *SlackText  `json:"text,omitempty"`
	Fields   []SlackText `json:"fields,omitempty"`
	Elements []SlackText `json:"elements,omitempty"`
}

type SlackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
