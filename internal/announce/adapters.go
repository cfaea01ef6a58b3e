package announce

import "context"

// DiscordAdapter posts announcements as webhook embeds.
type DiscordAdapter struct {
	client *httpClient
}

func (a *DiscordAdapter) Name() string { return "discord" }

func (a *DiscordAdapter) Send(ctx context.Context, endpoint, _ string, msg Message) error {
	type embedField struct {
		Name   string `json:"name"`
		Value  string `json:"value"`
		Inline bool   `json:"inline"`
	}
	fields := make([]embedField, 0, len(msg.Fields))
	for _, f := range msg.Fields {
		fields = append(fields, embedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	embed := map[string]any{
		"title":  msg.Title,
		"fields": fields,
		"color":  msg.Color,
	}
	if msg.Timestamp != "" {
		embed["timestamp"] = msg.Timestamp
	}
	return a.client.postJSON(ctx, endpoint, nil, map[string]any{
		"content": msg.Content,
		"embeds":  []map[string]any{embed},
	})
}

// WebhookAdapter posts the raw summary to a plain JSON endpoint. The
// shared secret, when set, rides along in a header so receivers can
// reject spoofed calls.
type WebhookAdapter struct {
	client *httpClient
}

func (a *WebhookAdapter) Name() string { return "webhook" }

func (a *WebhookAdapter) Send(ctx context.Context, endpoint, secret string, msg Message) error {
	headers := map[string]string{}
	if secret != "" {
		headers["X-Announce-Secret"] = secret
	}
	return a.client.postJSON(ctx, endpoint, headers, map[string]any{
		"title":   msg.Title,
		"content": msg.Content,
		"summary": msg.Raw,
	})
}
