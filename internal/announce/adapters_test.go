package announce

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDiscordAdapterPostsEmbed(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("unmarshal body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	a := &DiscordAdapter{client: newHTTPClient(time.Second)}
	err := a.Send(context.Background(), srv.URL, "", Message{
		Title:   "Spades match settled",
		Content: "Stake 100, 4 players",
		Color:   colorSettled,
		Fields:  []Field{{Name: "u1", Value: "win (+100)", Inline: true}},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["content"] != "Stake 100, 4 players" {
		t.Fatalf("content = %v", got["content"])
	}
	embeds, ok := got["embeds"].([]any)
	if !ok || len(embeds) != 1 {
		t.Fatalf("embeds = %v", got["embeds"])
	}
	embed := embeds[0].(map[string]any)
	if embed["title"] != "Spades match settled" {
		t.Fatalf("embed title = %v", embed["title"])
	}
}

func TestWebhookAdapterSendsSecretHeader(t *testing.T) {
	var secret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret = r.Header.Get("X-Announce-Secret")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := &WebhookAdapter{client: newHTTPClient(time.Second)}
	if err := a.Send(context.Background(), srv.URL, "hunter2", Message{Title: "t"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if secret != "hunter2" {
		t.Fatalf("secret header = %q", secret)
	}
}

func TestAdapterSurfacesHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := &WebhookAdapter{client: newHTTPClient(time.Second)}
	if err := a.Send(context.Background(), srv.URL, "", Message{}); err == nil {
		t.Fatal("expected error for 502 response")
	}
}
