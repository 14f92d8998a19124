package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewSlackClient(t *testing.T) {
	client := NewSlackClient("xoxb-test", "#test-channel", "", 0, nil)

	if client.botToken != "xoxb-test" {
		t.Errorf("Expected bot token 'xoxb-test', got '%s'", client.botToken)
	}
	if client.channel != "#test-channel" {
		t.Errorf("Expected channel '#test-channel', got '%s'", client.channel)
	}
	if client.apiURL != defaultSlackAPIURL {
		t.Errorf("Expected default API URL, got '%s'", client.apiURL)
	}
	if client.httpClient == nil {
		t.Error("Expected non-nil http client")
	}
}

func TestSlackPublish(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer xoxb-test" {
			t.Errorf("Expected bearer token, got '%s'", got)
		}

		var req ChatPostMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.Channel != "#news" || req.Text != "hello" {
			t.Errorf("Unexpected request %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1700000000.000100","message":{"text":"hello"}}`))
	}))
	defer server.Close()

	client := NewSlackClient("xoxb-test", "#news", server.URL, time.Second, nil)
	result, err := client.Publish(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.ID != "1700000000.000100" {
		t.Errorf("Expected ts as post id, got '%s'", result.ID)
	}
}

func TestSlackPublishErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"api error", http.StatusOK, `{"ok":false,"error":"channel_not_found"}`},
		{"http error", http.StatusInternalServerError, ``},
		{"bad json", http.StatusOK, `{"ok":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewSlackClient("xoxb-test", "#news", server.URL, time.Second, nil)
			_, err := client.Publish(context.Background(), "hello")
			if !errors.Is(err, ErrPublishFailed) {
				t.Errorf("Expected ErrPublishFailed, got %v", err)
			}
		})
	}
}
