package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/config"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/logging"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/pipeline"
)

type upstreams struct {
	news, llm, x *httptest.Server
	calls        int32
}

func (u *upstreams) count(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&u.calls, 1)
		next(w, r)
	}
}

func (u *upstreams) Calls() int {
	return int(atomic.LoadInt32(&u.calls))
}

func newUpstreams(t *testing.T, xHandler http.HandlerFunc) *upstreams {
	t.Helper()
	u := &upstreams{}

	u.news = httptest.NewServer(u.count(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":       "ok",
			"totalResults": 3,
			"articles": []map[string]interface{}{
				{"source": map[string]string{"name": "Reuters"}, "title": "Markets rally on rate hopes"},
				{"source": map[string]string{"name": "BBC News"}, "title": "New telescope images released"},
				{"source": map[string]string{"name": "AP"}, "title": "Election results certified"},
			},
		})
	}))
	u.llm = httptest.NewServer(u.count(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Breaking: markets rally 📈"},"finish_reason":"stop"}]}`))
	}))
	u.x = httptest.NewServer(u.count(xHandler))

	t.Cleanup(func() {
		u.news.Close()
		u.llm.Close()
		u.x.Close()
	})
	return u
}

func testConfig(u *upstreams) *config.Config {
	return &config.Config{
		NewsSource:          config.SourceNewsAPI,
		NewsAPIKey:          "news-key",
		NewsAPIBaseURL:      u.news.URL,
		NewsPageSize:        5,
		NewsCategory:        "general",
		LLMProvider:         config.ProviderOpenAI,
		LLMTemperature:      0.7,
		LLMMaxTokens:        150,
		OpenAIAPIKey:        "openai-key",
		OpenAIBaseURL:       u.llm.URL + "/v1",
		Publisher:           config.PublisherX,
		TwitterAppKey:       "app-key",
		TwitterAppSecret:    "app-secret",
		TwitterAccessToken:  "access-token",
		TwitterAccessSecret: "access-secret",
		XAPIBaseURL:         u.x.URL,
		XFallbackEnabled:    true,
		PostMaxLength:       280,
		LengthPolicy:        config.PolicyTruncate,
		HTTPTimeout:         2 * time.Second,
	}
}

func TestRunEndToEnd(t *testing.T) {
	u := newUpstreams(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["text"] != "Breaking: markets rally 📈" {
			t.Errorf("Unexpected post text %q", body["text"])
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"123","text":"Breaking: markets rally 📈"}}`))
	})

	var logs bytes.Buffer
	report, err := Run(context.Background(), testConfig(u), logging.New("info", "json", &logs), false)

	if code := pipeline.ExitCode(err); code != pipeline.ExitOK {
		t.Fatalf("Expected exit code 0, got %d (%v)", code, err)
	}
	if report.PostID != "123" {
		t.Errorf("Expected post id '123', got '%s'", report.PostID)
	}
	if len(report.Headlines) != 3 || report.Headlines[2] != "Election results certified - AP" {
		t.Errorf("Unexpected headlines %v", report.Headlines)
	}
	if !strings.Contains(logs.String(), `"post_id":"123"`) {
		t.Errorf("Expected log to contain the post id, got %s", logs.String())
	}
}

func TestRunEndToEndFallback(t *testing.T) {
	u := newUpstreams(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2/tweets":
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"title":"Forbidden","detail":"client-not-enrolled","status":403}`))
		case "/1.1/statuses/update.json":
			w.Write([]byte(`{"id_str":"789","text":"Breaking: markets rally 📈"}`))
		}
	})

	var logs bytes.Buffer
	report, err := Run(context.Background(), testConfig(u), logging.New("info", "json", &logs), false)

	if code := pipeline.ExitCode(err); code != pipeline.ExitOK {
		t.Fatalf("Expected exit code 0, got %d (%v)", code, err)
	}
	if report.APIVersion != "v1.1" {
		t.Errorf("Expected v1.1 to be recorded, got '%s'", report.APIVersion)
	}

	var completed bool
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		if strings.Contains(line, `"msg":"run completed"`) && strings.Contains(line, `"api_version":"v1.1"`) {
			completed = true
		}
	}
	if !completed {
		t.Errorf("Expected completion log to name v1.1, got %s", logs.String())
	}
}

func TestRunConfigMissingMakesNoRequests(t *testing.T) {
	u := newUpstreams(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"id":"1"}}`))
	})

	tests := []struct {
		name    string
		mutate  func(cfg *config.Config)
		missing string
	}{
		{"twitter secret", func(cfg *config.Config) { cfg.TwitterAccessSecret = "" }, "TWITTER_ACCESS_SECRET"},
		{"news key", func(cfg *config.Config) { cfg.NewsAPIKey = "" }, "NEWS_API_KEY"},
		{"llm key", func(cfg *config.Config) { cfg.OpenAIAPIKey = "" }, "OPENAI_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(u)
			tt.mutate(cfg)

			report, err := Run(context.Background(), cfg, logging.Discard(), false)

			if !errors.Is(err, pipeline.ErrConfigMissing) {
				t.Fatalf("Expected ErrConfigMissing, got %v", err)
			}
			if pipeline.ExitCode(err) != pipeline.ExitConfigMissing {
				t.Errorf("Expected exit code %d, got %d", pipeline.ExitConfigMissing, pipeline.ExitCode(err))
			}
			if !strings.Contains(err.Error(), tt.missing) {
				t.Errorf("Expected error to name %s, got %v", tt.missing, err)
			}
			if report != nil {
				t.Errorf("Expected no report, got %+v", report)
			}
		})
	}

	if u.Calls() != 0 {
		t.Errorf("Expected no outbound requests, got %d", u.Calls())
	}
}

func TestRunPreviewDoesNotPublish(t *testing.T) {
	var posted int32
	u := newUpstreams(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&posted, 1)
	})

	report, err := Run(context.Background(), testConfig(u), logging.Discard(), true)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.Summary != "Breaking: markets rally 📈" {
		t.Errorf("Unexpected summary %q", report.Summary)
	}
	if posted != 0 {
		t.Errorf("Expected no publish request, got %d", posted)
	}
}

func TestNewSelectsProviders(t *testing.T) {
	cfg := &config.Config{
		NewsSource:       config.SourceRSS,
		NewsRSSURL:       "https://example.com/feed.xml",
		LLMProvider:      config.ProviderGemini,
		GeminiAPIKey:     "g",
		Publisher:        config.PublisherTelegram,
		TelegramBotToken: "t",
		TelegramChatID:   "@headlines",
		PostMaxLength:    280,
		LengthPolicy:     config.PolicyWarn,
		HTTPTimeout:      time.Second,
	}

	if got := NewSource(cfg, nil).Name(); got != "rss" {
		t.Errorf("Expected rss source, got %s", got)
	}
	if got := NewSummarizer(cfg, nil).Name(); got != "gemini" {
		t.Errorf("Expected gemini summarizer, got %s", got)
	}
	if got := NewPublisher(cfg, nil).Name(); got != "telegram" {
		t.Errorf("Expected telegram publisher, got %s", got)
	}
	if got := Describe(cfg); got != "rss -> gemini (gemini-2.5-flash) -> telegram" {
		t.Errorf("Unexpected description %q", got)
	}

	app, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer app.Close()
	if app.Archive != nil {
		t.Error("Expected archive to be disabled without a bucket")
	}
}

func TestRunTopicModeSkipsHeadlines(t *testing.T) {
	u := newUpstreams(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"123","text":"Breaking: markets rally 📈"}}`))
	})
	newsHit := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("Unexpected headline request %s", r.URL.Path)
	}))
	defer newsHit.Close()

	cfg := testConfig(u)
	cfg.NewsSource = config.SourceNone
	cfg.NewsAPIKey = ""
	cfg.NewsAPIBaseURL = newsHit.URL

	var logs bytes.Buffer
	report, err := Run(context.Background(), cfg, logging.New("info", "json", &logs), false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.Source != "none" || len(report.Headlines) != 0 {
		t.Errorf("Expected a run without headlines, got %+v", report)
	}
	if report.PostID != "123" {
		t.Errorf("Expected post id '123', got '%s'", report.PostID)
	}
	for _, timing := range report.Timings {
		if timing.Step == pipeline.StateFetchingHeadlines {
			t.Error("Expected the headline step to be skipped")
		}
	}
	if u.Calls() != 2 {
		t.Errorf("Expected model and post requests only, got %d", u.Calls())
	}
}

func TestTestPost(t *testing.T) {
	u := newUpstreams(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["text"] != TestPostText {
			t.Errorf("Unexpected post text %q", body["text"])
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"555","text":"Test post from my bot! ✅"}}`))
	})

	// News and model credentials are not needed.
	cfg := testConfig(u)
	cfg.NewsAPIKey = ""
	cfg.OpenAIAPIKey = ""

	result, err := TestPost(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.ID != "555" || result.APIVersion != "v2" {
		t.Errorf("Unexpected result %+v", result)
	}
	if u.Calls() != 1 {
		t.Errorf("Expected only the post request, got %d", u.Calls())
	}
}

func TestTestPostFailureLogsDiagnostics(t *testing.T) {
	u := newUpstreams(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-rate-limit-limit", "17")
		w.Header().Set("x-rate-limit-remaining", "0")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"title":"Forbidden","detail":"client-not-enrolled","status":403}`))
	})
	cfg := testConfig(u)
	cfg.XFallbackEnabled = false

	var logs bytes.Buffer
	_, err := TestPost(context.Background(), cfg, logging.New("info", "json", &logs))

	if pipeline.ExitCode(err) != pipeline.ExitPublishFailed {
		t.Fatalf("Expected exit code %d, got %d (%v)", pipeline.ExitPublishFailed, pipeline.ExitCode(err), err)
	}
	out := logs.String()
	for _, want := range []string{`"msg":"test post failed"`, `"status":403`, `"detail":"client-not-enrolled"`, `"rate_limit":17`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log to contain %s, got %s", want, out)
		}
	}
}

func TestTestPostConfigMissing(t *testing.T) {
	u := newUpstreams(t, func(w http.ResponseWriter, r *http.Request) {})
	cfg := testConfig(u)
	cfg.TwitterAppKey = ""

	_, err := TestPost(context.Background(), cfg, nil)

	if pipeline.ExitCode(err) != pipeline.ExitConfigMissing {
		t.Errorf("Expected exit code %d, got %d", pipeline.ExitConfigMissing, pipeline.ExitCode(err))
	}
	if u.Calls() != 0 {
		t.Errorf("Expected no outbound requests, got %d", u.Calls())
	}
}
