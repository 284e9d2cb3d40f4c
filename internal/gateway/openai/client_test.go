package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"persona-chat-api/internal/apperr"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, APIKey: "test-key", TimeoutSec: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func kindOf(t *testing.T, err error) apperr.Kind {
	t.Helper()
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("error %v is not an *apperr.Error", err)
	}
	return ae.Kind
}

func TestMissingConfigRaisesGatewayConfig(t *testing.T) {
	if _, err := New(Config{APIKey: "k"}); kindOf(t, err) != apperr.KindGatewayConfig {
		t.Fatal("missing base_url must raise GatewayConfig")
	}
	if _, err := New(Config{BaseURL: "http://x"}); kindOf(t, err) != apperr.KindGatewayConfig {
		t.Fatal("missing api_key must raise GatewayConfig")
	}
	if _, err := New(Config{BaseURL: "http://x", APIKey: "  "}); kindOf(t, err) != apperr.KindGatewayConfig {
		t.Fatal("blank api_key must raise GatewayConfig")
	}
}

func TestDefaultsApplied(t *testing.T) {
	c, err := New(Config{BaseURL: "http://x", APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if c.cfg.Model != DefaultModel || c.cfg.TimeoutSec != DefaultTimeoutSec ||
		c.cfg.Temperature != DefaultTemperature || c.cfg.MaxTokens != DefaultMaxTokens {
		t.Fatalf("defaults not applied: %+v", c.cfg)
	}
}

func TestGenerateChatCompletionSuccess(t *testing.T) {
	var gotReq completionRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Hello there.  "}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	history := []ChatMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hey"},
		{Role: "user", Content: "how are you"},
	}
	out, err := c.GenerateChatCompletion(context.Background(), "You are Sage.", history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 内容原样返回，不 trim
	if out != "  Hello there.  " {
		t.Fatalf("content altered: %q", out)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	// system prompt 永远是第一条，历史按序原样附加
	if len(gotReq.Messages) != 4 || gotReq.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", gotReq.Messages)
	}
	for i, h := range history {
		if gotReq.Messages[i+1] != h {
			t.Fatalf("history[%d] mangled: %+v", i, gotReq.Messages[i+1])
		}
	}
}

func TestNon2xxRaisesGatewayAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.GenerateChatCompletion(context.Background(), "sys", nil)
	if kindOf(t, err) != apperr.KindGatewayAPI {
		t.Fatalf("kind = %v", err)
	}
	var ae *apperr.Error
	errors.As(err, &ae)
	// 状态码和原始 body 进技术信息，reason 不含细节
	if !strings.Contains(ae.Message, "429") || !strings.Contains(ae.Message, "rate limited") {
		t.Fatalf("technical message lacks detail: %q", ae.Message)
	}
	if strings.Contains(ae.Reason, "rate limited") {
		t.Fatalf("reason leaks upstream body: %q", ae.Reason)
	}
}

func TestEmptyChoicesRaisesGatewayAPI(t *testing.T) {
	cases := []string{
		`{"choices":[]}`,
		`{}`,
		`{"choices":[{"message":{"role":"assistant","content":""}}]}`,
	}
	for _, body := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		c := newTestClient(t, srv.URL)
		_, err := c.GenerateChatCompletion(context.Background(), "sys", nil)
		if kindOf(t, err) != apperr.KindGatewayAPI {
			t.Errorf("body %s: kind = %v", body, err)
		}
		srv.Close()
	}
}

func TestConnectionFailureRaisesGatewayConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // 直接关掉拿一个必然拒连的地址

	c := newTestClient(t, srv.URL)
	_, err := c.GenerateChatCompletion(context.Background(), "sys", nil)
	if kindOf(t, err) != apperr.KindGatewayConnection {
		t.Fatalf("kind = %v", err)
	}
}

func TestTimeoutRaisesGatewayConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, APIKey: "k", TimeoutSec: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	_, err = c.GenerateChatCompletion(context.Background(), "sys", nil)
	if kindOf(t, err) != apperr.KindGatewayConnection {
		t.Fatalf("kind = %v", err)
	}
}

func TestIsGatewayErr(t *testing.T) {
	if !IsGatewayErr(apperr.New(apperr.KindGatewayAPI, "x")) {
		t.Fatal("GatewayAPI not recognized")
	}
	if IsGatewayErr(apperr.New(apperr.KindValidation, "x")) {
		t.Fatal("Validation misclassified as gateway error")
	}
	if IsGatewayErr(errors.New("plain")) {
		t.Fatal("plain error misclassified")
	}
}
