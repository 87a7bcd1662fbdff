package core

import (
	"net/http"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestOptions_Resolved(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		got := Options{}.Resolved()
		if *got.MaxTokens != 500 {
			t.Errorf("MaxTokens = %d, want 500", *got.MaxTokens)
		}
		if *got.Temperature != 0.7 {
			t.Errorf("Temperature = %v, want 0.7", *got.Temperature)
		}
		if got.Timeout != 60*time.Second {
			t.Errorf("Timeout = %v, want 60s", got.Timeout)
		}
	})

	t.Run("overrides kept", func(t *testing.T) {
		maxTokens := 42
		temp := 0.0
		got := Options{MaxTokens: &maxTokens, Temperature: &temp, Timeout: time.Second}.Resolved()
		if *got.MaxTokens != 42 {
			t.Errorf("MaxTokens = %d, want 42", *got.MaxTokens)
		}
		if *got.Temperature != 0 {
			t.Errorf("Temperature = %v, want 0", *got.Temperature)
		}
		if got.Timeout != time.Second {
			t.Errorf("Timeout = %v, want 1s", got.Timeout)
		}
	})
}

func TestPrompt(t *testing.T) {
	tests := []struct {
		name      string
		prompt    Prompt
		wantEmpty bool
		wantText  string
		wantTurns int
	}{
		{name: "text", prompt: TextPrompt("hi"), wantText: "hi", wantTurns: 1},
		{name: "blank text", prompt: TextPrompt("  \n"), wantEmpty: true, wantText: "  \n", wantTurns: 1},
		{name: "no turns", prompt: MessagesPrompt(nil), wantEmpty: true, wantText: "", wantTurns: 1},
		{
			name:      "single user turn",
			prompt:    MessagesPrompt([]Message{{Role: RoleUser, Content: "What is Docker?"}}),
			wantText:  "What is Docker?",
			wantTurns: 1,
		},
		{
			name: "system and user",
			prompt: MessagesPrompt([]Message{
				{Role: RoleSystem, Content: "You are a helpful assistant."},
				{Role: RoleUser, Content: "Explain Docker in one sentence."},
			}),
			wantText:  "System: You are a helpful assistant.\nUser: Explain Docker in one sentence.\nAssistant:",
			wantTurns: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.prompt.IsEmpty(); got != tt.wantEmpty {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.wantEmpty)
			}
			if got := tt.prompt.Text(); got != tt.wantText {
				t.Errorf("Text() = %q, want %q", got, tt.wantText)
			}
			if got := len(tt.prompt.Messages()); got != tt.wantTurns {
				t.Errorf("len(Messages()) = %d, want %d", got, tt.wantTurns)
			}
		})
	}
}

func TestPrompt_TextLabelsUnusualRoles(t *testing.T) {
	p := MessagesPrompt([]Message{
		{Role: "narrator", Content: "Night falls."},
		{Role: "éditeur", Content: "Bonjour."},
		{Role: "", Content: "Go on."},
	})

	want := "Narrator: Night falls.\nÉditeur: Bonjour.\nUser: Go on.\nAssistant:"
	if got := p.Text(); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
	if !utf8.ValidString(p.Text()) {
		t.Error("Text() is not valid UTF-8")
	}
}

func TestIsKnownRole(t *testing.T) {
	for _, role := range []string{RoleSystem, RoleUser, RoleAssistant} {
		if !IsKnownRole(role) {
			t.Errorf("IsKnownRole(%q) = false", role)
		}
	}
	for _, role := range []string{"", "tool", "User"} {
		if IsKnownRole(role) {
			t.Errorf("IsKnownRole(%q) = true", role)
		}
	}
}

func TestMessagesPrompt_DoesNotAlias(t *testing.T) {
	msgs := []Message{{Role: RoleUser, Content: "original"}}
	p := MessagesPrompt(msgs)
	msgs[0].Content = "changed"

	if got := p.Messages()[0].Content; got != "original" {
		t.Errorf("prompt mutated through caller slice: %q", got)
	}

	out := p.Messages()
	out[0].Content = "changed again"
	if got := p.Messages()[0].Content; got != "original" {
		t.Errorf("prompt mutated through returned slice: %q", got)
	}
}

func TestFallbackChain(t *testing.T) {
	chain := ParseChain(" Groq, ,openrouter,groq,OLLAMA ")
	if got := chain.String(); got != "groq,openrouter,groq,ollama" {
		t.Errorf("ParseChain = %q", got)
	}
	if got := chain.Normalized().String(); got != "groq,openrouter,ollama" {
		t.Errorf("Normalized = %q", got)
	}
	if got := FallbackChain(nil).Normalized(); len(got) != 0 {
		t.Errorf("Normalized(nil) = %v, want empty", got)
	}
}

func TestTruncate(t *testing.T) {
	short := "short body"
	if got := Truncate(short); got != short {
		t.Errorf("Truncate(short) = %q", got)
	}

	long := strings.Repeat("a", 500)
	if got := Truncate(long); len(got) != DiagnosticLimit {
		t.Errorf("len(Truncate(long)) = %d, want %d", len(got), DiagnosticLimit)
	}

	multibyte := strings.Repeat("é", 300)
	got := Truncate(multibyte)
	if n := len([]rune(got)); n != DiagnosticLimit {
		t.Errorf("rune count = %d, want %d", n, DiagnosticLimit)
	}
}

func TestResult_String(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   string
	}{
		{name: "success", result: Success("hello"), want: "hello"},
		{
			name:   "provider error",
			result: ProviderFailure(401, CategoryAuthentication, "check GROQ_API_KEY"),
			want:   "Error 401 (authentication): check GROQ_API_KEY",
		},
		{
			name:   "transport error",
			result: TransportFailure(ReasonTimedOut, "deadline exceeded"),
			want:   "transport_error: timed_out: deadline exceeded",
		},
		{
			name: "exhausted",
			result: Result{Kind: KindExhausted, Failures: []Failure{
				{Provider: "groq", Result: TransportFailure(ReasonUnreachable, "")},
			}},
			want: "all providers failed: groq: transport_error: unreachable",
		},
		{
			name:   "canceled with no attempts",
			result: Result{Kind: KindExhausted, Canceled: true},
			want:   "canceled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGatewayError_HTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  *GatewayError
		want int
	}{
		{"invalid request", NewInvalidRequestError("bad body", nil), http.StatusBadRequest},
		{"not found", NewNotFoundError("no provider"), http.StatusNotFound},
		{"config", NewConfigError(ReasonMissingBaseURL, "set OLLAMA_BASE_URL"), http.StatusBadRequest},
		{"provider", NewProviderError("ollama", http.StatusBadGateway, "listing failed", nil), http.StatusBadGateway},
		{"zero status by type", &GatewayError{Type: ErrorTypeProvider}, http.StatusBadGateway},
		{"unknown type", &GatewayError{Type: "mystery"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatusCode(); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGatewayError_Error(t *testing.T) {
	withProvider := &GatewayError{Type: ErrorTypeProvider, Message: "upstream error", Provider: "groq"}
	if got := withProvider.Error(); got != "[groq] provider_error: upstream error" {
		t.Errorf("Error() = %q", got)
	}

	cfg := NewConfigError(ReasonEmptyChain, "chain is empty")
	if got := cfg.Error(); got != "config_error: chain is empty" {
		t.Errorf("Error() = %q", got)
	}
	body := cfg.ToJSON()["error"].(map[string]interface{})
	if body["reason"] != ReasonEmptyChain {
		t.Errorf("reason = %v, want %v", body["reason"], ReasonEmptyChain)
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(t.Context(), "req-1")
	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("GetRequestID = %q", got)
	}
	if got := GetRequestID(t.Context()); got != "" {
		t.Errorf("GetRequestID(empty) = %q", got)
	}
}
