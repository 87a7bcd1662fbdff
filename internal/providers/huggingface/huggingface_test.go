package huggingface

import (
	"encoding/json"
	"errors"
	"testing"

	"infergate/internal/core"
	"infergate/internal/providers"
)

func TestBuildRequest(t *testing.T) {
	p := New(providers.ProviderConfig{APIKey: "hf_live_abcdef123"})
	maxTokens := 128

	spec, err := p.BuildRequest(core.TextPrompt("What is Docker?"), core.Options{MaxTokens: &maxTokens})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.Shape != core.ShapeCompletion {
		t.Errorf("Shape = %q", spec.Shape)
	}
	if spec.Endpoint != "/models/mistralai/Mistral-7B-Instruct-v0.3" {
		t.Errorf("Endpoint = %q", spec.Endpoint)
	}

	raw, _ := json.Marshal(spec.Body)
	var wire struct {
		Inputs     string         `json:"inputs"`
		Parameters map[string]any `json:"parameters"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if wire.Inputs != "What is Docker?" {
		t.Errorf("inputs = %q", wire.Inputs)
	}
	if wire.Parameters["max_new_tokens"] != float64(128) || wire.Parameters["temperature"] != 0.7 {
		t.Errorf("parameters = %v", wire.Parameters)
	}
}

func TestBuildRequest_FlattensTurns(t *testing.T) {
	p := New(providers.ProviderConfig{APIKey: "hf_live_abcdef123"})
	spec, err := p.BuildRequest(core.MessagesPrompt([]core.Message{
		{Role: core.RoleSystem, Content: "You are terse."},
		{Role: core.RoleUser, Content: "Explain list comprehensions."},
	}), core.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "System: You are terse.\nUser: Explain list comprehensions.\nAssistant:"
	if spec.Prompt != want {
		t.Errorf("Prompt = %q, want %q", spec.Prompt, want)
	}
}

func TestIsConfigured(t *testing.T) {
	for _, key := range []string{"", "hf_YOUR_TOKEN_HERE", "hf_hispnXXXX", "${HF_API_KEY}"} {
		if ok, _ := New(providers.ProviderConfig{APIKey: key}).IsConfigured(); ok {
			t.Errorf("IsConfigured(%q) = true, want false", key)
		}
	}
	if ok, _ := New(providers.ProviderConfig{APIKey: "hf_realtoken123"}).IsConfigured(); !ok {
		t.Error("real token should be configured")
	}
}

func TestExtractText(t *testing.T) {
	p := New(providers.ProviderConfig{})

	tests := []struct {
		name          string
		body          string
		want          string
		wantErr       bool
		wantMalformed bool
	}{
		{name: "generation list", body: `[{"generated_text":"Containers, shipped."}]`, want: "Containers, shipped."},
		{name: "single object", body: `{"generated_text":"ok"}`, want: "ok"},
		{name: "model loading", body: `{"error":"Model is currently loading","estimated_time":20}`, wantErr: true},
		{name: "summarization passes through", body: `[{"summary_text":"a summary"}]`, want: `[{"summary_text":"a summary"}]`},
		{name: "classification passes through", body: ` [{"label":"POSITIVE","score":0.99}]` + "\n", want: `[{"label":"POSITIVE","score":0.99}]`},
		{name: "router chat passes through", body: `{"choices":[{"message":{"content":"chat via router"}}]}`, want: `{"choices":[{"message":{"content":"chat via router"}}]}`},
		{name: "empty list passes through", body: `[]`, want: `[]`},
		{name: "garbage", body: `}{`, wantErr: true, wantMalformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ExtractText([]byte(tt.body))
			if !tt.wantErr {
				if err != nil || got != tt.want {
					t.Errorf("ExtractText = %q, %v; want %q", got, err, tt.want)
				}
				return
			}
			var respErr *providers.ResponseError
			if !errors.As(err, &respErr) {
				t.Fatalf("expected *ResponseError, got %v", err)
			}
			if respErr.Malformed != tt.wantMalformed {
				t.Errorf("Malformed = %v, want %v", respErr.Malformed, tt.wantMalformed)
			}
		})
	}
}
