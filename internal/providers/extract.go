package providers

import (
	"net/http"

	"github.com/tidwall/gjson"

	"infergate/internal/core"
)

// ResponseError is returned by ExtractText when a 2xx body holds no completion.
// Malformed distinguishes bodies that could not be interpreted at all from
// well-formed error payloads the provider sent on purpose.
type ResponseError struct {
	Message   string
	Malformed bool
}

func (e *ResponseError) Error() string {
	return e.Message
}

// MalformedBody builds the diagnostic for a body with an unknown shape.
func MalformedBody(body []byte) *ResponseError {
	if len(body) == 0 {
		return &ResponseError{Message: "empty response body", Malformed: true}
	}
	return &ResponseError{
		Message:   "unexpected response shape: " + core.Truncate(string(body)),
		Malformed: true,
	}
}

// errorPaths are the places providers put a human-readable error, in lookup order.
var errorPaths = []string{
	"error.message",
	"error",
	"errors.0.message",
	"detail",
}

// ErrorMessage returns the provider's error text from a JSON body, or "" if none.
func ErrorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	root := gjson.ParseBytes(body)
	if root.IsArray() {
		root = root.Get("0")
	}
	for _, path := range errorPaths {
		v := root.Get(path)
		if v.Type == gjson.String && v.String() != "" {
			return core.Truncate(v.String())
		}
	}
	return ""
}

// ValidatePrompt rejects prompts with no content.
func ValidatePrompt(prompt core.Prompt) error {
	if prompt.IsEmpty() {
		return core.NewConfigError(core.ReasonInvalidPrompt, "prompt is empty")
	}
	return nil
}

// ChatPayload is the OpenAI-compatible chat completion body.
type ChatPayload struct {
	Model       string         `json:"model"`
	Messages    []core.Message `json:"messages"`
	MaxTokens   int            `json:"max_tokens"`
	Temperature float64        `json:"temperature"`
	Stream      bool           `json:"stream"`
}

// BuildChatRequest creates an OpenAI-compatible /chat/completions request.
func BuildChatRequest(model string, prompt core.Prompt, opts core.Options) (*core.RequestSpec, error) {
	if err := ValidatePrompt(prompt); err != nil {
		return nil, err
	}
	if model == "" {
		return nil, core.NewConfigError(core.ReasonMissingModel, "no model specified and provider has no default")
	}
	opts = opts.Resolved()
	messages := prompt.Messages()
	payload := ChatPayload{
		Model:       model,
		Messages:    messages,
		MaxTokens:   *opts.MaxTokens,
		Temperature: *opts.Temperature,
	}
	return &core.RequestSpec{
		Shape:       core.ShapeChat,
		Method:      http.MethodPost,
		Endpoint:    "/chat/completions",
		Model:       model,
		Messages:    messages,
		MaxTokens:   payload.MaxTokens,
		Temperature: payload.Temperature,
		Body:        payload,
	}, nil
}

// ExtractChatText reads choices[0].message.content from a chat completion body.
func ExtractChatText(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", MalformedBody(body)
	}
	root := gjson.ParseBytes(body)

	if content := root.Get("choices.0.message.content"); content.Exists() {
		return content.String(), nil
	}
	if text := root.Get("choices.0.text"); text.Exists() {
		return text.String(), nil
	}
	if msg := ErrorMessage(body); msg != "" {
		return "", &ResponseError{Message: msg}
	}
	return "", MalformedBody(body)
}
