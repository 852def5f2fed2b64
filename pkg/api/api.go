// Package api speaks the OpenAI-compatible wire protocol: it performs the
// raw HTTP calls and converts payloads to and from the shared model types.
// All resilience concerns (retries, circuit breaking, caching) live in
// pkg/resilience, which wraps this transport.
package api

import (
	"encoding/json"
	"fmt"

	"github.com/stanza-ai/stanza/pkg/models"
)

// ChatPayload serializes a chat completion request.
func ChatPayload(req models.ChatRequest) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}
	return data, nil
}

// ParseChatResponse decodes a chat completion response body.
func ParseChatResponse(body []byte) (*models.ChatResponse, error) {
	var resp models.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("chat response: %w", ErrMalformedResponse)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat response has no choices: %w", ErrMalformedResponse)
	}
	return &resp, nil
}

// ExtractContent returns the assistant text of the first choice.
func ExtractContent(resp *models.ChatResponse) string {
	if resp == nil || len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Message.Content
}

// ParseModelList decodes a /v1/models response body.
func ParseModelList(body []byte) ([]models.ModelInfo, error) {
	var list models.ModelList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("model list: %w", ErrMalformedResponse)
	}
	return list.Data, nil
}
