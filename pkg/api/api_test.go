package api

import (
	"errors"
	"testing"

	"github.com/stanza-ai/stanza/pkg/models"
)

func TestParseChatResponse(t *testing.T) {
	body := []byte(`{
		"id": "chatcmpl-1",
		"model": "qwen2.5-7b",
		"choices": [{"index":0,"message":{"role":"assistant","content":"hi there"},"finish_reason":"stop"}],
		"usage": {"prompt_tokens":5,"completion_tokens":3,"total_tokens":8}
	}`)

	resp, err := ParseChatResponse(body)
	if err != nil {
		t.Fatal(err)
	}
	if got := ExtractContent(resp); got != "hi there" {
		t.Errorf("content = %q", got)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 8 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestParseChatResponseNoChoices(t *testing.T) {
	_, err := ParseChatResponse([]byte(`{"id":"x","choices":[]}`))
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestParseModelList(t *testing.T) {
	body := []byte(`{"object":"list","data":[{"id":"llama-3.2-3b"},{"id":"qwen2.5-7b"}]}`)
	list, err := ParseModelList(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "llama-3.2-3b" {
		t.Errorf("list = %+v", list)
	}
}

func TestChatPayloadRoundTrip(t *testing.T) {
	temp := 0.2
	payload, err := ChatPayload(models.ChatRequest{
		Model:       "qwen2.5-7b",
		Messages:    []models.ChatMessage{{Role: "user", Content: "ping"}},
		Temperature: &temp,
	})
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) == "" {
		t.Fatal("empty payload")
	}
}
