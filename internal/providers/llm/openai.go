package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// OpenAIProvider streams chat completions with tool-call deltas over SSE.
type OpenAIProvider struct {
	apiKey      string
	url         string
	model       string
	temperature float64
	client      *http.Client
}

func NewOpenAIProvider(apiKey, model string, temperature float64) *OpenAIProvider {
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIProvider{
		apiKey:      apiKey,
		url:         "https://api.openai.com/v1/chat/completions",
		model:       model,
		temperature: temperature,
		client:      http.DefaultClient,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (p *OpenAIProvider) StreamTurn(ctx context.Context, messages []Message, tools []ToolDefinition) <-chan Event {
	out := make(chan Event, 32)

	go func() {
		defer close(out)

		payload := map[string]any{
			"model":       p.model,
			"messages":    messages,
			"stream":      true,
			"temperature": p.temperature,
		}
		if len(tools) > 0 {
			wire := make([]chatTool, 0, len(tools))
			for _, t := range tools {
				wire = append(wire, chatTool{Type: "function", Function: chatFunction{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				}})
			}
			payload["tools"] = wire
			payload["tool_choice"] = "auto"
		}

		body, err := json.Marshal(payload)
		if err != nil {
			out <- Event{Err: err}
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
		if err != nil {
			out <- Event{Err: err}
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.apiKey)

		resp, err := p.client.Do(req)
		if err != nil {
			out <- Event{Err: err}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			var errResp any
			_ = json.NewDecoder(resp.Body).Decode(&errResp)
			out <- Event{Err: fmt.Errorf("openai stream error (status %d): %v", resp.StatusCode, errResp)}
			return
		}

		// Tool-call fragments arrive indexed; accumulate until the stream ends.
		var calls []ToolCall

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				break
			}

			var chunk streamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				// Malformed chunk: skip it, keep the stream alive.
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta

			for _, tc := range delta.ToolCalls {
				for len(calls) <= tc.Index {
					calls = append(calls, ToolCall{})
				}
				if tc.ID != "" {
					calls[tc.Index].ID = tc.ID
				}
				if tc.Function.Name != "" {
					calls[tc.Index].Name = tc.Function.Name
				}
				calls[tc.Index].Arguments += tc.Function.Arguments
			}

			if delta.Content != "" {
				select {
				case out <- Event{TextDelta: delta.Content}:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			// The consumer may have stopped reading after a barge-in;
			// never park on a full buffer once the turn is cancelled.
			select {
			case out <- Event{Err: err}:
			case <-ctx.Done():
			}
			return
		}

		complete := calls[:0]
		for _, c := range calls {
			if c.Name != "" {
				complete = append(complete, c)
			}
		}
		select {
		case out <- Event{Done: true, ToolCalls: complete}:
		case <-ctx.Done():
		}
	}()

	return out
}
