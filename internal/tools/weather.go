package tools

import (
	"context"
	"encoding/json"
	"time"
)

// WeatherTool is a demo tool with a deliberately slow handler; it exists to
// exercise the async dispatch path end to end.
type WeatherTool struct {
	Delay time.Duration
}

func (t *WeatherTool) Name() string { return "get_weather" }

func (t *WeatherTool) Description() string { return "Get current weather" }

func (t *WeatherTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}, "required": []string{}}
}

func (t *WeatherTool) Execute(ctx context.Context, _ json.RawMessage) (any, error) {
	delay := t.Delay
	if delay == 0 {
		delay = 10 * time.Second
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return map[string]string{"weather": "The weather right now is sunny"}, nil
}
