package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// MetricsTool is the function the model is forced to call.
const MetricsTool = "set_metrics"

// Rating bounds mirror the journal's.
const (
	minRating     = 0
	maxRating     = 100
	defaultRating = 50
)

// Fixed metric keys, in prompt order.
var fixedMetrics = []struct{ key, desc string }{
	{"horniness_level", "Sexual desire or libido, 0 none to 100 very high."},
	{"general_feeling", "Overall mood about the day, 0 awful to 100 great."},
	{"sleep_quality", "How well they slept, 0 terrible to 100 excellent."},
	{"emotional_state", "Emotional balance and closeness, 0 distressed to 100 calm and connected."},
}

const metricsInstruction = `You turn a person's spoken check-in about their day into ratings.
Every rating is an integer from 0 to 100. Use 50 when the text gives no signal for a rating.
Do not invent signals. Always answer by calling the ` + MetricsTool + ` function.`

// Metrics is the parsed result. CustomDimensions is keyed by dimension name.
type Metrics struct {
	HorninessLevel   int            `json:"horniness_level"`
	GeneralFeeling   int            `json:"general_feeling"`
	SleepQuality     int            `json:"sleep_quality"`
	EmotionalState   int            `json:"emotional_state"`
	CustomDimensions map[string]int `json:"custom_dimensions"`
}

// Completer is the chat completions boundary.
type Completer interface {
	Complete(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error)
}

// fewShot pairs a sample check-in with the expected arguments.
var fewShot = []struct{ text, args string }{
	{
		"Slept like a baby and I'm in a great mood today.",
		`{"horniness_level":50,"general_feeling":85,"sleep_quality":90,"emotional_state":70,"custom_dimensions":{}}`,
	},
	{
		"Barely slept, we argued and I feel really distant from him.",
		`{"horniness_level":30,"general_feeling":25,"sleep_quality":15,"emotional_state":20,"custom_dimensions":{}}`,
	},
}

// DimensionNames trims names and drops blanks and duplicates, keeping the
// first occurrence.
func DimensionNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// BuildMetricsRequest assembles the forced tool call request for text. Each
// custom dimension name becomes a property of custom_dimensions.
func BuildMetricsRequest(model, text string, dims []string) openai.ChatCompletionRequest {
	dims = DimensionNames(dims)

	props := map[string]any{}
	required := make([]string, 0, len(fixedMetrics)+1)
	for _, m := range fixedMetrics {
		props[m.key] = ratingSchema(m.desc)
		required = append(required, m.key)
	}
	customProps := map[string]any{}
	for _, name := range dims {
		customProps[name] = ratingSchema(fmt.Sprintf("Rating for %q.", name))
	}
	props["custom_dimensions"] = map[string]any{
		"type":                 "object",
		"properties":           customProps,
		"additionalProperties": false,
	}
	required = append(required, "custom_dimensions")

	sys := metricsInstruction
	if len(dims) > 0 {
		var b strings.Builder
		b.WriteString(sys)
		b.WriteString("\nThe couple also tracks these custom metrics, keyed by name in custom_dimensions:")
		for _, name := range dims {
			fmt.Fprintf(&b, "\n- %s", name)
		}
		sys = b.String()
	}

	msgs := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: sys}}
	for i, ex := range fewShot {
		id := fmt.Sprintf("example_%d", i+1)
		msgs = append(msgs,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: ex.text},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, ToolCalls: []openai.ToolCall{{
				ID:       id,
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: MetricsTool, Arguments: ex.args},
			}}},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleTool, ToolCallID: id, Content: "ok"},
		)
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: strings.TrimSpace(text)})

	return openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        MetricsTool,
				Description: "Record the ratings inferred from the check-in.",
				Parameters: map[string]any{
					"type":       "object",
					"properties": props,
					"required":   required,
				},
			},
		}},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: MetricsTool},
		},
	}
}

func ratingSchema(desc string) map[string]any {
	return map[string]any{
		"type":        "integer",
		"minimum":     minRating,
		"maximum":     maxRating,
		"description": desc,
	}
}

// ParseMetrics reads the set_metrics call from resp. Values are clamped to
// 0..100 and missing values default to 50. Custom values for names not in
// dims are dropped.
func ParseMetrics(resp *openai.ChatCompletionResponse, dims []string) (*Metrics, error) {
	if resp == nil {
		return nil, ErrMalformedResponse
	}
	dims = DimensionNames(dims)
	var call *openai.ToolCall
	for i := range resp.Choices {
		for j := range resp.Choices[i].Message.ToolCalls {
			tc := &resp.Choices[i].Message.ToolCalls[j]
			if tc.Function.Name == MetricsTool {
				call = tc
				break
			}
		}
		if call != nil {
			break
		}
	}
	if call == nil {
		return nil, ErrMalformedResponse
	}

	var raw struct {
		HorninessLevel   *float64           `json:"horniness_level"`
		GeneralFeeling   *float64           `json:"general_feeling"`
		SleepQuality     *float64           `json:"sleep_quality"`
		EmotionalState   *float64           `json:"emotional_state"`
		CustomDimensions map[string]float64 `json:"custom_dimensions"`
	}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	out := &Metrics{
		HorninessLevel:   rating(raw.HorninessLevel),
		GeneralFeeling:   rating(raw.GeneralFeeling),
		SleepQuality:     rating(raw.SleepQuality),
		EmotionalState:   rating(raw.EmotionalState),
		CustomDimensions: make(map[string]int, len(dims)),
	}
	for _, name := range dims {
		if v, ok := raw.CustomDimensions[name]; ok {
			out.CustomDimensions[name] = rating(&v)
		} else {
			out.CustomDimensions[name] = defaultRating
		}
	}
	return out, nil
}

func rating(v *float64) int {
	if v == nil || math.IsNaN(*v) {
		return defaultRating
	}
	r := int(math.Round(*v))
	if r < minRating {
		return minRating
	}
	if r > maxRating {
		return maxRating
	}
	return r
}

// MetricsParser runs text through a Completer.
type MetricsParser struct {
	Completer Completer
	Model     string
}

// Parse returns the metrics inferred from text. Upstream failures are
// returned as is; no retry happens here.
func (p *MetricsParser) Parse(ctx context.Context, text string, dims []string) (*Metrics, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	resp, err := p.Completer.Complete(ctx, BuildMetricsRequest(p.Model, text, dims))
	if err != nil {
		return nil, err
	}
	return ParseMetrics(resp, dims)
}
