// Package intent turns raw user requests into a structured goal with
// extracted entities, and builds executable plans against the tool
// registry.
package intent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/donna-ai/donna/internal/observability"
	"github.com/donna-ai/donna/internal/resolve"
	"github.com/donna-ai/donna/internal/store"
)

const analyzerPrompt = `You are the intent analyzer for a personal assistant.
Given the user's request, extract the goal and every entity mention that must
be linked to a stored record. Entity types: person, event, task, email, place,
deadline, routine, open_loop, project, note. Set needs_resolution to false for
mentions that are fully specified literals (a complete email address, an ISO
date). Always answer by calling report_analysis.`

// Analysis is the structured reading of one user request.
type Analysis struct {
	Goal        string                    `json:"goal"`
	Entities    []resolve.ExtractedEntity `json:"entities"`
	Confidence  float64                   `json:"confidence"`
	Assumptions []string                  `json:"assumptions,omitempty"`
}

// Analyzer extracts goals and entity mentions from freeform requests.
type Analyzer struct {
	Model  llms.Model
	Logger *observability.Logger
}

func NewAnalyzer(model llms.Model, logger *observability.Logger) *Analyzer {
	if logger == nil {
		logger = observability.NewLogger()
	}
	return &Analyzer{Model: model, Logger: logger}
}

var analyzerTools = []llms.Tool{
	{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        "report_analysis",
			Description: "Report the analyzed goal and extracted entities.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"goal": map[string]any{"type": "string"},
					"entities": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"type": map[string]any{
									"type": "string",
									"enum": entityTypeNames(),
								},
								"text":             map[string]any{"type": "string"},
								"raw_value":        map[string]any{"type": "string"},
								"needs_resolution": map[string]any{"type": "boolean"},
							},
							"required": []string{"type", "text", "needs_resolution"},
						},
					},
					"confidence":  map[string]any{"type": "number"},
					"assumptions": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []string{"goal", "entities", "confidence"},
			},
		},
	},
}

// Analyze runs one LLM pass over the request and returns the structured
// analysis. Entity mentions with types outside the known set are dropped.
func (a *Analyzer) Analyze(ctx context.Context, userID, input string) (*Analysis, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(analyzerPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(input)},
		},
	}

	resp, err := a.Model.GenerateContent(ctx, messages, llms.WithTools(analyzerTools))
	if err != nil {
		return nil, fmt.Errorf("intent analysis: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("intent analysis: empty response")
	}
	choice := resp.Choices[0]
	a.Logger.LogLLM(userID, "", input, choice.Content, choice.ToolCalls)

	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall.Name != "report_analysis" {
			continue
		}
		var analysis Analysis
		if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &analysis); err != nil {
			return nil, fmt.Errorf("intent analysis: parse report_analysis: %w", err)
		}

		kept := analysis.Entities[:0]
		for _, e := range analysis.Entities {
			if !e.Type.Valid() {
				a.Logger.LogResolution(userID, string(e.Type), e.Text, "dropped_invalid_type", 0)
				continue
			}
			kept = append(kept, e)
		}
		analysis.Entities = kept
		return &analysis, nil
	}

	return nil, fmt.Errorf("intent analysis: model did not call report_analysis")
}

// entityTypeNames returns the closed set of entity type strings.
func entityTypeNames() []string {
	out := make([]string, len(store.AllEntityTypes))
	for i, t := range store.AllEntityTypes {
		out[i] = string(t)
	}
	return out
}
