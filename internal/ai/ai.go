package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gitscore-backend/internal/github"
)

// Client abstracts chat-completion providers for profile analysis.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Result is the validated analysis document returned by the model.
type Result struct {
	OverallScore         int
	Summary              string
	FirstImpression      string
	Categories           map[string]map[string]any
	DealBreakers         []map[string]any
	TopProjects          []map[string]any
	ImprovementChecklist []map[string]any
	Strengths            []string
	RecruiterPerspective string
	// Raw keeps the full decoded document for persistence.
	Raw map[string]any
}

// ParseError indicates the model returned output that could not be used. It
// is not retryable; retrying with the same prompt tends to reproduce it.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "ai response: " + e.Reason
}

// Analyze prompts the model with the profile snapshot and parses the reply.
func Analyze(ctx context.Context, client Client, snapshot github.Snapshot) (Result, error) {
	user, err := BuildUserPrompt(snapshot)
	if err != nil {
		return Result{}, fmt.Errorf("build prompt: %w", err)
	}
	content, err := client.Complete(ctx, SystemPrompt(), user)
	if err != nil {
		return Result{}, err
	}
	return ParseResult(content)
}

// ParseResult strips markdown code fences, decodes the JSON document and
// checks the fields the report cannot be built without.
func ParseResult(content string) (Result, error) {
	cleaned := stripFences(content)
	if cleaned == "" {
		return Result{}, &ParseError{Reason: "empty content"}
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return Result{}, &ParseError{Reason: "invalid JSON: " + err.Error()}
	}

	for _, field := range []string{"overall_score", "categories", "deal_breakers"} {
		if _, ok := data[field]; !ok {
			return Result{}, &ParseError{Reason: "missing required field: " + field}
		}
	}

	result := Result{
		OverallScore:         asInt(data["overall_score"]),
		Summary:              asString(data["summary"]),
		FirstImpression:      asString(data["first_impression"]),
		Categories:           asCategoryMap(data["categories"]),
		DealBreakers:         asObjectList(data["deal_breakers"]),
		TopProjects:          asObjectList(data["top_projects_analysis"]),
		ImprovementChecklist: asObjectList(data["improvement_checklist"]),
		Strengths:            asStringList(data["strengths"]),
		RecruiterPerspective: asString(data["recruiter_perspective"]),
		Raw:                  data,
	}
	return result, nil
}

func stripFences(content string) string {
	content = strings.ReplaceAll(content, "```json", "")
	content = strings.ReplaceAll(content, "```", "")
	return strings.TrimSpace(content)
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asCategoryMap(v any) map[string]map[string]any {
	raw, ok := v.(map[string]any)
	if !ok {
		return map[string]map[string]any{}
	}
	out := make(map[string]map[string]any, len(raw))
	for name, val := range raw {
		if m, ok := val.(map[string]any); ok {
			out[name] = m
		}
	}
	return out
}

func asObjectList(v any) []map[string]any {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, val := range raw {
		if m, ok := val.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func asStringList(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, val := range raw {
		if s, ok := val.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
