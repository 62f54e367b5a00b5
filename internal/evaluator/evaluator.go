// Package evaluator describes images with an AI model.
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lewtec/imgreader/internal/domain"
)

const DefaultPrompt = "Analyze this image of mechanical equipment. Your task is to:\n\n" +
	"1. Identify any unit tags, serial numbers, model numbers, or identifying labels visible in the image\n" +
	"2. Determine what type of equipment this is (HVAC unit, pump, compressor, etc.)\n" +
	"3. Note any important identifying information"

// formatInstructions is appended to every prompt, custom or not, so the
// output stays machine readable.
const formatInstructions = "\n\nRespond with a single JSON object and nothing else:\n" +
	`{"brief_description": "<one sentence>", "suggested_suffix": "<short filename suffix such as _AHU-3, or empty>"}`

// Input is one image handed to an evaluator
type Input struct {
	ImageName    string
	OriginalPath string
	MediaType    string
	Data         []byte
	Prompt       string
	Temperature  *float64
}

// Evaluator turns one image into an evaluation result
type Evaluator interface {
	Evaluate(ctx context.Context, in Input) (*domain.EvaluationResult, error)
}

// Func adapts a function to the Evaluator interface.
type Func func(ctx context.Context, in Input) (*domain.EvaluationResult, error)

func (f Func) Evaluate(ctx context.Context, in Input) (*domain.EvaluationResult, error) {
	return f(ctx, in)
}

// BuildPrompt returns the full prompt for a project's custom prompt.
func BuildPrompt(custom *string) string {
	prompt := DefaultPrompt
	if custom != nil && strings.TrimSpace(*custom) != "" {
		prompt = strings.TrimSpace(*custom)
	}
	return prompt + formatInstructions
}

type modelOutput struct {
	BriefDescription string `json:"brief_description"`
	SuggestedSuffix  string `json:"suggested_suffix"`
}

// ParseOutput extracts the JSON object from raw model output.
func ParseOutput(raw, originalPath string) (*domain.EvaluationResult, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("model output has no JSON object")
	}
	var out modelOutput
	if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("while parsing model output: %w", err)
	}
	description := strings.TrimSpace(out.BriefDescription)
	if description == "" {
		return nil, fmt.Errorf("model output has an empty description")
	}
	return &domain.EvaluationResult{
		BriefDescription: description,
		SuggestedSuffix:  SanitizeSuffix(out.SuggestedSuffix),
		RawOutput:        raw,
		OriginalPath:     originalPath,
	}, nil
}

// SanitizeSuffix makes a model suggested suffix safe to append to a file
// stem. It returns nil when nothing usable is left.
func SanitizeSuffix(suffix string) *string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(suffix) {
		switch {
		case r == ' ':
			b.WriteRune('-')
		case r == '/' || r == '\\' || r == '.' || r < 0x20:
		default:
			b.WriteRune(r)
		}
	}
	s := strings.Trim(b.String(), "-")
	if s == "" || s == "_" {
		return nil
	}
	if !strings.HasPrefix(s, "_") {
		s = "_" + s
	}
	return &s
}
