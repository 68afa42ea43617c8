package lessons

import (
	"context"
	"fmt"
	"strings"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/pipeline"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/schema"
)

// The verdict flag is read from the raw reply, so a missing or unreadable
// "valid" can be told apart from false.
var verdictSchema = schema.Schema{
	Name: "validation",
	Fields: []schema.Field{
		{Name: "confidence_score", Type: schema.TypeNumber, Min: schema.Bound(0), Max: schema.Bound(1)},
		{Name: "issues", Type: schema.TypeArray, Items: &schema.Field{Type: schema.TypeObject, Fields: []schema.Field{
			{Name: "type", Type: schema.TypeString, Default: "General"},
			{Name: "detail", Type: schema.TypeString, Required: true},
		}}},
	},
}

var verdictPrompt = schema.Schema{
	Name: verdictSchema.Name,
	Fields: append([]schema.Field{
		{Name: "valid", Type: schema.TypeBoolean, Required: true},
	}, verdictSchema.Fields...),
}

// ValidateLesson asks the model to review draft. Verdict.Valid is nil when
// the reply carries no boolean verdict.
func (g *Author) ValidateLesson(ctx context.Context, draft pipeline.LessonDraft) (pipeline.Verdict, error) {
	tmpl := promptTemplate{
		Purpose:    "Review a lesson for factual accuracy and teaching quality.",
		Background: "Rejected lessons are regenerated. Only reject for real problems.",
		Input:      draft,
		Output:     verdictPrompt,
		Rules: []string{
			"valid is false only when the lesson contains a factual error, is off topic or is unusably incomplete.",
			"Each issue has a type (Factual, Clarity, Coverage, Citation) and a one sentence detail.",
			"confidence_score is your confidence in the verdict, between 0 and 1.",
		},
	}
	obj, err := g.object(ctx, "validate", tmpl, false)
	if err != nil {
		return pipeline.Verdict{}, err
	}

	payload, err := schema.Validate(obj, verdictSchema)
	g.logWarnings("validate", payload.Warnings)
	if err != nil {
		return pipeline.Verdict{}, fmt.Errorf("validate: %w", err)
	}

	var verdict pipeline.Verdict
	if err := payload.Decode(&verdict); err != nil {
		return pipeline.Verdict{}, err
	}
	if verdict.Issues == nil {
		verdict.Issues = []pipeline.Issue{}
	}
	verdict.Valid = verdictFlag(obj["valid"])
	return verdict, nil
}

func verdictFlag(raw any) *bool {
	var b bool
	switch t := raw.(type) {
	case bool:
		b = t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "valid":
			b = true
		case "false", "no", "invalid":
			b = false
		default:
			return nil
		}
	default:
		return nil
	}
	return &b
}
