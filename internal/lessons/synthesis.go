package lessons

import (
	"context"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/pipeline"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/schema"
)

var lessonSchema = schema.Schema{
	Name: "lesson",
	Fields: []schema.Field{
		{Name: "title", Type: schema.TypeString, Required: true},
		// Optional: empty content is reported by the pipeline as SYNTHESIS_INVALID.
		{Name: "content", Type: schema.TypeString},
		{Name: "sources", Type: schema.TypeArray, Items: &schema.Field{Type: schema.TypeObject, Fields: sourceFields}},
		{Name: "estimated_time_min", Type: schema.TypeInteger, Default: 15, Min: schema.Bound(1), Max: schema.Bound(240)},
		{Name: "video_links", Type: schema.TypeArray, Items: &schema.Field{Type: schema.TypeString}},
	},
}

type synthesisInput struct {
	Topic   string            `json:"topic"`
	Phase   string            `json:"phase"`
	Sources []pipeline.Source `json:"sources"`
}

// Synthesize writes a lesson from sources. It is never cached: a retried run
// should get a fresh draft.
func (g *Author) Synthesize(ctx context.Context, topic, phase string, sources []pipeline.Source) (pipeline.LessonDraft, error) {
	tmpl := promptTemplate{
		Purpose:    "Write one self-contained lesson for a learner.",
		Background: "The lesson is part of a personalized roadmap. It is reviewed for accuracy and then turned into a multiple-choice quiz.",
		Input:      synthesisInput{Topic: topic, Phase: phase, Sources: sources},
		Output:     lessonSchema,
		Rules: []string{
			"content is markdown with headings, short paragraphs and at least one worked example.",
			"Only cite sources from INPUT.",
			"estimated_time_min is the reading time in minutes.",
			"video_links lists only URLs that appear in INPUT sources of type video.",
		},
	}

	payload, err := g.generate(ctx, "synthesize", tmpl, false)
	if err != nil {
		return pipeline.LessonDraft{}, err
	}

	var draft pipeline.LessonDraft
	if err := payload.Decode(&draft); err != nil {
		return pipeline.LessonDraft{}, err
	}
	if len(draft.Sources) == 0 {
		draft.Sources = sources
	}
	if draft.VideoLinks == nil {
		draft.VideoLinks = []string{}
	}
	return draft, nil
}
