package lessons

import (
	"context"
	"net/url"
	"strings"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/pipeline"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/schema"
)

var sourceFields = []schema.Field{
	{Name: "title", Type: schema.TypeString, Required: true},
	{Name: "url", Type: schema.TypeString, Required: true},
	{Name: "domain", Type: schema.TypeString},
	{Name: "type", Type: schema.TypeString, Enum: []string{"article", "documentation", "video", "course", "book", "paper"}},
	{Name: "relevance", Type: schema.TypeNumber, Default: 0.5, Min: schema.Bound(0), Max: schema.Bound(1)},
}

var sourcesSchema = schema.Schema{
	Name: "sources",
	Fields: []schema.Field{
		// Optional: an empty list is reported by the pipeline as NO_SOURCES.
		{Name: "sources", Type: schema.TypeArray, Items: &schema.Field{Type: schema.TypeObject, Fields: sourceFields}},
	},
}

type sourcesInput struct {
	Topic string `json:"topic"`
	Phase string `json:"phase"`
}

// FindSources asks the model for references on topic within phase. Results
// are cached per prompt. Entries without a usable http(s) URL are dropped.
func (g *Author) FindSources(ctx context.Context, topic, phase string) ([]pipeline.Source, error) {
	tmpl := promptTemplate{
		Purpose:    "Find authoritative learning resources for one phase of a study roadmap.",
		Background: "The resources are read by a lesson writer who cites them. Prefer official documentation, well known publishers and long-lived URLs.",
		Input:      sourcesInput{Topic: topic, Phase: phase},
		Output:     sourcesSchema,
		Rules: []string{
			"Return between 3 and 8 sources.",
			"Every url must be an absolute http or https URL.",
			"relevance is a number between 0 and 1.",
			"Do not invent sources you are not confident exist.",
		},
	}

	payload, err := g.generate(ctx, "search sources", tmpl, true)
	if err != nil {
		return nil, err
	}

	var out struct {
		Sources []pipeline.Source `json:"sources"`
	}
	if err := payload.Decode(&out); err != nil {
		return nil, err
	}

	sources := make([]pipeline.Source, 0, len(out.Sources))
	for _, s := range out.Sources {
		u, err := url.Parse(strings.TrimSpace(s.URL))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			continue
		}
		s.URL = u.String()
		if s.Domain == "" {
			s.Domain = strings.TrimPrefix(u.Hostname(), "www.")
		}
		sources = append(sources, s)
	}
	return sources, nil
}
