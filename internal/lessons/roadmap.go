package lessons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/models"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/schema"
)

// ErrEmptyRoadmap is returned when the model plans no lessons.
var ErrEmptyRoadmap = errors.New("roadmap has no lessons")

var roadmapSchema = schema.Schema{
	Name: "roadmap",
	Fields: []schema.Field{
		{Name: "topic", Type: schema.TypeString},
		{Name: "phases", Type: schema.TypeArray, Required: true, Items: &schema.Field{Type: schema.TypeObject, Fields: []schema.Field{
			{Name: "name", Type: schema.TypeString, Required: true},
			{Name: "lessons", Type: schema.TypeArray, Required: true, Items: &schema.Field{Type: schema.TypeObject, Fields: []schema.Field{
				{Name: "id", Type: schema.TypeString},
				{Name: "title", Type: schema.TypeString, Required: true},
				{Name: "summary", Type: schema.TypeString},
			}}},
		}}},
	},
}

type roadmapInput struct {
	Topic string   `json:"topic"`
	Level string   `json:"level"`
	Goals []string `json:"goals"`
}

// Plan is a generated roadmap before it is stored.
type Plan struct {
	Topic  string                `json:"topic"`
	Phases []models.RoadmapPhase `json:"phases"`
}

// PlanRoadmap asks the model for a phased roadmap. Lesson IDs are slugs of
// the titles, unique within the roadmap. Every lesson starts pending.
func (g *Author) PlanRoadmap(ctx context.Context, topic, level string, goals []string) (Plan, error) {
	if level == "" {
		level = "beginner"
	}
	tmpl := promptTemplate{
		Purpose:    "Plan a personalized learning roadmap.",
		Background: "Each lesson is later generated on demand and followed by a quiz.",
		Input:      roadmapInput{Topic: topic, Level: level, Goals: goals},
		Output:     roadmapSchema,
		Rules: []string{
			"Use 3 to 5 phases ordered from fundamentals to advanced practice.",
			"Each phase has 2 to 5 lessons.",
			"Lesson titles are short and specific. summary is one sentence.",
			"Match the depth to the learner level.",
		},
	}

	payload, err := g.generate(ctx, "plan roadmap", tmpl, false)
	if err != nil {
		return Plan{}, err
	}

	var plan Plan
	if err := payload.Decode(&plan); err != nil {
		return Plan{}, err
	}
	if strings.TrimSpace(plan.Topic) == "" {
		plan.Topic = topic
	}

	seen := make(map[string]int)
	phases := plan.Phases[:0]
	total := 0
	for _, ph := range plan.Phases {
		if len(ph.Lessons) == 0 {
			continue
		}
		for i := range ph.Lessons {
			l := &ph.Lessons[i]
			base := Slug(l.ID)
			if base == "" {
				base = Slug(l.Title)
			}
			if base == "" {
				base = "lesson"
			}
			seen[base]++
			l.ID = base
			if n := seen[base]; n > 1 {
				l.ID = fmt.Sprintf("%s-%d", base, n)
			}
			l.Status = models.LessonStatusPending
		}
		total += len(ph.Lessons)
		phases = append(phases, ph)
	}
	plan.Phases = phases
	if total == 0 {
		return Plan{}, ErrEmptyRoadmap
	}
	return plan, nil
}

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// Slug lowercases s, strips diacritics and joins alphanumeric runs with "-".
func Slug(s string) string {
	t := transform.Chain(norm.NFD, stripMarks, norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r == 'đ':
			r = 'd'
		case r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)):
			dash = b.Len() > 0
			continue
		}
		if dash {
			b.WriteByte('-')
			dash = false
		}
		b.WriteRune(r)
	}
	out := b.String()
	if len(out) > 64 {
		out = strings.TrimRight(out[:64], "-")
	}
	return out
}
