package schema

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lessonSchema = Schema{
	Name: "lesson",
	Fields: []Field{
		{Name: "title", Type: TypeString, Required: true},
		{Name: "content", Type: TypeString, Required: true},
		{Name: "estimated_time_min", Type: TypeInteger, Default: 15, Min: Bound(1), Max: Bound(240)},
		{Name: "level", Type: TypeString, Enum: []string{"Beginner", "Intermediate", "Advanced"}, Default: "Beginner"},
		{Name: "published", Type: TypeBoolean},
		{Name: "video_links", Type: TypeArray, Items: &Field{Type: TypeString}},
		{Name: "meta", Type: TypeObject, Fields: []Field{
			{Name: "author", Type: TypeString, Default: "system"},
		}},
	},
}

func TestValidateFillsDefaults(t *testing.T) {
	p, err := Validate(map[string]any{"title": "Intro", "content": "Body"}, lessonSchema)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"title":              "Intro",
		"content":            "Body",
		"estimated_time_min": 15,
		"level":              "Beginner",
		"published":          false,
		"video_links":        []any{},
		"meta":               map[string]any{"author": "system"},
	}, p.Data)
	assert.Empty(t, p.Warnings)
}

func TestValidateMissingRequired(t *testing.T) {
	p, err := Validate(map[string]any{"title": "Intro", "extra": "dropped"}, lessonSchema)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "lesson", verr.Schema)
	assert.Equal(t, []string{"content"}, verr.Missing)
	assert.Contains(t, err.Error(), "content")

	assert.Contains(t, p.Data, "content")
	assert.Nil(t, p.Data["content"])
	assert.NotContains(t, p.Data, "extra")
}

func TestValidateNilCandidate(t *testing.T) {
	p, err := Validate(nil, lessonSchema)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"title", "content"}, verr.Missing)
	assert.Len(t, p.Data, len(lessonSchema.Fields))
}

func TestValidateCoercion(t *testing.T) {
	tests := []struct {
		name         string
		field        Field
		in           any
		want         any
		wantWarnings int
	}{
		{name: "numeric string to number", field: Field{Name: "f", Type: TypeNumber}, in: " 0.75 ", want: 0.75},
		{name: "number to string", field: Field{Name: "f", Type: TypeString}, in: float64(42), want: "42"},
		{name: "bool to string", field: Field{Name: "f", Type: TypeString}, in: true, want: "true"},
		{name: "string to bool", field: Field{Name: "f", Type: TypeBoolean}, in: "TRUE", want: true},
		{name: "number to bool", field: Field{Name: "f", Type: TypeBoolean}, in: float64(0), want: false},
		{name: "integral float to integer", field: Field{Name: "f", Type: TypeInteger}, in: float64(3), want: 3},
		{name: "fractional float rounded", field: Field{Name: "f", Type: TypeInteger}, in: 2.6, want: 3, wantWarnings: 1},
		{name: "numeric string to integer", field: Field{Name: "f", Type: TypeInteger}, in: "12", want: 12},
		{name: "huge integer saturates", field: Field{Name: "f", Type: TypeInteger}, in: 1e300, want: math.MaxInt, wantWarnings: 1},
		{name: "huge negative integer saturates", field: Field{Name: "f", Type: TypeInteger}, in: "-1e300", want: math.MinInt, wantWarnings: 1},
		{name: "scalar to array", field: Field{Name: "f", Type: TypeArray, Items: &Field{Type: TypeString}}, in: "only", want: []any{"only"}},
		{name: "enum case-insensitive", field: Field{Name: "f", Type: TypeString, Enum: []string{"Article", "Video"}}, in: "video", want: "Video"},
		{name: "enum violation uses default", field: Field{Name: "f", Type: TypeString, Enum: []string{"Article", "Video"}, Default: "Article"}, in: "podcast", want: "Article", wantWarnings: 1},
		{name: "enum violation without default uses first", field: Field{Name: "f", Type: TypeString, Enum: []string{"Article", "Video"}}, in: "podcast", want: "Article", wantWarnings: 1},
		{name: "clamped below", field: Field{Name: "f", Type: TypeNumber, Min: Bound(0), Max: Bound(1)}, in: -0.5, want: float64(0), wantWarnings: 1},
		{name: "clamped above", field: Field{Name: "f", Type: TypeNumber, Min: Bound(0), Max: Bound(1)}, in: "1.5", want: float64(1), wantWarnings: 1},
		{name: "uncoercible uses default", field: Field{Name: "f", Type: TypeNumber, Default: 0.5}, in: "high", want: 0.5, wantWarnings: 1},
		{name: "uncoercible without default uses zero", field: Field{Name: "f", Type: TypeBoolean}, in: "maybe", want: false, wantWarnings: 1},
		{name: "object for array uses default", field: Field{Name: "f", Type: TypeArray}, in: map[string]any{}, want: []any{}, wantWarnings: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Validate(map[string]any{"f": tt.in}, Schema{Name: "t", Fields: []Field{tt.field}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Data["f"])
			assert.Len(t, p.Warnings, tt.wantWarnings, "%v", p.Warnings)
		})
	}
}

func TestValidateArrayOfObjects(t *testing.T) {
	s := Schema{Name: "quiz", Fields: []Field{
		{Name: "questions", Type: TypeArray, Required: true, Items: &Field{Type: TypeObject, Fields: []Field{
			{Name: "question", Type: TypeString, Required: true},
			{Name: "options", Type: TypeArray, Items: &Field{Type: TypeString}},
			{Name: "correct_answer", Type: TypeInteger, Min: Bound(0), Max: Bound(3)},
		}}},
	}}

	p, err := Validate(map[string]any{"questions": []any{
		map[string]any{"question": "Q1", "options": []any{"a", "b", "c", "d"}, "correct_answer": "2"},
		map[string]any{"options": []any{"a"}},
		"not an object",
		map[string]any{"question": "Q4", "correct_answer": float64(7)},
	}}, s)
	require.NoError(t, err)

	questions := p.Data["questions"].([]any)
	require.Len(t, questions, 2)
	assert.Equal(t, map[string]any{"question": "Q1", "options": []any{"a", "b", "c", "d"}, "correct_answer": 2}, questions[0])
	assert.Equal(t, 3, questions[1].(map[string]any)["correct_answer"])

	paths := make([]string, 0, len(p.Warnings))
	for _, w := range p.Warnings {
		paths = append(paths, w.Path)
	}
	assert.Equal(t, []string{"questions[1]", "questions[2]", "questions[3].correct_answer"}, paths)
}

func TestValidateNestedRequired(t *testing.T) {
	s := Schema{Name: "roadmap", Fields: []Field{
		{Name: "owner", Type: TypeObject, Required: true, Fields: []Field{
			{Name: "id", Type: TypeString, Required: true},
		}},
	}}

	_, err := Validate(map[string]any{"owner": map[string]any{}}, s)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"owner.id"}, verr.Missing)
}

func TestValidateDefaultsAreNotShared(t *testing.T) {
	s := Schema{Name: "t", Fields: []Field{{Name: "tags", Type: TypeArray, Default: []any{"go"}}}}

	first, err := Validate(nil, s)
	require.NoError(t, err)
	first.Data["tags"].([]any)[0] = "changed"

	second, err := Validate(nil, s)
	require.NoError(t, err)
	assert.Equal(t, []any{"go"}, second.Data["tags"])
}

func TestPayloadDecode(t *testing.T) {
	p, err := Validate(map[string]any{"title": "Intro", "content": "Body", "estimated_time_min": "30"}, lessonSchema)
	require.NoError(t, err)

	var lesson struct {
		Title    string `json:"title"`
		Minutes  int    `json:"estimated_time_min"`
		Level    string `json:"level"`
		Headline string `json:"headline"`
	}
	require.NoError(t, p.Decode(&lesson))
	assert.Equal(t, "Intro", lesson.Title)
	assert.Equal(t, 30, lesson.Minutes)
	assert.Equal(t, "Beginner", lesson.Level)
}
