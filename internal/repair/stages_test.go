package repair

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "json fence", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "prose around fence", in: "Result:\n```JSON\n{}\n```\nDone", want: `{}`},
		{name: "unterminated fence", in: "```json\n{\"a\":", want: `{"a":`},
		{name: "no fence", in: "  {\"a\":1} ", want: `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "strips NUL", in: "{\"a\x00\":1}", want: `{"a":1}`},
		{name: "decodes then re-escapes", in: `{"a":"\u00e9"}`, want: `{"a":"\u00e9"}`},
		{name: "decodes ascii escapes", in: `{"a":"\u0041"}`, want: `{"a":"A"}`},
		{name: "escapes raw non-ASCII", in: "{\"a\":\"\u00e9\"}", want: `{"a":"\u00e9"}`},
		{name: "escapes astral runes as surrogate pair", in: "{\"a\":\"\U0001F600\"}", want: `{"a":"\ud83d\ude00"}`},
		{name: "keeps surrogate pair escapes", in: `{"a":"\ud83d\ude00"}`, want: `{"a":"\ud83d\ude00"}`},
		{name: "composes NFC before escaping", in: "{\"a\":\"e\u0301\"}", want: `{"a":"\u00e9"}`},
		{name: "unescapes newline and quotes", in: `{\"a\":\"x\ny\"}`, want: `{"a":"x y"}`},
		{name: "collapses whitespace", in: "{ \"a\" :\n\n\t 1 }", want: `{ "a" : 1 }`},
		{name: "straightens smart quotes", in: "{\u201ca\u201d: \u2018b\u2019}", want: `{"a": 'b'}`},
		{name: "strips fences", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestPatchTruncation(t *testing.T) {
	v, err := PatchTruncation(`{"a":{"b":1}} trailing commentary`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": map[string]any{"b": float64(1)}}, v)

	v, err = PatchTruncation(`{"a":1`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, v)

	_, err = PatchTruncation(`{"a":"unterminated`)
	assert.Error(t, err)
}

func TestDeepRecover(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    any
		wantErr bool
	}{
		{name: "odd quote count", in: `{"a":"hel`, want: map[string]any{"a": "hel"}},
		{name: "text before brace", in: `answer: {"a":[1`, want: map[string]any{"a": []any{float64(1)}}},
		{name: "shrinks past partial key", in: `{"a":1,"averyveryverylongkeyname`, want: map[string]any{"a": float64(1)}},
		{name: "collapses doubled backslash quote", in: `{"a":"say \\"hi\\""}`, want: map[string]any{"a": `say "hi"`}},
		{name: "no brace", in: `just prose`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := DeepRecover(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestCloseJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: `{"a":1`, want: `{"a":1}`},
		{in: `{"a":[1,2`, want: `{"a":[1,2]}`},
		{in: `{"a":"x`, want: `{"a":"x"}`},
		{in: `{"a":1,`, want: `{"a":1}`},
		{in: `{"a":`, want: `{"a":null}`},
		{in: `{"a":[1,],}`, want: `{"a":[1]}`},
		{in: `{"a":"}"`, want: `{"a":"}"}`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, closeJSON(tt.in))
		})
	}
}
