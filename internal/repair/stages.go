package repair

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// Stage is one step of the repair chain. Stages are pure: they either parse
// their input into a JSON value or report why they could not.
type Stage struct {
	Name string
	// Normalized stages receive the output of Normalize rather than the raw text.
	Normalized bool
	Fn         func(text string) (any, error)
}

// DefaultStages is the chain used by New, ordered from the most precise stage
// to the most aggressive one.
var DefaultStages = []Stage{
	{Name: "direct", Fn: ParseDirect},
	{Name: "unfenced", Fn: ParseUnfenced},
	{Name: "normalized", Normalized: true, Fn: ParseDirect},
	{Name: "truncation", Normalized: true, Fn: PatchTruncation},
	{Name: "deep", Normalized: true, Fn: DeepRecover},
}

const maxShrinks = 5

var (
	errEmpty     = errors.New("empty input")
	errNoObject  = errors.New("no opening brace")
	errExhausted = errors.New("shrink attempts exhausted")

	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
)

// ParseDirect parses text as a single JSON value.
func ParseDirect(text string) (any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errEmpty
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// parseLeading decodes the first JSON value in text and ignores whatever
// follows it, such as commentary after the object.
func parseLeading(text string) (any, error) {
	var v any
	if err := json.NewDecoder(strings.NewReader(text)).Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// ParseUnfenced parses the content of a markdown code block.
func ParseUnfenced(text string) (any, error) {
	return ParseDirect(StripFences(text))
}

// PatchTruncation drops anything after the last closing brace or bracket,
// which removes trailing commentary, and closes the object when no closer
// exists at all.
func PatchTruncation(text string) (any, error) {
	if i := strings.LastIndexAny(text, "}]"); i >= 0 {
		text = text[:i+1]
	}
	if !strings.HasSuffix(text, "}") && !strings.HasSuffix(text, "]") {
		text += "}"
	}
	return ParseDirect(text)
}

// DeepRecover takes everything from the first opening brace, closes open
// strings and containers, and parses the leading value of the result. When that fails it shrinks
// the candidate from the end, backing off to the previous comma, and tries
// again up to five times.
func DeepRecover(text string) (any, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, errNoObject
	}
	candidate := text[start:]

	if v, err := parseLeading(closeJSON(candidate)); err == nil {
		return v, nil
	}

	n := len(candidate)
	for i := 1; i <= maxShrinks; i++ {
		cut := (n*i + 9) / 10
		if cut > n/2 {
			cut = n / 2
		}
		end := n - cut
		if c := lastCommaBefore(candidate, end); c > 0 {
			end = c
		}
		if end <= 1 {
			break
		}
		if v, err := parseLeading(closeJSON(candidate[:end])); err == nil {
			return v, nil
		}
	}
	return nil, errExhausted
}

// closeJSON applies the recovery fixups to s: an unterminated string gets its
// closing quote, trailing commas before closers are removed, doubled
// backslash-quote sequences are collapsed and every open container is closed.
func closeJSON(s string) string {
	if st := scan(s); st.inString {
		s += `"`
	}
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, `\\"`, `\"`)

	st := scan(s)
	if st.inString {
		s += `"`
	}
	s = strings.TrimRight(s, " \t\r\n")
	s = strings.TrimRight(s, ",")
	if strings.HasSuffix(s, ":") {
		s += "null"
	}

	var b strings.Builder
	b.WriteString(s)
	for i := len(st.stack) - 1; i >= 0; i-- {
		if st.stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

type scanState struct {
	inString bool
	stack    []byte
	commas   []int
}

// scan walks s tracking string state, open containers and the positions of
// commas that sit outside strings.
func scan(s string) scanState {
	var st scanState
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if st.inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				st.inString = false
			}
			continue
		}
		switch c {
		case '"':
			st.inString = true
		case '{', '[':
			st.stack = append(st.stack, c)
		case '}', ']':
			if len(st.stack) > 0 {
				st.stack = st.stack[:len(st.stack)-1]
			}
		case ',':
			st.commas = append(st.commas, i)
		}
	}
	return st
}

func lastCommaBefore(s string, end int) int {
	commas := scan(s).commas
	for i := len(commas) - 1; i >= 0; i-- {
		if commas[i] < end {
			return commas[i]
		}
	}
	return -1
}
