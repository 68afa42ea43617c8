package repair

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

var (
	fenceBlockRe = regexp.MustCompile("```[a-zA-Z0-9_-]*\\s*([\\s\\S]*?)```")
	fenceMarkRe  = regexp.MustCompile("```[a-zA-Z0-9_-]*")
	surrogateRe  = regexp.MustCompile(`\\u([dD][89abAB][0-9a-fA-F]{2})\\u([dD][c-fC-F][0-9a-fA-F]{2})`)
	unicodeEscRe = regexp.MustCompile(`\\u([0-9a-fA-F]{4})`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	smartQuotes = strings.NewReplacer(
		"“", `"`, "”", `"`, "„", `"`, "‟", `"`,
		"‘", "'", "’", "'", "‚", "'", "‛", "'",
	)
)

// StripFences returns the content of the first markdown code block in s. If s
// has no complete block, stray fence markers are removed instead, which covers
// output cut off before the closing fence.
func StripFences(s string) string {
	if m := fenceBlockRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(fenceMarkRe.ReplaceAllString(s, ""))
}

// Normalize rewrites model output into a form strict JSON parsers accept more
// often. Curly quotes are straightened before non-ASCII runes are re-escaped,
// otherwise they would be escaped and never straightened.
func Normalize(s string) string {
	s = StripFences(s)
	s = strings.ReplaceAll(s, "\x00", "")
	s = decodeUnicodeEscapes(s)
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = norm.NFC.String(s)
	s = smartQuotes.Replace(s)
	s = escapeNonASCII(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func decodeUnicodeEscapes(s string) string {
	s = surrogateRe.ReplaceAllStringFunc(s, func(m string) string {
		parts := surrogateRe.FindStringSubmatch(m)
		hi, _ := strconv.ParseUint(parts[1], 16, 32)
		lo, _ := strconv.ParseUint(parts[2], 16, 32)
		return string(utf16.DecodeRune(rune(hi), rune(lo)))
	})
	return unicodeEscRe.ReplaceAllStringFunc(s, func(m string) string {
		code, err := strconv.ParseUint(m[2:], 16, 32)
		if err != nil {
			return m
		}
		r := rune(code)
		if utf16.IsSurrogate(r) {
			return m
		}
		return string(r)
	})
}

// escapeNonASCII turns every rune outside printable ASCII into a \uXXXX
// escape. Newline, carriage return and tab are kept as they are.
func escapeNonASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(r)
		case r >= 0x20 && r <= 0x7e:
			b.WriteRune(r)
		case r > 0xffff:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&b, `\u%04x\u%04x`, hi, lo)
		default:
			fmt.Fprintf(&b, `\u%04x`, r)
		}
	}
	return b.String()
}
