package lessons

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/schema"
)

// promptTemplate renders a sectioned prompt. The OUTPUT section is generated
// from the same schema the answer is validated against.
type promptTemplate struct {
	Purpose    string
	Background string
	Input      any
	Output     schema.Schema
	Rules      []string
	Language   string
}

func (p promptTemplate) render() (string, error) {
	input, err := json.MarshalIndent(p.Input, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode prompt input: %w", err)
	}

	var buf bytes.Buffer
	writeSection(&buf, "PURPOSE", p.Purpose)
	writeSection(&buf, "BACKGROUND", p.Background)
	writeSection(&buf, "INPUT", string(input))
	writeSection(&buf, "OUTPUT", formatFields(p.Output.Fields, ""))
	writeSection(&buf, "RULES", formatList(p.Rules))
	writeSection(&buf, "OUTPUT_FORMAT", "Return exactly one JSON object with the OUTPUT fields. No markdown, no commentary.")
	writeSection(&buf, "LANGUAGE", p.Language)
	return strings.TrimSpace(buf.String()) + "\n", nil
}

func writeSection(buf *bytes.Buffer, name, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	fmt.Fprintf(buf, "[%s]\n%s\n\n", name, body)
}

func formatFields(fields []schema.Field, indent string) string {
	var b strings.Builder
	for _, f := range fields {
		req := "optional"
		if f.Required {
			req = "required"
		}
		typ := string(f.Type)
		if f.Type == schema.TypeArray && f.Items != nil {
			typ = "array of " + string(f.Items.Type)
		}
		fmt.Fprintf(&b, "%s- %s (%s, %s)", indent, f.Name, typ, req)
		if len(f.Enum) > 0 {
			fmt.Fprintf(&b, " one of: %s", strings.Join(f.Enum, ", "))
		}
		if f.Min != nil && f.Max != nil {
			fmt.Fprintf(&b, " between %v and %v", *f.Min, *f.Max)
		}
		b.WriteString("\n")
		switch {
		case f.Type == schema.TypeObject && len(f.Fields) > 0:
			b.WriteString(formatFields(f.Fields, indent+"  "))
		case f.Items != nil && len(f.Items.Fields) > 0:
			b.WriteString(formatFields(f.Items.Fields, indent+"  "))
		}
	}
	return b.String()
}

func formatList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}
	return b.String()
}
