package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type validator struct {
	warnings []Warning
	missing  []string
}

func (v *validator) addMissing(path string) {
	v.missing = append(v.missing, path)
}

func (v *validator) warn(path, format string, args ...any) {
	v.warnings = append(v.warnings, Warning{Path: path, Message: fmt.Sprintf(format, args...)})
}

// Validate coerces candidate to s. The returned payload always has every
// declared field. Missing required fields without a default are set to nil
// and reported in a *ValidationError; all other problems become warnings.
// Fields that s does not declare are dropped.
func Validate(candidate map[string]any, s Schema) (Payload, error) {
	v := &validator{}
	data := v.objectFields(candidate, s.Fields, "", v.addMissing)

	p := Payload{Data: data, Warnings: v.warnings}
	if len(v.missing) > 0 {
		return p, &ValidationError{Schema: s.Name, Missing: v.missing}
	}
	return p, nil
}

func (v *validator) objectFields(in map[string]any, fields []Field, prefix string, onMissing func(string)) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		path := join(prefix, f.Name)
		raw, ok := in[f.Name]
		if !ok || raw == nil {
			if f.Default != nil {
				out[f.Name] = clone(f.Default)
				continue
			}
			if f.Required {
				onMissing(path)
				out[f.Name] = nil
				continue
			}
			out[f.Name] = v.zero(f, path)
			continue
		}
		out[f.Name] = v.value(raw, f, path)
	}
	return out
}

func (v *validator) value(raw any, f Field, path string) any {
	switch f.Type {
	case TypeString:
		s, ok := toString(raw)
		if !ok {
			return v.fallback(f, path, "expected string, got %T", raw)
		}
		if len(f.Enum) > 0 {
			return v.enum(s, f, path)
		}
		return s

	case TypeNumber, TypeInteger:
		n, ok := toNumber(raw)
		if !ok {
			return v.fallback(f, path, "expected %s, got %T", f.Type, raw)
		}
		if f.Min != nil && n < *f.Min {
			v.warn(path, "%v below minimum %v, clamped", n, *f.Min)
			n = *f.Min
		}
		if f.Max != nil && n > *f.Max {
			v.warn(path, "%v above maximum %v, clamped", n, *f.Max)
			n = *f.Max
		}
		if f.Type == TypeInteger {
			if n != math.Trunc(n) {
				v.warn(path, "%v is not an integer, rounded", n)
			}
			return toInt(v, path, math.Round(n))
		}
		return n

	case TypeBoolean:
		b, ok := toBool(raw)
		if !ok {
			return v.fallback(f, path, "expected boolean, got %T", raw)
		}
		return b

	case TypeArray:
		items, ok := raw.([]any)
		if !ok {
			if _, isObj := raw.(map[string]any); isObj {
				return v.fallback(f, path, "expected array, got object")
			}
			items = []any{raw}
		}
		return v.array(items, f, path)

	case TypeObject:
		obj, ok := raw.(map[string]any)
		if !ok {
			return v.fallback(f, path, "expected object, got %T", raw)
		}
		if len(f.Fields) == 0 {
			return obj
		}
		return v.objectFields(obj, f.Fields, path, v.addMissing)
	}
	return raw
}

// array coerces each element. Object elements that lack a required field are
// dropped with a warning rather than failing the whole payload.
func (v *validator) array(items []any, f Field, path string) []any {
	out := make([]any, 0, len(items))
	if f.Items == nil {
		return append(out, items...)
	}
	for i, item := range items {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		if item == nil {
			v.warn(itemPath, "null element dropped")
			continue
		}
		if f.Items.Type == TypeObject && len(f.Items.Fields) > 0 {
			obj, ok := item.(map[string]any)
			if !ok {
				v.warn(itemPath, "expected object, got %T, dropped", item)
				continue
			}
			var missing []string
			coerced := v.objectFields(obj, f.Items.Fields, itemPath, func(p string) { missing = append(missing, p) })
			if len(missing) > 0 {
				v.warn(itemPath, "missing required %s, dropped", strings.Join(missing, ", "))
				continue
			}
			out = append(out, coerced)
			continue
		}
		out = append(out, v.value(item, *f.Items, itemPath))
	}
	return out
}

func (v *validator) enum(s string, f Field, path string) any {
	for _, allowed := range f.Enum {
		if strings.EqualFold(strings.TrimSpace(s), allowed) {
			return allowed
		}
	}
	def := f.Default
	if def == nil {
		def = f.Enum[0]
	}
	v.warn(path, "%q not in %v, replaced by %v", s, f.Enum, def)
	return def
}

func (v *validator) fallback(f Field, path, format string, args ...any) any {
	def := f.Default
	if def == nil {
		def = v.zero(f, path)
	} else {
		def = clone(def)
	}
	v.warn(path, format+", replaced by default", args...)
	return def
}

func (v *validator) zero(f Field, path string) any {
	switch f.Type {
	case TypeString:
		if len(f.Enum) > 0 {
			return f.Enum[0]
		}
		return ""
	case TypeNumber:
		if f.Min != nil {
			return *f.Min
		}
		return float64(0)
	case TypeInteger:
		if f.Min != nil {
			return int(*f.Min)
		}
		return 0
	case TypeBoolean:
		return false
	case TypeArray:
		return []any{}
	case TypeObject:
		if len(f.Fields) == 0 {
			return map[string]any{}
		}
		return v.objectFields(map[string]any{}, f.Fields, path, func(string) {})
	}
	return nil
}

// toInt converts an integral n, saturating at the int range.
func toInt(v *validator, path string, n float64) int {
	switch {
	case n >= float64(math.MaxInt):
		v.warn(path, "%v exceeds the integer range, clamped", n)
		return math.MaxInt
	case n <= float64(math.MinInt):
		v.warn(path, "%v exceeds the integer range, clamped", n)
		return math.MinInt
	}
	return int(n)
}

func toString(raw any) (string, bool) {
	switch t := raw.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

func toNumber(raw any) (float64, bool) {
	switch t := raw.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func toBool(raw any) (bool, bool) {
	switch t := raw.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1":
			return true, true
		case "false", "no", "0":
			return false, true
		}
	case float64:
		if t == 0 || t == 1 {
			return t == 1, true
		}
	}
	return false, false
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func clone(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = clone(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = clone(e)
		}
		return out
	}
	return v
}
