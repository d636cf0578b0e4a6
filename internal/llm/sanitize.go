package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// StripCodeFences removes a surrounding ```json fence and any prose before the
// first '{' or after the last '}'.
func StripCodeFences(raw []byte) []byte {
	s := bytes.TrimSpace(raw)
	if bytes.HasPrefix(s, []byte("```")) {
		if nl := bytes.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = bytes.TrimSuffix(bytes.TrimSpace(s), []byte("```"))
	}
	start := bytes.IndexByte(s, '{')
	end := bytes.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return bytes.TrimSpace(s)
}

// NormalizeToSchema walks doc alongside schema and repairs common model slips:
//   - numbers sent as strings ("45,00", "1.234,50 EUR") become numbers
//   - null or empty optional properties are dropped
//   - properties unknown to a closed object are dropped
//   - enum strings are lower-cased when that makes them match
//
// It returns the repaired document and a list of touched paths.
func NormalizeToSchema(doc []byte, schema map[string]any) ([]byte, []string, error) {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	if _, ok := v.(map[string]any); !ok {
		return nil, nil, fmt.Errorf("sanitize: top-level value is not an object")
	}
	var changed []string
	v = normalizeValue(v, schema, "$", &changed)
	out, err := json.Marshal(v)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, changed, nil
}

func normalizeValue(v any, schema map[string]any, path string, changed *[]string) any {
	switch schemaType(schema) {
	case "object":
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		props, _ := schema["properties"].(map[string]any)
		required := stringSet(schema["required"])
		closed := schema["additionalProperties"] == false
		for k, val := range m {
			sub, known := props[k].(map[string]any)
			if !known {
				if closed {
					delete(m, k)
					*changed = append(*changed, path+"."+k+"(unknown)")
				}
				continue
			}
			if _, req := required[k]; !req && isEmpty(val) {
				delete(m, k)
				*changed = append(*changed, path+"."+k+"(empty)")
				continue
			}
			m[k] = normalizeValue(val, sub, path+"."+k, changed)
		}
		return m
	case "array":
		arr, ok := v.([]any)
		if !ok {
			return v
		}
		items, _ := schema["items"].(map[string]any)
		for i := range arr {
			arr[i] = normalizeValue(arr[i], items, fmt.Sprintf("%s[%d]", path, i), changed)
		}
		return arr
	case "number", "integer":
		s, ok := v.(string)
		if !ok {
			return v
		}
		if f, ok := ParseLocaleNumber(s); ok {
			*changed = append(*changed, path+"(number)")
			return f
		}
		return v
	case "string":
		s, ok := v.(string)
		if !ok {
			if f, isNum := v.(float64); isNum {
				*changed = append(*changed, path+"(string)")
				return strconv.FormatFloat(f, 'f', -1, 64)
			}
			return v
		}
		enum := stringSlice(schema["enum"])
		if len(enum) > 0 && !slices.Contains(enum, s) {
			if lower := strings.ToLower(strings.TrimSpace(s)); slices.Contains(enum, lower) {
				*changed = append(*changed, path+"(enum)")
				return lower
			}
		}
		return v
	default:
		return v
	}
}

var reNumberNoise = regexp.MustCompile(`[^0-9,.\-]`)

// ParseLocaleNumber parses numbers written in German or English notation,
// ignoring currency symbols and spaces: "1.234,56 €" and "1,234.56" both give 1234.56.
func ParseLocaleNumber(s string) (float64, bool) {
	s = reNumberNoise.ReplaceAllString(strings.TrimSpace(s), "")
	if s == "" || s == "-" {
		return 0, false
	}
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func schemaType(schema map[string]any) string {
	switch t := schema["type"].(type) {
	case string:
		return t
	case []any:
		for _, x := range t {
			if s, ok := x.(string); ok && s != "null" {
				return s
			}
		}
	case []string:
		for _, s := range t {
			if s != "null" {
				return s
			}
		}
	}
	return ""
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		s := strings.TrimSpace(t)
		return s == "" || strings.EqualFold(s, "null")
	}
	return false
}

func stringSet(v any) map[string]struct{} {
	out := map[string]struct{}{}
	for _, s := range stringSlice(v) {
		out[s] = struct{}{}
	}
	return out
}

func stringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
