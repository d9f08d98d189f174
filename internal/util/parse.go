package util

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var fenceRe = regexp.MustCompile("^```(?:json)?\\s*|\\s*```$")

// StripCodeFence removes a surrounding markdown code fence, if present.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	return strings.TrimSpace(fenceRe.ReplaceAllString(s, ""))
}

// ExtractScore pulls a float score in [0,1] out of model output.
// Strict phase: the whole (trimmed) text parses as a float. Fallback phase:
// scan words for the first token containing "0." that parses into range.
// Returns the provided default when nothing usable is found.
func ExtractScore(text string, fallback float64) float64 {
	trimmed := strings.TrimSpace(text)
	if v, err := strconv.ParseFloat(trimmed, 64); err == nil && v >= 0 && v <= 1 {
		return v
	}
	for _, word := range strings.Fields(text) {
		clean := strings.Trim(word, ".,;:!?()\"'")
		if !strings.Contains(clean, "0.") && clean != "1.0" && clean != "1" {
			continue
		}
		if v, err := strconv.ParseFloat(clean, 64); err == nil && v >= 0 && v <= 1 {
			return v
		}
	}
	return fallback
}

// ExtractJSONObject finds and decodes the first JSON object embedded in model
// output. Strict phase: the fence-stripped text decodes directly. Fallback
// phase: locate the first balanced {...} span and decode that.
func ExtractJSONObject(text string) (map[string]any, bool) {
	stripped := StripCodeFence(text)

	var obj map[string]any
	if err := json.Unmarshal([]byte(stripped), &obj); err == nil {
		return obj, true
	}

	start := strings.IndexByte(stripped, '{')
	if start < 0 {
		return nil, false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(stripped); i++ {
		c := stripped[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				if err := json.Unmarshal([]byte(stripped[start:i+1]), &obj); err == nil {
					return obj, true
				}
				return nil, false
			}
		}
	}
	return nil, false
}

// CoerceActionInput decodes a tool action payload from model output. Valid
// JSON objects are honored; anything else becomes {"input": raw} so a
// malformed payload degrades instead of aborting the session.
func CoerceActionInput(raw string) map[string]any {
	cleaned := StripCodeFence(raw)
	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err == nil {
		return obj
	}
	return map[string]any{"input": cleaned}
}
