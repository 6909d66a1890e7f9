package agent

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var (
	fenceRE         = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	lineCommentRE   = regexp.MustCompile(`(?m)^\s*//.*$`)
	trailingCommaRE = regexp.MustCompile(`,\s*([}\]])`)
)

// extractObject pulls the first JSON object out of oracle output. Models wrap
// JSON in prose and code fences and sometimes emit comments or trailing
// commas; each salvage step is tried in order before giving up.
func extractObject(text string) (map[string]any, bool) {
	candidates := []string{strings.TrimSpace(text)}

	if m := fenceRE.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if braced, ok := firstBalancedObject(text); ok {
		candidates = append(candidates, braced)
	}

	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		for _, attempt := range []string{candidate, scrub(candidate)} {
			var obj map[string]any
			if err := json.Unmarshal([]byte(attempt), &obj); err == nil {
				return obj, true
			}
		}
	}
	return nil, false
}

// firstBalancedObject returns the first brace-balanced {...} span, tracking
// strings so braces inside values do not miscount.
func firstBalancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func scrub(s string) string {
	s = lineCommentRE.ReplaceAllString(s, "")
	return trailingCommaRE.ReplaceAllString(s, "$1")
}

// str reads the first non-empty string field among keys. "null"/"none"
// placeholders count as empty.
func str(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := obj[key].(string); ok {
			trimmed := strings.TrimSpace(v)
			if trimmed != "" && !strings.EqualFold(trimmed, "null") && !strings.EqualFold(trimmed, "none") {
				return trimmed
			}
		}
	}
	return ""
}

// num reads the first integer field among keys, accepting JSON numbers and
// digit strings.
func num(obj map[string]any, keys ...string) int64 {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case float64:
			return int64(v)
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return n
			}
		}
	}
	return 0
}
