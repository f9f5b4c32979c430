package llm

import "strings"

// Model output is requested as strict JSON but arrives with some slop in
// practice, most commonly wrapped in a markdown code fence. Recovery is
// two-tier: take the outermost brace-balanced span anchored at the trimmed
// start and end, and if that fails strip a leading/trailing fence and retry.
// Anything beyond that is a parse failure surfaced with the raw text.

func ExtractJSONObject(s string) (string, bool) {
	if span, ok := balancedSpan(s, '{', '}'); ok {
		return span, true
	}
	return balancedSpan(stripCodeFence(s), '{', '}')
}

func ExtractJSONArray(s string) (string, bool) {
	if span, ok := balancedSpan(s, '[', ']'); ok {
		return span, true
	}
	return balancedSpan(stripCodeFence(s), '[', ']')
}

func balancedSpan(s string, open, close byte) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != open || s[len(s)-1] != close {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if escaped {
			escaped = false
			continue
		}

		switch {
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			depth++
		case ch == close:
			depth--
			if depth == 0 {
				// the balanced span must cover the whole string
				if i == len(s)-1 {
					return s, true
				}
				return "", false
			}
			if depth < 0 {
				return "", false
			}
		}
	}

	return "", false
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	// drop the language tag on the opening fence, e.g. ```json
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first == "" || isFenceTag(first) {
			s = s[idx+1:]
		}
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func isFenceTag(s string) bool {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if (ch < 'a' || ch > 'z') && (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') {
			return false
		}
	}
	return true
}
