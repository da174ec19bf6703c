package validate

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencedBlockRe = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")
	arrayRe       = regexp.MustCompile(`(?s)\[.*\]`)
)

// ExtractEmbedded pulls a JSON object or array out of narrative model
// output. It is an optional upstream step the caller may run before
// validating a retry candidate; it is not part of every validation call.
//
// Strategies, in order: fenced code block, balanced-brace object scan,
// first bracketed array. Each candidate must itself be valid JSON.
func ExtractEmbedded(text string) (string, bool) {
	if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
		inner := strings.TrimSpace(m[1])
		if json.Valid([]byte(inner)) {
			return inner, true
		}
	}

	if obj, ok := extractByBrace(text); ok {
		return obj, true
	}

	if m := arrayRe.FindString(text); m != "" && json.Valid([]byte(m)) {
		return m, true
	}

	return "", false
}

// CleanFences strips a markdown code fence wrapping the whole payload.
// Models often wrap JSON in ```json ... ``` blocks; this handles
// ```json\n{...}\n```, ```\n{...}\n```, and bare JSON.
func CleanFences(data []byte) []byte {
	s := bytes.TrimSpace(data)
	if len(s) == 0 {
		return s
	}

	if bytes.HasPrefix(s, []byte("```")) {
		if idx := bytes.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		}
		if bytes.HasSuffix(s, []byte("```")) {
			s = s[:len(s)-3]
		}
		s = bytes.TrimSpace(s)
	}

	return s
}

// extractByBrace finds the first balanced {...} span that parses as JSON.
// A span that balances but fails to parse aborts that start position and
// moves to the next opening brace.
func extractByBrace(text string) (string, bool) {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		depth := 0
		for i := start; i < len(text); i++ {
			switch text[i] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					candidate := text[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate, true
					}
					i = len(text) // abandon this start
				}
			}
		}
	}
	return "", false
}
