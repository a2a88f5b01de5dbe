// Package llmjson recovers a single JSON object from free-form model output.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoObject is returned when the text holds no '{' ... '}' span.
var ErrNoObject = errors.New("no JSON object found in model output")

// StripThinking removes <think>...</think> blocks some local models emit before answering.
func StripThinking(s string) string {
	for {
		start := strings.Index(s, "<think>")
		if start == -1 {
			return s
		}
		end := strings.Index(s[start:], "</think>")
		if end == -1 {
			return s[:start]
		}
		s = s[:start] + s[start+end+len("</think>"):]
	}
}

// ExtractObject returns the outermost span from the first '{' to the last '}'.
// Surrounding prose and markdown fences are discarded.
func ExtractObject(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", ErrNoObject
	}
	return s[start : end+1], nil
}

// Repair drops trailing commas before ']' or '}' and turns raw control
// characters into spaces. Commas inside string literals are left alone.
func Repair(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)

	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
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
		case ',':
			j := i + 1
			for j < len(s) && s[j] == ' ' {
				j++
			}
			if j < len(s) && (s[j] == ']' || s[j] == '}') {
				i = j - 1
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Decode extracts the outermost object from raw and unmarshals it into v,
// retrying once on the repaired text when the strict parse fails.
func Decode(raw string, v interface{}) error {
	obj, err := ExtractObject(StripThinking(raw))
	if err != nil {
		return err
	}
	strictErr := json.Unmarshal([]byte(obj), v)
	if strictErr == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(Repair(obj)), v); err != nil {
		return fmt.Errorf("unparseable model JSON: %w", errors.Join(strictErr, err))
	}
	return nil
}
