package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// ErrNoJSON is returned by Decode when the text holds no balanced JSON value.
var ErrNoJSON = errors.New("ai: no JSON value in response")

// ExtractJSON returns the first balanced {...} or [...] span in text that is
// valid JSON. Brackets inside string literals are ignored, so prose, code
// fences and trailing chatter around the payload are tolerated.
func ExtractJSON(text string) (string, bool) {
	return scan(text, func(c byte) bool { return c == '{' || c == '[' })
}

// ExtractObject returns the first balanced {...} span.
func ExtractObject(text string) (string, bool) {
	return scan(text, func(c byte) bool { return c == '{' })
}

// ExtractArray returns the first balanced [...] span.
func ExtractArray(text string) (string, bool) {
	return scan(text, func(c byte) bool { return c == '[' })
}

func scan(text string, opener func(byte) bool) (string, bool) {
	for start := 0; start < len(text); start++ {
		if !opener(text[start]) {
			continue
		}
		if end, ok := balanced(text, start); ok && json.Valid([]byte(text[start:end+1])) {
			return text[start : end+1], true
		}
	}
	return "", false
}

// balanced returns the index closing the value opened at text[start].
func balanced(text string, start int) (int, bool) {
	var stack []byte
	inString, escaped := false, false
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
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// Decode unmarshals the first JSON value of the shape v expects. Objects are
// looked for when v is not a slice pointer.
func Decode(text string, v any) error {
	extract := ExtractObject
	if isSlicePtr(v) {
		extract = ExtractArray
	}
	raw, ok := extract(text)
	if !ok {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("ai: decode: %w", err)
	}
	return nil
}

func isSlicePtr(v any) bool {
	t := reflect.TypeOf(v)
	return t != nil && t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Slice
}
