package gemini

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Inline payload keys in priority order. The provider has used both.
var inlineDataKeys = []string{"inline_data", "inlineData"}

// ExtractText returns the first "text" string field in document order,
// unescaped and trimmed.
func ExtractText(raw []byte) (string, error) {
	doc, err := parseBody(raw)
	if err != nil {
		return "", err
	}

	value, ok := findFirst(doc, func(key string, value gjson.Result) bool {
		return key == "text" && value.Type == gjson.String
	})
	if !ok {
		return "", &Failure{Cause: CauseParseFailure, Body: string(raw)}
	}
	return strings.TrimSpace(value.String()), nil
}

// ExtractImage returns the base64 "data" of the first inline payload. Every
// inline_data object is tried before any inlineData object.
func ExtractImage(raw []byte) (string, error) {
	doc, err := parseBody(raw)
	if err != nil {
		return "", err
	}

	for _, name := range inlineDataKeys {
		value, ok := findFirst(doc, func(key string, value gjson.Result) bool {
			if key != name || !value.IsObject() {
				return false
			}
			data := value.Get("data")
			return data.Type == gjson.String && data.String() != ""
		})
		if ok {
			return value.Get("data").String(), nil
		}
	}
	return "", &Failure{Cause: CauseParseFailure, Body: string(raw)}
}

func parseBody(raw []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, &Failure{Cause: CauseParseFailure, Body: string(raw), Malformed: true}
	}
	return gjson.ParseBytes(raw), nil
}

// findFirst walks objects and arrays depth-first in document order and
// returns the first object member accepted by match.
func findFirst(node gjson.Result, match func(key string, value gjson.Result) bool) (gjson.Result, bool) {
	if !node.IsObject() && !node.IsArray() {
		return gjson.Result{}, false
	}

	isObject := node.IsObject()
	var found gjson.Result
	var ok bool
	node.ForEach(func(key, value gjson.Result) bool {
		if isObject && match(key.String(), value) {
			found, ok = value, true
			return false
		}
		if found, ok = findFirst(value, match); ok {
			return false
		}
		return true
	})
	return found, ok
}
