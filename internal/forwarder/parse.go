package forwarder

import (
	"encoding/json"
	"strings"
)

// Response is a parsed bot reply.
type Response struct {
	Message      string   `json:"message"`
	QuickReplies []string `json:"quickReplies,omitempty"`
}

// Parse interprets a webhook response body. Automation tools emit wildly
// different shapes, so the body is probed in a fixed precedence order:
//
//  1. empty or whitespace-only: nil, the real answer arrives async
//  2. JSON array: the first element is taken (n8n wraps responses in arrays)
//  3. JSON string: used as the message
//  4. JSON object: fields "output", "text", "message", "response" in order
//  5. any other JSON value, or an object matching no field: the whole value
//     re-serialized as the message, nothing is dropped silently
//  6. invalid JSON: the raw text verbatim
//
// Changing this order breaks real integrations.
func Parse(text string) *Response {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return &Response{Message: strings.TrimSpace(text)}
	}

	if arr, ok := parsed.([]any); ok {
		if len(arr) == 0 {
			return nil
		}
		parsed = arr[0]
	}

	if s, ok := parsed.(string); ok {
		return &Response{Message: s}
	}

	if obj, ok := parsed.(map[string]any); ok {
		quickReplies := toStringSlice(obj["quickReplies"])

		for _, field := range []string{"output", "text", "message"} {
			if v, ok := obj[field]; ok && truthy(v) {
				return &Response{Message: asString(v), QuickReplies: quickReplies}
			}
		}
		if v, ok := obj["response"]; ok && truthy(v) {
			return &Response{Message: asString(v)}
		}
	}

	return &Response{Message: stringify(parsed)}
}

// truthy mirrors the loose field probing the upstream tools rely on: empty
// strings, zero, false and null all mean "field not really there".
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	default:
		return true
	}
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return stringify(v)
}

func stringify(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func toStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
