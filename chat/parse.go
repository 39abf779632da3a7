package chat

import "encoding/json"

// ParseArguments parses the wire-format argument text of a tool call into
// structured form. This is the single point where malformed JSON degrades to
// empty arguments instead of raising; the tool itself reports any missing
// required fields.
func ParseArguments(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{}
	}
	if args == nil {
		return map[string]any{}
	}
	return args
}
