package llm

import (
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tidwall/gjson"
)

// ExtractJSONObject returns the JSON object embedded in model prose, spanning
// the first '{' to the last '}'. Slightly malformed objects (trailing commas,
// single quotes, unquoted keys) are repaired. ok is false when no object can be
// recovered.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	candidate := text[start : end+1]
	if gjson.Valid(candidate) {
		return candidate, gjson.Parse(candidate).IsObject()
	}
	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil || !gjson.Valid(repaired) {
		return "", false
	}
	return repaired, gjson.Parse(repaired).IsObject()
}
