package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultServiceName names the upstream in "No response from ..." messages.
const DefaultServiceName = "GROQ API"

// Normalize maps a raw chat-completion body into the result shape for kind.
// It never panics and never returns nil: malformed input yields the
// error-shaped result for the kind.
func Normalize(kind Kind, raw []byte, service string) (res Result) {
	if service == "" {
		service = DefaultServiceName
	}
	defer func() {
		if r := recover(); r != nil {
			res = ErrorResult(kind, fmt.Errorf("normalize response: %v", r))
		}
	}()

	if !gjson.ValidBytes(raw) {
		return ErrorResult(kind, protocolError("body is not valid JSON"))
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return ErrorResult(kind, protocolError("body is not a JSON object"))
	}

	content, ok, err := firstChoiceContent(doc)
	if err != nil {
		return ErrorResult(kind, err)
	}
	if !ok {
		return noResponse(kind, service)
	}

	switch kind {
	case KindReview:
		return reviewFromContent(content)
	case KindChat:
		return ChatResult{
			Response: content,
			Metadata: map[string]interface{}{
				"model": doc.Get("model").String(),
				"usage": usageOf(doc),
			},
			Status: StatusSuccess,
		}
	default:
		return TextResult{Content: content, Status: StatusSuccess}
	}
}

// ErrorResult builds the safe default for kind carrying err's message.
func ErrorResult(kind Kind, err error) Result {
	msg := "Error: unknown failure"
	if err != nil {
		msg = "Error: " + err.Error()
	}
	switch kind {
	case KindReview:
		return ReviewResult{
			Issues:         []Issue{{Description: msg, Severity: SeverityError}},
			Suggestions:    []Suggestion{},
			OverallQuality: QualityNeedsReview,
			Status:         StatusError,
		}
	case KindChat:
		return ChatResult{
			Response: msg,
			Metadata: map[string]interface{}{"error": strings.TrimPrefix(msg, "Error: ")},
			Status:   StatusError,
		}
	default:
		return TextResult{Content: msg, Status: StatusError}
	}
}

func noResponse(kind Kind, service string) Result {
	msg := "No response from " + service
	switch kind {
	case KindReview:
		return ReviewResult{
			Issues:         []Issue{{Description: msg, Severity: SeverityError}},
			Suggestions:    []Suggestion{},
			OverallQuality: QualityNeedsReview,
			Status:         StatusError,
		}
	case KindChat:
		return ChatResult{
			Response: msg,
			Metadata: map[string]interface{}{"error": "Empty response"},
			Status:   StatusError,
		}
	default:
		return TextResult{Content: msg, Status: StatusError}
	}
}

// firstChoiceContent reads choices[0].message.content. ok is false when the
// choice list is missing, null or empty. Any other non-array is a protocol
// error. A missing or null content reads as empty.
func firstChoiceContent(doc gjson.Result) (string, bool, error) {
	choices := doc.Get("choices")
	if !choices.IsArray() {
		if choices.Exists() && choices.Type != gjson.Null {
			return "", false, protocolError("choices is %s, want array", choices.Type)
		}
		return "", false, nil
	}
	items := choices.Array()
	if len(items) == 0 {
		return "", false, nil
	}
	first := items[0]
	if !first.IsObject() {
		return "", false, protocolError("choices[0] is %s, want object", first.Type)
	}
	content := first.Get("message.content")
	switch content.Type {
	case gjson.String:
		return content.Str, true, nil
	case gjson.Null:
		return "", true, nil
	default:
		return "", false, protocolError("message content is %s, want string", content.Type)
	}
}

func usageOf(doc gjson.Result) map[string]interface{} {
	usage := doc.Get("usage")
	if usage.IsObject() {
		if m, ok := usage.Value().(map[string]interface{}); ok {
			return m
		}
	}
	return map[string]interface{}{}
}

// reviewFromContent keeps the prose reply as a single info issue unless the
// model answered with a JSON object carrying an "issues" list.
func reviewFromContent(content string) ReviewResult {
	if structured, ok := structuredReview(content); ok {
		return structured
	}
	return ReviewResult{
		Issues:         []Issue{{Description: content, Severity: SeverityInfo}},
		Suggestions:    []Suggestion{{Description: "See above feedback", Priority: PriorityMedium}},
		OverallQuality: QualityNeedsReview,
		Status:         StatusSuccess,
	}
}

func structuredReview(content string) (ReviewResult, bool) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "```") {
		return ReviewResult{}, false
	}
	obj, ok := ExtractJSONObject(trimmed)
	if !ok || !gjson.Get(obj, "issues").IsArray() {
		return ReviewResult{}, false
	}

	var payload struct {
		Issues         []Issue      `json:"issues"`
		Suggestions    []Suggestion `json:"suggestions"`
		OverallQuality Quality      `json:"overall_quality"`
	}
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return ReviewResult{}, false
	}

	out := ReviewResult{
		Issues:         make([]Issue, 0, len(payload.Issues)),
		Suggestions:    make([]Suggestion, 0, len(payload.Suggestions)),
		OverallQuality: normalizeQuality(payload.OverallQuality),
		Status:         StatusSuccess,
	}
	for _, issue := range payload.Issues {
		out.Issues = append(out.Issues, Issue{Description: issue.Description, Severity: normalizeSeverity(issue.Severity)})
	}
	for _, s := range payload.Suggestions {
		out.Suggestions = append(out.Suggestions, Suggestion{Description: s.Description, Priority: normalizePriority(s.Priority)})
	}
	return out, true
}

func normalizeSeverity(s Severity) Severity {
	switch Severity(strings.ToLower(string(s))) {
	case SeverityError:
		return SeverityError
	case SeverityWarning:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

func normalizePriority(p Priority) Priority {
	switch Priority(strings.ToLower(string(p))) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityLow:
		return PriorityLow
	default:
		return PriorityMedium
	}
}

func normalizeQuality(q Quality) Quality {
	switch Quality(strings.ToLower(string(q))) {
	case QualityGood:
		return QualityGood
	case QualityNeedsImprovement:
		return QualityNeedsImprovement
	default:
		return QualityNeedsReview
	}
}
