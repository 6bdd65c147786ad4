package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeTextContent(t *testing.T) {
	res := Normalize(KindText, []byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`), "")
	require.Equal(t, TextResult{Content: "hello", Status: StatusSuccess}, res)
	require.False(t, res.Failed())
}

func TestNormalizeNoChoices(t *testing.T) {
	for name, body := range map[string]string{
		"missing": `{"id":"x"}`,
		"empty":   `{"choices":[]}`,
		"null":    `{"choices":null}`,
	} {
		t.Run(name, func(t *testing.T) {
			res := Normalize(KindText, []byte(body), "GROQ API")
			require.Equal(t, TextResult{Content: "No response from GROQ API", Status: StatusError}, res)
		})
	}
}

func TestNormalizeMalformedBodies(t *testing.T) {
	cases := map[string]string{
		"invalid json":       `{"choices":[`,
		"top-level array":    `[1,2,3]`,
		"choice not object":  `{"choices":["text"]}`,
		"content not string": `{"choices":[{"message":{"content":42}}]}`,
		"choices not array":  `{"choices":"abc"}`,
		"choices object":     `{"choices":{"message":{"content":"x"}}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			text := Normalize(KindText, []byte(body), "").(TextResult)
			require.Equal(t, StatusError, text.Status)
			require.Contains(t, text.Content, "Error: ")

			review := Normalize(KindReview, []byte(body), "").(ReviewResult)
			require.Len(t, review.Issues, 1)
			require.Equal(t, SeverityError, review.Issues[0].Severity)
			require.Empty(t, review.Suggestions)
			require.Equal(t, QualityNeedsReview, review.OverallQuality)

			chat := Normalize(KindChat, []byte(body), "").(ChatResult)
			require.True(t, chat.Failed())
			require.Contains(t, chat.Metadata, "error")
		})
	}
}

func TestNormalizeNullContentReadsEmpty(t *testing.T) {
	res := Normalize(KindText, []byte(`{"choices":[{"message":{"content":null}}]}`), "")
	require.Equal(t, TextResult{Content: "", Status: StatusSuccess}, res)
}

func TestNormalizeReviewProse(t *testing.T) {
	res := Normalize(KindReview, []byte(`{"choices":[{"message":{"content":"Looks fine overall."}}]}`), "").(ReviewResult)
	require.Equal(t, []Issue{{Description: "Looks fine overall.", Severity: SeverityInfo}}, res.Issues)
	require.Equal(t, []Suggestion{{Description: "See above feedback", Priority: PriorityMedium}}, res.Suggestions)
	require.Equal(t, QualityNeedsReview, res.OverallQuality)
	require.False(t, res.Failed())
}

func TestNormalizeReviewStructured(t *testing.T) {
	raw := completionBody(t, "```json\n"+
		`{"issues":[{"description":"unused import","severity":"Warning"}],`+
		`"suggestions":[{"description":"memoize","priority":"urgent"}],"overall_quality":"good"}`+
		"\n```")

	res := Normalize(KindReview, raw, "").(ReviewResult)
	require.Equal(t, []Issue{{Description: "unused import", Severity: SeverityWarning}}, res.Issues)
	require.Equal(t, []Suggestion{{Description: "memoize", Priority: PriorityMedium}}, res.Suggestions)
	require.Equal(t, QualityGood, res.OverallQuality)
}

func TestNormalizeReviewEmpty(t *testing.T) {
	res := Normalize(KindReview, []byte(`{"choices":[]}`), "GROQ API").(ReviewResult)
	require.Equal(t, []Issue{{Description: "No response from GROQ API", Severity: SeverityError}}, res.Issues)
	require.Empty(t, res.Suggestions)
	require.True(t, res.Failed())
}

func TestNormalizeChatMetadata(t *testing.T) {
	raw := []byte(`{"model":"llama3-8b-8192","usage":{"total_tokens":12},"choices":[{"message":{"content":"hi there"}}]}`)
	res := Normalize(KindChat, raw, "").(ChatResult)
	require.Equal(t, "hi there", res.Response)
	require.Equal(t, "llama3-8b-8192", res.Metadata["model"])
	require.Equal(t, map[string]interface{}{"total_tokens": float64(12)}, res.Metadata["usage"])

	bare := Normalize(KindChat, []byte(`{"choices":[{"message":{"content":"x"}}]}`), "").(ChatResult)
	require.Equal(t, "", bare.Metadata["model"])
	require.Equal(t, map[string]interface{}{}, bare.Metadata["usage"])
}

func TestNormalizeChatEmpty(t *testing.T) {
	res := Normalize(KindChat, []byte(`{}`), "GROQ API").(ChatResult)
	require.Equal(t, "No response from GROQ API", res.Response)
	require.Equal(t, map[string]interface{}{"error": "Empty response"}, res.Metadata)
}

func TestExtractJSONObject(t *testing.T) {
	obj, ok := ExtractJSONObject("Here you go:\n{\"framework\": \"React\"}\nThanks")
	require.True(t, ok)
	require.JSONEq(t, `{"framework":"React"}`, obj)

	obj, ok = ExtractJSONObject("{'framework': 'Vue', 'typescript': true,}")
	require.True(t, ok)
	require.JSONEq(t, `{"framework":"Vue","typescript":true}`, obj)

	_, ok = ExtractJSONObject("no braces here")
	require.False(t, ok)
}

func completionBody(t *testing.T, content string) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"choices": []interface{}{
			map[string]interface{}{"message": map[string]interface{}{"role": "assistant", "content": content}},
		},
	})
	require.NoError(t, err)
	return raw
}
