// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"text/template"
)

// JSONMarker is the sentinel the prompt ends with. Model output after it is
// the JSON record.
const JSONMarker = "<JSON>"

// rawPreviewLen bounds the raw text kept in error records.
const rawPreviewLen = 200

// Error kinds written to the "error" field of a summary record.
const (
	ErrNoJSON      = "no_json_found"
	ErrDecode      = "decode_error"
	ErrCallFailed  = "call_failed"
	ErrCallTimeout = "timeout"
)

var reviewPromptTmpl = template.Must(template.New("review").Parse(`
You are analyzing player reviews. Follow the rules strictly.

HERE IS THE REVIEW:
{{.Review}}
END REVIEW.

Extract structured insights and return valid JSON with these keys:
- original_review: the review text
- summary: one-sentence summary of the opinion
- likes: what the player liked most
- dislikes: what the player disliked most
- task: specific technical or design task if explicitly mentioned, else "None"
- confidence: a number from 0.0 to 1.0 showing how confident you are that the "task" field is correct,
  based only on explicit evidence in the review (1.0 = fully clear, 0.0 = pure guess)

When identifying the "task" field:
- If the review directly mentions a technical or gameplay issue (e.g., desync, lag, crashes, unbalanced weapons),
  infer the most relevant and specific developer action that would resolve that issue
  (e.g., "optimize server synchronization" or "rebalance weapon damage curves").
- If the review expresses only vague dissatisfaction with no identifiable issue, set task="None".
- Do NOT invent tasks unrelated to concrete problems.

Rules:
- Never infer a task that is not clearly described.
- If no task is mentioned, set task="None" and confidence=0.0.
- Do NOT include markdown, code fences, or extra commentary.

Some reviews carry no actionable data. An empty task is allowed then, but it must not be the default:
decide carefully whether the review suggests a development task.

Now return the JSON object (nothing else). Begin immediately after the marker <JSON>:
<JSON>
`))

// RenderPrompt builds the per-review extraction prompt.
func RenderPrompt(review string) (string, error) {
	var buf bytes.Buffer
	if err := reviewPromptTmpl.Execute(&buf, struct{ Review string }{Review: review}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var firstObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// bareLiterals maps literals models emit outside JSON strings to their
// JSON form.
var bareLiterals = map[string]string{
	"None":  `"None"`,
	"True":  "true",
	"False": "false",
}

// Normalize turns raw model output into one compact JSON line. Code fences
// are stripped, only text after JSONMarker is kept, and the outermost
// {...} block is decoded after rewriting bare None, True and False. Output
// that holds no object or fails to decode yields an error record carrying
// the first 200 characters of the text.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	if _, after, ok := strings.Cut(s, JSONMarker); ok {
		s = strings.TrimSpace(after)
	}

	block := firstObjectRe.FindString(s)
	if block == "" {
		return errorRecord(ErrNoJSON, s)
	}
	block = FixBareLiterals(block)

	var obj map[string]any
	if err := json.Unmarshal([]byte(block), &obj); err != nil {
		return errorRecord(ErrDecode, block)
	}
	return compact(obj)
}

// FixBareLiterals rewrites None, True and False appearing outside JSON
// strings. Quoted occurrences such as "None" are left alone.
func FixBareLiterals(s string) string {
	var b strings.Builder
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
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if isIdentByte(c) && (i == 0 || !isIdentByte(s[i-1])) {
			j := i
			for j < len(s) && isIdentByte(s[j]) {
				j++
			}
			word := s[i:j]
			if repl, ok := bareLiterals[word]; ok {
				word = repl
			}
			b.WriteString(word)
			i = j - 1
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func errorRecord(kind, raw string) string {
	return compact(map[string]any{"error": kind, "raw": preview(raw)})
}

func preview(s string) string {
	r := []rune(s)
	if len(r) > rawPreviewLen {
		r = r[:rawPreviewLen]
	}
	return string(r)
}

// compact encodes v on one line without HTML escaping.
func compact(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return `{"error":"encode_error"}`
	}
	return strings.TrimRight(buf.String(), "\n")
}
