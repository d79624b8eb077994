package generation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cuongbtq/quizforge/internal/domain"
)

// ExtractJSONObject returns the balanced {...} block that starts at the first
// brace of text. Braces inside JSON strings are ignored. Output cut off before
// that block closes has no object, even when a nested one is complete.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	end, ok := matchBrace(text, start)
	if !ok {
		return "", false
	}
	return text[start : end+1], true
}

func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

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
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// rawFact tolerates numeric ids, which models emit often
type rawFact struct {
	ID          json.RawMessage `json:"id"`
	Text        string          `json:"text"`
	IsTrue      *bool           `json:"isTrue"`
	Explanation string          `json:"explanation"`
}

type rawFacts struct {
	Questions []rawFact `json:"questions"`
}

// ParseFacts extracts and decodes the facts object from a model response
func ParseFacts(text string) ([]domain.Fact, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewGenerationBackendError("empty response", nil)
	}

	block, ok := ExtractJSONObject(text)
	if !ok {
		return nil, domain.NewGenerationBackendError("no JSON object in response", nil)
	}

	var raw rawFacts
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return nil, domain.NewGenerationBackendError("malformed JSON in response", err)
	}

	facts := make([]domain.Fact, 0, len(raw.Questions))
	for _, r := range raw.Questions {
		facts = append(facts, domain.Fact{
			ID:          normalizeID(r.ID),
			Text:        strings.TrimSpace(r.Text),
			IsTrue:      r.IsTrue,
			Explanation: strings.TrimSpace(r.Explanation),
		})
	}
	return facts, nil
}

func normalizeID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return fmt.Sprintf("%s", raw)
}
