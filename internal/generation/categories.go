package generation

import (
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// maxSpecialInputLen is the longest input still treated as a category request.
// Anything longer is assumed to be real study material.
const maxSpecialInputLen = 50

// Category tags
const (
	CategoryRiddles     = "riddles"
	CategoryVocabulary  = "vocabulary"
	CategoryKanji       = "kanji"
	CategoryProgramming = "programming"
	CategoryTrivia      = "trivia"
)

// Category is a short, keyword-recognized generation mode with its own prompt
type Category struct {
	Tag      string
	Keywords []string
	// Template takes the question count and the difficulty
	Template string
	// Transform decides what part of the user's input survives into the prompt.
	// An empty result discards the input.
	Transform func(content string) string
}

func keepInput(content string) string {
	return strings.TrimSpace(content)
}

func discardInput(string) string {
	return ""
}

var categories = []Category{
	{
		Tag:       CategoryRiddles,
		Keywords:  []string{"riddle", "puzzle", "brainteaser"},
		Template:  "Write %d clever riddle-style statements at %s difficulty. Each statement describes a riddle and a proposed answer that is either right or wrong.",
		Transform: discardInput,
	},
	{
		Tag:       CategoryVocabulary,
		Keywords:  []string{"vocabulary", "vocab", "words", "definitions"},
		Template:  "Write %d statements at %s difficulty, each pairing a word with a definition that is either accurate or subtly wrong.",
		Transform: keepInput,
	},
	{
		Tag:       CategoryKanji,
		Keywords:  []string{"kanji", "漢字", "jlpt"},
		Template:  "Write %d statements at %s difficulty, each giving a kanji with a reading or meaning that is either correct or incorrect.",
		Transform: keepInput,
	},
	{
		Tag:       CategoryProgramming,
		Keywords:  []string{"programming", "coding", "golang", "python", "javascript", "algorithms"},
		Template:  "Write %d statements at %s difficulty about programming concepts, language behavior and common pitfalls.",
		Transform: keepInput,
	},
	{
		Tag:       CategoryTrivia,
		Keywords:  []string{"trivia", "random", "general knowledge", "anything"},
		Template:  "Write %d general-knowledge trivia statements at %s difficulty across history, science, geography and culture.",
		Transform: discardInput,
	},
}

// Categories returns the closed table of special categories
func Categories() []Category {
	return categories
}

// LookupCategory returns the category with the given tag
func LookupCategory(tag string) (Category, bool) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, c := range categories {
		if c.Tag == tag {
			return c, true
		}
	}
	return Category{}, false
}

// DetectCategory matches short inputs against the category keywords.
// Inputs longer than maxSpecialInputLen characters or containing a newline never match.
func DetectCategory(content string) (Category, bool) {
	content = strings.TrimSpace(content)
	if content == "" || strings.Contains(content, "\n") || utf8.RuneCountInString(content) > maxSpecialInputLen {
		return Category{}, false
	}

	lower := strings.ToLower(content)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?' || r == ':' || r == ';'
	})

	for _, c := range categories {
		for _, kw := range c.Keywords {
			if strings.Contains(kw, " ") || !isASCII(kw) {
				if strings.Contains(lower, kw) {
					return c, true
				}
				continue
			}
			for _, w := range words {
				if matchesKeyword(kw, w) {
					return c, true
				}
			}
		}
	}
	return Category{}, false
}

const (
	// maxSuffixLen covers plural and short inflected endings of a keyword
	maxSuffixLen = 2
	// minTypoKeywordLen keeps short keywords exact; a single edit turns
	// "words" into "swords" or "worlds"
	minTypoKeywordLen = 6
)

// matchesKeyword accepts the keyword, the keyword followed by a short ending
// ("riddles"), or for longer keywords a single-letter typo that keeps the
// first letter ("programing").
func matchesKeyword(keyword, word string) bool {
	if strings.HasPrefix(word, keyword) {
		return len(word)-len(keyword) <= maxSuffixLen
	}
	if len(keyword) < minTypoKeywordLen || word == "" || word[0] != keyword[0] {
		return false
	}
	return fuzzy.LevenshteinDistance(keyword, word) <= 1
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
