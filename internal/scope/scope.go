// Package scope decides whether a proposed task belongs to a project's
// declared scope. It is a pure keyword heuristic: explicit exclusions in
// the scope text win, otherwise Jaccard similarity between the scope's
// and the task's keyword sets decides.
package scope

import (
	"fmt"
	"regexp"
	"strings"
)

// Threshold below which a task counts as scope creep.
const Threshold = 0.3

var wordRE = regexp.MustCompile(`\b\w+\b`)

// exclusionPatterns capture phrases like "no auth" or "without docker"
// in a scope declaration.
var exclusionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`no\s+(\w+)`),
	regexp.MustCompile(`without\s+(\w+)`),
	regexp.MustCompile(`don't\s+(\w+)`),
	regexp.MustCompile(`exclude\s+(\w+)`),
	regexp.MustCompile(`not\s+including\s+(\w+)`),
}

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"that": true, "the": true, "to": true, "was": true, "will": true,
	"with": true, "this": true, "but": true, "they": true, "have": true,
	"had": true, "what": true, "when": true, "where": true, "who": true,
	"which": true, "why": true, "how": true, "all": true, "each": true,
	"every": true, "both": true, "few": true, "more": true, "most": true,
	"other": true, "some": true, "such": true, "no": true, "nor": true,
	"not": true, "only": true, "own": true, "same": true, "so": true,
	"than": true, "too": true, "very": true, "can": true, "just": true,
	"should": true, "now": true,
}

// Verdict is the outcome of a scope check.
type Verdict struct {
	IsCreep    bool
	Reason     string
	Similarity float64
}

// Check compares a task description against the project scope.
func Check(scopeText, taskDescription string) Verdict {
	if item, ok := excludedItem(scopeText, taskDescription); ok {
		return Verdict{
			IsCreep: true,
			Reason:  fmt.Sprintf("Explicitly excluded: %s", item),
		}
	}

	sim := Similarity(Keywords(scopeText), Keywords(taskDescription))
	if sim < Threshold {
		return Verdict{
			IsCreep:    true,
			Reason:     fmt.Sprintf("Low relevance to original scope (similarity: %.2f)", sim),
			Similarity: sim,
		}
	}
	return Verdict{
		Reason:     fmt.Sprintf("Within scope (similarity: %.2f)", sim),
		Similarity: sim,
	}
}

// Exclusions lists the items a scope declaration explicitly rules out.
func Exclusions(scopeText string) []string {
	lower := strings.ToLower(scopeText)
	var out []string
	for _, re := range exclusionPatterns {
		for _, m := range re.FindAllStringSubmatch(lower, -1) {
			out = append(out, m[1])
		}
	}
	return out
}

func excludedItem(scopeText, taskDescription string) (string, bool) {
	task := strings.ToLower(taskDescription)
	for _, item := range Exclusions(scopeText) {
		if strings.Contains(task, item) {
			return item, true
		}
	}
	return "", false
}

// Keywords extracts the meaningful words from text: lowercase, longer
// than two characters, not a stop word.
func Keywords(text string) []string {
	var out []string
	for _, w := range wordRE.FindAllString(strings.ToLower(text), -1) {
		if len(w) > 2 && !stopWords[w] {
			out = append(out, w)
		}
	}
	return out
}

// Similarity is the Jaccard coefficient of two keyword lists. Either
// list empty scores zero.
func Similarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]bool, len(a))
	for _, w := range a {
		setA[w] = true
	}
	setB := make(map[string]bool, len(b))
	for _, w := range b {
		setB[w] = true
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
