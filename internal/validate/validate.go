// Package validate implements the dynamic-first content policy check:
// the opening seconds of a generated video prompt must avoid static
// product descriptions and contain at least one strong motion, physics,
// or camera cue.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// Outcome is the result of a policy check. It is recomputed on demand
// and never persisted.
type Outcome struct {
	Passed  bool     `json:"passed"`
	Reasons []string `json:"reasons"`
}

// bannedPhrases are static-description phrasings forbidden in the
// opening segment.
var bannedPhrases = []string{
	"is placed",
	"stands",
	"sits",
	"is shown",
	"is displayed",
	"is on",
}

// dynamicKeywords are cues of strong motion, physics, or camera work;
// at least one must appear in the opening segment.
var dynamicKeywords = []string{
	"fast dolly",
	"rapid orbit",
	"handheld shake",
	"whip pan",
	"water",
	"explod",
	"grab",
	"drops",
	"transformation",
	"wind blowing",
	"smoke swirling",
	"light streaks",
}

// openingSegmentRE captures the text between the [0-4s] marker and the
// next segment marker (or end of text). Matching runs on lowercased
// input, so the markers are spelled lowercase here.
var openingSegmentRE = regexp.MustCompile(`(?s)\[0-4s\](.*?)(?:\[4-8s\]|\[8-12s\]|$)`)

const fallbackLines = 5

// Check evaluates whether the prompt's opening segment follows the
// dynamic-first policy. It is pure and deterministic: the same input
// always yields the same outcome.
func Check(promptText string) Outcome {
	reasons := []string{}

	if strings.TrimSpace(promptText) == "" {
		return Outcome{Passed: false, Reasons: []string{"prompt is empty"}}
	}

	segment := openingSegment(strings.ToLower(promptText))

	for _, phrase := range bannedPhrases {
		if strings.Contains(segment, phrase) {
			reasons = append(reasons, fmt.Sprintf("contains banned static phrase: %q", phrase))
		}
	}

	hasCue := false
	for _, kw := range dynamicKeywords {
		if strings.Contains(segment, kw) {
			hasCue = true
			break
		}
	}
	if !hasCue {
		reasons = append(reasons, "opening lacks a strong action, physics, or camera movement cue")
	}

	return Outcome{Passed: len(reasons) == 0, Reasons: reasons}
}

// openingSegment locates the [0-4s] segment in the lowercased prompt,
// falling back to the first few lines when no marker exists.
func openingSegment(lower string) string {
	if m := openingSegmentRE.FindStringSubmatch(lower); m != nil {
		return m[1]
	}
	lines := strings.Split(lower, "\n")
	if len(lines) > fallbackLines {
		lines = lines[:fallbackLines]
	}
	return strings.Join(lines, "\n")
}
