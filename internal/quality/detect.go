package quality

import (
	"regexp"
	"strings"
)

// stepsKeywords signal that reproduction steps are described inline.
// Matching is a heuristic over free text, not a parser: many reporters
// embed steps in the description rather than the dedicated field, and a
// field-presence check alone produces false negatives.
var stepsKeywords = []string{
	"steps", "step", "reproduce", "reproduction", "step by step", "step-by-step",
	"how to", "procedure", "instructions", "to reproduce",
	"first", "second", "third", "then", "next",
	"follow these", "do this", "click", "navigate", "go to",
}

// numberedStepPattern matches a numbered-list item such as "1. Open app".
var numberedStepPattern = regexp.MustCompile(`\b\d+\.\s`)

// HasStepsToReproduce reports whether the lower-cased free text contains a
// reproduction-steps signal: a keyword from the fixed list or a numbered
// list item.
func HasStepsToReproduce(text string) bool {
	for _, kw := range stepsKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return numberedStepPattern.MatchString(text)
}

// loginKeywords signal that customer credentials or account identifiers
// are present in the free text.
var loginKeywords = []string{
	"login", "username", "user name", "email", "account", "user id", "userid",
	"customer id", "customerid", "credential", "password", "auth", "authentication",
	"sign in", "signin", "log in", "account number", "member id", "memberid",
}

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// HasLoginDetails reports whether the lower-cased free text mentions
// customer login details, either via a keyword or an email address.
func HasLoginDetails(text string) bool {
	for _, kw := range loginKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return emailPattern.MatchString(text)
}
