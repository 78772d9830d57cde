package backend

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/BaSui01/courtflow/workflow"
)

var topicPrefixes = []string{
	"tell me about",
	"put on trial",
	"what about",
	"who was",
	"who is",
	"what was",
	"what is",
	"analyse",
	"analyze",
}

// ExtractTopic pulls the subject out of free-text input, e.g.
// "Tell me about Marie Curie?" yields "Marie Curie".
func ExtractTopic(input string) string {
	s := strings.Join(strings.Fields(input), " ")
	for {
		lower := strings.ToLower(s)
		stripped := false
		for _, p := range topicPrefixes {
			if lower == p {
				return ""
			}
			if strings.HasPrefix(lower, p+" ") {
				s = strings.TrimSpace(s[len(p):])
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) && r != ')' && r != '"'
	})
}

// ExtractStatements splits a research summary into candidate evidence items.
// "Page:" header lines are skipped and fragments shorter than 20 characters
// are dropped.
func ExtractStatements(summary string, maxChars int) []string {
	var out []string
	for _, line := range strings.Split(summary, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Page:") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "Summary:"))
		for _, s := range splitSentences(line) {
			s = strings.Join(strings.Fields(s), " ")
			if utf8.RuneCountInString(s) < 20 {
				continue
			}
			out = append(out, truncate(s, maxChars))
		}
	}
	return out
}

func splitSentences(text string) []string {
	var (
		out   []string
		start int
	)
	runes := []rune(text)
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		out = append(out, string(runes[start:i+1]))
		start = i + 1
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:maxChars-1])) + "…"
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// RenderReport formats the verdict. The text is never empty, even when no
// evidence was gathered.
func RenderReport(snap workflow.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Historical Court Verdict: %s\n\n", snap.Topic)

	b.WriteString("1) Achievements\n")
	writeBullets(&b, snap.PositiveEvidence)
	b.WriteString("\n2) Controversies and Criticism\n")
	writeBullets(&b, snap.NegativeEvidence)

	b.WriteString("\n3) Neutral Conclusion\n")
	pos, neg := len(snap.PositiveEvidence), len(snap.NegativeEvidence)
	fmt.Fprintf(&b, "The court examined %d achievements and %d points of criticism concerning %s "+
		"over %d investigation rounds.\n", pos, neg, snap.Topic, max(snap.PositiveRoundCount, snap.NegativeRoundCount))
	switch {
	case pos == 0 && neg == 0:
		b.WriteString("No evidence could be gathered; the record is inconclusive.\n")
	case pos > neg:
		b.WriteString("The record leans toward lasting contributions, though the criticisms above remain part of a balanced assessment.\n")
	case neg > pos:
		b.WriteString("The record shows substantial controversy, which should be weighed alongside the achievements listed above.\n")
	default:
		b.WriteString("Achievements and criticisms are evenly represented; neither side dominates the historical record.\n")
	}
	return b.String()
}

func writeBullets(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString("- (no evidence recorded)\n")
		return
	}
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
}
