package service

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const minTermLength = 3

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {}, "all": {},
	"any": {}, "can": {}, "had": {}, "her": {}, "was": {}, "one": {}, "our": {}, "out": {},
	"has": {}, "have": {}, "his": {}, "how": {}, "its": {}, "it's": {}, "may": {}, "new": {},
	"now": {}, "see": {}, "two": {}, "who": {}, "did": {}, "get": {}, "got": {}, "let": {},
	"she": {}, "too": {}, "use": {}, "this": {}, "that": {}, "with": {}, "from": {}, "they": {},
	"them": {}, "then": {}, "than": {}, "there": {}, "their": {}, "what": {}, "when": {},
	"which": {}, "would": {}, "could": {}, "should": {}, "very": {}, "just": {}, "also": {},
	"been": {}, "were": {}, "will": {}, "your": {}, "into": {}, "more": {}, "some": {},
	"such": {}, "only": {}, "other": {}, "about": {}, "after": {}, "over": {}, "because": {},
	"really": {}, "much": {}, "even": {}, "i'm": {}, "don't": {}, "didn't": {}, "doesn't": {},
	"isn't": {}, "wasn't": {}, "can't": {}, "i've": {},
}

// newTermFolder builds the normalisation chain applied to review text before
// tokenising. Transformers are stateful, so each caller gets its own chain.
func newTermFolder() transform.Transformer {
	return transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
		cases.Fold(),
	)
}

// ComputeTermFrequencies ranks review words of promoters (Positive) against those of
// passives and detractors (Negative), the data behind feedback word clouds.
func ComputeTermFrequencies(responses []SurveyResponse, asg Assignments, k int) TermCloud {
	folder := newTermFolder()
	pos, neg := newRankCounter(), newRankCounter()

	for i, r := range responses {
		if !asg.valid(i) || strings.TrimSpace(r.ReviewText) == "" {
			continue
		}
		c := neg
		if asg.Categories[i] == Promoter {
			c = pos
		}
		for _, term := range tokenize(folder, r.ReviewText) {
			c.add(term)
		}
	}
	return TermCloud{Positive: pos.top(k), Negative: neg.top(k)}
}

func tokenize(folder transform.Transformer, text string) []string {
	folder.Reset()
	folded, _, err := transform.String(folder, strings.ToValidUTF8(text, ""))
	if err != nil {
		folded = strings.ToLower(text)
	}

	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\'' && r != '’'
	})

	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(strings.ReplaceAll(f, "’", "'"), "'")
		if utf8.RuneCountInString(f) < minTermLength {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}
