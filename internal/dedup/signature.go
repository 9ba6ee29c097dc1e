package dedup

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
)

// contrastPrefix marks tokens that follow "instead of" or "rather than", so
// "use B instead of A" and "use A instead of B" do not collapse into the same
// set.
const contrastPrefix = "!"

// Signature is the normalized token set an entry or candidate is compared by.
type Signature struct {
	Tokens map[string]struct{}
}

// NewSignature builds a signature from a title and the first imperative
// sentence of a body.
func NewSignature(title, body string) Signature {
	sig := Signature{Tokens: make(map[string]struct{})}
	for _, tok := range Tokenize(title) {
		sig.Tokens[tok] = struct{}{}
	}
	for _, tok := range Tokenize(learning.FirstImperative(body)) {
		sig.Tokens[tok] = struct{}{}
	}
	return sig
}

// EntrySignature is the signature of a stored entry.
func EntrySignature(e learning.LearningEntry) Signature {
	return NewSignature(e.Title, e.Body)
}

// CandidateSignature is the signature of an extracted candidate.
func CandidateSignature(c learning.Candidate) Signature {
	return NewSignature(c.DraftTitle, c.DraftBody)
}

// Len returns the number of distinct tokens.
func (s Signature) Len() int { return len(s.Tokens) }

// Has reports whether tok is part of the signature.
func (s Signature) Has(tok string) bool {
	_, ok := s.Tokens[tok]
	return ok
}

var folder = cases.Fold()

// Tokenize normalizes text (NFKC, case folding), splits it on anything that
// is not a letter or digit, drops stop words and stems what remains. Single
// capital letters past the first word are kept as names ("approach B").
func Tokenize(text string) []string {
	text = norm.NFKC.String(text)
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var (
		out      []string
		contrast bool
	)
	for i, word := range raw {
		folded := folder.String(word)

		if i+1 < len(raw) {
			next := folder.String(raw[i+1])
			if (folded == "instead" && next == "of") || (folded == "rather" && next == "than") {
				contrast = true
			}
		}

		if stopWords[folded] && !(i > 0 && isSingleCapital(word)) {
			continue
		}
		tok := stem(folded)
		if contrast {
			tok = contrastPrefix + tok
		}
		out = append(out, tok)
	}
	return out
}

func isSingleCapital(word string) bool {
	r, size := utf8.DecodeRuneInString(word)
	return size == len(word) && unicode.IsUpper(r)
}

// stem strips common English inflections from words longer than four runes.
func stem(w string) string {
	if utf8.RuneCountInString(w) <= 4 {
		return w
	}
	switch {
	case strings.HasSuffix(w, "ies"):
		w = strings.TrimSuffix(w, "ies") + "y"
	case strings.HasSuffix(w, "ing"):
		w = strings.TrimSuffix(w, "ing")
	case strings.HasSuffix(w, "ed"):
		w = strings.TrimSuffix(w, "ed")
	case strings.HasSuffix(w, "es"):
		w = strings.TrimSuffix(w, "es")
	case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
		w = strings.TrimSuffix(w, "s")
	}
	if utf8.RuneCountInString(w) > 4 {
		w = strings.TrimSuffix(w, "e")
	}
	return w
}

// stopWords are function words plus the fixed phrasing of drafted entries.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"of": true, "to": true, "in": true, "on": true, "at": true, "for": true,
	"with": true, "by": true, "from": true, "as": true, "into": true, "about": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"it": true, "its": true, "this": true, "that": true, "these": true, "those": true,
	"do": true, "does": true, "not": true, "don": true, "t": true, "no": true,
	"use": true, "using": true, "instead": true, "rather": true, "than": true,
	"when": true, "whenever": true, "then": true, "so": true, "if": true,
	"please": true, "just": true, "also": true, "should": true, "must": true,
	"can": true, "will": true, "we": true, "you": true, "i": true, "me": true,
	"my": true, "our": true, "your": true, "they": true, "them": true,
	"there": true, "here": true, "only": true, "any": true, "all": true,
	"always": true, "never": true, "avoid": true, "prefer": true,
	"keep": true, "repeat": true, "remember": true, "verify": true, "stick": true,
	"unless": true, "otherwise": true, "told": true, "still": true,
}
