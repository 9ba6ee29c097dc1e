package learning

import (
	"strings"
	"unicode"
)

// SplitSentences splits text at sentence-ending punctuation followed by
// whitespace or the end of the text. Empty sentences are dropped and each
// sentence keeps its terminator.
func SplitSentences(text string) []string {
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
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// imperativeStarters are the leading words that make a sentence an
// instruction. Multi-word starters are matched on their first word plus the
// remainder.
var imperativeStarters = map[string]bool{
	"use": true, "never": true, "always": true, "prefer": true, "avoid": true,
	"keep": true, "remember": true, "verify": true, "repeat": true, "continue": true,
	"try": true, "check": true, "run": true, "add": true, "return": true,
	"switch": true, "stop": true, "make": true, "ensure": true, "write": true,
	"call": true, "put": true, "pass": true, "wrap": true, "handle": true,
	"test": true, "validate": true, "read": true, "set": true, "remove": true,
	"replace": true, "split": true, "move": true, "rename": true, "extract": true,
	"skip": true, "ask": true, "confirm": true, "follow": true, "stick": true,
	"go": true, "apply": true, "include": true, "list": true, "log": true,
	"mock": true, "cache": true, "retry": true, "store": true, "update": true,
	"fix": true, "implement": true, "refactor": true, "create": true, "delete": true,
	"change": true, "build": true, "install": true, "pin": true, "document": true,
	"commit": true, "push": true, "inline": true, "simplify": true, "reuse": true,
	"treat": true, "expect": true, "assume": true, "look": true, "wait": true,
	"favor": true, "favour": true, "default": true, "limit": true, "guard": true,
}

// IsImperative reports whether sentence reads as an instruction: it starts
// with a known imperative verb, "do not", "don't" or "please".
func IsImperative(sentence string) bool {
	fields := strings.FieldsFunc(strings.ToLower(sentence), func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ':' || r == ';'
	})
	for len(fields) > 0 && (fields[0] == "please" || fields[0] == "just") {
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return false
	}
	first := strings.Trim(fields[0], `"'“”‘’()*`)
	switch first {
	case "don't", "don’t", "dont":
		return true
	case "do":
		return len(fields) > 1 && fields[1] == "not"
	}
	return imperativeStarters[first]
}

// FirstImperative returns the first imperative sentence of text, or "".
func FirstImperative(text string) string {
	for _, s := range SplitSentences(text) {
		if IsImperative(s) {
			return s
		}
	}
	return ""
}
