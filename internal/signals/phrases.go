package signals

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// verbForms maps inflected verbs to their base form. Base forms map to
// themselves so membership doubles as a "starts with a verb" test.
var verbForms = map[string]string{}

func init() {
	for base, forms := range map[string][]string{
		"add":        {"added", "adding", "adds"},
		"avoid":      {"avoided", "avoiding"},
		"build":      {"built", "building"},
		"cache":      {"cached", "caching"},
		"call":       {"called", "calling"},
		"change":     {"changed", "changing"},
		"check":      {"checked", "checking"},
		"convert":    {"converted", "converting"},
		"create":     {"created", "creating"},
		"delete":     {"deleted", "deleting"},
		"drop":       {"dropped", "dropping"},
		"extract":    {"extracted", "extracting"},
		"fix":        {"fixed", "fixing"},
		"hardcode":   {"hardcoded", "hardcoding"},
		"implement":  {"implemented", "implementing"},
		"inline":     {"inlined", "inlining"},
		"introduce":  {"introduced", "introducing"},
		"keep":       {"kept", "keeping"},
		"make":       {"made", "making"},
		"mock":       {"mocked", "mocking"},
		"move":       {"moved", "moving"},
		"parse":      {"parsed", "parsing"},
		"pass":       {"passed", "passing"},
		"poll":       {"polled", "polling"},
		"put":        {"putting"},
		"refactor":   {"refactored", "refactoring"},
		"remove":     {"removed", "removing"},
		"rename":     {"renamed", "renaming"},
		"replace":    {"replaced", "replacing"},
		"return":     {"returned", "returning"},
		"rewrite":    {"rewrote", "rewriting", "rewritten"},
		"run":        {"ran", "running"},
		"set":        {"setting"},
		"simplify":   {"simplified", "simplifying"},
		"skip":       {"skipped", "skipping"},
		"split":      {"splitting"},
		"store":      {"stored", "storing"},
		"switch":     {"switched", "switching"},
		"test":       {"tested", "testing"},
		"update":     {"updated", "updating"},
		"use":        {"used", "using"},
		"validate":   {"validated", "validating"},
		"wrap":       {"wrapped", "wrapping"},
		"write":      {"wrote", "writing", "written"},
		"commit":     {"committed", "committing"},
		"push":       {"pushed", "pushing"},
		"hit":        {"hitting"},
		"log":        {"logged", "logging"},
		"ignore":     {"ignored", "ignoring"},
		"retry":      {"retried", "retrying"},
		"print":      {"printed", "printing"},
		"install":    {"installed", "installing"},
		"import":     {"imported", "importing"},
		"export":     {"exported", "exporting"},
		"document":   {"documented", "documenting"},
		"sort":       {"sorted", "sorting"},
		"edit":       {"edited", "editing"},
		"modify":     {"modified", "modifying"},
		"configure":  {"configured", "configuring"},
		"declare":    {"declared", "declaring"},
		"handle":     {"handled", "handling"},
		"reuse":      {"reused", "reusing"},
		"bump":       {"bumped", "bumping"},
		"pin":        {"pinned", "pinning"},
		"break":      {"broke", "breaking", "broken"},
		"squash":     {"squashed", "squashing"},
		"format":     {"formatted", "formatting"},
		"generate":   {"generated", "generating"},
		"guard":      {"guarded", "guarding"},
		"load":       {"loaded", "loading"},
		"emit":       {"emitted", "emitting"},
		"catch":      {"caught", "catching"},
		"throw":      {"threw", "throwing"},
		"panic":      {"panicked", "panicking"},
		"sleep":      {"slept", "sleeping"},
		"spawn":      {"spawned", "spawning"},
		"block":      {"blocked", "blocking"},
		"lock":       {"locked", "locking"},
		"share":      {"shared", "sharing"},
		"send":       {"sent", "sending"},
		"read":       {"reading"},
		"open":       {"opened", "opening"},
		"close":      {"closed", "closing"},
		"touch":      {"touched", "touching"},
		"clean":      {"cleaned", "cleaning"},
		"prefer":     {"preferred", "preferring"},
		"try":        {"tried", "trying"},
		"go":         {"went", "going"},
		"do":         {"did", "doing", "done"},
		"stub":       {"stubbed", "stubbing"},
		"wire":       {"wired", "wiring"},
		"group":      {"grouped", "grouping"},
		"batch":      {"batched", "batching"},
		"stream":     {"streamed", "streaming"},
		"buffer":     {"buffered", "buffering"},
		"escape":     {"escaped", "escaping"},
		"quote":      {"quoted", "quoting"},
		"encode":     {"encoded", "encoding"},
		"decode":     {"decoded", "decoding"},
		"benchmark":  {"benchmarked", "benchmarking"},
		"profile":    {"profiled", "profiling"},
		"subscribe":  {"subscribed", "subscribing"},
		"wait":       {"waited", "waiting"},
		"inject":     {"injected", "injecting"},
		"query":      {"queried", "querying"},
		"fetch":      {"fetched", "fetching"},
		"worry":      {"worried", "worrying"},
		"bother":     {"bothered", "bothering"},
		"mind":       {"minded", "minding"},
		"know":       {"knew", "knowing"},
		"think":      {"thought", "thinking"},
		"care":       {"cared", "caring"},
		"understand": {"understood", "understanding"},
		"see":        {"saw", "seeing", "seen"},
		"feel":       {"felt", "feeling"},
		"get":        {"got", "getting"},
	} {
		verbForms[base] = base
		for _, f := range forms {
			verbForms[f] = base
		}
	}
}

// baseVerb returns the base form of word if it is a known verb.
func baseVerb(word string) (string, bool) {
	base, ok := verbForms[strings.ToLower(word)]
	return base, ok
}

// firstWord splits phrase into its first word and the remainder.
func firstWord(phrase string) (string, string) {
	phrase = strings.TrimSpace(phrase)
	if i := strings.IndexFunc(phrase, unicode.IsSpace); i >= 0 {
		return phrase[:i], strings.TrimSpace(phrase[i:])
	}
	return phrase, ""
}

// startsWithVerb reports whether phrase begins with a known verb.
func startsWithVerb(phrase string) bool {
	w, _ := firstWord(phrase)
	_, ok := baseVerb(w)
	return ok
}

// toBaseForm rewrites a leading inflected verb to its base form:
// "added retries" becomes "add retries".
func toBaseForm(phrase string) string {
	w, rest := firstWord(phrase)
	base, ok := baseVerb(w)
	if !ok {
		return phrase
	}
	if rest == "" {
		return base
	}
	return base + " " + rest
}

// imperative builds an instruction from a redirect verb and its object.
// "use"/"switch to"/"go with" objects become "use X"; verb-led objects are
// kept as they are.
func imperative(verb, phrase string) string {
	phrase = cleanPhrase(phrase)
	if phrase == "" {
		return ""
	}
	switch strings.ToLower(strings.Join(strings.Fields(verb), " ")) {
	case "", "do", "doing", "just":
		if startsWithVerb(phrase) {
			return toBaseForm(phrase)
		}
		return "use " + phrase
	case "try", "trying":
		return "try " + phrase
	default:
		return "use " + phrase
	}
}

var (
	trailingNoise = regexp.MustCompile(`(?i)(?:\s+(?:instead|please|then|now|here|again|too|as well|for this|for that))+$`)
	leadingNoise  = regexp.MustCompile(`(?i)^(?:(?:just|please|also|then|maybe|simply|rather)\s+)+`)
)

// cleanPhrase trims whitespace, surrounding punctuation and filler words from
// a captured phrase.
func cleanPhrase(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	for {
		prev := s
		s = strings.Trim(s, " ,;:.!?\"'“”‘’()")
		s = trailingNoise.ReplaceAllString(s, "")
		s = leadingNoise.ReplaceAllString(s, "")
		if s == prev {
			return s
		}
	}
}

// capitalize upper-cases the first rune.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// lowerFirst lower-cases a leading capital unless the first word looks like
// an acronym or identifier ("API", "CI", "Go").
func lowerFirst(s string) string {
	w, _ := firstWord(s)
	if len(w) < 2 {
		return s
	}
	r, size := utf8.DecodeRuneInString(w)
	if !unicode.IsUpper(r) {
		return s
	}
	for _, rest := range w[size:] {
		if unicode.IsUpper(rest) || unicode.IsDigit(rest) {
			return s
		}
	}
	if _, ok := baseVerb(w); !ok && !commonSentenceStarts[strings.ToLower(w)] {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

var commonSentenceStarts = map[string]bool{
	"the": true, "a": true, "an": true, "this": true, "that": true, "these": true,
	"those": true, "it": true, "our": true, "your": true, "my": true, "some": true,
	"every": true, "all": true, "when": true, "if": true, "there": true,
}

// minClauseWords is the shortest leading clause that can stand as a title.
const minClauseWords = 3

var clauseBreak = regexp.MustCompile(`[,;:]\s|\s[-–—]+\s|\s\((?:e\.g|i\.e|see)\b`)

// leadClause returns the first clause of s when it is long enough to carry
// the meaning on its own, and all of s otherwise. Length is capped later by
// truncateTitle.
func leadClause(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if loc := clauseBreak.FindStringIndex(s); loc != nil {
		if head := strings.TrimSpace(s[:loc[0]]); len(strings.Fields(head)) >= minClauseWords {
			return head
		}
	}
	return strings.TrimRight(s, " ,;:")
}

// truncateTitle shortens s to at most max runes, cutting at a word boundary.
func truncateTitle(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:max])
	if i := strings.LastIndexFunc(cut, unicode.IsSpace); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:.-")
}

// genericActions are nouns too vague to name what was approved.
var genericActions = map[string]bool{
	"it": true, "this": true, "that": true, "approach": true, "one": true,
	"change": true, "changes": true, "fix": true, "solution": true, "idea": true,
	"work": true, "answer": true, "version": true, "result": true, "output": true,
	"code": true, "thing": true, "stuff": true, "job": true, "response": true,
	"last one": true, "new one": true, "update": true, "edit": true,
}

// isNameable reports whether an approved action is specific enough to repeat.
func isNameable(action string) bool {
	action = strings.ToLower(cleanPhrase(action))
	if action == "" {
		return false
	}
	for _, article := range []string{"the ", "this ", "that ", "your ", "my "} {
		action = strings.TrimPrefix(action, article)
	}
	return !genericActions[action]
}

var assistantActionPattern = regexp.MustCompile(
	`(?i)(?:^|[.!?:]\s+|\n\s*)` +
		`(?:(?:ok(?:ay)?|sure|done|alright|got it)[,!.]?\s+)?` +
		`(?:(?:I|I['’]ve|I have|I['’]ll|I will|I['’]m|we['’]ve|let me|now I)\s+)?` +
		`(?:(?:just|also|now|then)\s+)?` +
		`(?P<verb>[A-Za-z]+)\s+(?P<rest>` + factChar + `{2,120})`)

// assistantAction extracts the first action statement from an assistant
// turn ("I added retries to the client"), normalized to an imperative
// ("add retries to the client").
func assistantAction(text string) string {
	for _, m := range assistantActionPattern.FindAllStringSubmatch(text, -1) {
		verb := m[assistantActionPattern.SubexpIndex("verb")]
		base, ok := baseVerb(verb)
		if !ok || base == "do" || base == "go" || base == "try" || idleVerbs[base] {
			continue
		}
		rest := cleanPhrase(m[assistantActionPattern.SubexpIndex("rest")])
		if rest == "" {
			continue
		}
		return base + " " + rest
	}
	return ""
}
