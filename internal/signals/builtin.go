package signals

import (
	"regexp"

	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
)

// Shared fragments. Phrases stop at clause punctuation so a capture never
// runs into the next sentence. A dot followed by a non-space is part of an
// identifier (time.Sleep, errors.Is) and does not end a clause.
const (
	apos       = `['’]`
	phraseChar = `(?:[^,;.!?\n]|\.[^\s,;.!?])`
	phrase     = phraseChar + `{1,120}?`
	clauseEnd  = `\s*(?:[!?,;]|\.(?:\s|$)|$)`
	sentence   = `(?:[,;]|\.\s)`
	negation   = `(?:don` + apos + `?t|do not|never|stop|avoid|quit)`
	redirectTo = `(?P<redirect>use|try|switch to|go with|prefer|do)`
	affirm     = `(?:perfect|great|excellent|exactly right|exactly what I wanted|awesome|nice(?: work| job)?|love (?:it|this|that)|lgtm|looks good(?: to me)?|well done|good (?:job|call|work|catch)|spot on|much better|that` + apos + `?s (?:it|right|better|perfect)|yes,? exactly)`
	factChar   = `(?:[^.!?\n]|\.[^\s.!?])`
	factPhrase = factChar + `{3,160}`
	wrongClaim = `(?:that` + apos + `?s|this is|it` + apos + `?s)\s+(?:wrong|incorrect|not (?:right|correct|what I (?:want|wanted|asked for)))`
)

// builtinRules are evaluated after custom rules, in this order. Classify
// keeps the most dominant category, so order only matters within one.
var builtinRules = []Rule{
	// --- Corrections ---
	{
		// "don't use A, use B instead"
		Name:     "correction.negate-redirect",
		Category: learning.CategoryCorrection,
		Turn:     learning.RoleUser,
		Pattern: regexp.MustCompile(`(?i)\b` + negation + `\s+(?:(?P<avoidverb>using|use)\s+)?(?P<avoid>` + phrase + `)` +
			`\s*(?:` + sentence + `|\s-+|\s+and|\s+but)\s*(?:(?:instead|rather|just|please|and)[,]?\s+)*` +
			redirectTo + `\s+(?P<prefer>` + phrase + `)(?:\s+instead)?` + clauseEnd),
	},
	{
		// "don't cache errors, just return them"
		Name:     "correction.negate-instead",
		Category: learning.CategoryCorrection,
		Turn:     learning.RoleUser,
		Pattern: regexp.MustCompile(`(?i)\b` + negation + `\s+(?:(?P<avoidverb>using|use)\s+)?(?P<avoid>` + phrase + `)` +
			`\s*` + sentence + `\s*(?:instead|just|rather)[,]?\s+(?P<prefer>` + phrase + `)` + clauseEnd),
	},
	{
		// "use B instead of A"
		Name:     "correction.instead-of",
		Category: learning.CategoryCorrection,
		Turn:     learning.RoleUser,
		Pattern: regexp.MustCompile(`(?i)\b(?P<redirect>use|try|prefer)\s+(?P<prefer>` + phrase + `)\s+(?:instead of|rather than)\s+` +
			`(?:(?P<avoidverb>using)\s+)?(?P<avoid>` + phrase + `)` + clauseEnd),
	},
	{
		// "prefer B over A"
		Name:     "correction.prefer-over",
		Category: learning.CategoryCorrection,
		Turn:     learning.RoleUser,
		Pattern: regexp.MustCompile(`(?i)\bprefer\s+(?P<prefer>` + phrase + `)\s+over\s+(?:(?P<avoidverb>using)\s+)?(?P<avoid>` + phrase + `)` + clauseEnd),
	},
	{
		// "rather than A, do B"
		Name:     "correction.rather-than",
		Category: learning.CategoryCorrection,
		Turn:     learning.RoleUser,
		Pattern: regexp.MustCompile(`(?i)(?:^|[.!?]\s+)(?:instead of|rather than)\s+(?:(?P<avoidverb>using)\s+)?(?P<avoid>` + phrase + `),\s*` +
			`(?:(?:just|please)\s+)*(?:(?P<redirect>use|try|do|go with)\s+)?(?P<prefer>` + phrase + `)` + clauseEnd),
	},
	{
		// "that's wrong, use B"
		Name:     "correction.wrong-redirect",
		Category: learning.CategoryCorrection,
		Turn:     learning.RoleUser,
		Pattern: regexp.MustCompile(`(?i)\b` + wrongClaim + `[^.!?\n]{0,40}?[,.;!:]?\s*(?:(?:instead|rather|just|please)[,]?\s+)*` +
			redirectTo + `\s+(?P<prefer>` + phrase + `)(?:\s+instead)?` + clauseEnd),
	},
	{
		// "that's wrong, instead return early"
		Name:     "correction.wrong-instead",
		Category: learning.CategoryCorrection,
		Turn:     learning.RoleUser,
		Pattern: regexp.MustCompile(`(?i)\b` + wrongClaim + `[^.!?\n]{0,40}?[,.;!:]?\s*(?:instead|rather)[,]?\s+(?:(?:just|please)\s+)*` +
			`(?P<prefer>` + phrase + `)` + clauseEnd),
	},
	{
		// "no, use B"
		Name:     "correction.no-redirect",
		Category: learning.CategoryCorrection,
		Turn:     learning.RoleUser,
		Pattern: regexp.MustCompile(`(?i)^\s*(?:no|nope|wrong)\b[,.!]*\s+(?:(?:just|please|instead)[,]?\s+)*` +
			redirectTo + `\s+(?P<prefer>` + phrase + `)(?:\s+instead)?` + clauseEnd),
	},
	{
		// "don't mock the database." in reply to an assistant action
		Name:     "correction.prohibition",
		Category: learning.CategoryCorrection,
		Turn:     learning.RoleUser,
		Pattern: regexp.MustCompile(`(?i)^\s*(?:no[,.!]*\s+)?(?:please\s+)?(?:don` + apos + `?t|do not|never|stop)\s+` +
			`(?:(?P<avoidverb>using|use)\s+)?(?P<avoid>` + phraseChar + `{2,120}?)` + clauseEnd),
		RequiresAssistant: true,
	},

	// --- Approved patterns ---
	{
		// "keep using table-driven tests"
		Name:     "approved.keep-doing",
		Category: learning.CategoryApprovedPattern,
		Turn:     learning.RoleUser,
		Pattern:  regexp.MustCompile(`(?i)\bkeep\s+(?P<redirect>doing|using)\s+(?P<action>` + phraseChar + `{2,100}?)` + clauseEnd),
	},
	{
		// "the table-driven tests are perfect"
		Name:     "approved.named-praise",
		Category: learning.CategoryApprovedPattern,
		Turn:     learning.RoleUser,
		Pattern: regexp.MustCompile(`(?i)\b(?:the|that|this|these|those|your)\s+(?P<action>[^,;.!?\n]{2,80}?)\s+(?:is|are|was|were|looks?)\s+` +
			`(?:(?:really|exactly|just|so|very)\s+)?(?:perfect|great|excellent|spot on|exactly right|exactly what I wanted|what I wanted|good|nice|much better|better)\b`),
	},
	{
		// "perfect!" after "I added retries to the client"
		Name:              "approved.affirm-action",
		Category:          learning.CategoryApprovedPattern,
		Turn:              learning.RoleUser,
		Pattern:           regexp.MustCompile(`(?i)\b` + affirm + `\b`),
		RequiresAssistant: true,
	},

	// --- Observations ---
	{
		Name:     "observation.turns-out",
		Category: learning.CategoryObservation,
		Turn:     learning.RoleUser,
		Pattern:  regexp.MustCompile(`(?i)\bturns out,?\s+(?:that\s+)?(?P<fact>` + factPhrase + `)`),
	},
	{
		Name:     "observation.discovered",
		Category: learning.CategoryObservation,
		Turn:     learning.RoleUser,
		Pattern: regexp.MustCompile(`(?i)\b(?:I|we)\s+(?:just\s+)?(?:found out|(?:found|discovered|learned|noticed|realized|realised)\s+that)\s+` +
			`(?:that\s+)?(?P<fact>` + factPhrase + `)`),
	},
	{
		Name:     "observation.note",
		Category: learning.CategoryObservation,
		Turn:     learning.RoleUser,
		Pattern:  regexp.MustCompile(`(?i)(?:^|\n)\s*(?:note|heads[- ]up|fyi|gotcha|caveat)\s*:\s*(?P<fact>` + factPhrase + `)`),
	},
	{
		Name:     "observation.apparently",
		Category: learning.CategoryObservation,
		Turn:     learning.RoleUser,
		Pattern:  regexp.MustCompile(`(?i)\bapparently,?\s+(?P<fact>` + factPhrase + `)`),
	},
	{
		Name:     "observation.failure-cause",
		Category: learning.CategoryObservation,
		Turn:     learning.RoleUser,
		Pattern: regexp.MustCompile(`(?i)(?:^|[.!?]\s+)(?P<fact>` + factChar + `{3,120}?\b(?:fails?|failed|failing|errors?|errored|breaks?|broke|crash(?:es|ed)?|times out|timed out|hangs|hung)\b` +
			factChar + `{0,60}?\s+because\s+` + factChar + `{3,120})`),
	},
	{
		Name:     "observation.turns-out.assistant",
		Category: learning.CategoryObservation,
		Turn:     learning.RoleAssistant,
		Pattern:  regexp.MustCompile(`(?i)\bturns out,?\s+(?:that\s+)?(?P<fact>` + factPhrase + `)`),
	},
	{
		Name:     "observation.discovered.assistant",
		Category: learning.CategoryObservation,
		Turn:     learning.RoleAssistant,
		Pattern: regexp.MustCompile(`(?i)\b(?:I|we)\s+(?:just\s+)?(?:found out|(?:found|discovered|learned|noticed|realized|realised)\s+that)\s+` +
			`(?:that\s+)?(?P<fact>` + factPhrase + `)`),
	},
	{
		Name:     "observation.failure-cause.assistant",
		Category: learning.CategoryObservation,
		Turn:     learning.RoleAssistant,
		Pattern: regexp.MustCompile(`(?i)(?:^|[.!?]\s+)(?P<fact>` + factChar + `{3,120}?\b(?:fails?|failed|failing|errored|broke|crash(?:es|ed)?|times out|timed out|hangs|hung)\b` +
			factChar + `{0,60}?\s+because\s+` + factChar + `{3,120})`),
	},
}

// Cue patterns. A bare cue is a whole user turn with nothing to name.
var (
	bareNegation = regexp.MustCompile(`(?i)^\s*(?:(?:no+|nope|wait|hold on|hang on|stop|not quite|wrong|hmm+|actually|` +
		`that` + apos + `?s (?:wrong|not (?:it|right))|not like that)[\s,.!]*)+$`)
	bareAffirmation = regexp.MustCompile(`(?i)^\s*(?:(?:yes|yeah|yep|ok(?:ay)?|oh|wow)[,!.]?\s+)?` + affirm + `[\s!.]*$`)

	// cueRedirect completes a pending negation: "use B", "try B instead".
	cueRedirect = regexp.MustCompile(`(?i)^\s*(?:(?:ok|so|then|instead|just|please|rather)[,]?\s+)*` + redirectTo +
		`\s+(?P<prefer>` + phrase + `)(?:\s+instead)?` + clauseEnd)

	// sentiment marks a user reply that reacts to the previous turn either way.
	sentiment = regexp.MustCompile(`(?i)\b(?:` + affirm + `|` + negation + `|no|nope|wrong|but|however|thanks?|thank you)\b`)

	// cueNaming completes a pending affirmation: "I mean the retry helper".
	cueNaming = regexp.MustCompile(`(?i)^\s*(?:I mean(?:t)?|specifically|especially|particularly|mainly|the part where you|the way you)[,:]?\s+` +
		`(?:the\s+(?:way|part where)\s+you\s+)?(?P<action>[^.!?\n]{2,100}?)[\s.!?]*$`)
)
