package signals

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
)

// maxTurnLength bounds the text a rule is matched against.
const maxTurnLength = 16 * 1024

// Match is a classified exchange. The phrase fields are filled according to
// the category: Avoid/Prefer for corrections, Action for approved patterns,
// Fact for observations.
type Match struct {
	Category learning.Category
	Rule     string
	Evidence learning.Span

	// Avoid is what the user rejected. AvoidIsAction is set when it is a
	// verb phrase ("mock the database") rather than a thing ("approach A").
	Avoid         string
	AvoidIsAction bool
	// Prefer is the instruction the user redirected to, in imperative form.
	Prefer string

	// Action is the approved behavior in imperative or noun-phrase form.
	Action string

	// Fact is the observed technical fact or friction point.
	Fact string

	// Title, Context and Body override drafting when a custom rule supplies
	// templates.
	Title   string
	Context string
	Body    string
}

// Classifier assigns at most one category to an exchange.
type Classifier interface {
	Classify(ex Exchange) (Match, bool)
}

// Rule is one ordered pattern. Named groups avoid, prefer, redirect,
// action and fact feed the match.
type Rule struct {
	Name     string
	Category learning.Category
	// Turn selects which side of the exchange the pattern reads.
	Turn    learning.Role
	Pattern *regexp.Regexp

	// RequiresAssistant restricts the rule to replies to an assistant turn.
	RequiresAssistant bool

	// Optional templates using ${group} expansion.
	TitleTemplate   string
	ContextTemplate string
	BodyTemplate    string
}

// RuleScope defines the hierarchy level a rule set applies to.
type RuleScope string

const (
	// RuleScopeProject applies rules at the project level (highest priority).
	RuleScopeProject RuleScope = "project"
	// RuleScopeUser applies rules from the user's own configuration.
	RuleScopeUser RuleScope = "user"
	// RuleScopeBuiltin is the default rule set.
	RuleScopeBuiltin RuleScope = "builtin"
)

// RuleClassifier evaluates ordered regex rules and returns the dominant
// match. Safe for concurrent use: rules are compiled at construction time
// and immutable.
type RuleClassifier struct {
	rules []Rule
}

// ClassifierOption configures a RuleClassifier.
type ClassifierOption func(*classifierConfig)

type classifierConfig struct {
	project []Rule
	user    []Rule
}

// WithScopedRules adds custom rules at a scope. Project rules are evaluated
// before user rules, and both before the built-ins.
func WithScopedRules(scope RuleScope, rules []Rule) ClassifierOption {
	return func(c *classifierConfig) {
		switch scope {
		case RuleScopeProject:
			c.project = append(c.project, rules...)
		case RuleScopeUser:
			c.user = append(c.user, rules...)
		}
	}
}

// NewRuleClassifier creates a classifier with the built-in rules and any
// scoped custom rules.
func NewRuleClassifier(opts ...ClassifierOption) *RuleClassifier {
	cfg := &classifierConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	rules := make([]Rule, 0, len(cfg.project)+len(cfg.user)+len(builtinRules))
	rules = append(rules, cfg.project...)
	rules = append(rules, cfg.user...)
	rules = append(rules, builtinRules...)
	return &RuleClassifier{rules: rules}
}

// Rules returns the rules in evaluation order.
func (c *RuleClassifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Classify gathers every rule match on the exchange and returns the one with
// the most dominant category. Among equal categories the earlier rule wins.
func (c *RuleClassifier) Classify(ex Exchange) (Match, bool) {
	var (
		best  Match
		found bool
	)
	for i := range c.rules {
		r := &c.rules[i]
		if found && r.Category.Rank() <= best.Category.Rank() {
			continue
		}
		m, ok := r.match(ex)
		if !ok {
			continue
		}
		best, found = m, true
	}
	return best, found
}

// match applies the rule to one side of the exchange.
func (r *Rule) match(ex Exchange) (Match, bool) {
	if r.RequiresAssistant && ex.Assistant == nil {
		return Match{}, false
	}
	text := ex.Text(r.Turn)
	if strings.TrimSpace(text) == "" {
		return Match{}, false
	}
	if len(text) > maxTurnLength {
		text = text[:maxTurnLength]
	}

	idx := r.Pattern.FindStringSubmatchIndex(text)
	if idx == nil {
		return Match{}, false
	}
	group := func(name string) string {
		i := r.Pattern.SubexpIndex(name)
		if i < 0 || idx[2*i] < 0 {
			return ""
		}
		return text[idx[2*i]:idx[2*i+1]]
	}

	m := Match{Category: r.Category, Rule: r.Name, Evidence: ex.Span()}

	switch r.Category {
	case learning.CategoryCorrection:
		avoid := cleanPhrase(group("avoid"))
		if avoid == "" && ex.Assistant != nil {
			avoid = assistantAction(ex.Assistant.Text)
		}
		m.Avoid, m.AvoidIsAction = splitAvoid(group("avoidverb"), avoid)
		m.Prefer = imperative(group("redirect"), group("prefer"))
		if m.Prefer == "" && m.AvoidIsAction && idleVerbs[strings.ToLower(strings.Fields(m.Avoid)[0])] {
			// "don't worry about it" is reassurance, not a correction.
			return Match{}, false
		}
		if m.Prefer == "" && m.Avoid == "" {
			return Match{}, false
		}

	case learning.CategoryApprovedPattern:
		if isNegatedAt(text, idx[0]) || isQualifiedAfter(text, idx[1]) {
			return Match{}, false
		}
		action := cleanPhrase(group("action"))
		if action != "" && !isNameable(action) {
			action = ""
		}
		if action != "" {
			if v := group("redirect"); v != "" || startsWithVerb(action) {
				action = imperative(v, action)
			}
		}
		if action == "" && ex.Assistant != nil {
			action = assistantAction(ex.Assistant.Text)
		}
		if action == "" {
			return Match{}, false
		}
		m.Action = action

	case learning.CategoryObservation:
		fact := cleanPhrase(group("fact"))
		if fact == "" {
			fact = cleanPhrase(text[idx[0]:idx[1]])
		}
		if len(strings.Fields(fact)) < 2 {
			return Match{}, false
		}
		m.Fact = fact

	default:
		return Match{}, false
	}

	if r.TitleTemplate != "" {
		m.Title = cleanPhrase(string(r.Pattern.ExpandString(nil, r.TitleTemplate, text, idx)))
	}
	if r.ContextTemplate != "" {
		m.Context = strings.TrimSpace(string(r.Pattern.ExpandString(nil, r.ContextTemplate, text, idx)))
	}
	if r.BodyTemplate != "" {
		m.Body = strings.TrimSpace(string(r.Pattern.ExpandString(nil, r.BodyTemplate, text, idx)))
	}
	return m, true
}

// splitAvoid normalizes the rejected phrase. "use X" collapses to the thing
// X; other verb phrases stay actions in base form.
func splitAvoid(consumedVerb, avoid string) (string, bool) {
	avoid = cleanPhrase(avoid)
	if avoid == "" {
		return "", false
	}
	if consumedVerb != "" {
		return avoid, false
	}
	w, rest := firstWord(avoid)
	if base, ok := baseVerb(w); ok {
		if base == "use" && rest != "" {
			return rest, false
		}
		return toBaseForm(avoid), true
	}
	return avoid, false
}

// idleVerbs never name a concrete action the user wants avoided.
var idleVerbs = map[string]bool{
	"worry": true, "bother": true, "mind": true, "know": true, "think": true,
	"care": true, "understand": true, "see": true, "feel": true, "get": true,
}

// isNegatedAt reports whether the affirmation at pos is preceded by a
// negation ("not great", "isn't perfect").
func isNegatedAt(text string, pos int) bool {
	start := pos - 8
	if start < 0 {
		start = 0
	}
	before := strings.ToLower(text[start:pos])
	return strings.Contains(before, "not ") || strings.Contains(before, "n't ") || strings.Contains(before, "n’t ")
}

// qualifier marks praise that is walked back later in the same turn.
var qualifier = regexp.MustCompile(`(?i)\b(?:but|however|though|although|except)\b|\b` + negation + `\b`)

// isQualifiedAfter reports whether the text after an affirmation contrasts
// or negates it ("great, but don't use X").
func isQualifiedAfter(text string, end int) bool {
	return qualifier.MatchString(text[end:])
}

// validateRule checks a rule before it is used.
func validateRule(r Rule) error {
	if r.Name == "" {
		return fmt.Errorf("rule name cannot be empty")
	}
	if r.Category.Rank() == 0 {
		return fmt.Errorf("rule %q: %w: %q", r.Name, learning.ErrUnknownCategory, string(r.Category))
	}
	if !r.Turn.Valid() {
		return fmt.Errorf("rule %q: invalid turn %q", r.Name, r.Turn)
	}
	if r.Pattern == nil {
		return fmt.Errorf("rule %q: pattern cannot be empty", r.Name)
	}
	return nil
}

// Ensure RuleClassifier implements Classifier.
var _ Classifier = (*RuleClassifier)(nil)
