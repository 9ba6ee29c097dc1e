package signals

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"

	"github.com/fyrsmithlabs/sessionlearn/internal/learning"
)

// maxRulesFileSize bounds a custom rules file.
const maxRulesFileSize = 256 * 1024

// ruleFile is the TOML layout of a custom rules file:
//
//	[[rules]]
//	name     = "no-sleep-in-tests"
//	category = "correction"
//	turn     = "user"
//	pattern  = '(?i)stop using (?P<avoid>time\.Sleep)[^,]*, use (?P<prefer>[^.]+)'
//	title    = "Use ${prefer} instead of ${avoid} in tests"
type ruleFile struct {
	Rules []ruleDef `toml:"rules"`
}

type ruleDef struct {
	Name              string `toml:"name"`
	Category          string `toml:"category"`
	Turn              string `toml:"turn"`
	Pattern           string `toml:"pattern"`
	RequiresAssistant bool   `toml:"requires_assistant"`
	Title             string `toml:"title"`
	Context           string `toml:"context"`
	Body              string `toml:"body"`
}

// LoadRulesFile reads custom rules from a TOML file. A missing file yields no
// rules. Any invalid rule fails the whole file.
func LoadRulesFile(path string) ([]Rule, error) {
	if path == "" {
		return nil, nil
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat rules file: %w", err)
	}
	if info.Size() > maxRulesFileSize {
		return nil, fmt.Errorf("rules file %s exceeds %d bytes", path, maxRulesFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", path, err)
	}
	return rules, nil
}

// ParseRules decodes and compiles TOML rule definitions.
func ParseRules(data []byte) ([]Rule, error) {
	var f ruleFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, fmt.Errorf("decoding rules: %w", err)
	}

	rules := make([]Rule, 0, len(f.Rules))
	seen := make(map[string]bool, len(f.Rules))
	for i, def := range f.Rules {
		r, err := def.compile()
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("rule %d: duplicate name %q", i, r.Name)
		}
		seen[r.Name] = true
		rules = append(rules, r)
	}
	return rules, nil
}

func (s ruleDef) compile() (Rule, error) {
	category, ok := learning.ParseCategory(s.Category)
	if !ok {
		return Rule{}, fmt.Errorf("%w: %q", learning.ErrUnknownCategory, s.Category)
	}

	turn := learning.RoleUser
	if s.Turn != "" {
		turn = learning.Role(s.Turn)
	}

	if s.Pattern == "" {
		return Rule{}, fmt.Errorf("rule %q: pattern cannot be empty", s.Name)
	}
	re, err := regexp.Compile(s.Pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %q: compiling pattern: %w", s.Name, err)
	}

	r := Rule{
		Name:              s.Name,
		Category:          category,
		Turn:              turn,
		Pattern:           re,
		RequiresAssistant: s.RequiresAssistant,
		TitleTemplate:     s.Title,
		ContextTemplate:   s.Context,
		BodyTemplate:      s.Body,
	}
	if err := validateRule(r); err != nil {
		return Rule{}, err
	}
	return r, nil
}
