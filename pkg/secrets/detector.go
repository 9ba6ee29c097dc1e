package secrets

import (
	"regexp"

	gitleaksConfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksRegexp "github.com/zricethezav/gitleaks/v8/regexp"
)

// Finding is a detected secret.
type Finding struct {
	RuleID   string // Gitleaks rule ID (e.g., "slack-bot-token")
	RuleDesc string // Human-readable description
	Line     int    // Line reported by Gitleaks
	Match    string // The secret value; never persisted or logged
}

// Detect scans content with the default Gitleaks rule set.
//
// allowlist: Optional allowlist to exclude patterns (nil to skip)
func Detect(content string, allowlist *Allowlist) ([]Finding, error) {
	if content == "" {
		return []Finding{}, nil
	}

	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, err
	}
	if !allowlist.Empty() {
		if err := applyAllowlist(&detector.Config, allowlist); err != nil {
			return nil, err
		}
	}

	leaks := detector.DetectString(content)
	result := make([]Finding, 0, len(leaks))
	for _, f := range leaks {
		if f.Secret == "" {
			continue
		}
		result = append(result, Finding{
			RuleID:   f.RuleID,
			RuleDesc: f.Description,
			Line:     f.StartLine,
			Match:    f.Secret,
		})
	}
	return result, nil
}

// applyAllowlist adds the allowlist as a global Gitleaks allowlist.
func applyAllowlist(cfg *gitleaksConfig.Config, allowlist *Allowlist) error {
	global := &gitleaksConfig.Allowlist{
		Description: "sessionlearn allowlist",
	}
	for _, pattern := range allowlist.Regexes {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return err
		}
		global.Regexes = append(global.Regexes, (*gitleaksRegexp.Regexp)(re))
	}
	global.StopWords = append(global.StopWords, allowlist.StopWords...)

	cfg.Allowlists = append(cfg.Allowlists, global)
	return nil
}
