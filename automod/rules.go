package automod

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gooseontheloose/Group-Guard-for-VRChat-sub004/automod/keyword"
)

type verdict int

const (
	verdictNone verdict = iota
	verdictReject
	verdictAllow
)

// evaluateRule dispatches on rule type. The rule must be enabled and
// well-configured; callers check that first.
func evaluateRule(r *Rule, c *Candidate) (verdict, string) {
	switch r.Type {
	case RuleBlacklistedGroups:
		return evaluateGroupsRule(r.Groups, c)
	case RuleAgeVerification:
		return evaluateAgeRule(r.Age, c)
	case RuleKeywordBlock:
		return evaluateKeywordRule(r.Keyword, c)
	}
	return verdictNone, ""
}

func evaluateGroupsRule(cfg *BlacklistedGroupsConfig, c *Candidate) (verdict, string) {
	for _, g := range c.GroupMemberships {
		if slices.Contains(cfg.GroupIDs, g) {
			return verdictReject, fmt.Sprintf("member of blacklisted group %s", g)
		}
	}
	return verdictNone, ""
}

func evaluateAgeRule(cfg *AgeVerificationConfig, c *Candidate) (verdict, string) {
	if c.AgeVerificationStatus == AgeStatusVerified {
		if cfg.AutoAcceptVerified {
			return verdictAllow, "age verification confirmed"
		}
		return verdictNone, ""
	}
	if c.AgeVerificationStatus == "" {
		return verdictReject, "age verification status unknown"
	}
	return verdictReject, fmt.Sprintf("age verification status is %q, not %q", c.AgeVerificationStatus, AgeStatusVerified)
}

func evaluateKeywordRule(cfg *KeywordBlockConfig, c *Candidate) (verdict, string) {
	// scan order is bio, then status, then pronouns
	var fields []string
	if cfg.ScanBio {
		fields = append(fields, c.Bio)
	}
	if cfg.ScanStatus {
		fields = append(fields, c.StatusDescription)
	}
	if cfg.ScanPronouns {
		fields = append(fields, c.Pronouns)
	}
	text := strings.Join(fields, "\n")
	if strings.TrimSpace(text) == "" {
		return verdictNone, ""
	}

	for _, kw := range cfg.Keywords {
		if kw == "" || whitelisted(cfg.Whitelist, kw) {
			continue
		}
		var hit bool
		switch cfg.MatchMode {
		case MatchPartial:
			hit = keyword.MatchPartial(text, kw)
		default:
			hit = keyword.MatchWholeWord(text, kw)
		}
		if hit {
			return verdictReject, fmt.Sprintf("profile text matched blocked keyword %q", kw)
		}
	}
	return verdictNone, ""
}

func whitelisted(whitelist []string, kw string) bool {
	for _, w := range whitelist {
		if strings.EqualFold(w, kw) {
			return true
		}
	}
	return false
}
