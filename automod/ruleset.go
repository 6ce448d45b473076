package automod

import (
	"encoding/json"
	"fmt"
	"sort"
)

// RuleType discriminates the tagged union of rule configurations.
type RuleType string

const (
	RuleKeywordBlock      RuleType = "keyword_block"
	RuleAgeVerification   RuleType = "age_verification"
	RuleBlacklistedGroups RuleType = "blacklisted_groups"
)

// ActionType is what a matching rule does to its subject. Only rejection is
// modeled today; the type exists so bans or quarantines can be added without
// changing stored configuration.
type ActionType string

const ActionReject ActionType = "reject"

// MatchMode selects how keywords are tested against candidate text.
type MatchMode string

const (
	MatchWholeWord MatchMode = "whole_word"
	MatchPartial   MatchMode = "partial"
)

// KeywordBlockConfig rejects candidates whose profile text contains a blocked
// keyword. Keywords listed in Whitelist never cause rejection, regardless of
// match mode.
type KeywordBlockConfig struct {
	Keywords     []string  `json:"keywords"`
	Whitelist    []string  `json:"whitelist,omitempty"`
	MatchMode    MatchMode `json:"matchMode"`
	ScanBio      bool      `json:"scanBio"`
	ScanStatus   bool      `json:"scanStatus"`
	ScanPronouns bool      `json:"scanPronouns"`
}

// AgeVerificationConfig rejects candidates who have not completed age
// verification. When AutoAcceptVerified is set, verified candidates get an
// explicit fast-accept instead of falling through to later rules.
type AgeVerificationConfig struct {
	AutoAcceptVerified bool `json:"autoAcceptVerified"`
}

// BlacklistedGroupsConfig rejects candidates who belong to any of the listed
// groups.
type BlacklistedGroupsConfig struct {
	GroupIDs []string `json:"groupIds"`
}

// Rule is a single configured moderation rule. Rules are immutable value
// objects from the engine's perspective; the configuration layer publishes a
// whole new RuleSet snapshot rather than mutating rules in place.
//
// Exactly one of the config pointers is set, matching Type. A rule whose
// config failed to parse has none set, and is skipped during evaluation.
type Rule struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Type    RuleType   `json:"type"`
	Enabled bool       `json:"enabled"`
	Action  ActionType `json:"action"`

	Keyword *KeywordBlockConfig      `json:"keyword,omitempty"`
	Age     *AgeVerificationConfig   `json:"age,omitempty"`
	Groups  *BlacklistedGroupsConfig `json:"groups,omitempty"`
}

// ParseConfig decodes the type-specific payload for this rule. Parse, don't
// trust: this is the only place loosely-typed stored configuration becomes a
// typed variant.
func (r *Rule) ParseConfig(raw []byte) error {
	switch r.Type {
	case RuleKeywordBlock:
		var cfg KeywordBlockConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return fmt.Errorf("parsing keyword rule config: %w", err)
		}
		if cfg.MatchMode == "" {
			cfg.MatchMode = MatchWholeWord
		}
		r.Keyword = &cfg
	case RuleAgeVerification:
		var cfg AgeVerificationConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return fmt.Errorf("parsing age rule config: %w", err)
		}
		r.Age = &cfg
	case RuleBlacklistedGroups:
		var cfg BlacklistedGroupsConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return fmt.Errorf("parsing group blacklist rule config: %w", err)
		}
		r.Groups = &cfg
	default:
		return fmt.Errorf("unknown rule type: %s", r.Type)
	}
	return nil
}

// MarshalConfig encodes the type-specific payload for storage.
func (r *Rule) MarshalConfig() ([]byte, error) {
	switch r.Type {
	case RuleKeywordBlock:
		if r.Keyword == nil {
			return nil, fmt.Errorf("keyword rule missing config")
		}
		return json.Marshal(r.Keyword)
	case RuleAgeVerification:
		if r.Age == nil {
			return nil, fmt.Errorf("age rule missing config")
		}
		return json.Marshal(r.Age)
	case RuleBlacklistedGroups:
		if r.Groups == nil {
			return nil, fmt.Errorf("group blacklist rule missing config")
		}
		return json.Marshal(r.Groups)
	}
	return nil, fmt.Errorf("unknown rule type: %s", r.Type)
}

// configured reports whether the rule carries the config variant its type
// requires. A mismatch means the stored payload was malformed; such rules are
// skipped, never fatal.
func (r *Rule) configured() bool {
	switch r.Type {
	case RuleKeywordBlock:
		return r.Keyword != nil
	case RuleAgeVerification:
		return r.Age != nil
	case RuleBlacklistedGroups:
		return r.Groups != nil
	}
	return false
}

// RuleSet is an immutable snapshot of configured rules, held in evaluation
// priority order. Configuration changes publish a fresh snapshot so in-flight
// evaluations always see consistent state.
type RuleSet struct {
	Rules []Rule
}

// evaluation priority: group blacklist first (strongest signal), then age
// verification, then keyword scans
var rulePriority = map[RuleType]int{
	RuleBlacklistedGroups: 0,
	RuleAgeVerification:   1,
	RuleKeywordBlock:      2,
}

// NewRuleSet builds a snapshot from the given rules, sorted into evaluation
// priority order. Sort is stable, so rules of the same type keep their
// configured relative order.
func NewRuleSet(rules []Rule) *RuleSet {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return rulePriority[sorted[i].Type] < rulePriority[sorted[j].Type]
	})
	return &RuleSet{Rules: sorted}
}

// HasEnabled reports whether any enabled, well-configured rule of the given
// type is present.
func (rs *RuleSet) HasEnabled(t RuleType) bool {
	for i := range rs.Rules {
		r := &rs.Rules[i]
		if r.Type == t && r.Enabled && r.configured() {
			return true
		}
	}
	return false
}
