package rulestore

import (
	"context"
	"errors"

	"github.com/gooseontheloose/Group-Guard-for-VRChat-sub004/automod"
)

var ErrNotFound = errors.New("rule not found")

// RuleConfigStore provides CRUD over moderation rules. Reads return immutable
// RuleSet snapshots; writes publish a new snapshot rather than mutating rule
// contents in place, so in-flight evaluations always see consistent state.
type RuleConfigStore interface {
	// GetRuleSet returns the current snapshot, in evaluation priority order.
	GetRuleSet(ctx context.Context) (*automod.RuleSet, error)
	// GetRule returns a single rule by id.
	GetRule(ctx context.Context, id string) (*automod.Rule, error)
	// PutRule creates or replaces a rule.
	PutRule(ctx context.Context, rule automod.Rule) error
	// DeleteRule removes a rule by id.
	DeleteRule(ctx context.Context, id string) error
}
