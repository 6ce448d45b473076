package rulestore

import (
	"context"
	"sort"
	"sync"

	"github.com/gooseontheloose/Group-Guard-for-VRChat-sub004/automod"
)

type MemRuleStore struct {
	mu    sync.RWMutex
	rules map[string]automod.Rule
	// current snapshot, rebuilt on every write
	snapshot *automod.RuleSet
}

func NewMemRuleStore() *MemRuleStore {
	return &MemRuleStore{
		rules:    make(map[string]automod.Rule),
		snapshot: automod.NewRuleSet(nil),
	}
}

func (s *MemRuleStore) GetRuleSet(ctx context.Context) (*automod.RuleSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, nil
}

func (s *MemRuleStore) GetRule(ctx context.Context, id string) (*automod.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemRuleStore) PutRule(ctx context.Context, rule automod.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.ID] = rule
	s.rebuildLocked()
	return nil
}

func (s *MemRuleStore) DeleteRule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return ErrNotFound
	}
	delete(s.rules, id)
	s.rebuildLocked()
	return nil
}

func (s *MemRuleStore) rebuildLocked() {
	all := make([]automod.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		all = append(all, r)
	}
	// deterministic order within a type
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	s.snapshot = automod.NewRuleSet(all)
}
