package rulestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gooseontheloose/Group-Guard-for-VRChat-sub004/automod"
)

func TestMemRuleStoreCRUD(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	store := NewMemRuleStore()

	rs, err := store.GetRuleSet(ctx)
	require.NoError(err)
	assert.Empty(rs.Rules)

	rule := automod.Rule{
		ID:      "kw1",
		Name:    "keyword block",
		Type:    automod.RuleKeywordBlock,
		Enabled: true,
		Action:  automod.ActionReject,
		Keyword: &automod.KeywordBlockConfig{Keywords: []string{"bad"}, MatchMode: automod.MatchWholeWord, ScanBio: true},
	}
	require.NoError(store.PutRule(ctx, rule))

	got, err := store.GetRule(ctx, "kw1")
	require.NoError(err)
	assert.Equal("keyword block", got.Name)

	rs, err = store.GetRuleSet(ctx)
	require.NoError(err)
	require.Len(rs.Rules, 1)

	require.NoError(store.DeleteRule(ctx, "kw1"))
	assert.ErrorIs(store.DeleteRule(ctx, "kw1"), ErrNotFound)

	_, err = store.GetRule(ctx, "kw1")
	assert.ErrorIs(err, ErrNotFound)
}

func TestMemRuleStoreSnapshotIsolation(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	store := NewMemRuleStore()
	rule := automod.Rule{
		ID:      "g1",
		Type:    automod.RuleBlacklistedGroups,
		Enabled: true,
		Groups:  &automod.BlacklistedGroupsConfig{GroupIDs: []string{"grp_1"}},
	}
	require.NoError(store.PutRule(ctx, rule))

	before, err := store.GetRuleSet(ctx)
	require.NoError(err)

	rule.Enabled = false
	require.NoError(store.PutRule(ctx, rule))

	// the earlier snapshot is unchanged; writes publish a new one
	assert.True(before.Rules[0].Enabled)

	after, err := store.GetRuleSet(ctx)
	require.NoError(err)
	assert.False(after.Rules[0].Enabled)
}

func TestMemRuleStoreSnapshotOrder(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	store := NewMemRuleStore()
	require.NoError(store.PutRule(ctx, automod.Rule{
		ID: "kw1", Type: automod.RuleKeywordBlock, Enabled: true,
		Keyword: &automod.KeywordBlockConfig{Keywords: []string{"bad"}},
	}))
	require.NoError(store.PutRule(ctx, automod.Rule{
		ID: "g1", Type: automod.RuleBlacklistedGroups, Enabled: true,
		Groups: &automod.BlacklistedGroupsConfig{GroupIDs: []string{"grp_1"}},
	}))

	rs, err := store.GetRuleSet(ctx)
	require.NoError(err)
	require.Len(rs.Rules, 2)
	// group blacklist evaluates before keyword scans
	assert.Equal("g1", rs.Rules[0].ID)
	assert.Equal("kw1", rs.Rules[1].ID)
}
