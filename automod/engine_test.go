package automod

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keywordRule(id string, enabled bool, mode MatchMode, keywords, whitelist []string) Rule {
	return Rule{
		ID:      id,
		Name:    "keyword block",
		Type:    RuleKeywordBlock,
		Enabled: enabled,
		Action:  ActionReject,
		Keyword: &KeywordBlockConfig{
			Keywords:     keywords,
			Whitelist:    whitelist,
			MatchMode:    mode,
			ScanBio:      true,
			ScanStatus:   true,
			ScanPronouns: true,
		},
	}
}

func TestEvaluateNoEnabledRules(t *testing.T) {
	assert := assert.New(t)
	eng := &Engine{}

	cand := Candidate{ID: "usr_1", DisplayName: "alice", Bio: "anything at all"}

	fixtures := []*RuleSet{
		NewRuleSet(nil),
		NewRuleSet([]Rule{keywordRule("r1", false, MatchWholeWord, []string{"anything"}, nil)}),
	}
	for _, rs := range fixtures {
		dec := eng.Evaluate(&cand, rs)
		assert.Equal(DecisionAllow, dec.Action)
		assert.Empty(dec.RuleID)
	}
}

func TestEvaluateKeywordWholeWord(t *testing.T) {
	assert := assert.New(t)
	eng := &Engine{}
	rs := NewRuleSet([]Rule{keywordRule("r1", true, MatchWholeWord, []string{"bad"}, nil)})

	dec := eng.Evaluate(&Candidate{ID: "u1", Bio: "this is bad"}, rs)
	assert.Equal(DecisionReject, dec.Action)
	assert.Equal("r1", dec.RuleID)
	assert.Contains(dec.Reason, "bad")

	dec = eng.Evaluate(&Candidate{ID: "u2", Bio: "badger fan"}, rs)
	assert.Equal(DecisionAllow, dec.Action)
}

func TestEvaluateKeywordPartial(t *testing.T) {
	assert := assert.New(t)
	eng := &Engine{}
	rs := NewRuleSet([]Rule{keywordRule("r1", true, MatchPartial, []string{"bad"}, nil)})

	assert.Equal(DecisionReject, eng.Evaluate(&Candidate{Bio: "this is bad"}, rs).Action)
	assert.Equal(DecisionReject, eng.Evaluate(&Candidate{Bio: "badger fan"}, rs).Action)
	assert.Equal(DecisionAllow, eng.Evaluate(&Candidate{Bio: "nothing here"}, rs).Action)
}

func TestEvaluateKeywordWhitelist(t *testing.T) {
	assert := assert.New(t)
	eng := &Engine{}
	rs := NewRuleSet([]Rule{keywordRule("r1", true, MatchWholeWord, []string{"bad", "worse"}, []string{"bad"})})

	// whitelisted keyword never rejects, even though it is also blocked
	assert.Equal(DecisionAllow, eng.Evaluate(&Candidate{Bio: "this is bad"}, rs).Action)
	assert.Equal(DecisionReject, eng.Evaluate(&Candidate{Bio: "this is worse"}, rs).Action)
}

func TestEvaluateKeywordAcronym(t *testing.T) {
	assert := assert.New(t)
	eng := &Engine{}
	rs := NewRuleSet([]Rule{keywordRule("r1", true, MatchWholeWord, []string{"d.i.d"}, nil)})

	assert.Equal(DecisionReject, eng.Evaluate(&Candidate{Bio: "d.i.d system here"}, rs).Action)
	assert.Equal(DecisionAllow, eng.Evaluate(&Candidate{Bio: "what did you do"}, rs).Action)
}

func TestEvaluateKeywordScanTargets(t *testing.T) {
	assert := assert.New(t)
	eng := &Engine{}
	rule := keywordRule("r1", true, MatchWholeWord, []string{"bad"}, nil)
	rule.Keyword.ScanBio = false
	rule.Keyword.ScanPronouns = false
	rs := NewRuleSet([]Rule{rule})

	// keyword only in a field excluded from the scan
	assert.Equal(DecisionAllow, eng.Evaluate(&Candidate{Bio: "bad"}, rs).Action)
	assert.Equal(DecisionReject, eng.Evaluate(&Candidate{StatusDescription: "bad"}, rs).Action)
}

func TestEvaluateAgeVerification(t *testing.T) {
	assert := assert.New(t)
	eng := &Engine{}

	ageRule := Rule{
		ID:      "age1",
		Name:    "age gate",
		Type:    RuleAgeVerification,
		Enabled: true,
		Action:  ActionReject,
		Age:     &AgeVerificationConfig{AutoAcceptVerified: false},
	}
	rs := NewRuleSet([]Rule{ageRule})

	dec := eng.Evaluate(&Candidate{ID: "u1", AgeVerificationStatus: "hidden"}, rs)
	assert.Equal(DecisionReject, dec.Action)
	assert.Equal("age1", dec.RuleID)

	dec = eng.Evaluate(&Candidate{ID: "u2", AgeVerificationStatus: AgeStatusVerified}, rs)
	assert.Equal(DecisionAllow, dec.Action)
	// strict mode: verified candidates fall through, no rule attribution
	assert.Empty(dec.RuleID)
}

func TestEvaluateAgeFastAccept(t *testing.T) {
	assert := assert.New(t)
	eng := &Engine{}

	ageRule := Rule{
		ID:      "age1",
		Type:    RuleAgeVerification,
		Enabled: true,
		Action:  ActionReject,
		Age:     &AgeVerificationConfig{AutoAcceptVerified: true},
	}
	kwRule := keywordRule("kw1", true, MatchWholeWord, []string{"bad"}, nil)
	rs := NewRuleSet([]Rule{kwRule, ageRule})

	// verified fast-accept short-circuits the keyword rule
	dec := eng.Evaluate(&Candidate{Bio: "bad", AgeVerificationStatus: AgeStatusVerified}, rs)
	assert.Equal(DecisionAllow, dec.Action)
	assert.Equal("age1", dec.RuleID)
}

func TestEvaluatePriorityOrder(t *testing.T) {
	assert := assert.New(t)
	eng := &Engine{}

	groupRule := Rule{
		ID:      "g1",
		Type:    RuleBlacklistedGroups,
		Enabled: true,
		Action:  ActionReject,
		Groups:  &BlacklistedGroupsConfig{GroupIDs: []string{"grp_bad"}},
	}
	kwRule := keywordRule("kw1", true, MatchWholeWord, []string{"bad"}, nil)
	rs := NewRuleSet([]Rule{kwRule, groupRule})

	// candidate violates both rules; group blacklist evaluates first and
	// owns the single reason
	dec := eng.Evaluate(&Candidate{Bio: "bad", GroupMemberships: []string{"grp_bad"}}, rs)
	assert.Equal(DecisionReject, dec.Action)
	assert.Equal("g1", dec.RuleID)
}

func TestEvaluateMalformedRuleSkipped(t *testing.T) {
	assert := assert.New(t)
	eng := &Engine{}

	// enabled rule with no parsed config (malformed payload at the store
	// boundary); must not block the rules after it
	broken := Rule{ID: "broken", Type: RuleKeywordBlock, Enabled: true, Action: ActionReject}
	kwRule := keywordRule("kw1", true, MatchWholeWord, []string{"bad"}, nil)
	rs := NewRuleSet([]Rule{broken, kwRule})

	dec := eng.Evaluate(&Candidate{Bio: "this is bad"}, rs)
	assert.Equal(DecisionReject, dec.Action)
	assert.Equal("kw1", dec.RuleID)
}

type stubDirectory struct {
	profiles map[string]*Candidate
	groups   map[string][]string
	failFor  map[string]bool
}

func (d *stubDirectory) LookupProfile(ctx context.Context, id string) (*Candidate, error) {
	if d.failFor[id] {
		return nil, fmt.Errorf("directory timeout")
	}
	p, ok := d.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile not found: %s", id)
	}
	out := *p
	return &out, nil
}

func (d *stubDirectory) LookupGroups(ctx context.Context, id string) ([]string, error) {
	if d.failFor[id] {
		return nil, fmt.Errorf("directory timeout")
	}
	return d.groups[id], nil
}

func TestScanMembersGroupBlacklist(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	dir := &stubDirectory{
		profiles: map[string]*Candidate{
			"u1": {ID: "u1", DisplayName: "alice"},
			"u2": {ID: "u2", DisplayName: "bob"},
			"u3": {ID: "u3", DisplayName: "carol"},
		},
		groups: map[string][]string{
			"u1": {"grp_ok"},
			"u2": {"grp_bad", "grp_ok"},
			"u3": nil,
		},
	}
	eng := &Engine{Directory: dir}
	rs := NewRuleSet([]Rule{{
		ID:      "g1",
		Type:    RuleBlacklistedGroups,
		Enabled: true,
		Action:  ActionReject,
		Groups:  &BlacklistedGroupsConfig{GroupIDs: []string{"grp_bad"}},
	}})

	members := []Candidate{{ID: "u1"}, {ID: "u2"}, {ID: "u3"}}
	results, err := eng.ScanMembers(ctx, members, rs)
	require.NoError(err)
	require.Len(results, 3)

	var rejects, allows int
	for _, r := range results {
		switch r.Decision.Action {
		case DecisionReject:
			rejects++
			assert.Equal("u2", r.Subject.ID)
		case DecisionAllow:
			allows++
		}
	}
	assert.Equal(1, rejects)
	assert.Equal(2, allows)
}

func TestScanMembersFetchFailureDegrades(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	dir := &stubDirectory{
		profiles: map[string]*Candidate{
			"u1": {ID: "u1", Bio: "this is bad"},
		},
		failFor: map[string]bool{"u2": true},
	}
	eng := &Engine{Directory: dir}
	rs := NewRuleSet([]Rule{keywordRule("kw1", true, MatchWholeWord, []string{"bad"}, nil)})

	results, err := eng.ScanMembers(ctx, []Candidate{{ID: "u1"}, {ID: "u2"}}, rs)
	require.NoError(err)
	require.Len(results, 2)

	assert.Equal(DecisionReject, results[0].Decision.Action)
	// the failed fetch degrades to local fields and flags the decision
	assert.Equal(DecisionAllow, results[1].Decision.Action)
	assert.True(results[1].Decision.IncompleteData)
}

func TestScanMembersCancellation(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := &Engine{}
	rs := NewRuleSet(nil)
	results, err := eng.ScanMembers(ctx, []Candidate{{ID: "u1"}, {ID: "u2"}}, rs)
	assert.Error(err)
	assert.Empty(results)
}
