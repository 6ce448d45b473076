package automod

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"
)

// ProfileDirectory is the subset of the community directory the engine needs
// to enrich candidates during a batch scan. Lookups may fail or time out;
// the engine degrades to locally-known fields rather than aborting.
type ProfileDirectory interface {
	LookupProfile(ctx context.Context, id string) (*Candidate, error)
	LookupGroups(ctx context.Context, id string) ([]string, error)
}

// Engine evaluates candidates against rule set snapshots.
//
// Evaluation itself is pure and stateless: the engine never logs
// interceptions and never mutates rules or candidates, so the same engine
// serves both live gatekeeping and retroactive batch scans. Recording a
// rejection is the caller's responsibility.
type Engine struct {
	Logger    *slog.Logger
	Directory ProfileDirectory
	// ScanLimiter throttles per-candidate enrichment fetches during batch
	// scans. Optional; nil means no throttle.
	ScanLimiter *rate.Limiter
}

// Evaluate checks a candidate against every enabled rule in the snapshot, in
// priority order. The first enabled rule whose predicate matches owns the
// decision; if no enabled rule matches, the candidate is allowed. A rule with
// missing or malformed configuration is skipped and never blocks the
// remaining rules.
func (eng *Engine) Evaluate(c *Candidate, rs *RuleSet) (dec Decision) {
	// recover panics from rule execution, like an HTTP server would; a
	// broken rule must not take down event processing
	defer func() {
		if r := recover(); r != nil {
			eng.logger().Error("rule evaluation exception", "err", r, "subject", c.ID)
			dec = Decision{Action: DecisionAllow, IncompleteData: true}
		}
	}()

	for i := range rs.Rules {
		rule := &rs.Rules[i]
		if !rule.Enabled || !rule.configured() {
			continue
		}
		v, reason := evaluateRule(rule, c)
		switch v {
		case verdictReject:
			decisionsRejected.Inc()
			return Decision{
				Action:         DecisionReject,
				RuleID:         rule.ID,
				RuleName:       rule.Name,
				Reason:         reason,
				IncompleteData: c.Partial,
			}
		case verdictAllow:
			decisionsAllowed.Inc()
			return Decision{
				Action:         DecisionAllow,
				RuleID:         rule.ID,
				RuleName:       rule.Name,
				Reason:         reason,
				IncompleteData: c.Partial,
			}
		}
	}
	decisionsAllowed.Inc()
	return Decision{Action: DecisionAllow, IncompleteData: c.Partial}
}

// ScanResult pairs one scanned subject with its decision.
type ScanResult struct {
	Subject  Candidate `json:"subject"`
	Decision Decision  `json:"decision"`
}

// ScanMembers evaluates an existing population against the given snapshot,
// one candidate at a time. Cancellation is checked between candidates, so a
// scan over thousands of members stops promptly. Enrichment fetches go
// through the scan limiter; a fetch failure degrades that candidate to
// locally-known fields instead of failing the scan.
func (eng *Engine) ScanMembers(ctx context.Context, members []Candidate, rs *RuleSet) ([]ScanResult, error) {
	out := make([]ScanResult, 0, len(members))
	for _, m := range members {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		cand := m
		if eng.Directory != nil {
			if err := eng.wait(ctx); err != nil {
				return out, err
			}
			full, err := eng.Directory.LookupProfile(ctx, m.ID)
			if err != nil {
				eng.logger().Warn("profile enrichment failed, evaluating with local fields", "subject", m.ID, "err", err)
				scanFetchesFailed.Inc()
				cand.Partial = true
			} else {
				cand = *full
			}
			if rs.HasEnabled(RuleBlacklistedGroups) && len(cand.GroupMemberships) == 0 {
				groups, err := eng.Directory.LookupGroups(ctx, m.ID)
				if err != nil {
					eng.logger().Warn("group membership fetch failed", "subject", m.ID, "err", err)
					scanFetchesFailed.Inc()
					cand.Partial = true
				} else {
					cand.GroupMemberships = groups
				}
			}
		}
		out = append(out, ScanResult{Subject: cand, Decision: eng.Evaluate(&cand, rs)})
	}
	return out, nil
}

func (eng *Engine) wait(ctx context.Context) error {
	if eng.ScanLimiter == nil {
		return nil
	}
	return eng.ScanLimiter.Wait(ctx)
}

func (eng *Engine) logger() *slog.Logger {
	if eng.Logger != nil {
		return eng.Logger
	}
	return slog.Default()
}
