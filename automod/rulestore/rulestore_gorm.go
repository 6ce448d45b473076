package rulestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/gooseontheloose/Group-Guard-for-VRChat-sub004/automod"
)

// RuleRecord is the stored shape of a rule. The type-specific configuration
// lives in an opaque JSON column and is parsed into its typed variant on
// read; a malformed payload degrades that rule to disabled instead of
// failing the snapshot.
type RuleRecord struct {
	ID      string `gorm:"primarykey"`
	Name    string
	Type    string
	Enabled bool
	Action  string
	Config  []byte
}

func (RuleRecord) TableName() string {
	return "moderation_rules"
}

type GormRuleStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewGormRuleStore(db *gorm.DB, logger *slog.Logger) (*GormRuleStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := db.AutoMigrate(&RuleRecord{}); err != nil {
		return nil, fmt.Errorf("migrating rule table: %w", err)
	}
	return &GormRuleStore{db: db, logger: logger}, nil
}

func (s *GormRuleStore) GetRuleSet(ctx context.Context) (*automod.RuleSet, error) {
	var records []RuleRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	rules := make([]automod.Rule, 0, len(records))
	for _, rec := range records {
		rules = append(rules, s.decode(rec))
	}
	return automod.NewRuleSet(rules), nil
}

func (s *GormRuleStore) GetRule(ctx context.Context, id string) (*automod.Rule, error) {
	var rec RuleRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	rule := s.decode(rec)
	return &rule, nil
}

func (s *GormRuleStore) PutRule(ctx context.Context, rule automod.Rule) error {
	raw, err := rule.MarshalConfig()
	if err != nil {
		return fmt.Errorf("encoding rule config: %w", err)
	}
	rec := RuleRecord{
		ID:      rule.ID,
		Name:    rule.Name,
		Type:    string(rule.Type),
		Enabled: rule.Enabled,
		Action:  string(rule.Action),
		Config:  raw,
	}
	return s.db.WithContext(ctx).Save(&rec).Error
}

func (s *GormRuleStore) DeleteRule(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&RuleRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// decode converts a stored record into a typed rule. A config payload that
// fails to parse leaves the rule disabled; a single corrupt rule must never
// block evaluation of the rest.
func (s *GormRuleStore) decode(rec RuleRecord) automod.Rule {
	rule := automod.Rule{
		ID:      rec.ID,
		Name:    rec.Name,
		Type:    automod.RuleType(rec.Type),
		Enabled: rec.Enabled,
		Action:  automod.ActionType(rec.Action),
	}
	if err := rule.ParseConfig(rec.Config); err != nil {
		s.logger.Warn("malformed rule config, disabling rule", "rule", rec.ID, "type", rec.Type, "err", err)
		rule.Enabled = false
	}
	return rule
}
