package reminder

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Rule is one reminder rule: fire when now enters the trigger window that
// starts Offset before the target timestamp. A rule with a RequiredLabel
// only applies to issues carrying that label; an empty RequiredLabel means
// the rule is unconditional.
type Rule struct {
	Offset        time.Duration
	RequiredLabel string
	Prefix        string
}

// DefaultRules returns the built-in rule table: on time, one day ahead
// (gated by the 提前1天 label), one hour ahead (gated by 提前1小时).
func DefaultRules() []Rule {
	return []Rule{
		{Offset: 0, RequiredLabel: "", Prefix: "⏰ 到点啦"},
		{Offset: 24 * time.Hour, RequiredLabel: "提前1天", Prefix: "🗓 明天提醒"},
		{Offset: time.Hour, RequiredLabel: "提前1小时", Prefix: "⏳ 还有1小时"},
	}
}

// ruleSpec is the YAML form of a Rule.
type ruleSpec struct {
	Offset        string `yaml:"offset"`
	RequiredLabel string `yaml:"required_label"`
	Prefix        string `yaml:"prefix"`
}

// rulesFile is the top-level YAML document.
type rulesFile struct {
	Rules []ruleSpec `yaml:"rules"`
}

// LoadRules reads a rule table from a YAML file. The file replaces the
// default table entirely, so adding a fourth rule is a config change, not a
// code change. Rules keep file order; evaluation and notification follow it.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var doc rulesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("rules file %s defines no rules", path)
	}

	rules := make([]Rule, 0, len(doc.Rules))
	for i, spec := range doc.Rules {
		rule, err := spec.toRule()
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

func (s ruleSpec) toRule() (Rule, error) {
	var offset time.Duration
	if s.Offset != "" {
		var err error
		offset, err = time.ParseDuration(s.Offset)
		if err != nil {
			return Rule{}, fmt.Errorf("invalid offset %q: %w", s.Offset, err)
		}
		if offset < 0 {
			return Rule{}, fmt.Errorf("offset %q must not be negative", s.Offset)
		}
	}

	if s.Prefix == "" {
		return Rule{}, fmt.Errorf("prefix is required")
	}

	return Rule{
		Offset:        offset,
		RequiredLabel: s.RequiredLabel,
		Prefix:        s.Prefix,
	}, nil
}
