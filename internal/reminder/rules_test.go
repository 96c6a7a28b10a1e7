package reminder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()
	if len(rules) != 3 {
		t.Fatalf("expected 3 default rules, got %d", len(rules))
	}

	if rules[0].Offset != 0 || rules[0].RequiredLabel != "" {
		t.Errorf("rule 0 should be unconditional on-time: %+v", rules[0])
	}
	if rules[1].Offset != 24*time.Hour || rules[1].RequiredLabel != "提前1天" {
		t.Errorf("rule 1 should be day-advance gated: %+v", rules[1])
	}
	if rules[2].Offset != time.Hour || rules[2].RequiredLabel != "提前1小时" {
		t.Errorf("rule 2 should be hour-advance gated: %+v", rules[2])
	}
}

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write rules file: %v", err)
	}
	return path
}

func TestLoadRules(t *testing.T) {
	path := writeRulesFile(t, `
rules:
  - prefix: "⏰ 到点啦"
  - offset: 24h
    required_label: 提前1天
    prefix: "🗓 明天提醒"
  - offset: 30m
    required_label: 提前半小时
    prefix: "⏳ 还有30分钟"
`)

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(rules))
	}

	if rules[0].Offset != 0 || rules[0].Prefix != "⏰ 到点啦" {
		t.Errorf("unexpected rule 0: %+v", rules[0])
	}
	if rules[1].Offset != 24*time.Hour || rules[1].RequiredLabel != "提前1天" {
		t.Errorf("unexpected rule 1: %+v", rules[1])
	}
	if rules[2].Offset != 30*time.Minute || rules[2].RequiredLabel != "提前半小时" {
		t.Errorf("unexpected rule 2: %+v", rules[2])
	}
}

func TestLoadRules_Errors(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		errContain string
	}{
		{
			name:       "empty rules list",
			content:    "rules: []\n",
			errContain: "defines no rules",
		},
		{
			name:       "missing prefix",
			content:    "rules:\n  - offset: 1h\n",
			errContain: "prefix is required",
		},
		{
			name:       "bad offset",
			content:    "rules:\n  - offset: tomorrow\n    prefix: p\n",
			errContain: "invalid offset",
		},
		{
			name:       "negative offset",
			content:    "rules:\n  - offset: -1h\n    prefix: p\n",
			errContain: "must not be negative",
		},
		{
			name:       "not yaml",
			content:    "{{{{",
			errContain: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeRulesFile(t, tt.content)
			_, err := LoadRules(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errContain) {
				t.Errorf("expected error containing %q, got %q", tt.errContain, err.Error())
			}
		})
	}
}

func TestLoadRules_MissingFile(t *testing.T) {
	if _, err := LoadRules(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
