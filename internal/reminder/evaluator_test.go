package reminder

import (
	"testing"
	"time"
)

// targetAt builds a target timestamp in the reference timezone.
func targetAt(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2025, 3, 1, 9, 0, 0, 0, referenceZone)
}

func TestRuleFires_OnTimeWindowBoundaries(t *testing.T) {
	rule := DefaultRules()[0] // on time, unconditional
	target := targetAt(t)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "exactly at target", now: target, want: true},
		{name: "last second inside window", now: target.Add(1199 * time.Second), want: true},
		{name: "window end is exclusive", now: target.Add(1200 * time.Second), want: false},
		{name: "one second before target", now: target.Add(-time.Second), want: false},
		{name: "well after window", now: target.Add(time.Hour), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.Fires(tt.now, target, nil); got != tt.want {
				t.Errorf("Fires(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestRuleFires_DayAdvanceRequiresLabel(t *testing.T) {
	rule := DefaultRules()[1] // one day ahead, gated by 提前1天
	target := targetAt(t)
	inWindow := target.Add(-24 * time.Hour).Add(10 * time.Minute)

	if rule.Fires(inWindow, target, nil) {
		t.Error("rule fired without the required label")
	}
	if rule.Fires(inWindow, target, []string{"bug"}) {
		t.Error("rule fired with an unrelated label")
	}
	if !rule.Fires(inWindow, target, []string{"提前1天"}) {
		t.Error("rule did not fire with the required label inside the window")
	}
	if rule.Fires(target, target, []string{"提前1天"}) {
		t.Error("rule fired outside its window despite the label")
	}
}

func TestRuleFires_HourAdvance(t *testing.T) {
	rule := DefaultRules()[2] // one hour ahead, gated by 提前1小时
	target := targetAt(t)

	// 08:05 is inside [08:00, 08:20)
	now := time.Date(2025, 3, 1, 8, 5, 0, 0, referenceZone)
	if !rule.Fires(now, target, []string{"提前1小时"}) {
		t.Error("rule did not fire at 08:05 for a 09:00 target")
	}

	// 08:25 is past the window
	now = time.Date(2025, 3, 1, 8, 25, 0, 0, referenceZone)
	if rule.Fires(now, target, []string{"提前1小时"}) {
		t.Error("rule fired at 08:25 for a 09:00 target")
	}
}

func TestEvaluate_RulesAreIndependent(t *testing.T) {
	rules := DefaultRules()
	target := targetAt(t)
	labels := []string{"提前1天", "提前1小时"}

	// At the target only the on-time rule fires even with both marker labels.
	firing := Evaluate(rules, target, target, labels)
	if len(firing) != 1 {
		t.Fatalf("expected 1 firing rule at target, got %d", len(firing))
	}
	if firing[0].Prefix != "⏰ 到点啦" {
		t.Errorf("unexpected firing rule: %s", firing[0].Prefix)
	}

	// An hour earlier only the hour-advance rule fires.
	firing = Evaluate(rules, target.Add(-time.Hour), target, labels)
	if len(firing) != 1 {
		t.Fatalf("expected 1 firing rule an hour early, got %d", len(firing))
	}
	if firing[0].Prefix != "⏳ 还有1小时" {
		t.Errorf("unexpected firing rule: %s", firing[0].Prefix)
	}

	// A day earlier only the day-advance rule fires.
	firing = Evaluate(rules, target.Add(-24*time.Hour), target, labels)
	if len(firing) != 1 {
		t.Fatalf("expected 1 firing rule a day early, got %d", len(firing))
	}
	if firing[0].Prefix != "🗓 明天提醒" {
		t.Errorf("unexpected firing rule: %s", firing[0].Prefix)
	}
}

func TestEvaluate_DeclarationOrder(t *testing.T) {
	// Two overlapping unconditional rules; Evaluate must preserve table order.
	rules := []Rule{
		{Offset: 0, Prefix: "first"},
		{Offset: 0, Prefix: "second"},
	}
	target := targetAt(t)

	firing := Evaluate(rules, target, target, nil)
	if len(firing) != 2 {
		t.Fatalf("expected 2 firing rules, got %d", len(firing))
	}
	if firing[0].Prefix != "first" || firing[1].Prefix != "second" {
		t.Errorf("rules out of order: %s, %s", firing[0].Prefix, firing[1].Prefix)
	}
}

func TestEvaluate_NoRuleFires(t *testing.T) {
	target := targetAt(t)
	firing := Evaluate(DefaultRules(), target.Add(-30*time.Minute), target, nil)
	if len(firing) != 0 {
		t.Errorf("expected no firing rules, got %d", len(firing))
	}
}

func TestReferenceNow_IsBeijing(t *testing.T) {
	now := ReferenceNow()
	if _, offset := now.Zone(); offset != 8*60*60 {
		t.Errorf("expected UTC+8 reference time, got offset %d", offset)
	}
}
