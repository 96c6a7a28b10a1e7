package reminder

import "time"

// TriggerWindow is the width of the half-open firing window. The external
// scheduler polls on a coarse interval, so the window must be wider than the
// polling gap; the cost is possible duplicate sends on adjacent runs, which
// is accepted behavior (no sent-state is persisted).
const TriggerWindow = 1200 * time.Second

// referenceZone fixes rule evaluation to Beijing civil time regardless of
// the host timezone of whatever machine the scheduler hands us.
var referenceZone = time.FixedZone("UTC+8", 8*60*60)

// ReferenceNow returns the current reference time (Beijing).
func ReferenceNow() time.Time {
	return time.Now().In(referenceZone)
}

// Fires reports whether the rule is currently firing for an issue with the
// given target timestamp and labels. The window is left-inclusive:
// [target-offset, target-offset+TriggerWindow).
func (r Rule) Fires(now, target time.Time, labels []string) bool {
	if r.RequiredLabel != "" && !hasLabel(labels, r.RequiredLabel) {
		return false
	}

	diff := now.Sub(target.Add(-r.Offset))
	return diff >= 0 && diff < TriggerWindow
}

// Evaluate returns the subset of rules firing at now, in declaration order.
// Rules are independent; zero, one or several may fire for the same issue.
func Evaluate(rules []Rule, now, target time.Time, labels []string) []Rule {
	var firing []Rule
	for _, rule := range rules {
		if rule.Fires(now, target, labels) {
			firing = append(firing, rule)
		}
	}
	return firing
}

func hasLabel(labels []string, name string) bool {
	for _, l := range labels {
		if l == name {
			return true
		}
	}
	return false
}
