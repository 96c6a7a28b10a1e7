// Package reminder parses reminder issues and decides which notifications
// are due on a run.
package reminder

import (
	"regexp"
	"strings"
	"time"
)

// timestampPattern matches the bracketed timestamp token embedded in an
// issue title, e.g. "[2025-03-01 09:00] Submit report".
var timestampPattern = regexp.MustCompile(`\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2})\]`)

// timestampLayout is the layout of the matched inner text.
const timestampLayout = "2006-01-02 15:04"

// TitleMatch is the result of extracting the timestamp token from a title.
type TitleMatch struct {
	// TimeLabel is the matched inner text verbatim, redisplayed in the
	// notification.
	TimeLabel string

	// CleanTitle is the title with the bracketed token removed and outer
	// whitespace trimmed.
	CleanTitle string
}

// ParseTitle searches title for the timestamp token. ok is false when the
// title carries no token; that is a normal outcome, not an error.
func ParseTitle(title string) (match TitleMatch, ok bool) {
	m := timestampPattern.FindStringSubmatch(title)
	if m == nil {
		return TitleMatch{}, false
	}

	clean := strings.TrimSpace(strings.ReplaceAll(title, m[0], ""))

	return TitleMatch{
		TimeLabel:  m[1],
		CleanTitle: clean,
	}, true
}

// ParseTarget parses the matched timestamp text as a calendar date and time
// in the reference timezone. Syntactically matching but invalid dates
// (month 13, day 32) are rejected here.
func ParseTarget(timeLabel string) (time.Time, error) {
	return time.ParseInLocation(timestampLayout, timeLabel, referenceZone)
}
