package reminder

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hywan/issue-reminder/internal/cloud/gcp"
	"github.com/hywan/issue-reminder/internal/github"
	"github.com/hywan/issue-reminder/internal/wechat"
)

// IssueSource lists the open issues of the watched repository.
type IssueSource interface {
	ListOpenIssues(ctx context.Context) ([]github.Issue, error)
}

// Notifier obtains a messaging token and sends template messages.
type Notifier interface {
	AccessToken(ctx context.Context) (string, error)
	SendTemplate(ctx context.Context, token string, msg wechat.TemplateMessage) error
}

// SkipReason explains why an issue produced no notifications.
type SkipReason string

const (
	// SkipNone marks issues that were fully evaluated (they may still have
	// produced zero notifications if no rule fired).
	SkipNone SkipReason = ""

	// SkipNoTimestamp marks issues whose title has no timestamp token.
	SkipNoTimestamp SkipReason = "no_timestamp"

	// SkipInvalidDate marks issues whose token matched but does not parse
	// as a valid calendar date.
	SkipInvalidDate SkipReason = "invalid_date"
)

// IssueResult is the per-issue outcome of a pass.
type IssueResult struct {
	Number int
	Title  string
	Skip   SkipReason
	Fired  []Rule
	Sent   int
	Failed int
}

// Summary is the outcome of one run. It exists for logging and for tests;
// nothing is persisted between runs.
type Summary struct {
	ReferenceTime time.Time
	TokenObtained bool
	FetchFailed   bool
	Issues        int
	Results       []IssueResult
	Sent          int
	Failed        int
}

// Runner performs one poll-evaluate-notify pass. It holds no state across
// runs; rescheduling belongs to the external scheduler.
type Runner struct {
	issues   IssueSource
	notifier Notifier
	rules    []Rule

	logger      *log.Logger
	cloudLogger gcp.LoggerInterface
	nowFunc     func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithCloudLogger mirrors runner logs to a structured cloud logging sink.
func WithCloudLogger(cl gcp.LoggerInterface) RunnerOption {
	return func(r *Runner) {
		r.cloudLogger = cl
	}
}

// WithNowFunc sets a custom reference-time function for testing.
func WithNowFunc(fn func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.nowFunc = fn
	}
}

// NewRunner creates a Runner over the given issue source, notifier and rule
// table. Rules are evaluated and notified in table order.
func NewRunner(issues IssueSource, notifier Notifier, rules []Rule, logger *log.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		issues:   issues,
		notifier: notifier,
		rules:    rules,
		logger:   logger,
		nowFunc:  ReferenceNow,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run executes one pass. Every failure mode short of a programming error is
// degraded and logged: no token means no sends, a failed fetch means an
// empty pass, a bad title means a skipped issue, a failed send means the
// next notification still goes out.
func (r *Runner) Run(ctx context.Context) *Summary {
	now := r.nowFunc()
	summary := &Summary{ReferenceTime: now}

	r.logInfo("Reference time (Beijing): %s", now.Format("2006-01-02 15:04:05"))

	token, err := r.notifier.AccessToken(ctx)
	if err != nil {
		r.logError("failed to obtain messaging token, no notifications this run: %v", err)
		return summary
	}
	summary.TokenObtained = true

	issues, err := r.issues.ListOpenIssues(ctx)
	if err != nil {
		r.logWarning("failed to fetch issues, treating as empty: %v", gcp.SanitizeForLog(err.Error()))
		summary.FetchFailed = true
		return summary
	}

	r.logInfo("Fetched %d open issues", len(issues))
	summary.Issues = len(issues)

	for _, issue := range issues {
		result := r.processIssue(ctx, token, now, issue)
		summary.Results = append(summary.Results, result)
		summary.Sent += result.Sent
		summary.Failed += result.Failed
	}

	r.logInfo("Run complete: %d issues, %d notifications sent, %d failed",
		summary.Issues, summary.Sent, summary.Failed)

	return summary
}

// processIssue evaluates one issue against the rule table and sends a
// notification per firing rule.
func (r *Runner) processIssue(ctx context.Context, token string, now time.Time, issue github.Issue) IssueResult {
	result := IssueResult{Number: issue.Number, Title: issue.Title}

	match, ok := ParseTitle(issue.Title)
	if !ok {
		result.Skip = SkipNoTimestamp
		return result
	}

	target, err := ParseTarget(match.TimeLabel)
	if err != nil {
		r.logWarning("issue #%d: timestamp %q does not parse as a date, skipping: %v",
			issue.Number, match.TimeLabel, err)
		result.Skip = SkipInvalidDate
		return result
	}

	labels := issue.LabelNames()
	result.Fired = Evaluate(r.rules, now, target, labels)

	for _, rule := range result.Fired {
		msg := wechat.TemplateMessage{
			Title:     fmt.Sprintf("%s: %s", rule.Prefix, match.CleanTitle),
			TimeLabel: match.TimeLabel,
			Body:      issue.Body,
			URL:       issue.HTMLURL,
		}

		r.logInfo("issue #%d: sending %q for %q", issue.Number, rule.Prefix, match.CleanTitle)

		if err := r.notifier.SendTemplate(ctx, token, msg); err != nil {
			r.logError("issue #%d: send failed: %v", issue.Number, err)
			result.Failed++
			continue
		}
		result.Sent++
	}

	return result
}

// logInfo logs at INFO level to both local logger and cloud logger
func (r *Runner) logInfo(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.logger.Printf("%s", msg)
	if r.cloudLogger != nil {
		r.cloudLogger.LogInfo(msg)
	}
}

// logWarning logs at WARNING level to both local logger and cloud logger
func (r *Runner) logWarning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.logger.Printf("Warning: %s", msg)
	if r.cloudLogger != nil {
		r.cloudLogger.LogWarning(msg)
	}
}

// logError logs at ERROR level to both local logger and cloud logger
func (r *Runner) logError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.logger.Printf("Error: %s", msg)
	if r.cloudLogger != nil {
		r.cloudLogger.LogError(msg)
	}
}
