// Package gcp provides the Cloud Logging sink and Secret Manager access
// used when the reminder runs on Google infrastructure.
package gcp

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// Severity levels for structured logs
type Severity string

const (
	SeverityDefault Severity = "DEFAULT"
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// LogEntry represents a structured log entry for Cloud Logging
type LogEntry struct {
	Severity  Severity          `json:"severity"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	RunID     string            `json:"run_id"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// LoggerInterface defines the interface for cloud logging operations
type LoggerInterface interface {
	Log(severity Severity, message string)
	LogInfo(message string)
	LogWarning(message string)
	LogError(message string)
	Close() error
}

// CloudLogger writes structured JSON compatible with the Cloud Logging
// agent. On GCP the agent picks up JSON lines from stderr and forwards them
// with proper severity; off GCP the same lines are still readable.
type CloudLogger struct {
	writer io.Writer
	runID  string
	labels map[string]string
	mu     sync.Mutex
	closed bool
}

// CloudLoggerOption allows configuring the CloudLogger
type CloudLoggerOption func(*CloudLogger)

// WithLabels adds custom labels to all log entries
func WithLabels(labels map[string]string) CloudLoggerOption {
	return func(cl *CloudLogger) {
		for k, v := range labels {
			cl.labels[k] = v
		}
	}
}

// WithWriter sets a custom writer for log output
func WithWriter(w io.Writer) CloudLoggerOption {
	return func(cl *CloudLogger) {
		cl.writer = w
	}
}

// NewCloudLogger creates a logger tagging every entry with the per-run
// correlation ID.
func NewCloudLogger(runID string, opts ...CloudLoggerOption) *CloudLogger {
	cl := &CloudLogger{
		writer: os.Stderr, // Cloud Logging agent reads from stderr by default
		runID:  runID,
		labels: map[string]string{
			"run_id":    runID,
			"component": "issue-reminder",
		},
	}

	for _, opt := range opts {
		opt(cl)
	}

	return cl
}

// Log writes a structured log entry
func (cl *CloudLogger) Log(severity Severity, message string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.closed {
		return
	}

	entry := LogEntry{
		Severity:  severity,
		Message:   message,
		Timestamp: time.Now().UTC(),
		RunID:     cl.runID,
		Labels:    cl.labels,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(cl.writer, `{"severity":"ERROR","message":"failed to marshal log entry: %v"}`+"\n", err)
		return
	}
	fmt.Fprintf(cl.writer, "%s\n", data)
}

// LogInfo writes an INFO level log entry
func (cl *CloudLogger) LogInfo(message string) {
	cl.Log(SeverityInfo, message)
}

// LogWarning writes a WARNING level log entry
func (cl *CloudLogger) LogWarning(message string) {
	cl.Log(SeverityWarning, message)
}

// LogError writes an ERROR level log entry
func (cl *CloudLogger) LogError(message string) {
	cl.Log(SeverityError, message)
}

// Close marks the logger as closed; later entries are dropped.
func (cl *CloudLogger) Close() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.closed = true
	return nil
}

// NewLogger creates the appropriate logger based on environment.
// On GCP (detected via metadata server) structured JSON goes to stderr for
// the Cloud Logging agent; elsewhere it goes to stdout for local debugging.
func NewLogger(runID string, opts ...CloudLoggerOption) LoggerInterface {
	if isRunningOnGCP() {
		return NewCloudLogger(runID, opts...)
	}

	opts = append([]CloudLoggerOption{WithWriter(os.Stdout)}, opts...)
	return NewCloudLogger(runID, opts...)
}

// isRunningOnGCP checks if the code is running on a GCP environment
// by probing the metadata server
func isRunningOnGCP() bool {
	client := &http.Client{Timeout: 1 * time.Second}
	req, err := http.NewRequest("GET", "http://metadata.google.internal/computeMetadata/v1/", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Metadata-Flavor", "Google")
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Ensure CloudLogger implements LoggerInterface
var _ LoggerInterface = (*CloudLogger)(nil)

// SanitizeForLog removes potentially sensitive data from strings before
// logging. Fetch errors can embed response bodies and auth headers.
func SanitizeForLog(s string) string {
	if strings.HasPrefix(s, "ghs_") || strings.HasPrefix(s, "ghp_") || strings.HasPrefix(s, "gho_") {
		return "[REDACTED_GITHUB_TOKEN]"
	}
	if strings.HasPrefix(s, "Bearer ") {
		return "Bearer [REDACTED]"
	}
	return s
}
