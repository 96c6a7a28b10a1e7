package cli

import (
	"context"
	"log"

	"github.com/hywan/issue-reminder/internal/wechat"
)

// dryRunNotifier satisfies reminder.Notifier without touching the WeChat
// API: the token is a stand-in and sends are logged.
type dryRunNotifier struct {
	logger *log.Logger
}

func (d *dryRunNotifier) AccessToken(ctx context.Context) (string, error) {
	return "dry-run", nil
}

func (d *dryRunNotifier) SendTemplate(ctx context.Context, token string, msg wechat.TemplateMessage) error {
	d.logger.Printf("dry-run: would send %q (%s) -> %s", msg.Title, msg.TimeLabel, msg.URL)
	return nil
}
