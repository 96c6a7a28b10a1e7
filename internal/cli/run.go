package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/hywan/issue-reminder/internal/cloud/gcp"
	"github.com/hywan/issue-reminder/internal/config"
	"github.com/hywan/issue-reminder/internal/github"
	"github.com/hywan/issue-reminder/internal/reminder"
	"github.com/hywan/issue-reminder/internal/wechat"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one reminder pass",
	Long: `Run one poll-evaluate-notify pass: fetch the repository's open
issues, match each title's timestamp against the reminder rules, and send a
WeChat template message for every rule that is currently firing.

Example:
  reminder run --repo owner/repo`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("repo", "", "GitHub repository (owner/name)")
	runCmd.Flags().String("rules", "", "YAML file replacing the built-in rule table")
	runCmd.Flags().Bool("dry-run", false, "Evaluate rules but log instead of sending")

	_ = viper.BindPFlag("github.repository", runCmd.Flags().Lookup("repo"))
	_ = viper.BindPFlag("rules.file", runCmd.Flags().Lookup("rules"))
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt signal, stopping...")
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	runID := uuid.New().String()
	logger := log.New(os.Stderr, "", log.LstdFlags)
	cloudLogger := gcp.NewLogger(runID, gcp.WithLabels(map[string]string{
		"repository": cfg.GitHub.Repository,
	}))
	defer func() { _ = cloudLogger.Close() }()

	logger.Printf("reminder run %s for %s", runID, cfg.GitHub.Repository)

	resolveCredentials(ctx, cfg, logger)

	rules := reminder.DefaultRules()
	if cfg.Rules.File != "" {
		rules, err = reminder.LoadRules(cfg.Rules.File)
		if err != nil {
			return fmt.Errorf("failed to load rules: %w", err)
		}
		logger.Printf("loaded %d rules from %s", len(rules), cfg.Rules.File)
	}

	issues := github.NewClient(cfg.GitHub.Repository, cfg.GitHub.Token,
		github.WithBaseURL(cfg.GitHub.APIBaseURL))

	var notifier reminder.Notifier = wechat.NewClient(
		cfg.WeChat.AppID, cfg.WeChat.AppSecret, cfg.WeChat.UserID, cfg.WeChat.TemplateID,
		wechat.WithBaseURL(cfg.WeChat.APIBaseURL))

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		logger.Printf("dry-run: notifications will be logged, not sent")
		notifier = &dryRunNotifier{logger: logger}
	}

	runner := reminder.NewRunner(issues, notifier, rules, logger,
		reminder.WithCloudLogger(cloudLogger))

	summary := runner.Run(ctx)

	fmt.Printf("checked %d issues, sent %d notifications (%d failed)\n",
		summary.Issues, summary.Sent, summary.Failed)

	return nil
}

// resolveCredentials fills in credentials that are not present in the
// environment: Secret Manager paths are fetched, and a GitHub App
// installation token is minted when no plain token is configured. Failures
// degrade (empty issue list, no sends) rather than abort, matching the
// behavior for credentials that were never configured at all.
func resolveCredentials(ctx context.Context, cfg *config.Config, logger *log.Logger) {
	var secrets gcp.SecretFetcher

	fetchSecret := func(path string) (string, bool) {
		if secrets == nil {
			client, err := gcp.NewSecretManagerClient(ctx)
			if err != nil {
				logger.Printf("Warning: secret manager unavailable: %v", err)
				return "", false
			}
			secrets = client
		}
		value, err := secrets.FetchSecret(ctx, path)
		if err != nil {
			logger.Printf("Warning: failed to fetch secret %s: %v", path, err)
			return "", false
		}
		return value, true
	}
	defer func() {
		if secrets != nil {
			_ = secrets.Close()
		}
	}()

	if cfg.WeChat.AppSecret == "" && cfg.WeChat.AppSecretSecret != "" {
		if value, ok := fetchSecret(cfg.WeChat.AppSecretSecret); ok {
			cfg.WeChat.AppSecret = value
		}
	}

	if cfg.GitHub.Token == "" && cfg.GitHub.TokenSecret != "" {
		if value, ok := fetchSecret(cfg.GitHub.TokenSecret); ok {
			cfg.GitHub.Token = value
		}
	}

	if cfg.GitHub.Token == "" && cfg.GitHub.AppID != "" {
		keyPEM, ok := fetchSecret(cfg.GitHub.PrivateKeySecret)
		if !ok {
			return
		}

		auth, err := github.NewAppAuth(cfg.GitHub.AppID, cfg.GitHub.InstallationID, []byte(keyPEM),
			github.WithAuthBaseURL(cfg.GitHub.APIBaseURL))
		if err != nil {
			logger.Printf("Warning: GitHub App auth misconfigured: %v", err)
			return
		}

		token, err := auth.InstallationToken(ctx)
		if err != nil {
			logger.Printf("Warning: failed to mint installation token: %v", err)
			return
		}
		cfg.GitHub.Token = token
	}
}
