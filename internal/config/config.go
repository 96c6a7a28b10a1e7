package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config represents the full reminder configuration. It is constructed once
// at startup and passed to every component; nothing reads the environment
// after Load returns.
type Config struct {
	GitHub GitHubConfig `mapstructure:"github"`
	WeChat WeChatConfig `mapstructure:"wechat"`
	Rules  RulesConfig  `mapstructure:"rules"`
}

// GitHubConfig contains the issue source settings.
//
// Token is the plain personal access token (GT_TOKEN). When it is empty and
// the App fields are set, a GitHub App installation token is minted instead.
type GitHubConfig struct {
	Repository string `mapstructure:"repository"` // owner/name
	Token      string `mapstructure:"token"`
	APIBaseURL string `mapstructure:"api_base_url"`

	// GitHub App authentication (alternative to Token)
	AppID            string `mapstructure:"app_id"`
	InstallationID   int64  `mapstructure:"installation_id"`
	PrivateKeySecret string `mapstructure:"private_key_secret"`

	// TokenSecret is a Secret Manager path consulted when Token is empty.
	TokenSecret string `mapstructure:"token_secret"`
}

// WeChatConfig contains the messaging platform settings.
type WeChatConfig struct {
	AppID      string `mapstructure:"app_id"`
	AppSecret  string `mapstructure:"app_secret"`
	UserID     string `mapstructure:"user_id"`
	TemplateID string `mapstructure:"template_id"`
	APIBaseURL string `mapstructure:"api_base_url"`

	// AppSecretSecret is a Secret Manager path consulted when AppSecret is empty.
	AppSecretSecret string `mapstructure:"app_secret_secret"`
}

// RulesConfig points at an optional YAML rules file replacing the built-in
// reminder rule table.
type RulesConfig struct {
	File string `mapstructure:"file"`
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	bindEnv()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// bindEnv maps the fixed environment variable names used by the scheduler
// (GitHub Actions secrets) onto config keys. These names are part of the
// deployment contract and are not prefixed.
func bindEnv() {
	_ = viper.BindEnv("github.repository", "GITHUB_REPOSITORY")
	_ = viper.BindEnv("github.token", "GT_TOKEN")
	_ = viper.BindEnv("wechat.app_id", "WECHAT_APPID")
	_ = viper.BindEnv("wechat.app_secret", "WECHAT_SECRET")
	_ = viper.BindEnv("wechat.user_id", "WECHAT_USER_ID")
	_ = viper.BindEnv("wechat.template_id", "WECHAT_TEMPLATE_ID")
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.GitHub.APIBaseURL == "" {
		cfg.GitHub.APIBaseURL = "https://api.github.com"
	}

	if cfg.WeChat.APIBaseURL == "" {
		cfg.WeChat.APIBaseURL = "https://api.weixin.qq.com"
	}
}

// Validate validates the configuration.
//
// Missing credentials are deliberately not errors: an absent GitHub token
// degrades to an empty issue list and absent WeChat credentials degrade to a
// no-send run. Only settings without a degraded mode are enforced here.
func (c *Config) Validate() error {
	if c.GitHub.Repository == "" {
		return fmt.Errorf("github repository is required")
	}

	appFieldsSet := c.GitHub.AppID != "" || c.GitHub.InstallationID != 0 || c.GitHub.PrivateKeySecret != ""
	if appFieldsSet {
		if c.GitHub.AppID == "" {
			return fmt.Errorf("github app_id is required for App authentication")
		}
		if c.GitHub.InstallationID <= 0 {
			return fmt.Errorf("github installation_id must be positive for App authentication")
		}
		if c.GitHub.PrivateKeySecret == "" {
			return fmt.Errorf("github private_key_secret is required for App authentication")
		}
	}

	return nil
}
