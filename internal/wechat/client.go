// Package wechat sends template-message push notifications through the
// WeChat official-account API.
package wechat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Display colors of the three template fields.
const (
	titleColor = "#173177"
	timeColor  = "#CC3300"
	bodyColor  = "#666666"
)

// fieldRuneLimit is the WeChat "thing" field length limit.
const fieldRuneLimit = 20

// placeholderBody is shown when an issue has no body.
const placeholderBody = "无备注"

// TemplateMessage is one push notification.
type TemplateMessage struct {
	Title     string // rule prefix + clean issue title
	TimeLabel string // matched timestamp text, redisplayed verbatim
	Body      string // issue body; empty means no remark
	URL       string // issue HTML URL, opened on tap
}

// HTTPClient interface for HTTP operations (allows mocking in tests).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the WeChat token and template-message endpoints.
type Client struct {
	baseURL    string
	appID      string
	appSecret  string
	userID     string
	templateID string
	httpClient HTTPClient
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithBaseURL sets a custom base URL for the WeChat API (useful for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// NewClient creates a WeChat client for one official account, recipient and
// template.
func NewClient(appID, appSecret, userID, templateID string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    "https://api.weixin.qq.com",
		appID:      appID,
		appSecret:  appSecret,
		userID:     userID,
		templateID: templateID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// AccessToken exchanges the app credentials for a short-lived access token.
// The token is fetched fresh every run; nothing is cached across processes.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.appID == "" || c.appSecret == "" {
		return "", fmt.Errorf("wechat app credentials not configured")
	}

	reqURL := fmt.Sprintf("%s/cgi-bin/token?grant_type=client_credential&appid=%s&secret=%s",
		c.baseURL, url.QueryEscape(c.appID), url.QueryEscape(c.appSecret))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ErrCode     int    `json:"errcode"`
		ErrMsg      string `json:"errmsg"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}

	if parsed.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access_token (errcode=%d, errmsg=%s)",
			parsed.ErrCode, parsed.ErrMsg)
	}

	return parsed.AccessToken, nil
}

// templateField is one entry of the template data map.
type templateField struct {
	Value string `json:"value"`
	Color string `json:"color"`
}

// SendTemplate POSTs one template message. A missing body becomes the fixed
// placeholder; title and body are truncated to the platform's 20-rune field
// limit.
func (c *Client) SendTemplate(ctx context.Context, token string, msg TemplateMessage) error {
	if token == "" {
		return fmt.Errorf("access token is empty")
	}

	body := msg.Body
	if body == "" {
		body = placeholderBody
	}

	payload := map[string]interface{}{
		"touser":      c.userID,
		"template_id": c.templateID,
		"url":         msg.URL,
		"data": map[string]templateField{
			"thing01": {Value: truncateRunes(msg.Title, fieldRuneLimit), Color: titleColor},
			"time01":  {Value: msg.TimeLabel, Color: timeColor},
			"thing02": {Value: truncateRunes(body, fieldRuneLimit), Color: bodyColor},
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	reqURL := fmt.Sprintf("%s/cgi-bin/message/template/send?access_token=%s",
		c.baseURL, url.QueryEscape(token))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var parsed struct {
		ErrCode int    `json:"errcode"`
		ErrMsg  string `json:"errmsg"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("failed to parse send response: %w", err)
	}

	if parsed.ErrCode != 0 {
		return fmt.Errorf("send rejected (errcode=%d, errmsg=%s)", parsed.ErrCode, parsed.ErrMsg)
	}

	return nil
}

// truncateRunes cuts s to at most n runes. Titles routinely mix CJK and
// ASCII, so byte slicing would split characters.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
