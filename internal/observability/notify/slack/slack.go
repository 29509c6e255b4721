// Package slack posts role change notifications to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shepherd-church/shepherd/internal/domain/model"
	"github.com/shepherd-church/shepherd/internal/observability/notify"
)

// Config captures the subset of Slack webhook behaviour we need.
type Config struct {
	WebhookURL string
	Channel    string
	Username   string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	// AdminURL links account ids to {AdminURL}/roles?q={uid} when set.
	AdminURL string
}

// Client delivers role change notifications to a Slack webhook.
type Client struct {
	webhookURL string
	channel    string
	username   string
	retryLimit int
	adminURL   *url.URL
	client     *http.Client
}

var _ notify.Sink = (*Client)(nil)

// NewClient builds a Slack webhook client.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	c := &Client{
		webhookURL: webhookURL,
		channel:    strings.TrimSpace(cfg.Channel),
		username:   strings.TrimSpace(cfg.Username),
		retryLimit: max(cfg.RetryLimit, 0),
		client:     hc,
	}
	if c.username == "" {
		c.username = "shepherd"
	}
	if raw := strings.TrimSpace(cfg.AdminURL); raw != "" {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("slack admin url must be absolute: %q", raw)
		}
		c.adminURL = u
	}
	return c, nil
}

// SendRoleChange posts a formatted message, retrying with linear backoff.
func (c *Client) SendRoleChange(ctx context.Context, payload notify.RoleChangePayload) error {
	body, err := json.Marshal(c.message(payload))
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}

	var lastErr error
	for attempt := range c.retryLimit + 1 {
		if attempt > 0 {
			if err := sleep(ctx, time.Duration(attempt)*200*time.Millisecond); err != nil {
				return err
			}
		}
		if lastErr = c.post(ctx, body); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

type webhookMessage struct {
	Text     string `json:"text"`
	Username string `json:"username"`
	Channel  string `json:"channel,omitempty"`
}

func (c *Client) message(p notify.RoleChangePayload) webhookMessage {
	at := p.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}

	var b strings.Builder
	b.WriteString("*")
	b.WriteString(headline(p.Event))
	b.WriteString("*\n")
	field(&b, "Account", c.account(p.TargetUID, p.TargetEmail))
	field(&b, "Changed by", c.account(p.ActorUID, p.ActorEmail))
	if p.PreviousRole != "" || p.NewRole != "" {
		field(&b, "Role", escape(orDash(p.PreviousRole))+" → "+escape(orDash(p.NewRole)))
	}
	field(&b, "When", at.UTC().Format(time.RFC3339))

	return webhookMessage{
		Text:     strings.TrimSuffix(b.String(), "\n"),
		Username: c.username,
		Channel:  c.channel,
	}
}

func headline(event string) string {
	switch model.RoleChangeEvent(event) {
	case model.RoleChangeAssigned:
		return "Role changed"
	case model.RoleChangeDeactivated:
		return "Account deactivated"
	case model.RoleChangeReactivated:
		return "Account reactivated"
	case model.RoleChangeBootstrap:
		return "First super admin bootstrapped"
	case "":
		return "Account changed"
	default:
		return "Account changed (" + escape(event) + ")"
	}
}

// account renders "email (uid)", linking the uid when an admin URL is set.
func (c *Client) account(uid, email string) string {
	if uid == "" && email == "" {
		return ""
	}
	id := escape(uid)
	if c.adminURL != nil && uid != "" {
		u := c.adminURL.JoinPath("roles")
		u.RawQuery = url.Values{"q": {uid}}.Encode()
		id = "<" + u.String() + "|" + id + ">"
	}
	switch {
	case email == "":
		return id
	case uid == "":
		return escape(email)
	default:
		return escape(email) + " (" + id + ")"
	}
}

func field(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	b.WriteString("• ")
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteByte('\n')
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

var slackEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escape(s string) string { return slackEscaper.Replace(s) }

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			return fmt.Errorf("drain slack response body: %w", err)
		}
		return nil
	}

	msg, err := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if err != nil {
		return fmt.Errorf("read slack error response: %w", err)
	}
	return fmt.Errorf("slack webhook %s: %s", resp.Status, strings.TrimSpace(string(msg)))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
