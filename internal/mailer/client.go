package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const brevoAPIURL = "https://api.brevo.com/v3/smtp/email"

// Sender delivers transactional mail. Injected into the auth service so tests
// can swap in a fake.
type Sender interface {
	SendPasswordResetEmail(ctx context.Context, toEmail, resetURL string) error
	SendWelcomeEmail(ctx context.Context, toEmail, name string) error
	IsConfigured() bool
}

// Client sends mail through the Brevo transactional API.
type Client struct {
	apiKey     string
	fromEmail  string
	fromName   string
	httpClient *http.Client
	configured bool
}

// NewClient creates a Brevo client. It is marked configured only when all
// credentials are present; an unconfigured client refuses to send.
func NewClient(apiKey, fromEmail, fromName string) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	if apiKey != "" && fromEmail != "" && fromName != "" {
		c.apiKey = apiKey
		c.fromEmail = fromEmail
		c.fromName = fromName
		c.configured = true
	}
	return c
}

func (c *Client) IsConfigured() bool {
	return c.configured
}

type sendEmailReq struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HtmlContent string              `json:"htmlContent"`
}

// SendPasswordResetEmail mails the reset link. The link is the only place the
// plaintext credential ever leaves the process.
func (c *Client) SendPasswordResetEmail(ctx context.Context, toEmail, resetURL string) error {
	html := fmt.Sprintf(`
		<h2>Password reset</h2>
		<p>You requested a password reset for your Task Dashboard account.</p>
		<p><a href="%s">Reset your password</a></p>
		<p>This link expires in 1 hour. If you did not request a reset, ignore this email.</p>`,
		resetURL)
	return c.send(ctx, toEmail, "Reset Password - Task Dashboard", html)
}

// SendWelcomeEmail mails the post-registration greeting. Best effort; callers
// must not fail registration when this errors.
func (c *Client) SendWelcomeEmail(ctx context.Context, toEmail, name string) error {
	html := fmt.Sprintf(`
		<h2>Welcome %s!</h2>
		<p>Thanks for signing up to Task Dashboard. You can start managing your tasks right away.</p>`,
		name)
	return c.send(ctx, toEmail, "Welcome to Task Dashboard", html)
}

func (c *Client) send(ctx context.Context, toEmail, subject, html string) error {
	if !c.configured {
		return fmt.Errorf("mail client not configured, email to %s skipped", toEmail)
	}
	if toEmail == "" || subject == "" || html == "" {
		return errors.New("toEmail, subject, and html content cannot be empty")
	}

	reqBody := sendEmailReq{
		Sender:      map[string]string{"email": c.fromEmail, "name": c.fromName},
		To:          []map[string]string{{"email": toEmail}},
		Subject:     subject,
		HtmlContent: html,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal email request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoAPIURL, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create mail request: %w", err)
	}
	httpReq.Header.Set("api-key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("mail send request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errorBody map[string]interface{}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errorBody); decodeErr != nil {
			return fmt.Errorf("mail API error: status %d", resp.StatusCode)
		}
		return fmt.Errorf("mail API error: status %d, body: %v", resp.StatusCode, errorBody)
	}
	return nil
}
