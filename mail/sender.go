// Package mail delivers account emails. Sender is the provider boundary;
// Queue decouples request handling from delivery with bounded retries.
package mail

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/resend/resend-go/v3"
)

// Sender delivers a single email synchronously.
type Sender interface {
	SendForgotPasswordEmail(ctx context.Context, to, code string) error
}

// ResendSender delivers through the Resend API.
type ResendSender struct {
	client    *resend.Client
	fromEmail string
	appName   string
}

// NewResendSender creates a Sender backed by Resend. fromEmail must belong to
// a domain verified in the Resend dashboard.
func NewResendSender(apiKey, fromEmail, appName string) *ResendSender {
	return &ResendSender{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		appName:   appName,
	}
}

// SendForgotPasswordEmail sends the one-time password-reset code.
func (s *ResendSender) SendForgotPasswordEmail(ctx context.Context, to, code string) error {
	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;font-family:Arial,Helvetica,sans-serif;background-color:#f4f4f7;">
  <table width="100%%" cellpadding="0" cellspacing="0" style="padding:40px 0;">
    <tr>
      <td align="center">
        <table width="480" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:8px;padding:40px;">
          <tr>
            <td>
              <h1 style="color:#1a1a2e;font-size:22px;margin:0 0 16px 0;">%s</h1>
              <p style="color:#51545e;font-size:15px;line-height:1.6;margin:0 0 24px 0;">
                We received a request to reset your password. Enter this code to continue:
              </p>
              <p style="color:#1a1a2e;font-size:32px;font-weight:700;letter-spacing:8px;margin:0 0 24px 0;">%s</p>
              <p style="color:#6b6e76;font-size:13px;line-height:1.6;margin:0;">
                The code expires shortly. If you didn't request a password reset, you can safely ignore this email.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`, s.appName, code)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.appName, s.fromEmail),
		To:      []string{to},
		Subject: fmt.Sprintf("Your %s password reset code", s.appName),
		Html:    html,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return errors.Wrap(err, "[ResendSender.SendForgotPasswordEmail] Emails.SendWithContext")
	}
	return nil
}
