package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// PasswordResetMailer sends the reset link generated by the auth provider.
type PasswordResetMailer struct {
	client      EmailClient
	fromAddress string
	appName     string
}

func NewPasswordResetMailer(client EmailClient, fromAddress, appName string) *PasswordResetMailer {
	if strings.TrimSpace(appName) == "" {
		appName = "Sneakhead"
	}
	return &PasswordResetMailer{client: client, fromAddress: strings.TrimSpace(fromAddress), appName: appName}
}

func (m *PasswordResetMailer) SendPasswordReset(ctx context.Context, toEmail, link string) error {
	if m == nil || m.client == nil {
		return errors.New("password_reset_mailer: email client is nil")
	}
	to := strings.TrimSpace(toEmail)
	if to == "" || strings.TrimSpace(link) == "" {
		return errors.New("password_reset_mailer: recipient and link are required")
	}

	subject := fmt.Sprintf("Reset your %s password", m.appName)
	body := fmt.Sprintf(`We received a request to reset the password for your %s account.

Open the link below to choose a new password:

  %s

If you did not ask for this, you can ignore this message.

--
%s`, m.appName, strings.TrimSpace(link), m.appName)

	return m.client.Send(ctx, m.fromAddress, to, subject, body)
}
