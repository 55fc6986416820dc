package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/smtp"

	"github.com/google/uuid"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
	AlertTo  string
}

// Mailer handles sending operational emails
type Mailer struct {
	config Config
}

// New creates a new Mailer instance
func New(cfg Config) *Mailer {
	return &Mailer{config: cfg}
}

// SendDispatchAlert pages the ops mailbox when a notification exhausts
// its delivery retries
func (m *Mailer) SendDispatchAlert(notificationID uuid.UUID, errMsg string) error {
	subject := fmt.Sprintf("ChoViet - Push delivery failed for notification %s", notificationID)

	body, err := m.renderDispatchAlertTemplate(notificationID, errMsg)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return m.send(m.config.AlertTo, subject, body)
}

// send delivers an email via SMTP
func (m *Mailer) send(to, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%s", m.config.Host, m.config.Port)
	msg := m.buildMessage(to, subject, htmlBody)

	var auth smtp.Auth
	if m.config.Username != "" && m.config.Password != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	err := smtp.SendMail(addr, auth, m.config.From, []string{to}, msg)
	if err != nil {
		log.Printf("❌ Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Printf("📧 Email sent to %s: %s", to, subject)
	return nil
}

// buildMessage assembles the raw SMTP payload. Header order is fixed so
// repeated sends of the same mail are byte-identical.
func (m *Mailer) buildMessage(to, subject, htmlBody string) []byte {
	headers := []string{
		fmt.Sprintf("From: %s <%s>", m.config.FromName, m.config.From),
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="utf-8"`,
	}

	var msg bytes.Buffer
	for _, h := range headers {
		msg.WriteString(h)
		msg.WriteString("\r\n")
	}
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)
	return msg.Bytes()
}

// renderDispatchAlertTemplate returns the HTML body for the ops alert
func (m *Mailer) renderDispatchAlertTemplate(notificationID uuid.UUID, errMsg string) (string, error) {
	tmpl := `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin:0;padding:0;background-color:#f8fafc;font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;">
    <div style="max-width:500px;margin:40px auto;background:#ffffff;border-radius:16px;overflow:hidden;border:1px solid #e2e8f0;">
        <!-- Header -->
        <div style="background:linear-gradient(135deg,#ef4444 0%,#dc2626 100%);padding:32px;text-align:center;">
            <h1 style="color:#fff;margin:0;font-size:28px;font-weight:700;">🛒 ChoViet</h1>
            <p style="color:rgba(255,255,255,0.85);margin:8px 0 0;font-size:14px;">Push Delivery Alert</p>
        </div>

        <!-- Body -->
        <div style="padding:32px;">
            <p style="color:#1e293b;font-size:16px;line-height:1.6;margin:0 0 24px;">
                A push notification could not be delivered after all retry attempts.
            </p>

            <div style="background:#fef2f2;border:2px dashed #fca5a5;border-radius:12px;padding:24px;margin:0 0 24px;">
                <p style="color:#64748b;font-size:13px;margin:0 0 8px;">Notification</p>
                <p style="color:#dc2626;font-size:15px;font-family:'Courier New',monospace;margin:0 0 16px;">{{.NotificationID}}</p>
                <p style="color:#64748b;font-size:13px;margin:0 0 8px;">Last error</p>
                <p style="color:#b91c1c;font-size:14px;font-family:'Courier New',monospace;margin:0;">{{.Error}}</p>
            </div>

            <p style="color:#64748b;font-size:13px;line-height:1.5;margin:0;">
                The record remains pending; inspect the notifications table for reconciliation.
            </p>
        </div>

        <!-- Footer -->
        <div style="padding:16px 32px;border-top:1px solid #e2e8f0;text-align:center;">
            <p style="color:#94a3b8;font-size:12px;margin:0;">© 2026 ChoViet. All rights reserved.</p>
        </div>
    </div>
</body>
</html>`

	t, err := template.New("alert").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = t.Execute(&buf, map[string]interface{}{
		"NotificationID": notificationID.String(),
		"Error":          errMsg,
	})
	return buf.String(), err
}
