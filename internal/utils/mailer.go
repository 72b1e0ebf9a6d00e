package utils

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends plain-text mail.  Handlers treat sending as best-effort:
// once the primary database write has committed, a failed send is logged
// and never rolls the operation back.  Registration is the one place that
// checks Configured() up front, because an account without a deliverable
// confirmation code can never be activated.
type Mailer interface {
	Configured() bool
	Send(to, subject, body string) error
}

// SMTPMailer implements Mailer over net/smtp with PLAIN auth.
type SMTPMailer struct {
	Host string
	Port string
	User string
	Pass string
}

// NewSMTPMailer builds a mailer from config values.  An empty host yields
// an unconfigured mailer.
func NewSMTPMailer(host, port, user, pass string) *SMTPMailer {
	return &SMTPMailer{Host: host, Port: port, User: user, Pass: pass}
}

// Configured reports whether outbound mail can be attempted at all.
func (m *SMTPMailer) Configured() bool { return m != nil && m.Host != "" }

// Send delivers a single plain-text message.
func (m *SMTPMailer) Send(to, subject, body string) error {
	if !m.Configured() {
		return fmt.Errorf("mailer not configured")
	}
	msg := strings.Join([]string{
		"From: " + m.User,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")
	auth := smtp.PlainAuth("", m.User, m.Pass, m.Host)
	return smtp.SendMail(m.Host+":"+m.Port, auth, m.User, []string{to}, []byte(msg))
}

// ConfirmationBody renders the registration email carrying the 6-digit
// code.
func ConfirmationBody(code string) string {
	return fmt.Sprintf("Welcome to FreeTravel!\n\nYour confirmation code is %s.\nIt expires in 10 minutes.", code)
}

// ReportStatusBody renders the email sent to a reporter when a moderator
// updates their report.
func ReportStatusBody(status string) string {
	switch status {
	case "RESOLVED":
		return "Your report has been reviewed and resolved. Thank you for helping keep FreeTravel safe."
	case "REJECTED":
		return "Your report has been reviewed and rejected. No action will be taken."
	default:
		return "Your report has been received and is pending review."
	}
}
