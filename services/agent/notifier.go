package agent

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"orderwatch/lib/scrapers/portal"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

// Notifier reports one attempted acceptance. Implementations own their
// delivery failures, the workflow only logs what they return.
type Notifier interface {
	Notify(ctx context.Context, order portal.Order, acceptStatus int) error
}

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

type EmailConfig struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// EmailNotifier mails the order details and the acceptance status code
// to the operator.
type EmailNotifier struct {
	smtp  SmtpConfig
	email EmailConfig
}

func NewEmailNotifier(smtpConfig SmtpConfig, emailConfig EmailConfig) EmailNotifier {
	return EmailNotifier{smtp: smtpConfig, email: emailConfig}
}

func (n EmailNotifier) Notify(ctx context.Context, order portal.Order, acceptStatus int) error {
	ctx, span := tracer.Start(ctx, "notifier:Notify")
	defer span.End()

	body := fmt.Sprintf(`Accepting status: %d

ID: %s
Property: %s
Priority: %s
City: %s
Postal Code: %s
Category: %s
Subcategory: %s

Order link: %s

Summary: %s
`,
		acceptStatus, order.ID, order.Property, order.Priority, order.City,
		order.PostalCode, order.Category, order.Subcategory, order.URL, order.Summary)

	mail := email.NewEmail()
	mail.From = n.email.From
	mail.To = []string{n.email.To}
	mail.Subject = "New order"
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", n.smtp.Server, n.smtp.Port)
	err := mail.Send(addr, smtp.PlainAuth("", n.smtp.EmailAddress, n.smtp.Password, n.smtp.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}

	return nil
}
