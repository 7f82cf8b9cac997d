// FILE: internal/pkg/mailer/email_service.go
package mailer

import (
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

// OrderAlert carries what the operator needs to follow up an order whose
// delivery to the fulfillment system could not be confirmed.
type OrderAlert struct {
	Name       string
	Product    string
	Quantity   int
	Phone      string
	RawMessage string
	Reason     string
}

type IEmailService interface {
	SendOrderAlert(alert OrderAlert) error
}

type emailService struct {
	dialer        *gomail.Dialer
	senderEmail   string
	senderName    string
	operatorEmail string
}

func NewEmailService(host string, port int, username, password, senderName, operatorEmail string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:        d,
		senderEmail:   username,
		senderName:    senderName,
		operatorEmail: operatorEmail,
	}
}

func (s *emailService) SendOrderAlert(alert OrderAlert) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", s.operatorEmail)
	m.SetHeader("Subject", fmt.Sprintf("Order needs manual follow-up: %s x%d", alert.Product, alert.Quantity))

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Order delivery could not be confirmed</h2>
			<p>The customer was told the order is being processed.</p>
			<table>
				<tr><td><b>Name</b></td><td>%s</td></tr>
				<tr><td><b>Product</b></td><td>%s</td></tr>
				<tr><td><b>Quantity</b></td><td>%d</td></tr>
				<tr><td><b>Phone</b></td><td>%s</td></tr>
				<tr><td><b>Message</b></td><td>%s</td></tr>
				<tr><td><b>Reason</b></td><td>%s</td></tr>
			</table>
		</div>
	`,
		html.EscapeString(alert.Name),
		html.EscapeString(alert.Product),
		alert.Quantity,
		html.EscapeString(alert.Phone),
		html.EscapeString(alert.RawMessage),
		html.EscapeString(alert.Reason),
	)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send order alert to %s: %w", s.operatorEmail, err)
	}
	return nil
}
