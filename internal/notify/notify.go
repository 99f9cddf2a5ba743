// Package notify sends shopper-facing messages about orders.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"

	"github.com/333Kunal/E-com/internal/models"
)

type Notifier interface {
	OrderConfirmed(ctx context.Context, recipient models.Account, order models.Order) error
}

// Noop drops every message. It is used when SMTP is not configured.
type Noop struct{}

func (Noop) OrderConfirmed(context.Context, models.Account, models.Order) error { return nil }

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPNotifier struct {
	client *mail.Client
	from   string
}

func NewSMTP(cfg SMTPConfig) (*SMTPNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPNotifier{client: client, from: cfg.From}, nil
}

func (n *SMTPNotifier) OrderConfirmed(ctx context.Context, recipient models.Account, order models.Order) error {
	msg, err := n.confirmation(recipient, order)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"component": "notify",
		"order_id":  order.ID.Hex(),
		"to":        recipient.Email,
	}).Info("sending order confirmation")

	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	return nil
}

func (n *SMTPNotifier) confirmation(recipient models.Account, order models.Order) (*mail.Msg, error) {
	body, err := RenderOrderConfirmation(recipient, order)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return nil, fmt.Errorf("mail from: %w", err)
	}
	if err := msg.To(recipient.Email); err != nil {
		return nil, fmt.Errorf("mail to: %w", err)
	}
	msg.Subject(fmt.Sprintf("Order %s confirmed", order.ID.Hex()))
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
	<h2>Thank you for your order, {{.Name}}</h2>
	<p>Order <strong>{{.OrderID}}</strong> is confirmed. UPI transaction {{.TransactionID}}.</p>
	<table style="border-collapse: collapse;">
		<tr><th align="left">Product</th><th>Qty</th><th align="right">Price</th></tr>
		{{range .Items}}<tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td align="right">{{printf "%.2f" .Price}}</td></tr>
		{{end}}
	</table>
	<p>Items {{printf "%.2f" .ItemsPrice}} · Tax {{printf "%.2f" .TaxPrice}} · Shipping {{printf "%.2f" .ShippingPrice}}</p>
	<p><strong>Total ₹{{printf "%.2f" .TotalPrice}}</strong></p>
	<p>Shipping to {{.Address.Address}}, {{.Address.City}} {{.Address.PostalCode}}, {{.Address.Country}}</p>
</body>
</html>`))

func RenderOrderConfirmation(recipient models.Account, order models.Order) (string, error) {
	name := recipient.Name
	if name == "" {
		name = recipient.Email
	}

	var buf bytes.Buffer
	err := confirmationTemplate.Execute(&buf, map[string]any{
		"Name":          name,
		"OrderID":       order.ID.Hex(),
		"TransactionID": order.PaymentDetails.TransactionID,
		"Items":         order.OrderItems,
		"ItemsPrice":    order.ItemsPrice,
		"TaxPrice":      order.TaxPrice,
		"ShippingPrice": order.ShippingPrice,
		"TotalPrice":    order.TotalPrice,
		"Address":       order.ShippingAddress,
	})
	if err != nil {
		return "", fmt.Errorf("render confirmation: %w", err)
	}
	return buf.String(), nil
}
