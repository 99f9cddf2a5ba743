package notify

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/333Kunal/E-com/internal/models"
)

func TestRenderOrderConfirmation(t *testing.T) {
	order := models.Order{
		ID: primitive.NewObjectID(),
		OrderItems: []models.OrderItem{
			{Name: "Kettle <XL>", Quantity: 2, Price: 499.5},
		},
		ShippingAddress: models.ShippingAddress{Address: "12 MG Road", City: "Pune", PostalCode: "411001", Country: "India"},
		PaymentDetails:  models.PaymentDetails{TransactionID: "UPI1234567890"},
		ItemsPrice:      999,
		TaxPrice:        179.82,
		TotalPrice:      1178.82,
	}

	body, err := RenderOrderConfirmation(models.Account{Email: "asha@example.com"}, order)
	require.NoError(t, err)

	assert.Contains(t, body, "asha@example.com")
	assert.Contains(t, body, order.ID.Hex())
	assert.Contains(t, body, "UPI1234567890")
	assert.Contains(t, body, "Kettle &lt;XL&gt;")
	assert.Contains(t, body, "1178.82")
	assert.Contains(t, body, "Pune")
}

func TestNoop(t *testing.T) {
	var n Notifier = Noop{}
	assert.NoError(t, n.OrderConfirmed(context.Background(), models.Account{}, models.Order{}))
}

func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestConfirmationMessage(t *testing.T) {
	n, err := NewSMTP(SMTPConfig{Host: "127.0.0.1", Port: closedPort(t), From: "orders@shop.example"})
	require.NoError(t, err)

	order := models.Order{
		ID:             primitive.NewObjectID(),
		OrderItems:     []models.OrderItem{{Name: "Kettle", Quantity: 1, Price: 100}},
		PaymentDetails: models.PaymentDetails{TransactionID: "UPI1234567890"},
		TotalPrice:     118,
	}
	msg, err := n.confirmation(models.Account{Name: "Asha", Email: "asha@example.com"}, order)
	require.NoError(t, err)

	recipients, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"asha@example.com"}, recipients)

	from := msg.GetFrom()
	require.Len(t, from, 1)
	assert.Equal(t, "orders@shop.example", from[0].Address)
	assert.Equal(t, []string{"Order " + order.ID.Hex() + " confirmed"}, msg.GetGenHeader(mail.HeaderSubject))

	var raw bytes.Buffer
	_, err = msg.WriteTo(&raw)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), "text/html")
	assert.Contains(t, raw.String(), "asha@example.com")

	_, err = n.confirmation(models.Account{Email: "not an address"}, order)
	assert.Error(t, err)
}

func TestOrderConfirmedReportsSendFailure(t *testing.T) {
	n, err := NewSMTP(SMTPConfig{Host: "127.0.0.1", Port: closedPort(t), From: "orders@shop.example"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = n.OrderConfirmed(ctx, models.Account{Email: "asha@example.com"}, models.Order{ID: primitive.NewObjectID()})
	assert.ErrorContains(t, err, "send confirmation")
}
