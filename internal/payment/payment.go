// Package payment holds the UPI side of checkout: the proof check applied to a
// client-reported transaction and the payment request shown to the shopper.
package payment

import (
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// MinTransactionIDLength is the shortest transaction reference that is accepted.
const MinTransactionIDLength = 11

// AcceptProof is the only verification applied: the reference must be longer than ten
// characters. Nothing is checked against a payment provider.
func AcceptProof(transactionID string) bool {
	return len(transactionID) >= MinTransactionIDLength
}

type Merchant struct {
	UpiID string
	Name  string
}

// Request is what a shopper needs to pay for one order.
type Request struct {
	Link   string          `json:"upiLink"`
	QRCode string          `json:"qrCode"`
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

// Link builds a upi://pay deep link for amount, tagged with the order id.
func Link(m Merchant, amount decimal.Decimal, orderID string) string {
	q := url.Values{}
	q.Set("pa", m.UpiID)
	q.Set("pn", m.Name)
	q.Set("am", amount.StringFixed(2))
	q.Set("cu", "INR")
	q.Set("tn", "Order "+orderID)
	return "upi://pay?" + q.Encode()
}

// NewRequest renders the link and its QR code as a PNG data URI.
func NewRequest(m Merchant, amount decimal.Decimal, orderID string) (Request, error) {
	link := Link(m, amount, orderID)

	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return Request{}, fmt.Errorf("encode upi qr: %w", err)
	}

	return Request{
		Link:   link,
		QRCode: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		Amount: amount,
		Note:   "Order " + orderID,
	}, nil
}
