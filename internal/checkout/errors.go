package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrNotOrderOwner         = errors.New("not authorized to access this order")
	ErrOrderAlreadyProcessed = errors.New("order has already been processed")
	ErrPaymentRejected       = errors.New("payment verification failed")
)

const (
	IssueProductNotFound   = "Product not found"
	IssueOutOfStock        = "Out of stock"
	IssueInsufficientStock = "Insufficient stock"

	msgStockIssues  = "Some items are out of stock or have insufficient quantity"
	msgStockChanged = "Stock changed during checkout"
)

// ValidationError reports malformed input. Nothing was read or written.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

type StockIssue struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
	Issue       string `json:"issue"`
}

// StockError lists every line that cannot be served from current stock.
type StockError struct {
	Message string
	Issues  []StockIssue
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%s (%d issues)", e.Message, len(e.Issues))
}

// LineItemError is returned when a line could not be decremented during payment
// verification. Every decrement made earlier in the same call has been restored.
type LineItemError struct {
	ProductID   string
	ProductName string
	Requested   int
	Reason      string
}

func (e *LineItemError) Error() string {
	return fmt.Sprintf("%s for %s", e.Reason, e.ProductName)
}

// PricingError is returned by strict pricing when a client amount disagrees with the
// catalog.
type PricingError struct {
	Field    string
	Expected decimal.Decimal
	Got      float64
}

func (e *PricingError) Error() string {
	return fmt.Sprintf("%s mismatch: expected %s, got %.2f", e.Field, e.Expected.StringFixed(2), e.Got)
}

// AppliedLine is a decrement that could not be undone.
type AppliedLine struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

// PartiallyAppliedError means a failed verification left some stock decremented because
// restoring it failed too. The order itself is unchanged.
type PartiallyAppliedError struct {
	OrderID string
	Lines   []AppliedLine
	Cause   error
}

func (e *PartiallyAppliedError) Error() string {
	names := make([]string, 0, len(e.Lines))
	for _, line := range e.Lines {
		names = append(names, fmt.Sprintf("%s x%d", line.ProductName, line.Quantity))
	}
	return fmt.Sprintf("order %s partially applied, stock still decremented for %s: %v",
		e.OrderID, strings.Join(names, ", "), e.Cause)
}

func (e *PartiallyAppliedError) Unwrap() error {
	return e.Cause
}
