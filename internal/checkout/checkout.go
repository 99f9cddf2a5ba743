// Package checkout turns a shopper's cart into a confirmed order: stock validation, order
// creation and the UPI payment step that decrements stock.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/333Kunal/E-com/internal/database"
	"github.com/333Kunal/E-com/internal/lock"
	"github.com/333Kunal/E-com/internal/models"
	"github.com/333Kunal/E-com/internal/notify"
	"github.com/333Kunal/E-com/internal/payment"
	"github.com/333Kunal/E-com/internal/pricing"
)

const notifyTimeout = 30 * time.Second

type Config struct {
	// Locker serialises verification of the same order. Defaults to an in-process
	// KeyedMutex.
	Locker lock.Locker
	// Notifier receives confirmed orders. Recipients are loaded through Accounts; without
	// Accounts no message is sent.
	Notifier notify.Notifier
	Accounts database.AccountStore
	// Pricing defaults to pricing.DefaultPolicy. It is only consulted for StrictPricing and
	// payment requests.
	Pricing       *pricing.Policy
	StrictPricing bool
	Merchant      payment.Merchant
	Now           func() time.Time
}

type Service struct {
	products database.ProductStore
	orders   database.OrderStore
	accounts database.AccountStore
	locker   lock.Locker
	notifier notify.Notifier
	pricing  pricing.Policy
	strict   bool
	merchant payment.Merchant
	now      func() time.Time
	log      *logrus.Entry

	// notifications tracks confirmation e-mails still being sent.
	notifications sync.WaitGroup
}

func New(products database.ProductStore, orders database.OrderStore, cfg Config) *Service {
	s := &Service{
		products: products,
		orders:   orders,
		accounts: cfg.Accounts,
		locker:   cfg.Locker,
		notifier: cfg.Notifier,
		pricing:  pricing.DefaultPolicy(),
		strict:   cfg.StrictPricing,
		merchant: cfg.Merchant,
		now:      cfg.Now,
		log:      logrus.WithField("component", "checkout"),
	}
	if s.locker == nil {
		s.locker = lock.NewKeyedMutex()
	}
	if s.notifier == nil {
		s.notifier = notify.Noop{}
	}
	if cfg.Pricing != nil {
		s.pricing = *cfg.Pricing
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CartLine is one entry of the cart being checked.
type CartLine struct {
	ProductID string `json:"_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// ValidateStock checks every line against current stock without changing anything. All
// problems are reported together in a *StockError.
func (s *Service) ValidateStock(ctx context.Context, lines []CartLine) error {
	if len(lines) == 0 {
		return invalid("No cart items provided")
	}
	for i, line := range lines {
		if line.Quantity < 1 {
			return invalid("cartItems[%d]: quantity must be at least 1", i)
		}
	}

	issues, err := s.stockIssues(ctx, lines)
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		s.log.WithField("issues", len(issues)).Info("stock validation failed")
		return &StockError{Message: msgStockIssues, Issues: issues}
	}
	return nil
}

func (s *Service) stockIssues(ctx context.Context, lines []CartLine) ([]StockIssue, error) {
	issues := make([]StockIssue, 0)
	for _, line := range lines {
		notFound := StockIssue{
			ProductID:   line.ProductID,
			ProductName: line.Name,
			Requested:   line.Quantity,
			Issue:       IssueProductNotFound,
		}

		id, err := primitive.ObjectIDFromHex(line.ProductID)
		if err != nil {
			issues = append(issues, notFound)
			continue
		}

		product, err := s.products.FindByID(ctx, id)
		if errors.Is(err, database.ErrNotFound) {
			issues = append(issues, notFound)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", line.ProductID, err)
		}

		if product.Stock < line.Quantity {
			issue := IssueInsufficientStock
			if product.Stock == 0 {
				issue = IssueOutOfStock
			}
			issues = append(issues, StockIssue{
				ProductID:   product.ID.Hex(),
				ProductName: product.Name,
				Requested:   line.Quantity,
				Available:   product.Stock,
				Issue:       issue,
			})
		}
	}
	return issues, nil
}

// OrderLine is a line item as the client captured it.
type OrderLine struct {
	ProductID string  `json:"product"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
}

type CreateOrderInput struct {
	OrderItems      []OrderLine            `json:"orderItems"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	ItemsPrice      float64                `json:"itemsPrice"`
	TaxPrice        float64                `json:"taxPrice"`
	ShippingPrice   float64                `json:"shippingPrice"`
	TotalPrice      float64                `json:"totalPrice"`
}

// CreateOrder stores a Processing/Pending order after checking stock again. Stock is not
// reserved; prices are taken from the client unless strict pricing is on.
func (s *Service) CreateOrder(ctx context.Context, userID primitive.ObjectID, in CreateOrderInput) (models.Order, error) {
	if len(in.OrderItems) == 0 {
		return models.Order{}, invalid("No order items provided")
	}
	if err := validateOrderInput(&in); err != nil {
		return models.Order{}, err
	}

	lines := make([]CartLine, 0, len(in.OrderItems))
	for _, item := range in.OrderItems {
		lines = append(lines, CartLine{ProductID: item.ProductID, Name: item.Name, Quantity: item.Quantity})
	}
	issues, err := s.stockIssues(ctx, lines)
	if err != nil {
		return models.Order{}, err
	}
	if len(issues) > 0 {
		s.log.WithFields(logrus.Fields{"user_id": userID.Hex(), "issues": len(issues)}).
			Info("stock changed before order creation")
		return models.Order{}, &StockError{Message: msgStockChanged, Issues: issues}
	}

	if s.strict {
		if err := s.checkPrices(ctx, in); err != nil {
			return models.Order{}, err
		}
	}

	items := make([]models.OrderItem, 0, len(in.OrderItems))
	for _, item := range in.OrderItems {
		// ids were checked by stockIssues
		id, _ := primitive.ObjectIDFromHex(item.ProductID)
		items = append(items, models.OrderItem{
			Product:  id,
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price,
			Image:    item.Image,
		})
	}

	order := models.Order{
		User:            userID,
		OrderItems:      items,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   models.PaymentUPI,
		PaymentDetails:  models.PaymentDetails{PaymentStatus: models.PaymentPending},
		ItemsPrice:      in.ItemsPrice,
		TaxPrice:        in.TaxPrice,
		ShippingPrice:   in.ShippingPrice,
		TotalPrice:      in.TotalPrice,
		OrderStatus:     models.OrderProcessing,
		CreatedAt:       s.now(),
	}
	if err := s.orders.Create(ctx, &order); err != nil {
		return models.Order{}, fmt.Errorf("create order: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"order_id": order.ID.Hex(),
		"user_id":  userID.Hex(),
		"items":    len(items),
		"total":    order.TotalPrice,
	}).Info("order created")
	return order, nil
}

func validateOrderInput(in *CreateOrderInput) error {
	for i, item := range in.OrderItems {
		if strings.TrimSpace(item.Name) == "" {
			return invalid("orderItems[%d]: name is required", i)
		}
		if item.Quantity < 1 {
			return invalid("orderItems[%d]: quantity must be at least 1", i)
		}
		if item.Price < 0 {
			return invalid("orderItems[%d]: price must not be negative", i)
		}
	}

	addr := &in.ShippingAddress
	addr.Address = strings.TrimSpace(addr.Address)
	addr.City = strings.TrimSpace(addr.City)
	addr.PostalCode = strings.TrimSpace(addr.PostalCode)
	addr.Country = strings.TrimSpace(addr.Country)
	switch {
	case addr.Address == "":
		return invalid("shippingAddress.address is required")
	case addr.City == "":
		return invalid("shippingAddress.city is required")
	case addr.PostalCode == "":
		return invalid("shippingAddress.postalCode is required")
	}
	if addr.Country == "" {
		addr.Country = models.DefaultCountry
	}

	for _, amount := range []struct {
		name  string
		value float64
	}{
		{"itemsPrice", in.ItemsPrice},
		{"taxPrice", in.TaxPrice},
		{"shippingPrice", in.ShippingPrice},
		{"totalPrice", in.TotalPrice},
	} {
		if amount.value < 0 {
			return invalid("%s must not be negative", amount.name)
		}
	}
	return nil
}

// checkPrices recomputes every amount from the catalog.
func (s *Service) checkPrices(ctx context.Context, in CreateOrderInput) error {
	lines := make([]pricing.Line, 0, len(in.OrderItems))
	for i, item := range in.OrderItems {
		id, _ := primitive.ObjectIDFromHex(item.ProductID)
		product, err := s.products.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("load product %s: %w", item.ProductID, err)
		}

		catalog := decimal.NewFromFloat(product.Price)
		if !decimal.NewFromFloat(item.Price).Equal(catalog) {
			return &PricingError{Field: fmt.Sprintf("orderItems[%d].price", i), Expected: catalog, Got: item.Price}
		}
		lines = append(lines, pricing.Line{UnitPrice: catalog, Quantity: item.Quantity})
	}

	quote := s.pricing.Quote(lines)
	for _, check := range []struct {
		field string
		want  decimal.Decimal
		got   float64
	}{
		{"itemsPrice", quote.Items, in.ItemsPrice},
		{"taxPrice", quote.Tax, in.TaxPrice},
		{"shippingPrice", quote.Shipping, in.ShippingPrice},
		{"totalPrice", quote.Total, in.TotalPrice},
	} {
		if !pricing.Matches(check.got, check.want) {
			return &PricingError{Field: check.field, Expected: check.want, Got: check.got}
		}
	}
	return nil
}

// PaymentProof is what the shopper reports after paying through their UPI app.
type PaymentProof struct {
	TransactionID string `json:"transactionId"`
	UpiID         string `json:"upiId"`
}

// VerifyPayment settles a pending order. A rejected proof cancels the order. An accepted
// proof decrements stock for every line or for none of them, then confirms the order.
func (s *Service) VerifyPayment(ctx context.Context, callerID primitive.ObjectID, orderID string, proof PaymentProof) (models.Order, error) {
	id, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return models.Order{}, ErrOrderNotFound
	}

	release, err := s.locker.Lock(ctx, "order:"+id.Hex())
	if err != nil {
		return models.Order{}, fmt.Errorf("lock order %s: %w", id.Hex(), err)
	}
	defer release()

	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	if order.User != callerID {
		return models.Order{}, ErrNotOrderOwner
	}
	if !order.Pending() {
		return models.Order{}, ErrOrderAlreadyProcessed
	}

	logger := s.log.WithFields(logrus.Fields{"order_id": id.Hex(), "user_id": callerID.Hex()})

	if !payment.AcceptProof(proof.TransactionID) {
		_, err := s.transition(ctx, id, database.PaymentTransition{
			OrderStatus: models.OrderCancelled,
			PaymentDetails: models.PaymentDetails{
				UpiID:         proof.UpiID,
				TransactionID: proof.TransactionID,
				PaymentStatus: models.PaymentFailed,
			},
		})
		if err != nil {
			return models.Order{}, err
		}
		logger.Warn("payment proof rejected, order cancelled")
		return models.Order{}, ErrPaymentRejected
	}

	applied := make([]models.OrderItem, 0, len(order.OrderItems))
	for _, item := range order.OrderItems {
		err := s.products.DecrementStock(ctx, item.Product, item.Quantity)
		if err == nil {
			applied = append(applied, item)
			continue
		}

		if rbErr := s.restore(ctx, id, applied); rbErr != nil {
			return models.Order{}, rbErr
		}

		var reason string
		switch {
		case errors.Is(err, database.ErrNotFound):
			reason = IssueProductNotFound
		case errors.Is(err, database.ErrInsufficientStock):
			reason = IssueInsufficientStock
		default:
			return models.Order{}, fmt.Errorf("decrement stock for %s: %w", item.Product.Hex(), err)
		}
		logger.WithFields(logrus.Fields{"product_id": item.Product.Hex(), "reason": reason}).
			Info("payment accepted but stock unavailable")
		return models.Order{}, &LineItemError{
			ProductID:   item.Product.Hex(),
			ProductName: item.Name,
			Requested:   item.Quantity,
			Reason:      reason,
		}
	}

	paidAt := s.now()
	confirmed, err := s.transition(ctx, id, database.PaymentTransition{
		OrderStatus: models.OrderConfirmed,
		PaymentDetails: models.PaymentDetails{
			UpiID:         proof.UpiID,
			TransactionID: proof.TransactionID,
			PaymentStatus: models.PaymentSuccess,
			PaidAt:        &paidAt,
		},
	})
	if err != nil {
		if rbErr := s.restore(ctx, id, applied); rbErr != nil {
			return models.Order{}, rbErr
		}
		return models.Order{}, err
	}

	logger.WithField("transaction_id", proof.TransactionID).Info("payment verified, order confirmed")
	s.notifyConfirmed(confirmed)
	return confirmed, nil
}

func (s *Service) loadOrder(ctx context.Context, id primitive.ObjectID) (models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return models.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("load order %s: %w", id.Hex(), err)
	}
	return order, nil
}

func (s *Service) transition(ctx context.Context, id primitive.ObjectID, t database.PaymentTransition) (models.Order, error) {
	order, err := s.orders.TransitionPayment(ctx, id, t)
	switch {
	case errors.Is(err, database.ErrConflict):
		return models.Order{}, ErrOrderAlreadyProcessed
	case errors.Is(err, database.ErrNotFound):
		return models.Order{}, ErrOrderNotFound
	case err != nil:
		return models.Order{}, fmt.Errorf("update order %s: %w", id.Hex(), err)
	}
	return order, nil
}

// restore gives back applied decrements in reverse order. It keeps going after a failure
// so as little stock as possible stays decremented.
func (s *Service) restore(ctx context.Context, orderID primitive.ObjectID, applied []models.OrderItem) error {
	ctx = context.WithoutCancel(ctx)

	var (
		stuck []AppliedLine
		first error
	)
	for i := len(applied) - 1; i >= 0; i-- {
		item := applied[i]
		if err := s.products.IncrementStock(ctx, item.Product, item.Quantity); err != nil {
			s.log.WithFields(logrus.Fields{
				"order_id":   orderID.Hex(),
				"product_id": item.Product.Hex(),
				"quantity":   item.Quantity,
			}).WithError(err).Error("stock restore failed")
			stuck = append(stuck, AppliedLine{ProductID: item.Product.Hex(), ProductName: item.Name, Quantity: item.Quantity})
			if first == nil {
				first = err
			}
		}
	}
	if len(stuck) > 0 {
		return &PartiallyAppliedError{OrderID: orderID.Hex(), Lines: stuck, Cause: first}
	}
	return nil
}

func (s *Service) notifyConfirmed(order models.Order) {
	if s.accounts == nil {
		return
	}

	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		logger := s.log.WithField("order_id", order.ID.Hex())
		account, err := s.accounts.FindByID(ctx, order.User)
		if err != nil {
			logger.WithError(err).Warn("confirmation skipped, account lookup failed")
			return
		}
		if err := s.notifier.OrderConfirmed(ctx, account, order); err != nil {
			logger.WithError(err).Warn("confirmation e-mail failed")
		}
	}()
}

// Wait blocks until every confirmation e-mail started so far has been sent or has failed.
func (s *Service) Wait() {
	s.notifications.Wait()
}

func (s *Service) MyOrders(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns the order to its owner or to a privileged viewer.
func (s *Service) GetOrder(ctx context.Context, viewer primitive.ObjectID, privileged bool, orderID string) (models.Order, error) {
	id, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return models.Order{}, ErrOrderNotFound
	}
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	if order.User != viewer && !privileged {
		return models.Order{}, ErrNotOrderOwner
	}
	return order, nil
}

type OrdersSummary struct {
	Orders      []models.Order  `json:"orders"`
	Count       int             `json:"count"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// AllOrders lists every order, newest first, with the sum of their totals.
func (s *Service) AllOrders(ctx context.Context) (OrdersSummary, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return OrdersSummary{}, fmt.Errorf("list orders: %w", err)
	}

	amounts := make([]float64, 0, len(orders))
	for _, order := range orders {
		amounts = append(amounts, order.TotalPrice)
	}
	return OrdersSummary{
		Orders:      orders,
		Count:       len(orders),
		TotalAmount: pricing.Sum(amounts...),
	}, nil
}

func (s *Service) DeleteOrder(ctx context.Context, orderID string) error {
	id, err := primitive.ObjectIDFromHex(orderID)
	if err != nil {
		return ErrOrderNotFound
	}
	err = s.orders.Delete(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("delete order %s: %w", orderID, err)
	}
	s.log.WithField("order_id", orderID).Info("order deleted")
	return nil
}

// PaymentRequest builds the UPI link and QR code for a pending order of the caller.
func (s *Service) PaymentRequest(ctx context.Context, callerID primitive.ObjectID, orderID string) (payment.Request, error) {
	order, err := s.GetOrder(ctx, callerID, false, orderID)
	if err != nil {
		return payment.Request{}, err
	}
	if !order.Pending() {
		return payment.Request{}, ErrOrderAlreadyProcessed
	}
	return payment.NewRequest(s.merchant, decimal.NewFromFloat(order.TotalPrice), order.ID.Hex())
}
