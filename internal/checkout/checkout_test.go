package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/333Kunal/E-com/internal/database"
	"github.com/333Kunal/E-com/internal/database/memstore"
	"github.com/333Kunal/E-com/internal/models"
	"github.com/333Kunal/E-com/internal/payment"
)

const validTxn = "ABCDEFGHIJKL"

type fixture struct {
	stores  database.Stores
	service *Service
	buyer   primitive.ObjectID
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	stores := memstore.New().Stores()
	svc := New(stores.Products, stores.Orders, cfg)
	t.Cleanup(svc.Wait)
	return &fixture{
		stores:  stores,
		service: svc,
		buyer:   primitive.NewObjectID(),
	}
}

func (f *fixture) product(t *testing.T, name string, price float64, stock int) models.Product {
	t.Helper()
	p := models.Product{Name: name, Price: price, Stock: stock, Category: "kitchen"}
	require.NoError(t, f.stores.Products.Create(context.Background(), &p))
	return p
}

func (f *fixture) stock(t *testing.T, id primitive.ObjectID) int {
	t.Helper()
	p, err := f.stores.Products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func orderInput(lines ...OrderLine) CreateOrderInput {
	return CreateOrderInput{
		OrderItems:      lines,
		ShippingAddress: models.ShippingAddress{Address: "12 MG Road", City: "Pune", PostalCode: "411001"},
	}
}

func lineFor(p models.Product, qty int) OrderLine {
	return OrderLine{ProductID: p.ID.Hex(), Name: p.Name, Quantity: qty, Price: p.Price, Image: p.Image}
}

func (f *fixture) placeOrder(t *testing.T, lines ...OrderLine) models.Order {
	t.Helper()
	order, err := f.service.CreateOrder(context.Background(), f.buyer, orderInput(lines...))
	require.NoError(t, err)
	return order
}

func TestValidateStockReportsEveryIssue(t *testing.T) {
	f := newFixture(t, Config{})
	low := f.product(t, "Kettle", 100, 2)
	empty := f.product(t, "Toaster", 50, 0)
	ok := f.product(t, "Mug", 10, 10)
	missing := primitive.NewObjectID().Hex()

	err := f.service.ValidateStock(context.Background(), []CartLine{
		{ProductID: low.ID.Hex(), Name: "Kettle", Quantity: 5},
		{ProductID: empty.ID.Hex(), Name: "Toaster", Quantity: 1},
		{ProductID: ok.ID.Hex(), Name: "Mug", Quantity: 3},
		{ProductID: missing, Name: "Ghost", Quantity: 1},
		{ProductID: "not-an-id", Name: "Typo", Quantity: 1},
	})

	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Some items are out of stock or have insufficient quantity", stockErr.Message)
	require.Len(t, stockErr.Issues, 4)

	assert.Equal(t, StockIssue{ProductID: low.ID.Hex(), ProductName: "Kettle", Requested: 5, Available: 2, Issue: "Insufficient stock"}, stockErr.Issues[0])
	assert.Equal(t, "Out of stock", stockErr.Issues[1].Issue)
	assert.Equal(t, 0, stockErr.Issues[1].Available)
	assert.Equal(t, StockIssue{ProductID: missing, ProductName: "Ghost", Requested: 1, Issue: "Product not found"}, stockErr.Issues[2])
	assert.Equal(t, "Product not found", stockErr.Issues[3].Issue)

	assert.Equal(t, 2, f.stock(t, low.ID))
}

func TestValidateStockAcceptsAvailableCart(t *testing.T) {
	f := newFixture(t, Config{})
	p := f.product(t, "Kettle", 100, 2)

	assert.NoError(t, f.service.ValidateStock(context.Background(), []CartLine{{ProductID: p.ID.Hex(), Quantity: 2}}))
}

func TestValidateStockRejectsMalformedInput(t *testing.T) {
	f := newFixture(t, Config{})
	var vErr *ValidationError

	assert.ErrorAs(t, f.service.ValidateStock(context.Background(), nil), &vErr)
	assert.ErrorAs(t, f.service.ValidateStock(context.Background(), []CartLine{{ProductID: primitive.NewObjectID().Hex(), Quantity: 0}}), &vErr)
}

func TestCreateOrderEmptyWritesNothing(t *testing.T) {
	f := newFixture(t, Config{})

	_, err := f.service.CreateOrder(context.Background(), f.buyer, orderInput())

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "No order items provided", vErr.Message)

	orders, err := f.stores.Orders.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateOrderRechecksStock(t *testing.T) {
	f := newFixture(t, Config{})
	p := f.product(t, "Kettle", 100, 2)
	gone := f.product(t, "Toaster", 50, 0)

	_, err := f.service.CreateOrder(context.Background(), f.buyer, orderInput(lineFor(p, 5), lineFor(gone, 1)))

	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Stock changed during checkout", stockErr.Message)
	require.Len(t, stockErr.Issues, 2)
	assert.Equal(t, 5, stockErr.Issues[0].Requested)
	assert.Equal(t, 2, stockErr.Issues[0].Available)
	assert.Equal(t, "Insufficient stock", stockErr.Issues[0].Issue)
	assert.Equal(t, "Out of stock", stockErr.Issues[1].Issue)

	orders, _ := f.stores.Orders.ListAll(context.Background())
	assert.Empty(t, orders)
}

func TestCreateOrderValidatesFields(t *testing.T) {
	f := newFixture(t, Config{})
	p := f.product(t, "Kettle", 100, 2)

	cases := map[string]func(*CreateOrderInput){
		"missing name":     func(in *CreateOrderInput) { in.OrderItems[0].Name = " " },
		"zero quantity":    func(in *CreateOrderInput) { in.OrderItems[0].Quantity = 0 },
		"negative price":   func(in *CreateOrderInput) { in.OrderItems[0].Price = -1 },
		"missing city":     func(in *CreateOrderInput) { in.ShippingAddress.City = "" },
		"missing postcode": func(in *CreateOrderInput) { in.ShippingAddress.PostalCode = "" },
		"negative total":   func(in *CreateOrderInput) { in.TotalPrice = -5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := orderInput(lineFor(p, 1))
			mutate(&in)
			_, err := f.service.CreateOrder(context.Background(), f.buyer, in)
			var vErr *ValidationError
			assert.ErrorAs(t, err, &vErr)
		})
	}
}

func TestCreateOrderStoresClientSnapshot(t *testing.T) {
	f := newFixture(t, Config{})
	p := f.product(t, "Kettle", 100, 3)

	in := orderInput(OrderLine{ProductID: p.ID.Hex(), Name: "Kettle (old name)", Quantity: 2, Price: 90, Image: "/img/k.png"})
	in.ItemsPrice, in.TaxPrice, in.ShippingPrice, in.TotalPrice = 180, 32.4, 0, 212.4

	order, err := f.service.CreateOrder(context.Background(), f.buyer, in)
	require.NoError(t, err)

	assert.False(t, order.ID.IsZero())
	assert.Equal(t, models.OrderProcessing, order.OrderStatus)
	assert.Equal(t, models.PaymentPending, order.PaymentDetails.PaymentStatus)
	assert.Equal(t, models.PaymentUPI, order.PaymentMethod)
	assert.Equal(t, "India", order.ShippingAddress.Country)
	assert.Equal(t, 90.0, order.OrderItems[0].Price)
	assert.Equal(t, "Kettle (old name)", order.OrderItems[0].Name)
	assert.Equal(t, 212.4, order.TotalPrice)
	assert.Equal(t, 3, f.stock(t, p.ID))
}

func TestStrictPricing(t *testing.T) {
	f := newFixture(t, Config{StrictPricing: true})
	p := f.product(t, "Kettle", 100, 3)

	in := orderInput(lineFor(p, 2))
	in.ItemsPrice, in.TaxPrice, in.ShippingPrice, in.TotalPrice = 200, 36, 0, 236
	_, err := f.service.CreateOrder(context.Background(), f.buyer, in)
	require.NoError(t, err)

	in.TotalPrice = 1
	_, err = f.service.CreateOrder(context.Background(), f.buyer, in)
	var pErr *PricingError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "totalPrice", pErr.Field)
	assert.True(t, decimal.NewFromInt(236).Equal(pErr.Expected))

	cheap := orderInput(OrderLine{ProductID: p.ID.Hex(), Name: "Kettle", Quantity: 1, Price: 1})
	_, err = f.service.CreateOrder(context.Background(), f.buyer, cheap)
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "orderItems[0].price", pErr.Field)
}

func TestVerifyPaymentEndToEnd(t *testing.T) {
	f := newFixture(t, Config{})
	p := f.product(t, "Kettle", 100, 3)

	require.NoError(t, f.service.ValidateStock(context.Background(), []CartLine{{ProductID: p.ID.Hex(), Name: p.Name, Quantity: 2}}))

	in := orderInput(lineFor(p, 2))
	in.ItemsPrice, in.TaxPrice, in.ShippingPrice, in.TotalPrice = 200, 36, 0, 236
	order, err := f.service.CreateOrder(context.Background(), f.buyer, in)
	require.NoError(t, err)
	assert.Equal(t, models.OrderProcessing, order.OrderStatus)
	assert.Equal(t, 3, f.stock(t, p.ID))

	confirmed, err := f.service.VerifyPayment(context.Background(), f.buyer, order.ID.Hex(), PaymentProof{TransactionID: validTxn, UpiID: "asha@okhdfc"})
	require.NoError(t, err)

	assert.Equal(t, models.OrderConfirmed, confirmed.OrderStatus)
	assert.Equal(t, models.PaymentSuccess, confirmed.PaymentDetails.PaymentStatus)
	assert.Equal(t, validTxn, confirmed.PaymentDetails.TransactionID)
	assert.Equal(t, "asha@okhdfc", confirmed.PaymentDetails.UpiID)
	require.NotNil(t, confirmed.PaymentDetails.PaidAt)
	assert.Equal(t, 1, f.stock(t, p.ID))

	_, err = f.service.VerifyPayment(context.Background(), f.buyer, order.ID.Hex(), PaymentProof{TransactionID: validTxn})
	assert.ErrorIs(t, err, ErrOrderAlreadyProcessed)
	assert.Equal(t, 1, f.stock(t, p.ID))
}

func TestVerifyPaymentRejectsShortReference(t *testing.T) {
	for _, txn := range []string{"", "123", "1234567890"} {
		t.Run(fmt.Sprintf("length %d", len(txn)), func(t *testing.T) {
			f := newFixture(t, Config{})
			p := f.product(t, "Kettle", 100, 3)
			order := f.placeOrder(t, lineFor(p, 2))

			_, err := f.service.VerifyPayment(context.Background(), f.buyer, order.ID.Hex(), PaymentProof{TransactionID: txn})
			assert.ErrorIs(t, err, ErrPaymentRejected)

			stored, err := f.stores.Orders.FindByID(context.Background(), order.ID)
			require.NoError(t, err)
			assert.Equal(t, models.OrderCancelled, stored.OrderStatus)
			assert.Equal(t, models.PaymentFailed, stored.PaymentDetails.PaymentStatus)
			assert.Equal(t, 3, f.stock(t, p.ID))
		})
	}
}

func TestVerifyPaymentChecksOwnership(t *testing.T) {
	f := newFixture(t, Config{})
	p := f.product(t, "Kettle", 100, 3)
	order := f.placeOrder(t, lineFor(p, 1))

	_, err := f.service.VerifyPayment(context.Background(), primitive.NewObjectID(), order.ID.Hex(), PaymentProof{TransactionID: validTxn})
	assert.ErrorIs(t, err, ErrNotOrderOwner)

	_, err = f.service.VerifyPayment(context.Background(), f.buyer, primitive.NewObjectID().Hex(), PaymentProof{TransactionID: validTxn})
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.service.VerifyPayment(context.Background(), f.buyer, "bogus", PaymentProof{TransactionID: validTxn})
	assert.ErrorIs(t, err, ErrOrderNotFound)

	assert.Equal(t, 3, f.stock(t, p.ID))
}

func TestVerifyPaymentIsAllOrNothing(t *testing.T) {
	f := newFixture(t, Config{})
	kettle := f.product(t, "Kettle", 100, 5)
	mug := f.product(t, "Mug", 10, 5)
	order := f.placeOrder(t, lineFor(kettle, 2), lineFor(mug, 4))

	// another buyer takes most of the mugs between order creation and payment
	require.NoError(t, f.stores.Products.DecrementStock(context.Background(), mug.ID, 3))

	_, err := f.service.VerifyPayment(context.Background(), f.buyer, order.ID.Hex(), PaymentProof{TransactionID: validTxn})

	var lineErr *LineItemError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, mug.ID.Hex(), lineErr.ProductID)
	assert.Equal(t, "Insufficient stock", lineErr.Reason)

	assert.Equal(t, 5, f.stock(t, kettle.ID))
	assert.Equal(t, 2, f.stock(t, mug.ID))

	stored, err := f.stores.Orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, stored.Pending())
}

func TestVerifyPaymentProductDeleted(t *testing.T) {
	f := newFixture(t, Config{})
	kettle := f.product(t, "Kettle", 100, 5)
	mug := f.product(t, "Mug", 10, 5)
	order := f.placeOrder(t, lineFor(kettle, 1), lineFor(mug, 1))

	_, err := f.stores.Products.Delete(context.Background(), mug.ID)
	require.NoError(t, err)

	_, err = f.service.VerifyPayment(context.Background(), f.buyer, order.ID.Hex(), PaymentProof{TransactionID: validTxn})
	var lineErr *LineItemError
	require.ErrorAs(t, err, &lineErr)
	assert.Equal(t, "Product not found", lineErr.Reason)
	assert.Equal(t, 5, f.stock(t, kettle.ID))
}

type brokenRestore struct {
	database.ProductStore
}

func (b brokenRestore) IncrementStock(context.Context, primitive.ObjectID, int) error {
	return errors.New("connection reset")
}

func TestVerifyPaymentReportsPartialApplication(t *testing.T) {
	stores := memstore.New().Stores()
	svc := New(brokenRestore{stores.Products}, stores.Orders, Config{})
	f := &fixture{stores: stores, service: svc, buyer: primitive.NewObjectID()}

	kettle := f.product(t, "Kettle", 100, 5)
	mug := f.product(t, "Mug", 10, 0)
	order := f.placeOrder(t, lineFor(kettle, 2))
	// add a line the shop cannot serve without going through CreateOrder's stock check
	order.OrderItems = append(order.OrderItems, models.OrderItem{Product: mug.ID, Name: mug.Name, Quantity: 1, Price: 10})
	require.NoError(t, stores.Orders.Delete(context.Background(), order.ID))
	require.NoError(t, stores.Orders.Create(context.Background(), &order))

	_, err := svc.VerifyPayment(context.Background(), f.buyer, order.ID.Hex(), PaymentProof{TransactionID: validTxn})

	var partial *PartiallyAppliedError
	require.ErrorAs(t, err, &partial)
	require.Len(t, partial.Lines, 1)
	assert.Equal(t, kettle.ID.Hex(), partial.Lines[0].ProductID)
	assert.Equal(t, 2, partial.Lines[0].Quantity)
	assert.Contains(t, partial.Error(), "Kettle x2")
	assert.Equal(t, 3, f.stock(t, kettle.ID))

	var lineErr *LineItemError
	assert.False(t, errors.As(err, &lineErr))
}

func TestConcurrentVerificationsNeverOversell(t *testing.T) {
	f := newFixture(t, Config{})
	p := f.product(t, "Kettle", 100, 3)

	orders := make([]models.Order, 6)
	for i := range orders {
		orders[i] = f.placeOrder(t, lineFor(p, 2))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		confirmed int
	)
	for _, order := range orders {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.service.VerifyPayment(context.Background(), f.buyer, id, PaymentProof{TransactionID: validTxn})
			if err == nil {
				mu.Lock()
				confirmed++
				mu.Unlock()
				return
			}
			var lineErr *LineItemError
			assert.ErrorAs(t, err, &lineErr)
		}(order.ID.Hex())
	}
	wg.Wait()

	assert.Equal(t, 1, confirmed)
	assert.Equal(t, 1, f.stock(t, p.ID))
}

func TestConcurrentVerificationOfSameOrder(t *testing.T) {
	f := newFixture(t, Config{})
	p := f.product(t, "Kettle", 100, 10)
	order := f.placeOrder(t, lineFor(p, 2))

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.VerifyPayment(context.Background(), f.buyer, order.ID.Hex(), PaymentProof{TransactionID: validTxn})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrOrderAlreadyProcessed)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 8, f.stock(t, p.ID))
}

type recordingNotifier struct {
	sent chan models.Order
}

func (r recordingNotifier) OrderConfirmed(_ context.Context, to models.Account, order models.Order) error {
	if to.Email == "" {
		return errors.New("no recipient")
	}
	r.sent <- order
	return nil
}

type slowNotifier struct {
	delay time.Duration
	sent  atomic.Int32
}

func (n *slowNotifier) OrderConfirmed(context.Context, models.Account, models.Order) error {
	time.Sleep(n.delay)
	n.sent.Add(1)
	return nil
}

func TestVerifyPaymentNotifiesBuyer(t *testing.T) {
	stores := memstore.New().Stores()
	buyer := models.Account{Name: "Asha", Email: "asha@example.com", Role: models.RoleUser}
	require.NoError(t, stores.Accounts.Create(context.Background(), &buyer))

	notifier := recordingNotifier{sent: make(chan models.Order, 1)}
	svc := New(stores.Products, stores.Orders, Config{Accounts: stores.Accounts, Notifier: notifier})
	f := &fixture{stores: stores, service: svc, buyer: buyer.ID}

	p := f.product(t, "Kettle", 100, 3)
	order := f.placeOrder(t, lineFor(p, 1))

	_, err := svc.VerifyPayment(context.Background(), buyer.ID, order.ID.Hex(), PaymentProof{TransactionID: validTxn})
	require.NoError(t, err)

	svc.Wait()
	select {
	case sent := <-notifier.sent:
		assert.Equal(t, order.ID, sent.ID)
	default:
		t.Fatal("confirmation was not sent")
	}
}

func TestWaitDrainsConfirmations(t *testing.T) {
	stores := memstore.New().Stores()
	buyer := models.Account{Name: "Asha", Email: "asha@example.com", Role: models.RoleUser}
	require.NoError(t, stores.Accounts.Create(context.Background(), &buyer))

	notifier := &slowNotifier{delay: 50 * time.Millisecond}
	svc := New(stores.Products, stores.Orders, Config{Accounts: stores.Accounts, Notifier: notifier})
	f := &fixture{stores: stores, service: svc, buyer: buyer.ID}

	p := f.product(t, "Kettle", 100, 5)
	for i := 0; i < 3; i++ {
		order := f.placeOrder(t, lineFor(p, 1))
		_, err := svc.VerifyPayment(context.Background(), buyer.ID, order.ID.Hex(), PaymentProof{TransactionID: validTxn})
		require.NoError(t, err)
	}

	svc.Wait()
	assert.EqualValues(t, 3, notifier.sent.Load())
}

func TestOrderReads(t *testing.T) {
	f := newFixture(t, Config{})
	p := f.product(t, "Kettle", 100, 10)

	in := orderInput(lineFor(p, 1))
	in.TotalPrice = 0.1
	first, err := f.service.CreateOrder(context.Background(), f.buyer, in)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	in.TotalPrice = 0.2
	second, err := f.service.CreateOrder(context.Background(), f.buyer, in)
	require.NoError(t, err)

	stranger := primitive.NewObjectID()
	_, err = f.service.CreateOrder(context.Background(), stranger, in)
	require.NoError(t, err)

	mine, err := f.service.MyOrders(context.Background(), f.buyer)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)

	_, err = f.service.GetOrder(context.Background(), stranger, false, first.ID.Hex())
	assert.ErrorIs(t, err, ErrNotOrderOwner)
	got, err := f.service.GetOrder(context.Background(), stranger, true, first.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	summary, err := f.service.AllOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, "0.5", summary.TotalAmount.String())

	require.NoError(t, f.service.DeleteOrder(context.Background(), first.ID.Hex()))
	assert.ErrorIs(t, f.service.DeleteOrder(context.Background(), first.ID.Hex()), ErrOrderNotFound)
}

func TestPaymentRequest(t *testing.T) {
	f := newFixture(t, Config{Merchant: payment.Merchant{UpiID: "shop@okaxis", Name: "E-Commerce"}})
	p := f.product(t, "Kettle", 100, 10)

	in := orderInput(lineFor(p, 2))
	in.ItemsPrice, in.TaxPrice, in.TotalPrice = 200, 36, 236
	order, err := f.service.CreateOrder(context.Background(), f.buyer, in)
	require.NoError(t, err)

	req, err := f.service.PaymentRequest(context.Background(), f.buyer, order.ID.Hex())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(req.Link, "upi://pay?"))
	assert.Contains(t, req.Link, "am=236.00")
	assert.NotEmpty(t, req.QRCode)

	_, err = f.service.PaymentRequest(context.Background(), primitive.NewObjectID(), order.ID.Hex())
	assert.ErrorIs(t, err, ErrNotOrderOwner)

	_, err = f.service.VerifyPayment(context.Background(), f.buyer, order.ID.Hex(), PaymentProof{TransactionID: validTxn})
	require.NoError(t, err)
	_, err = f.service.PaymentRequest(context.Background(), f.buyer, order.ID.Hex())
	assert.ErrorIs(t, err, ErrOrderAlreadyProcessed)
}
