package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderProcessing OrderStatus = "Processing"
	OrderConfirmed  OrderStatus = "Confirmed"
	OrderShipped    OrderStatus = "Shipped"
	OrderDelivered  OrderStatus = "Delivered"
	OrderCancelled  OrderStatus = "Cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentSuccess PaymentStatus = "Success"
	PaymentFailed  PaymentStatus = "Failed"
)

type PaymentMethod string

const (
	PaymentUPI PaymentMethod = "UPI"
	PaymentCOD PaymentMethod = "COD"
)

// DefaultCountry is stored when the client leaves the shipping country empty.
const DefaultCountry = "India"

// OrderItem is a point-in-time copy of a product taken when the order was placed.
type OrderItem struct {
	Product  primitive.ObjectID `bson:"product" json:"product"`
	Name     string             `bson:"name" json:"name"`
	Quantity int                `bson:"quantity" json:"quantity"`
	Price    float64            `bson:"price" json:"price"`
	Image    string             `bson:"image" json:"image"`
}

type ShippingAddress struct {
	Address    string `bson:"address" json:"address"`
	City       string `bson:"city" json:"city"`
	PostalCode string `bson:"postalCode" json:"postalCode"`
	Country    string `bson:"country" json:"country"`
}

type PaymentDetails struct {
	UpiID         string        `bson:"upiId,omitempty" json:"upiId,omitempty"`
	TransactionID string        `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	PaymentStatus PaymentStatus `bson:"paymentStatus" json:"paymentStatus"`
	PaidAt        *time.Time    `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
}

// Order defines the persisted order document.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User            primitive.ObjectID `bson:"user" json:"user"`
	OrderItems      []OrderItem        `bson:"orderItems" json:"orderItems"`
	ShippingAddress ShippingAddress    `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod   PaymentMethod      `bson:"paymentMethod" json:"paymentMethod"`
	PaymentDetails  PaymentDetails     `bson:"paymentDetails" json:"paymentDetails"`
	ItemsPrice      float64            `bson:"itemsPrice" json:"itemsPrice"`
	TaxPrice        float64            `bson:"taxPrice" json:"taxPrice"`
	ShippingPrice   float64            `bson:"shippingPrice" json:"shippingPrice"`
	TotalPrice      float64            `bson:"totalPrice" json:"totalPrice"`
	OrderStatus     OrderStatus        `bson:"orderStatus" json:"orderStatus"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	DeliveredAt     *time.Time         `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
}

// Pending reports whether the order is still waiting for its payment step.
func (o Order) Pending() bool {
	return o.OrderStatus == OrderProcessing && o.PaymentDetails.PaymentStatus == PaymentPending
}

// Clone returns a copy that shares no slices or pointers with o.
func (o Order) Clone() Order {
	out := o
	out.OrderItems = append([]OrderItem(nil), o.OrderItems...)
	if o.PaymentDetails.PaidAt != nil {
		paidAt := *o.PaymentDetails.PaidAt
		out.PaymentDetails.PaidAt = &paidAt
	}
	if o.DeliveredAt != nil {
		deliveredAt := *o.DeliveredAt
		out.DeliveredAt = &deliveredAt
	}
	return out
}
