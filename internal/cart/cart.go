// Package cart models the shopper's cart before checkout. It never talks to the stores;
// stock limits are the ones observed when a product was added.
package cart

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/333Kunal/E-com/internal/models"
)

type Item struct {
	ProductID primitive.ObjectID `json:"_id"`
	Name      string             `json:"name"`
	Price     float64            `json:"price"`
	Image     string             `json:"image"`
	Quantity  int                `json:"quantity"`
	MaxStock  int                `json:"maxStock"`
}

// Cart keeps items in the order they were first added.
type Cart struct {
	items []Item
}

func New() *Cart {
	return &Cart{}
}

func (c *Cart) index(id primitive.ObjectID) int {
	for i := range c.items {
		if c.items[i].ProductID == id {
			return i
		}
	}
	return -1
}

// Add puts one unit of product in the cart. It reports false when the product is out of
// stock or the cart already holds all of it.
func (c *Cart) Add(product models.Product) bool {
	if i := c.index(product.ID); i >= 0 {
		if c.items[i].Quantity >= product.Stock {
			return false
		}
		c.items[i].Quantity++
		return true
	}

	if product.Stock <= 0 {
		return false
	}
	c.items = append(c.items, Item{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Image:     product.Image,
		Quantity:  1,
		MaxStock:  product.Stock,
	})
	return true
}

func (c *Cart) Remove(id primitive.ObjectID) {
	if i := c.index(id); i >= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
	}
}

// UpdateQuantity sets the quantity, clamped to the recorded stock. Zero or less removes.
func (c *Cart) UpdateQuantity(id primitive.ObjectID, quantity int) {
	if quantity <= 0 {
		c.Remove(id)
		return
	}
	if i := c.index(id); i >= 0 {
		c.items[i].Quantity = min(quantity, c.items[i].MaxStock)
	}
}

func (c *Cart) Clear() {
	c.items = nil
}

// Items returns a copy of the cart contents.
func (c *Cart) Items() []Item {
	return append([]Item(nil), c.items...)
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func (c *Cart) Count() int {
	count := 0
	for _, item := range c.items {
		count += item.Quantity
	}
	return count
}

func (c *Cart) IsMaxQuantity(id primitive.ObjectID) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	return c.items[i].Quantity >= c.items[i].MaxStock
}

// StockLeft reports how many more units may be added. ok is false when the product is not
// in the cart.
func (c *Cart) StockLeft(id primitive.ObjectID) (left int, ok bool) {
	i := c.index(id)
	if i < 0 {
		return 0, false
	}
	return max(0, c.items[i].MaxStock-c.items[i].Quantity), true
}

func (c *Cart) Contains(id primitive.ObjectID) bool {
	return c.index(id) >= 0
}

func (c *Cart) Quantity(id primitive.ObjectID) int {
	if i := c.index(id); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

// Save writes the cart as a JSON array, the shape clients keep in local storage.
func (c *Cart) Save(w io.Writer) error {
	items := c.items
	if items == nil {
		items = []Item{}
	}
	return json.NewEncoder(w).Encode(items)
}

func Load(r io.Reader) (*Cart, error) {
	var items []Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	c := New()
	for _, item := range items {
		if item.Quantity <= 0 || c.Contains(item.ProductID) {
			continue
		}
		c.items = append(c.items, item)
	}
	return c, nil
}
