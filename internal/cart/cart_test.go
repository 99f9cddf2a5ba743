package cart

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/333Kunal/E-com/internal/models"
)

func product(stock int, price float64) models.Product {
	return models.Product{ID: primitive.NewObjectID(), Name: "Kettle", Price: price, Stock: stock}
}

func TestAddRespectsStock(t *testing.T) {
	c := New()
	p := product(2, 100)

	assert.True(t, c.Add(p))
	assert.True(t, c.Add(p))
	assert.False(t, c.Add(p))
	assert.Equal(t, 2, c.Quantity(p.ID))
	assert.True(t, c.IsMaxQuantity(p.ID))

	assert.False(t, c.Add(product(0, 10)))
	assert.Equal(t, 1, len(c.Items()))
}

func TestUpdateQuantityClampsAndRemoves(t *testing.T) {
	c := New()
	p := product(3, 10)
	c.Add(p)

	c.UpdateQuantity(p.ID, 10)
	assert.Equal(t, 3, c.Quantity(p.ID))

	left, ok := c.StockLeft(p.ID)
	assert.True(t, ok)
	assert.Equal(t, 0, left)

	c.UpdateQuantity(p.ID, 1)
	left, _ = c.StockLeft(p.ID)
	assert.Equal(t, 2, left)

	c.UpdateQuantity(p.ID, 0)
	assert.False(t, c.Contains(p.ID))

	_, ok = c.StockLeft(p.ID)
	assert.False(t, ok)
}

func TestTotalsAndClear(t *testing.T) {
	c := New()
	a := product(5, 0.1)
	b := product(5, 0.2)
	c.Add(a)
	c.Add(b)
	c.UpdateQuantity(a.ID, 3)

	assert.Equal(t, "0.5", c.Total().String())
	assert.Equal(t, 4, c.Count())

	c.Clear()
	assert.Equal(t, 0, c.Count())
	assert.True(t, c.Total().IsZero())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c := New()
	p := product(4, 250)
	c.Add(p)
	c.UpdateQuantity(p.ID, 2)

	var buf bytes.Buffer
	require.NoError(t, c.Save(&buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, c.Items(), loaded.Items())
	assert.False(t, loaded.IsMaxQuantity(p.ID))
}

func TestLoadRejectsGarbage(t *testing.T) {
	_, err := Load(strings.NewReader("{not json"))
	assert.Error(t, err)
}

func TestEmptyCartSavesArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New().Save(&buf))
	assert.Equal(t, "[]\n", buf.String())
}
