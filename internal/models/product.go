package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Price       float64            `bson:"price" json:"price"`
	Category    string             `bson:"category" json:"category"`
	Image       string             `bson:"image" json:"image"`
	Stock       int                `bson:"stock" json:"stock"`
	InStock     bool               `bson:"-" json:"inStock"`
	CreatedBy   primitive.ObjectID `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ProductUpdate carries the fields an administrator may change. Nil fields are left as they are.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *float64
	Category    *string
	Image       *string
	Stock       *int
}

// IsEmpty reports whether the update would change nothing.
func (u ProductUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Price == nil &&
		u.Category == nil && u.Image == nil && u.Stock == nil
}

// ProductFilter narrows catalog listings. Zero Page or Limit disables pagination.
type ProductFilter struct {
	Category string
	Search   string
	Page     int64
	Limit    int64
}
