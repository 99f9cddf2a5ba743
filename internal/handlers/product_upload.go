package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/333Kunal/E-com/internal/models"
)

// ProductRequest is the writable part of a product. Nil fields were not sent.
type ProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Category    *string  `json:"category"`
	Image       *string  `json:"image"`
	Stock       *int     `json:"stock"`
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.GetHeader("Content-Type"), "multipart/form-data")
}

// parseProductRequest accepts either a JSON body or a multipart form. A multipart
// "image" file is saved through images and replaces any image field.
func parseProductRequest(c *gin.Context, images *ImageStore) (ProductRequest, error) {
	if !isMultipart(c) {
		var req ProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return ProductRequest{}, errors.New("invalid request body")
		}
		return req, nil
	}
	return parseMultipartProductRequest(c, images)
}

func parseMultipartProductRequest(c *gin.Context, images *ImageStore) (ProductRequest, error) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		return ProductRequest{}, fmt.Errorf("invalid multipart form: %w", err)
	}

	form := c.Request.MultipartForm
	last := func(key string) (string, bool) {
		values := form.Value[key]
		if len(values) == 0 {
			return "", false
		}
		return strings.TrimSpace(values[len(values)-1]), true
	}

	req := ProductRequest{}
	if v, ok := last("name"); ok {
		req.Name = &v
	}
	if v, ok := last("description"); ok {
		req.Description = &v
	}
	if v, ok := last("category"); ok {
		req.Category = &v
	}
	if v, ok := last("image"); ok {
		req.Image = &v
	}
	if v, ok := last("price"); ok {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return ProductRequest{}, fmt.Errorf("invalid price: %s", v)
		}
		req.Price = &price
	}
	if v, ok := last("stock"); ok {
		stock, err := strconv.Atoi(v)
		if err != nil {
			return ProductRequest{}, fmt.Errorf("invalid stock: %s", v)
		}
		req.Stock = &stock
	}

	if files := form.File["image"]; len(files) > 0 {
		saved, err := images.Save(files[len(files)-1])
		if err != nil {
			return ProductRequest{}, err
		}
		req.Image = &saved
	}
	return req, nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

const (
	msgProductFieldsRequired = "Please provide all required fields"
	msgNonPositivePrice      = "Price must be greater than zero"
	msgNegativeStock         = "Stock cannot be negative"
)

// newProduct validates a create request and returns the problem message when it is
// rejected. Name, description, price, category and image are required; stock
// defaults to zero.
func (r ProductRequest) newProduct() (models.Product, string) {
	if trimmed(r.Name) == "" || trimmed(r.Description) == "" || r.Price == nil ||
		trimmed(r.Category) == "" || trimmed(r.Image) == "" {
		return models.Product{}, msgProductFieldsRequired
	}
	if *r.Price <= 0 {
		return models.Product{}, msgNonPositivePrice
	}
	stock := 0
	if r.Stock != nil {
		stock = *r.Stock
	}
	if stock < 0 {
		return models.Product{}, msgNegativeStock
	}
	return models.Product{
		Name:        trimmed(r.Name),
		Description: trimmed(r.Description),
		Price:       *r.Price,
		Category:    trimmed(r.Category),
		Image:       trimmed(r.Image),
		Stock:       stock,
	}, ""
}

// update turns the request into a partial update. Empty strings leave the field
// unchanged.
func (r ProductRequest) update() (models.ProductUpdate, string) {
	var u models.ProductUpdate
	set := func(dst **string, src *string) {
		if v := trimmed(src); v != "" {
			*dst = &v
		}
	}
	set(&u.Name, r.Name)
	set(&u.Description, r.Description)
	set(&u.Category, r.Category)
	set(&u.Image, r.Image)

	if r.Price != nil {
		if *r.Price <= 0 {
			return models.ProductUpdate{}, msgNonPositivePrice
		}
		u.Price = r.Price
	}
	if r.Stock != nil {
		if *r.Stock < 0 {
			return models.ProductUpdate{}, msgNegativeStock
		}
		u.Stock = r.Stock
	}
	return u, ""
}

// UploadProductImage stores a single multipart "image" file and returns its path.
func UploadProductImage(images *ImageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "UPLOAD"
		defer handlePanic(c, route)

		if !isMultipart(c) {
			respondWithError(c, http.StatusUnsupportedMediaType, route, "multipart/form-data required")
			return
		}

		file, err := c.FormFile("image")
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "image file is required")
			return
		}

		saved, err := images.Save(file)
		if err != nil {
			if isImageRejection(err) {
				respondWithError(c, http.StatusBadRequest, route, err.Error())
				return
			}
			respondInternal(c, route, "Error saving image", err)
			return
		}

		respondOK(c, http.StatusCreated, gin.H{"image": saved})
	}
}
