package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/333Kunal/E-com/internal/database"
	"github.com/333Kunal/E-com/internal/models"
)

/*
GET /api/products
- category and search are optional filters
- pagination only applies when page or limit is given
*/
func GetProducts(products database.ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products"
		defer handlePanic(c, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
			return
		}

		filter := models.ProductFilter{
			Category: strings.TrimSpace(c.Query("category")),
			Search:   strings.TrimSpace(c.Query("search")),
			Page:     page,
			Limit:    limit,
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		list, total, err := products.List(ctx, filter)
		if err != nil {
			respondInternal(c, route, "Error fetching products", err)
			return
		}

		routeLog(route).WithFields(logrus.Fields{
			"category": filter.Category,
			"search":   filter.Search,
			"count":    len(list),
		}).Debug("products listed")

		payload := gin.H{"count": len(list), "total": total, "products": list}
		if limit > 0 {
			payload["page"] = page
			payload["limit"] = limit
		}
		respondOK(c, http.StatusOK, payload)
	}
}

func GetProduct(products database.ProductStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:id"
		defer handlePanic(c, route)

		id, ok := pathObjectID(c, route, "id", "Product not found")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := products.FindByID(ctx, id)
		if errors.Is(err, database.ErrNotFound) {
			respondWithError(c, http.StatusNotFound, route, "Product not found")
			return
		}
		if err != nil {
			respondInternal(c, route, "Error fetching product", err)
			return
		}

		respondOK(c, http.StatusOK, gin.H{"product": product})
	}
}
