package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/333Kunal/E-com/internal/database"
)

/* =======================
   CREATE
======================= */

func CreateProduct(products database.ProductStore, images *ImageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PRODUCT"
		defer handlePanic(c, route)

		userID, ok := callerID(c, route)
		if !ok {
			return
		}

		req, err := parseProductRequest(c, images)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		product, problem := req.newProduct()
		if problem != "" {
			discardUpload(c, images, req)
			respondWithError(c, http.StatusBadRequest, route, problem)
			return
		}
		product.CreatedBy = userID

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := products.Create(ctx, &product); err != nil {
			discardUpload(c, images, req)
			respondInternal(c, route, "Error creating product", err)
			return
		}

		routeLog(route).WithFields(logrus.Fields{
			"productId": product.ID.Hex(),
			"name":      product.Name,
		}).Info("product created")
		respondOK(c, http.StatusCreated, gin.H{
			"message": "Product created successfully",
			"product": product,
		})
	}
}

/* =======================
   UPDATE
======================= */

func UpdateProduct(products database.ProductStore, images *ImageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PRODUCT"
		defer handlePanic(c, route)

		id, ok := pathObjectID(c, route, "id", "Product not found")
		if !ok {
			return
		}

		req, err := parseProductRequest(c, images)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		update, problem := req.update()
		if problem != "" {
			discardUpload(c, images, req)
			respondWithError(c, http.StatusBadRequest, route, problem)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		var previousImage string
		if update.Image != nil {
			if existing, err := products.FindByID(ctx, id); err == nil {
				previousImage = existing.Image
			}
		}

		product, err := products.Update(ctx, id, update)
		if errors.Is(err, database.ErrNotFound) {
			discardUpload(c, images, req)
			respondWithError(c, http.StatusNotFound, route, "Product not found")
			return
		}
		if err != nil {
			discardUpload(c, images, req)
			respondInternal(c, route, "Error updating product", err)
			return
		}

		if previousImage != "" && previousImage != product.Image {
			removeImage(images, route, previousImage)
		}

		respondOK(c, http.StatusOK, gin.H{
			"message": "Product updated successfully",
			"product": product,
		})
	}
}

/* =======================
   DELETE
======================= */

func DeleteProduct(products database.ProductStore, images *ImageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PRODUCT"
		defer handlePanic(c, route)

		id, ok := pathObjectID(c, route, "id", "Product not found")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		product, err := products.Delete(ctx, id)
		if errors.Is(err, database.ErrNotFound) {
			respondWithError(c, http.StatusNotFound, route, "Product not found")
			return
		}
		if err != nil {
			respondInternal(c, route, "Error deleting product", err)
			return
		}

		removeImage(images, route, product.Image)

		routeLog(route).WithField("productId", id.Hex()).Info("product deleted")
		respondOK(c, http.StatusOK, gin.H{"message": "Product deleted successfully"})
	}
}

// discardUpload removes an image saved while parsing a multipart request that was
// then rejected.
func discardUpload(c *gin.Context, images *ImageStore, req ProductRequest) {
	if isMultipart(c) && len(c.Request.MultipartForm.File["image"]) > 0 && req.Image != nil {
		removeImage(images, "PRODUCT", *req.Image)
	}
}

func removeImage(images *ImageStore, route, image string) {
	if err := images.Delete(image); err != nil && !errors.Is(err, errForeignUpload) {
		routeLog(route).WithError(err).WithField("image", image).Warn("image delete failed")
	}
}
