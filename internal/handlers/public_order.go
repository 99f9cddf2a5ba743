package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/333Kunal/E-com/internal/auth"
	"github.com/333Kunal/E-com/internal/checkout"
	"github.com/333Kunal/E-com/internal/middleware"
)

type validateStockRequest struct {
	CartItems []checkout.CartLine `json:"cartItems"`
}

// respondCheckoutError maps checkout errors onto statuses. forbidden is the message
// used when the caller does not own the order.
func respondCheckoutError(c *gin.Context, route string, err error, fallback, forbidden string) {
	var (
		validationErr *checkout.ValidationError
		stockErr      *checkout.StockError
		lineErr       *checkout.LineItemError
		pricingErr    *checkout.PricingError
		partialErr    *checkout.PartiallyAppliedError
	)

	switch {
	case errors.As(err, &partialErr):
		respondInternal(c, route, fallback, err)
	case errors.As(err, &validationErr):
		respondWithError(c, http.StatusBadRequest, route, validationErr.Message)
	case errors.As(err, &stockErr):
		routeLog(route).WithField("issues", len(stockErr.Issues)).Info(stockErr.Message)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success":     false,
			"message":     stockErr.Message,
			"stockIssues": stockErr.Issues,
		})
	case errors.As(err, &lineErr):
		routeLog(route).WithField("productId", lineErr.ProductID).Info(lineErr.Error())
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"message":   lineErr.Error(),
			"productId": lineErr.ProductID,
			"requested": lineErr.Requested,
		})
	case errors.As(err, &pricingErr):
		respondWithError(c, http.StatusBadRequest, route, pricingErr.Error())
	case errors.Is(err, checkout.ErrOrderNotFound):
		respondWithError(c, http.StatusNotFound, route, "Order not found")
	case errors.Is(err, checkout.ErrNotOrderOwner):
		respondWithError(c, http.StatusForbidden, route, forbidden)
	case errors.Is(err, checkout.ErrOrderAlreadyProcessed):
		respondWithError(c, http.StatusBadRequest, route, "Order has already been processed")
	case errors.Is(err, checkout.ErrPaymentRejected):
		respondWithError(c, http.StatusBadRequest, route, "Payment verification failed")
	default:
		respondInternal(c, route, fallback, err)
	}
}

// POST /api/orders/validate-stock
func ValidateStock(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "ORDER"
		defer handlePanic(c, route)

		var req validateStockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.ValidateStock(ctx, req.CartItems); err != nil {
			respondCheckoutError(c, route, err, "Error validating stock", "")
			return
		}

		respondOK(c, http.StatusOK, gin.H{"message": "All items are available"})
	}
}

// POST /api/orders/create
func CreateOrder(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "ORDER"
		defer handlePanic(c, route)

		userID, ok := callerID(c, route)
		if !ok {
			return
		}

		var req checkout.CreateOrderInput
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := svc.CreateOrder(ctx, userID, req)
		if err != nil {
			respondCheckoutError(c, route, err, "Error creating order", "")
			return
		}

		respondOK(c, http.StatusCreated, gin.H{
			"message": "Order created successfully",
			"order":   order,
		})
	}
}

// PUT /api/orders/verify-payment/:orderId
func VerifyPayment(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PAYMENT"
		defer handlePanic(c, route)

		userID, ok := callerID(c, route)
		if !ok {
			return
		}

		var proof checkout.PaymentProof
		if err := c.ShouldBindJSON(&proof); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := svc.VerifyPayment(ctx, userID, c.Param("orderId"), proof)
		if err != nil {
			respondCheckoutError(c, route, err, "Error verifying payment", "Not authorized to update this order")
			return
		}

		respondOK(c, http.StatusOK, gin.H{
			"message": "Payment verified and order confirmed",
			"order":   order,
		})
	}
}

// GET /api/orders/my-orders
func MyOrders(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "ORDER"
		defer handlePanic(c, route)

		userID, ok := callerID(c, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		orders, err := svc.MyOrders(ctx, userID)
		if err != nil {
			respondInternal(c, route, "Error fetching orders", err)
			return
		}

		respondOK(c, http.StatusOK, gin.H{"count": len(orders), "orders": orders})
	}
}

// GET /api/orders/:orderId
func GetOrder(svc *checkout.Service, policy auth.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "ORDER"
		defer handlePanic(c, route)

		userID, ok := callerID(c, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		privileged := policy.IsPrivileged(middleware.Role(c))
		order, err := svc.GetOrder(ctx, userID, privileged, c.Param("orderId"))
		if err != nil {
			respondCheckoutError(c, route, err, "Error fetching order", "Not authorized to view this order")
			return
		}

		respondOK(c, http.StatusOK, gin.H{"order": order})
	}
}

// GET /api/orders/:orderId/upi
func PaymentRequest(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PAYMENT"
		defer handlePanic(c, route)

		userID, ok := callerID(c, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		req, err := svc.PaymentRequest(ctx, userID, c.Param("orderId"))
		if err != nil {
			respondCheckoutError(c, route, err, "Error building payment request", "Not authorized to view this order")
			return
		}

		respondOK(c, http.StatusOK, gin.H{"payment": req})
	}
}
