package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/333Kunal/E-com/internal/checkout"
)

// GET /api/orders/admin/all
func AllOrders(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "ADMIN ORDERS"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		summary, err := svc.AllOrders(ctx)
		if err != nil {
			respondInternal(c, route, "Error fetching orders", err)
			return
		}

		respondOK(c, http.StatusOK, gin.H{
			"count":       summary.Count,
			"totalAmount": summary.TotalAmount.InexactFloat64(),
			"orders":      summary.Orders,
		})
	}
}

// DELETE /api/orders/admin/:orderId
func DeleteOrder(svc *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "ADMIN ORDERS"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.DeleteOrder(ctx, c.Param("orderId")); err != nil {
			respondCheckoutError(c, route, err, "Error deleting order", "")
			return
		}

		respondOK(c, http.StatusOK, gin.H{"message": "Order deleted"})
	}
}
