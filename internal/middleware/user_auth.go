package middleware

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	userIDKey = "userId"
	roleKey   = "role"
)

// UserID returns the authenticated caller. ok is false on routes without Authenticate.
func UserID(c *gin.Context) (primitive.ObjectID, bool) {
	value, exists := c.Get(userIDKey)
	if !exists {
		return primitive.NilObjectID, false
	}
	id, ok := value.(primitive.ObjectID)
	return id, ok
}

func Role(c *gin.Context) string {
	return c.GetString(roleKey)
}
