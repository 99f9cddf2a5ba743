package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/333Kunal/E-com/internal/middleware"
)

const requestTimeout = 5 * time.Second

var exposeErrors atomic.Bool

// ExposeErrors controls whether 500 responses carry the underlying error text.
// It is switched off in production.
func ExposeErrors(enabled bool) {
	exposeErrors.Store(enabled)
}

func routeLog(route string) *logrus.Entry {
	return logrus.WithField("route", route)
}

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		routeLog(route).WithField("panic", r).Error("panic recovered")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Internal server error",
		})
	}
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	entry := routeLog(route).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error(message)
	} else {
		entry.Info(message)
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// respondInternal reports an unexpected failure. The error text is only echoed
// when ExposeErrors is on.
func respondInternal(c *gin.Context, route, message string, err error) {
	routeLog(route).WithError(err).Error(message)
	body := gin.H{"success": false, "message": message}
	if exposeErrors.Load() {
		body["error"] = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}

func respondOK(c *gin.Context, status int, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			case "email":
				details = append(details, fmt.Sprintf("%s must be a valid email", field))
			case "min":
				details = append(details, fmt.Sprintf("%s must be at least %s", field, fieldError.Param()))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Validation failed",
			"details": details,
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "Invalid request body",
	})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// pathObjectID reads an ObjectID path parameter. A malformed id is reported as
// notFound since no document can carry it.
func pathObjectID(c *gin.Context, route, param, notFound string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		respondWithError(c, http.StatusNotFound, route, notFound)
		return primitive.NilObjectID, false
	}
	return id, true
}

func callerID(c *gin.Context, route string) (primitive.ObjectID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		respondWithError(c, http.StatusUnauthorized, route, "Not authorized to access this route")
		return primitive.NilObjectID, false
	}
	return id, true
}
