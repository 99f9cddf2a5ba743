package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/333Kunal/E-com/internal/auth"
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func sessionPayload(message string, s auth.Session) gin.H {
	return gin.H{
		"message":      message,
		"token":        s.AccessToken,
		"refreshToken": s.RefreshToken,
		"expiresIn":    s.ExpiresIn,
		"user":         s.Account,
	}
}

func Register(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "AUTH"
		defer handlePanic(c, route)

		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		session, err := gate.Register(ctx, auth.RegisterInput{
			Name:     req.Name,
			Email:    strings.ToLower(strings.TrimSpace(req.Email)),
			Password: req.Password,
		})
		if errors.Is(err, auth.ErrEmailTaken) {
			respondWithError(c, http.StatusConflict, route, "User already exists with this email")
			return
		}
		if err != nil {
			respondInternal(c, route, "Server error during registration", err)
			return
		}

		respondOK(c, http.StatusCreated, sessionPayload("User registered successfully!", session))
	}
}

func Login(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "AUTH"
		defer handlePanic(c, route)

		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "Please provide email and password")
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		if email == "" || strings.TrimSpace(req.Password) == "" {
			respondWithError(c, http.StatusBadRequest, route, "Please provide email and password")
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		session, err := gate.Login(ctx, email, req.Password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondWithError(c, http.StatusUnauthorized, route, "Invalid credentials")
			return
		}
		if err != nil {
			respondInternal(c, route, "Server error during login", err)
			return
		}

		respondOK(c, http.StatusOK, sessionPayload("Login successful!", session))
	}
}

func Refresh(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "AUTH"
		defer handlePanic(c, route)

		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		session, err := gate.Refresh(ctx, req.RefreshToken)
		if errors.Is(err, auth.ErrInvalidRefreshToken) {
			respondWithError(c, http.StatusUnauthorized, route, "Invalid refresh token")
			return
		}
		if err != nil {
			respondInternal(c, route, "Server error during token refresh", err)
			return
		}

		respondOK(c, http.StatusOK, sessionPayload("Token refreshed", session))
	}
}

func Logout(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "AUTH"
		defer handlePanic(c, route)

		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := gate.Logout(ctx, req.RefreshToken); err != nil {
			if errors.Is(err, auth.ErrInvalidRefreshToken) {
				respondWithError(c, http.StatusUnauthorized, route, "Invalid refresh token")
				return
			}
			respondInternal(c, route, "Server error during logout", err)
			return
		}

		respondOK(c, http.StatusOK, gin.H{"message": "Logged out"})
	}
}

func GetMe(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "AUTH"
		defer handlePanic(c, route)

		userID, ok := callerID(c, route)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		account, err := gate.Account(ctx, userID)
		if errors.Is(err, auth.ErrUnauthenticated) {
			respondWithError(c, http.StatusNotFound, route, "User not found")
			return
		}
		if err != nil {
			respondInternal(c, route, "Server error", err)
			return
		}

		respondOK(c, http.StatusOK, gin.H{"user": account})
	}
}
