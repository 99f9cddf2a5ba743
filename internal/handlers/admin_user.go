package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/333Kunal/E-com/internal/auth"
	"github.com/333Kunal/E-com/internal/database"
	"github.com/333Kunal/E-com/internal/models"
)

type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type UpdateUserRequest struct {
	Username *string `json:"username"`
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	Password *string `json:"password"`
}

const msgUserExists = "User with this email or username already exists"

// knownRole accepts the regular user role and every privileged role.
func knownRole(policy auth.Policy, role string) bool {
	return role == models.RoleUser || policy.IsPrivileged(role)
}

func GetUsers(accounts database.AccountStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "ADMIN USERS"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		users, err := accounts.List(ctx)
		if err != nil {
			respondInternal(c, route, "Error fetching users", err)
			return
		}

		respondOK(c, http.StatusOK, gin.H{"count": len(users), "users": users})
	}
}

func GetUser(accounts database.AccountStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "ADMIN USERS"
		defer handlePanic(c, route)

		id, ok := pathObjectID(c, route, "id", "User not found")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		user, err := accounts.FindByID(ctx, id)
		if errors.Is(err, database.ErrNotFound) {
			respondWithError(c, http.StatusNotFound, route, "User not found")
			return
		}
		if err != nil {
			respondInternal(c, route, "Error fetching user", err)
			return
		}

		respondOK(c, http.StatusOK, gin.H{"user": user})
	}
}

func CreateUser(accounts database.AccountStore, policy auth.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "ADMIN USERS"
		defer handlePanic(c, route)

		var req CreateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		role := strings.ToLower(strings.TrimSpace(req.Role))
		if role == "" {
			role = models.RoleUser
		}
		if !knownRole(policy, role) {
			respondWithError(c, http.StatusBadRequest, route, "Invalid role")
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			respondInternal(c, route, "Error creating user", err)
			return
		}

		user := models.Account{
			Username:     strings.TrimSpace(req.Username),
			Name:         strings.TrimSpace(req.Name),
			Email:        strings.ToLower(strings.TrimSpace(req.Email)),
			PasswordHash: hash,
			Role:         role,
			Phone:        strings.TrimSpace(req.Phone),
			Address:      strings.TrimSpace(req.Address),
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := accounts.Create(ctx, &user); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				respondWithError(c, http.StatusConflict, route, msgUserExists)
				return
			}
			respondInternal(c, route, "Error creating user", err)
			return
		}

		routeLog(route).WithFields(logrus.Fields{"userId": user.ID.Hex(), "role": user.Role}).Info("user created")
		respondOK(c, http.StatusCreated, gin.H{"message": "User created successfully", "user": user})
	}
}

func UpdateUser(accounts database.AccountStore, policy auth.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "ADMIN USERS"
		defer handlePanic(c, route)

		id, ok := pathObjectID(c, route, "id", "User not found")
		if !ok {
			return
		}

		var req UpdateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		var update models.AccountUpdate
		nonEmpty := func(dst **string, src *string, normalize func(string) string) {
			if src == nil {
				return
			}
			if v := normalize(strings.TrimSpace(*src)); v != "" {
				*dst = &v
			}
		}
		keep := func(s string) string { return s }
		nonEmpty(&update.Username, req.Username, keep)
		nonEmpty(&update.Name, req.Name, keep)
		nonEmpty(&update.Email, req.Email, strings.ToLower)
		nonEmpty(&update.Role, req.Role, strings.ToLower)

		// phone and address may be cleared
		if req.Phone != nil {
			v := strings.TrimSpace(*req.Phone)
			update.Phone = &v
		}
		if req.Address != nil {
			v := strings.TrimSpace(*req.Address)
			update.Address = &v
		}

		if update.Role != nil && !knownRole(policy, *update.Role) {
			respondWithError(c, http.StatusBadRequest, route, "Invalid role")
			return
		}

		if req.Password != nil && *req.Password != "" {
			if len(*req.Password) < 6 {
				respondWithError(c, http.StatusBadRequest, route, "password must be at least 6")
				return
			}
			hash, err := auth.HashPassword(*req.Password)
			if err != nil {
				respondInternal(c, route, "Error updating user", err)
				return
			}
			update.PasswordHash = &hash
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		user, err := accounts.Update(ctx, id, update)
		switch {
		case errors.Is(err, database.ErrNotFound):
			respondWithError(c, http.StatusNotFound, route, "User not found")
			return
		case errors.Is(err, database.ErrDuplicate):
			respondWithError(c, http.StatusConflict, route, msgUserExists)
			return
		case err != nil:
			respondInternal(c, route, "Error updating user", err)
			return
		}

		respondOK(c, http.StatusOK, gin.H{"message": "User updated successfully", "user": user})
	}
}

func DeleteUser(accounts database.AccountStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "ADMIN USERS"
		defer handlePanic(c, route)

		callerUserID, ok := callerID(c, route)
		if !ok {
			return
		}

		id, ok := pathObjectID(c, route, "id", "User not found")
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if _, err := accounts.FindByID(ctx, id); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				respondWithError(c, http.StatusNotFound, route, "User not found")
				return
			}
			respondInternal(c, route, "Error deleting user", err)
			return
		}

		if id == callerUserID {
			respondWithError(c, http.StatusBadRequest, route, "You cannot delete your own account")
			return
		}

		if err := accounts.Delete(ctx, id); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				respondWithError(c, http.StatusNotFound, route, "User not found")
				return
			}
			respondInternal(c, route, "Error deleting user", err)
			return
		}

		routeLog(route).WithField("userId", id.Hex()).Info("user deleted")
		respondOK(c, http.StatusOK, gin.H{"message": "User deleted successfully"})
	}
}
