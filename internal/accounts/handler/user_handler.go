package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ElizavetaP/bankapp/internal/accounts/repository"
	"github.com/ElizavetaP/bankapp/internal/accounts/service"
	"github.com/ElizavetaP/bankapp/shared/middleware"
	"github.com/ElizavetaP/bankapp/shared/models"
)

// UserManager defines the user operations used by UserHandler.
type UserManager interface {
	Register(ctx context.Context, req service.RegisterRequest) (*models.User, error)
	GetUser(ctx context.Context, login string) (*models.User, error)
	UpdateUser(ctx context.Context, login string, req service.UpdateUserRequest) (*models.User, error)
	ChangePassword(ctx context.Context, login, oldPassword, newPassword string) error
	Authenticate(ctx context.Context, login, password string) error
}

// UserHandler handles registration, login and profile management. Login
// issues the JWT the other endpoints require.
type UserHandler struct {
	users     UserManager
	jwtSecret []byte
}

type RegisterUserRequest struct {
	Login     string `json:"login" validate:"required"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	BirthDate string `json:"birthDate" validate:"required"`
}

type UpdateUserRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	BirthDate string `json:"birthDate" validate:"required"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func NewUserHandler(users UserManager, jwtSecret []byte) *UserHandler {
	return &UserHandler{users: users, jwtSecret: jwtSecret}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}
	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid birth date, expected YYYY-MM-DD")
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.RegisterRequest{
		Login:     req.Login,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		BirthDate: birthDate,
	})
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			middleware.RespondWithError(c, http.StatusConflict, "User already exists")
			return
		}
		middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	if err := h.users.Authenticate(c.Request.Context(), req.Login, req.Password); err != nil {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	token, err := middleware.GenerateToken(h.jwtSecret, req.Login)
	if err != nil {
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *UserHandler) GetUser(c *gin.Context) {
	login, _ := middleware.GetLogin(c)
	if c.Param("login") != login {
		middleware.RespondWithError(c, http.StatusForbidden, "You can only access your own profile")
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "User not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to get user")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	login, _ := middleware.GetLogin(c)
	if c.Param("login") != login {
		middleware.RespondWithError(c, http.StatusForbidden, "You can only update your own profile")
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}
	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid birth date, expected YYYY-MM-DD")
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), login, service.UpdateUserRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		BirthDate: birthDate,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "User not found")
			return
		}
		middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	login, _ := middleware.GetLogin(c)
	if c.Param("login") != login {
		middleware.RespondWithError(c, http.StatusForbidden, "You can only change your own password")
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	if err := h.users.ChangePassword(c.Request.Context(), login, req.OldPassword, req.NewPassword); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}
