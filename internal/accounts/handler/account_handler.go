package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ElizavetaP/bankapp/internal/accounts/repository"
	"github.com/ElizavetaP/bankapp/internal/accounts/service"
	"github.com/ElizavetaP/bankapp/shared/middleware"
	"github.com/ElizavetaP/bankapp/shared/models"
)

// AccountManager defines the account operations used by AccountHandler.
type AccountManager interface {
	CreateAccount(ctx context.Context, login, currency string) (*models.Account, error)
	ListAccounts(ctx context.Context, login string) ([]models.AccountView, error)
}

type AccountHandler struct {
	accounts AccountManager
}

type CreateAccountRequest struct {
	Currency string `json:"currency" validate:"required,len=3"`
}

type ListAccountsResponse struct {
	Accounts []models.AccountView `json:"accounts"`
}

func NewAccountHandler(accounts AccountManager) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	login, _ := middleware.GetLogin(c)

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	account, err := h.accounts.CreateAccount(c.Request.Context(), login, req.Currency)
	if err != nil {
		if errors.Is(err, service.ErrAccountExists) {
			middleware.RespondWithError(c, http.StatusConflict, "Account already exists for this currency")
			return
		}
		if errors.Is(err, repository.ErrUserNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "User not found")
			return
		}
		middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	login, _ := middleware.GetLogin(c)

	views, err := h.accounts.ListAccounts(c.Request.Context(), login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "User not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to list accounts")
		return
	}
	c.JSON(http.StatusOK, ListAccountsResponse{Accounts: views})
}
