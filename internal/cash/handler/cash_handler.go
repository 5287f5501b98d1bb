package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ElizavetaP/bankapp/internal/cash/repository"
	"github.com/ElizavetaP/bankapp/internal/cash/service"
	"github.com/ElizavetaP/bankapp/shared/middleware"
	"github.com/ElizavetaP/bankapp/shared/models"
)

// CashOperator defines the operations used by CashHandler.
type CashOperator interface {
	Deposit(ctx context.Context, req service.OperationRequest) (*models.CashOperation, error)
	Withdraw(ctx context.Context, req service.OperationRequest) (*models.CashOperation, error)
	GetOperation(ctx context.Context, sagaID string) (*models.CashOperation, error)
}

// CashHandler handles the cash operation HTTP requests. Deposit and withdraw
// respond with the PENDING operation; callers poll GetOperation for the
// outcome.
type CashHandler struct {
	cash CashOperator
}

type CashOperationRequest struct {
	Login    string `json:"login" validate:"required"`
	Currency string `json:"currency" validate:"required,len=3"`
	Value    string `json:"value" validate:"required"`
}

func NewCashHandler(cash CashOperator) *CashHandler {
	return &CashHandler{cash: cash}
}

func (h *CashHandler) Deposit(c *gin.Context) {
	h.initiate(c, h.cash.Deposit)
}

func (h *CashHandler) Withdraw(c *gin.Context) {
	h.initiate(c, h.cash.Withdraw)
}

func (h *CashHandler) initiate(c *gin.Context, run func(context.Context, service.OperationRequest) (*models.CashOperation, error)) {
	login, _ := middleware.GetLogin(c)

	var req CashOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}
	if req.Login != login {
		middleware.RespondWithError(c, http.StatusForbidden, "You can only operate on your own account")
		return
	}
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid amount")
		return
	}

	op, err := run(c.Request.Context(), service.OperationRequest{
		Login:    req.Login,
		Currency: req.Currency,
		Value:    value,
	})
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, op)
}

func (h *CashHandler) GetOperation(c *gin.Context) {
	login, _ := middleware.GetLogin(c)
	sagaID := c.Param("sagaId")

	op, err := h.cash.GetOperation(c.Request.Context(), sagaID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			middleware.RespondWithError(c, http.StatusNotFound, "Operation not found")
			return
		}
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to get operation")
		return
	}
	if op.UserLogin != login {
		middleware.RespondWithError(c, http.StatusForbidden, "You can only access your own operations")
		return
	}
	c.JSON(http.StatusOK, op)
}
