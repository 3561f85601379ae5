package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/finwise/ledger-api/internal/application"
	"github.com/finwise/ledger-api/internal/domain/entity"
	"github.com/finwise/ledger-api/internal/interface/middleware"
	"github.com/finwise/ledger-api/pkg/response"
	"github.com/finwise/ledger-api/pkg/validation"
)

type AccountHandler struct {
	Svc    *application.AccountService
	Logger *logrus.Logger
}

func NewAccountHandler(svc *application.AccountService, logger *logrus.Logger) *AccountHandler {
	return &AccountHandler{Svc: svc, Logger: logger}
}

type createAccountRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=80"`
	Currency string `json:"currency" binding:"required,len=3"`
}

func accountJSON(a *entity.Account) gin.H {
	return gin.H{
		"id":         a.ID,
		"name":       a.Name,
		"currency":   a.Currency,
		"balance":    a.Balance,
		"created_at": a.CreatedAt,
		"updated_at": a.UpdatedAt,
	}
}

// Create POST /api/v1/accounts
func (h *AccountHandler) Create(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}
	owner := c.GetString(middleware.CtxUserIDKey)
	a, err := h.Svc.Create(c.Request.Context(), owner, req.Name, req.Currency)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	resp := response.Success(c, http.StatusCreated, accountJSON(a), "account created", nil)
	c.JSON(resp.Status, resp)
}

// Get GET /api/v1/accounts/:id
func (h *AccountHandler) Get(c *gin.Context) {
	owner := c.GetString(middleware.CtxUserIDKey)
	a, err := h.Svc.Get(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	resp := response.Success(c, http.StatusOK, accountJSON(a), "account", nil)
	c.JSON(resp.Status, resp)
}

// List GET /api/v1/accounts
func (h *AccountHandler) List(c *gin.Context) {
	owner := c.GetString(middleware.CtxUserIDKey)
	accounts, err := h.Svc.List(c.Request.Context(), owner)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	out := make([]gin.H, 0, len(accounts))
	for i := range accounts {
		out = append(out, accountJSON(&accounts[i]))
	}
	resp := response.Success(c, http.StatusOK, out, "accounts", gin.H{"count": len(out)})
	c.JSON(resp.Status, resp)
}
