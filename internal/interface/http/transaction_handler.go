package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/finwise/ledger-api/internal/application"
	"github.com/finwise/ledger-api/internal/domain/entity"
	"github.com/finwise/ledger-api/internal/domain/repository"
	"github.com/finwise/ledger-api/internal/interface/middleware"
	"github.com/finwise/ledger-api/pkg/response"
	"github.com/finwise/ledger-api/pkg/validation"
)

type TransactionHandler struct {
	Svc    *application.TransactionService
	Logger *logrus.Logger
}

func NewTransactionHandler(svc *application.TransactionService, logger *logrus.Logger) *TransactionHandler {
	return &TransactionHandler{Svc: svc, Logger: logger}
}

type postTransactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category" binding:"required,min=1,max=60"`
	Description string          `json:"description" binding:"max=280"`
	OccurredAt  *time.Time      `json:"occurred_at"`
}

func transactionJSON(t *entity.Transaction) gin.H {
	out := gin.H{
		"id":          t.ID,
		"account_id":  t.AccountID,
		"amount":      t.Amount,
		"category":    t.Category,
		"description": t.Description,
		"occurred_at": t.OccurredAt,
		"created_at":  t.CreatedAt,
	}
	if t.ReversalOf != "" {
		out["reversal_of"] = t.ReversalOf
	}
	return out
}

// Post POST /api/v1/accounts/:id/transactions
func (h *TransactionHandler) Post(c *gin.Context) {
	var req postTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		c.JSON(resp.Status, resp)
		return
	}
	owner := c.GetString(middleware.CtxUserIDKey)
	in := application.PostInput{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
	}
	if req.OccurredAt != nil {
		in.OccurredAt = *req.OccurredAt
	}
	t, err := h.Svc.Post(c.Request.Context(), owner, c.Param("id"), in)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	resp := response.Success(c, http.StatusCreated, transactionJSON(t), "transaction posted", nil)
	c.JSON(resp.Status, resp)
}

// List GET /api/v1/accounts/:id/transactions?from&to&cursor&limit
func (h *TransactionHandler) List(c *gin.Context) {
	owner := c.GetString(middleware.CtxUserIDKey)

	var f repository.ListFilter
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			resp := response.Error[any](c, http.StatusBadRequest, "invalid from timestamp", gin.H{"from": "must be RFC3339"})
			c.JSON(resp.Status, resp)
			return
		}
		f.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			resp := response.Error[any](c, http.StatusBadRequest, "invalid to timestamp", gin.H{"to": "must be RFC3339"})
			c.JSON(resp.Status, resp)
			return
		}
		f.To = t
	}
	f.Cursor = c.Query("cursor")
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			resp := response.Error[any](c, http.StatusBadRequest, "invalid limit", gin.H{"limit": "must be a positive integer"})
			c.JSON(resp.Status, resp)
			return
		}
		f.Limit = n
	}

	items, next, err := h.Svc.List(c.Request.Context(), owner, c.Param("id"), f)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	out := make([]gin.H, 0, len(items))
	for i := range items {
		out = append(out, transactionJSON(&items[i]))
	}
	meta := gin.H{"count": len(out)}
	if next != "" {
		meta["next_cursor"] = next
	}
	resp := response.Success(c, http.StatusOK, out, "transactions", meta)
	c.JSON(resp.Status, resp)
}

// Reverse POST /api/v1/transactions/:id/reverse
func (h *TransactionHandler) Reverse(c *gin.Context) {
	owner := c.GetString(middleware.CtxUserIDKey)
	rev, err := h.Svc.Reverse(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	resp := response.Success(c, http.StatusCreated, transactionJSON(rev), "transaction reversed", nil)
	c.JSON(resp.Status, resp)
}

// Search GET /api/v1/transactions/search?q&size
func (h *TransactionHandler) Search(c *gin.Context) {
	owner := c.GetString(middleware.CtxUserIDKey)
	q := c.Query("q")
	if q == "" {
		resp := response.Error[any](c, http.StatusBadRequest, "missing query", gin.H{"q": "is required"})
		c.JSON(resp.Status, resp)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Svc.Search(c.Request.Context(), owner, q, size)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	resp := response.Success(c, http.StatusOK, hits, "search results", gin.H{"count": len(hits)})
	c.JSON(resp.Status, resp)
}
