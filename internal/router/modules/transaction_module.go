package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finwise/ledger-api/internal/container"
	handlers "github.com/finwise/ledger-api/internal/interface/http"
	"github.com/finwise/ledger-api/internal/interface/middleware"
	"github.com/finwise/ledger-api/pkg/helpers"
)

// TransactionModule wires the ledger routes. Posting shares the
// account routes' auth gate; the per-user limiter is tighter on writes.
type TransactionModule struct {
	Handler *handlers.TransactionHandler
	JWT     *helpers.JWTManager
}

func NewTransactionModule(h *handlers.TransactionHandler, jwt *helpers.JWTManager) *TransactionModule {
	return &TransactionModule{Handler: h, JWT: jwt}
}

func (m *TransactionModule) Register(rg *gin.RouterGroup) {
	writeLimiter := middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByUserID(), nil)
	readLimiter := middleware.RateLimit(container.GetRedis(), 240, time.Minute, middleware.KeyByUserID(), nil)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	{
		auth.POST("/accounts/:id/transactions", writeLimiter, m.Handler.Post)
		auth.GET("/accounts/:id/transactions", readLimiter, m.Handler.List)
		auth.POST("/transactions/:id/reverse", writeLimiter, m.Handler.Reverse)
		auth.GET("/transactions/search", readLimiter, m.Handler.Search)
	}
}
