package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finwise/ledger-api/internal/container"
	handlers "github.com/finwise/ledger-api/internal/interface/http"
	"github.com/finwise/ledger-api/internal/interface/middleware"
	"github.com/finwise/ledger-api/pkg/helpers"
)

// AccountModule wires the account registry routes. Everything requires
// a valid bearer token; the resolved user id scopes every lookup.
type AccountModule struct {
	Handler *handlers.AccountHandler
	JWT     *helpers.JWTManager
}

func NewAccountModule(h *handlers.AccountHandler, jwt *helpers.JWTManager) *AccountModule {
	return &AccountModule{Handler: h, JWT: jwt}
}

func (m *AccountModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/accounts", m.Handler.Create)
		auth.GET("/accounts", m.Handler.List)
		auth.GET("/accounts/:id", m.Handler.Get)
	}
}
