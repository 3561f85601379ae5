package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/finwise/ledger-api/internal/container"
	handlers "github.com/finwise/ledger-api/internal/interface/http"
	"github.com/finwise/ledger-api/internal/interface/middleware"
	"github.com/finwise/ledger-api/pkg/helpers"
)

// UserModule wires the profile routes.
type UserModule struct {
	Handler *handlers.UserHandler
	JWT     *helpers.JWTManager
}

func NewUserModule(h *handlers.UserHandler, jwt *helpers.JWTManager) *UserModule {
	return &UserModule{Handler: h, JWT: jwt}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.GET("/user/profile", m.Handler.GetProfile)
		auth.PUT("/user/profile", m.Handler.UpdateProfile)
		auth.POST("/user/avatar", m.Handler.UploadAvatar)
	}
}
