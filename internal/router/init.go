package router

import (
	"github.com/finwise/ledger-api/internal/application"
	"github.com/finwise/ledger-api/internal/container"
	pginfra "github.com/finwise/ledger-api/internal/infrastructure/postgres"
	handlers "github.com/finwise/ledger-api/internal/interface/http"
	"github.com/finwise/ledger-api/internal/router/modules"
)

// InitModules initializes all application modules and registers them
// with the router registry. Called once during startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	pool := container.GetPGPool()

	users := pginfra.NewUserRepository(pool)
	accounts := pginfra.NewAccountRepository(pool)
	transactions := pginfra.NewTransactionRepository(pool)

	authSvc := application.NewAuthService(
		users,
		container.GetJWT(),
		container.GetRedis(),
		logger,
		container.GetRabbitPub(),
		container.GetGCS(),
		cfg.GCSBucket,
		cfg.AppName,
	)
	accountSvc := application.NewAccountService(accounts, logger)
	txSvc := application.NewTransactionService(transactions, logger, container.GetES(), cfg.ESTransactionsIndex)
	txSvc.RetryMax = cfg.PostRetryMax
	txSvc.RetryBackoff = cfg.PostRetryBackoff

	r.Add(modules.NewAuthModule(
		handlers.NewAuthHandler(authSvc, logger, cfg.CookieDomain, cfg.CookieSecure),
		container.GetJWT(),
	))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(authSvc, logger), container.GetJWT()))
	r.Add(modules.NewAccountModule(handlers.NewAccountHandler(accountSvc, logger), container.GetJWT()))
	r.Add(modules.NewTransactionModule(handlers.NewTransactionHandler(txSvc, logger), container.GetJWT()))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
