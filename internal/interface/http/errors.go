package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/finwise/ledger-api/internal/application"
	"github.com/finwise/ledger-api/internal/domain/repository"
	"github.com/finwise/ledger-api/pkg/response"
)

// respondError maps a service failure to its HTTP status and writes
// the envelope. Unknown errors become a generic 500; the detail is
// logged, never returned.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, application.ErrInvalidCredentials),
		errors.Is(err, application.ErrInvalidToken),
		errors.Is(err, application.ErrExpiredToken):
		status, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(err, application.ErrDuplicateEmail),
		errors.Is(err, application.ErrAlreadyReversed),
		errors.Is(err, application.ErrConflict):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, application.ErrWeakCredential),
		errors.Is(err, application.ErrInvalidAmount),
		errors.Is(err, application.ErrInvalidCurrency):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, repository.ErrBadCursor):
		resp := response.Error[any](c, http.StatusBadRequest, err.Error(), gin.H{"kind": "bad_cursor"})
		c.JSON(resp.Status, resp)
		return
	case errors.Is(err, application.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	default:
		if logger != nil {
			logger.WithError(err).Error("request failed")
		}
	}

	resp := response.Error[any](c, status, msg, gin.H{"kind": application.Kind(err)})
	c.JSON(resp.Status, resp)
}
