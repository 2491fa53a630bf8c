package handlers

import (
	"errors"
	"net/http"

	"landmarket/internal/domain"
	"landmarket/internal/logger"

	"github.com/gin-gonic/gin"
)

var errUnauthenticated = errors.New("user not found")

// statusFor maps a business error kind to its HTTP status.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindInsufficientFunds:
		return http.StatusPaymentRequired
	case domain.KindNotAuthorized:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindRateLimit:
		return http.StatusTooManyRequests
	case domain.KindExpired:
		return http.StatusGone
	case domain.KindContention:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, errUnauthenticated) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": err.Error()})
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(status, gin.H{"success": false, "message": "internal error"})
		return
	}

	body := gin.H{"success": false, "message": err.Error(), "error": domain.KindOf(err)}
	var de *domain.Error
	if errors.As(err, &de) && de.Code != "" {
		body["code"] = de.Code
	}
	c.AbortWithStatusJSON(status, body)
}

func respondBadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": msg, "error": domain.KindValidation})
}

// respondOK writes body with success:true.
func respondOK(c *gin.Context, status int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["success"] = true
	c.JSON(status, body)
}
