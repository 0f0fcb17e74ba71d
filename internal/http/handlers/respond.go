package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ayofalola240/Okra-assessment/internal/apperr"
	"github.com/ayofalola240/Okra-assessment/internal/http/middlewares"
)

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	Details   any    `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	if id := middlewares.RequestIDFrom(ctx); id != "" {
		return id
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details any) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details any) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

func RespondServiceUnavailable(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusServiceUnavailable, "store_unavailable", message, nil)
}

// respondServiceError maps a lifecycle error onto the envelope. fallback is
// the message used for internal failures, which are logged and never echoed.
func respondServiceError(ctx *gin.Context, err error, fallback string) {
	code := apperr.Code(err)

	switch apperr.KindOf(err) {
	case apperr.KindBadRequest:
		RespondError(ctx, http.StatusBadRequest, code, err.Error(), nil)
	case apperr.KindNotFound:
		RespondNotFound(ctx, "User not found")
	case apperr.KindConflict:
		RespondConflict(ctx, code, err.Error())
	case apperr.KindUnavailable:
		slog.Default().WarnContext(ctx.Request.Context(), "user store unavailable", "err", err)
		RespondServiceUnavailable(ctx, "Service temporarily unavailable, please retry")
	default:
		_ = ctx.Error(err)
		slog.Default().ErrorContext(ctx.Request.Context(), fallback, "err", err)
		RespondInternal(ctx, fallback)
	}
}
