package handlers

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const jsonContentType = "application/json; charset=utf-8"

// RespondJSONWithETag sends payload with a strong validator derived from the
// encoded body. A matching If-None-Match gets 304 and no body.
func RespondJSONWithETag(ctx *gin.Context, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "encode response failed", "err", err)
		RespondInternal(ctx, "Error encoding response")
		return
	}

	tag := bodyETag(body)

	h := ctx.Writer.Header()
	h.Set("ETag", tag)
	h.Set("Cache-Control", "private, no-cache")

	if status == http.StatusOK && matchesAny(ctx.GetHeader("If-None-Match"), tag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.Data(status, jsonContentType, body)
}

func bodyETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + base64.RawURLEncoding.EncodeToString(sum[:16]) + `"`
}

// matchesAny applies the weak comparison If-None-Match calls for.
func matchesAny(header, tag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}

	if header == "*" {
		return true
	}

	want := opaqueTag(tag)

	for _, candidate := range strings.Split(header, ",") {
		if opaqueTag(candidate) == want {
			return true
		}
	}

	return false
}

func opaqueTag(tag string) string {
	return strings.TrimPrefix(strings.TrimSpace(tag), "W/")
}
