package handlers

import (
	"time"

	"github.com/valyala/fasthttp"
)

// Health обрабатывает GET /health
func Health(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}
