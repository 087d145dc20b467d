package handlers

import (
	"encoding/json"
	"errors"

	"github.com/valyala/fasthttp"

	"bank-ledger/internal/repository"
	"bank-ledger/internal/services"
)

func writeJSON(ctx *fasthttp.RequestCtx, status int, payload interface{}) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	_ = json.NewEncoder(ctx).Encode(payload)
}

func writeError(ctx *fasthttp.RequestCtx, status int, message string) {
	writeJSON(ctx, status, map[string]string{"error": message})
}

// writeServiceError переводит доменные ошибки в HTTP-статусы:
// валидация → 400 с картой ошибок по полям, не найдено → 404,
// конфликты леджера → 409, закрытый счёт → 410, остальное → 500
// без деталей (подробности остаются в логах оператора).
func writeServiceError(ctx *fasthttp.RequestCtx, err error) {
	var validation *services.ValidationError
	if errors.As(err, &validation) {
		writeJSON(ctx, fasthttp.StatusBadRequest, map[string]interface{}{
			"error":  validation.Error(),
			"fields": validation.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, repository.ErrAccountNotFound),
		errors.Is(err, repository.ErrTransactionNotFound),
		errors.Is(err, repository.ErrCustomerNotFound):
		writeError(ctx, fasthttp.StatusNotFound, err.Error())

	case errors.Is(err, repository.ErrInsufficientBalance),
		errors.Is(err, services.ErrAccountNotEmpty),
		errors.Is(err, services.ErrCustomerActive):
		writeError(ctx, fasthttp.StatusConflict, err.Error())

	case errors.Is(err, repository.ErrAccountClosed):
		writeError(ctx, fasthttp.StatusGone, err.Error())

	default:
		writeError(ctx, fasthttp.StatusInternalServerError, "внутренняя ошибка сервера")
	}
}

// authUser достаёт user_id, положенный в контекст middleware.
func authUser(ctx *fasthttp.RequestCtx) (string, bool) {
	userID, ok := ctx.UserValue("user_id").(string)
	if !ok || userID == "" {
		writeError(ctx, fasthttp.StatusUnauthorized, "требуется авторизация")
		return "", false
	}
	return userID, true
}
