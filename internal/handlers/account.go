package handlers

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"

	"bank-ledger/internal/models"
	"bank-ledger/internal/services"
	"bank-ledger/internal/utils"
)

type AccountHandler struct {
	accountService *services.AccountService
}

func NewAccountHandler(accountService *services.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// Open обрабатывает POST /accounts — открытие счёта клиенту.
func (h *AccountHandler) Open(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := authUser(ctx)
	if !ok {
		return
	}
	utils.LogRequest("POST", "/accounts", userID)

	var req models.OpenAccountRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "неверный формат данных")
		utils.LogResponse("/accounts", fasthttp.StatusBadRequest, time.Since(startTime))
		return
	}

	account, err := h.accountService.Open(ctx, userID, req)
	if err != nil {
		writeServiceError(ctx, err)
		utils.LogResponse("/accounts", ctx.Response.StatusCode(), time.Since(startTime))
		return
	}

	writeJSON(ctx, fasthttp.StatusCreated, models.NewAccountResponse(account))
	utils.LogResponse("/accounts", fasthttp.StatusCreated, time.Since(startTime))
}

// List обрабатывает GET /accounts и GET /accounts?customer_id=xxx
func (h *AccountHandler) List(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := authUser(ctx)
	if !ok {
		return
	}
	utils.LogRequest("GET", "/accounts", userID)

	customerID := string(ctx.QueryArgs().Peek("customer_id"))

	accounts, err := h.accountService.List(ctx, customerID)
	if err != nil {
		writeServiceError(ctx, err)
		utils.LogResponse("/accounts", ctx.Response.StatusCode(), time.Since(startTime))
		return
	}

	response := models.AccountListResponse{Total: len(accounts)}
	for i := range accounts {
		response.Accounts = append(response.Accounts, models.NewAccountResponse(&accounts[i]))
	}

	writeJSON(ctx, fasthttp.StatusOK, response)
	utils.LogResponse("/accounts", fasthttp.StatusOK, time.Since(startTime))
}

// Get обрабатывает GET /accounts/{id}
func (h *AccountHandler) Get(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := authUser(ctx)
	if !ok {
		return
	}
	accountID, _ := ctx.UserValue("id").(string)
	utils.LogRequest("GET", "/accounts/"+accountID, userID)

	account, err := h.accountService.Get(ctx, accountID)
	if err != nil {
		writeServiceError(ctx, err)
		utils.LogResponse("/accounts/:id", ctx.Response.StatusCode(), time.Since(startTime))
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, models.NewAccountResponse(account))
	utils.LogResponse("/accounts/:id", fasthttp.StatusOK, time.Since(startTime))
}

// Close обрабатывает DELETE /accounts/{id} — закрытие счёта.
func (h *AccountHandler) Close(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := authUser(ctx)
	if !ok {
		return
	}
	accountID, _ := ctx.UserValue("id").(string)
	utils.LogRequest("DELETE", "/accounts/"+accountID, userID)

	if err := h.accountService.Close(ctx, userID, accountID); err != nil {
		writeServiceError(ctx, err)
		utils.LogResponse("/accounts/:id", ctx.Response.StatusCode(), time.Since(startTime))
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, map[string]interface{}{
		"success":    true,
		"account_id": accountID,
	})
	utils.LogResponse("/accounts/:id", fasthttp.StatusOK, time.Since(startTime))
}
