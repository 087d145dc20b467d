package handlers

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"

	"bank-ledger/internal/models"
	"bank-ledger/internal/services"
	"bank-ledger/internal/utils"
)

type TransactionHandler struct {
	service *services.TransactionService
}

func NewTransactionHandler(service *services.TransactionService) *TransactionHandler {
	utils.LogSuccess("TransactionHandler", "Инициализирован обработчик транзакций")
	return &TransactionHandler{service: service}
}

func transactionPayload(t *models.Transaction, a *models.Account) map[string]interface{} {
	return map[string]interface{}{
		"transaction": models.NewTransactionResponse(t),
		"account":     models.NewAccountResponse(a),
	}
}

// Create обрабатывает POST /transactions — депозит или снятие.
func (h *TransactionHandler) Create(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := authUser(ctx)
	if !ok {
		return
	}
	utils.LogRequest("POST", "/transactions", userID)

	var req models.CreateTransactionRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "неверный формат данных")
		utils.LogResponse("/transactions", fasthttp.StatusBadRequest, time.Since(startTime))
		return
	}

	transaction, account, err := h.service.Create(ctx, userID, req)
	if err != nil {
		writeServiceError(ctx, err)
		utils.LogResponse("/transactions", ctx.Response.StatusCode(), time.Since(startTime))
		return
	}

	writeJSON(ctx, fasthttp.StatusCreated, transactionPayload(transaction, account))
	utils.LogResponse("/transactions", fasthttp.StatusCreated, time.Since(startTime))
}

// Transfer обрабатывает POST /transactions/transfer
func (h *TransactionHandler) Transfer(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := authUser(ctx)
	if !ok {
		return
	}
	utils.LogRequest("POST", "/transactions/transfer", userID)

	var req models.TransferRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "неверный формат данных")
		utils.LogResponse("/transactions/transfer", fasthttp.StatusBadRequest, time.Since(startTime))
		return
	}

	outLeg, from, err := h.service.Transfer(ctx, userID, req)
	if err != nil {
		writeServiceError(ctx, err)
		utils.LogResponse("/transactions/transfer", ctx.Response.StatusCode(), time.Since(startTime))
		return
	}

	writeJSON(ctx, fasthttp.StatusCreated, transactionPayload(outLeg, from))
	utils.LogResponse("/transactions/transfer", fasthttp.StatusCreated, time.Since(startTime))
}

// History обрабатывает GET /transactions?account_id=xxx
func (h *TransactionHandler) History(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := authUser(ctx)
	if !ok {
		return
	}
	utils.LogRequest("GET", "/transactions", userID)

	accountID := string(ctx.QueryArgs().Peek("account_id"))
	if accountID == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "параметр account_id обязателен")
		utils.LogResponse("/transactions", fasthttp.StatusBadRequest, time.Since(startTime))
		return
	}

	transactions, err := h.service.History(ctx, accountID)
	if err != nil {
		writeServiceError(ctx, err)
		utils.LogResponse("/transactions", ctx.Response.StatusCode(), time.Since(startTime))
		return
	}

	response := models.TransactionListResponse{
		Total:     len(transactions),
		AccountID: accountID,
	}
	for i := range transactions {
		response.Transactions = append(response.Transactions, models.NewTransactionResponse(&transactions[i]))
	}

	writeJSON(ctx, fasthttp.StatusOK, response)
	utils.LogResponse("/transactions", fasthttp.StatusOK, time.Since(startTime))
}

// Get обрабатывает GET /transactions/{id}
func (h *TransactionHandler) Get(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := authUser(ctx)
	if !ok {
		return
	}
	transactionID, _ := ctx.UserValue("id").(string)
	utils.LogRequest("GET", "/transactions/"+transactionID, userID)

	transaction, err := h.service.Get(ctx, transactionID)
	if err != nil {
		writeServiceError(ctx, err)
		utils.LogResponse("/transactions/:id", ctx.Response.StatusCode(), time.Since(startTime))
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, models.NewTransactionResponse(transaction))
	utils.LogResponse("/transactions/:id", fasthttp.StatusOK, time.Since(startTime))
}

// Amend обрабатывает PUT /transactions/{id} — изменение проводки
// с атомарным пересчётом баланса.
func (h *TransactionHandler) Amend(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := authUser(ctx)
	if !ok {
		return
	}
	transactionID, _ := ctx.UserValue("id").(string)
	utils.LogRequest("PUT", "/transactions/"+transactionID, userID)

	var req models.AmendTransactionRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "неверный формат данных")
		utils.LogResponse("/transactions/:id", fasthttp.StatusBadRequest, time.Since(startTime))
		return
	}

	transaction, account, err := h.service.Amend(ctx, userID, transactionID, req)
	if err != nil {
		writeServiceError(ctx, err)
		utils.LogResponse("/transactions/:id", ctx.Response.StatusCode(), time.Since(startTime))
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, transactionPayload(transaction, account))
	utils.LogResponse("/transactions/:id", fasthttp.StatusOK, time.Since(startTime))
}

// Delete обрабатывает DELETE /transactions/{id} — сторнирование:
// эффект проводки снимается с баланса, запись удаляется.
func (h *TransactionHandler) Delete(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := authUser(ctx)
	if !ok {
		return
	}
	transactionID, _ := ctx.UserValue("id").(string)
	utils.LogRequest("DELETE", "/transactions/"+transactionID, userID)

	account, err := h.service.Reverse(ctx, userID, transactionID)
	if err != nil {
		writeServiceError(ctx, err)
		utils.LogResponse("/transactions/:id", ctx.Response.StatusCode(), time.Since(startTime))
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, map[string]interface{}{
		"success": true,
		"account": models.NewAccountResponse(account),
	})
	utils.LogResponse("/transactions/:id", fasthttp.StatusOK, time.Since(startTime))
}
