package handlers

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"

	"bank-ledger/internal/models"
	"bank-ledger/internal/services"
	"bank-ledger/internal/utils"
)

type CustomerHandler struct {
	service *services.CustomerService
}

func NewCustomerHandler(service *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{service: service}
}

// Create обрабатывает POST /customers
func (h *CustomerHandler) Create(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := authUser(ctx)
	if !ok {
		return
	}
	utils.LogRequest("POST", "/customers", userID)

	var req models.CreateCustomerRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "неверный формат данных")
		utils.LogResponse("/customers", fasthttp.StatusBadRequest, time.Since(startTime))
		return
	}

	customer, err := h.service.Create(ctx, userID, req)
	if err != nil {
		writeServiceError(ctx, err)
		utils.LogResponse("/customers", ctx.Response.StatusCode(), time.Since(startTime))
		return
	}

	writeJSON(ctx, fasthttp.StatusCreated, customer)
	utils.LogResponse("/customers", fasthttp.StatusCreated, time.Since(startTime))
}

// List обрабатывает GET /customers
func (h *CustomerHandler) List(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := authUser(ctx)
	if !ok {
		return
	}
	utils.LogRequest("GET", "/customers", userID)

	customers, err := h.service.List(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		utils.LogResponse("/customers", ctx.Response.StatusCode(), time.Since(startTime))
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, models.CustomerListResponse{
		Customers: customers,
		Total:     len(customers),
	})
	utils.LogResponse("/customers", fasthttp.StatusOK, time.Since(startTime))
}

// Get обрабатывает GET /customers/{id}
func (h *CustomerHandler) Get(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := authUser(ctx)
	if !ok {
		return
	}
	customerID, _ := ctx.UserValue("id").(string)
	utils.LogRequest("GET", "/customers/"+customerID, userID)

	customer, err := h.service.Get(ctx, customerID)
	if err != nil {
		writeServiceError(ctx, err)
		utils.LogResponse("/customers/:id", ctx.Response.StatusCode(), time.Since(startTime))
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, customer)
	utils.LogResponse("/customers/:id", fasthttp.StatusOK, time.Since(startTime))
}

// Update обрабатывает PUT /customers/{id}
func (h *CustomerHandler) Update(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := authUser(ctx)
	if !ok {
		return
	}
	customerID, _ := ctx.UserValue("id").(string)
	utils.LogRequest("PUT", "/customers/"+customerID, userID)

	var req models.UpdateCustomerRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "неверный формат данных")
		utils.LogResponse("/customers/:id", fasthttp.StatusBadRequest, time.Since(startTime))
		return
	}

	customer, err := h.service.Update(ctx, userID, customerID, req)
	if err != nil {
		writeServiceError(ctx, err)
		utils.LogResponse("/customers/:id", ctx.Response.StatusCode(), time.Since(startTime))
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, customer)
	utils.LogResponse("/customers/:id", fasthttp.StatusOK, time.Since(startTime))
}

// Delete обрабатывает DELETE /customers/{id} (только admin).
func (h *CustomerHandler) Delete(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := authUser(ctx)
	if !ok {
		return
	}
	customerID, _ := ctx.UserValue("id").(string)
	utils.LogRequest("DELETE", "/customers/"+customerID, userID)

	if err := h.service.Delete(ctx, userID, customerID); err != nil {
		writeServiceError(ctx, err)
		utils.LogResponse("/customers/:id", ctx.Response.StatusCode(), time.Since(startTime))
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, map[string]interface{}{
		"success":     true,
		"customer_id": customerID,
	})
	utils.LogResponse("/customers/:id", fasthttp.StatusOK, time.Since(startTime))
}
