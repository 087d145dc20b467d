package handlers

import (
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"bank-ledger/internal/models"
	"bank-ledger/internal/repository"
	"bank-ledger/internal/services"
	"bank-ledger/internal/utils"
)

// AdminHandler — админские экраны: аудит-лог и статистика панели.
// Маршруты закрыты middleware-проверкой роли admin.
type AdminHandler struct {
	auditRepo    *repository.AuditRepository
	statsService *services.StatsService
}

func NewAdminHandler(auditRepo *repository.AuditRepository, statsService *services.StatsService) *AdminHandler {
	return &AdminHandler{
		auditRepo:    auditRepo,
		statsService: statsService,
	}
}

// Audit обрабатывает GET /admin/audit?limit=N
func (h *AdminHandler) Audit(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := authUser(ctx)
	if !ok {
		return
	}
	utils.LogRequest("GET", "/admin/audit", userID)

	limit := 100
	if raw := string(ctx.QueryArgs().Peek("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	entries, err := h.auditRepo.List(ctx, limit)
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, "ошибка чтения аудит-лога")
		utils.LogResponse("/admin/audit", fasthttp.StatusInternalServerError, time.Since(startTime))
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, models.AuditListResponse{
		Entries: entries,
		Total:   len(entries),
	})
	utils.LogResponse("/admin/audit", fasthttp.StatusOK, time.Since(startTime))
}

// Stats обрабатывает GET /admin/stats
func (h *AdminHandler) Stats(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := authUser(ctx)
	if !ok {
		return
	}
	utils.LogRequest("GET", "/admin/stats", userID)

	stats, err := h.statsService.Collect(ctx)
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, "ошибка сбора статистики")
		utils.LogResponse("/admin/stats", fasthttp.StatusInternalServerError, time.Since(startTime))
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, stats)
	utils.LogResponse("/admin/stats", fasthttp.StatusOK, time.Since(startTime))
}
