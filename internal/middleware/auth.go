package middleware

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"bank-ledger/internal/models"
	"bank-ledger/internal/services"
	"bank-ledger/internal/utils"
)

type AuthMiddleware struct {
	authService *services.AuthService
}

func NewAuthMiddleware(authService *services.AuthService) *AuthMiddleware {
	utils.LogSuccess("Middleware", "Инициализирован middleware авторизации")
	return &AuthMiddleware{
		authService: authService,
	}
}

func reject(ctx *fasthttp.RequestCtx, status int, message string) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	_ = json.NewEncoder(ctx).Encode(map[string]string{"error": message})
}

// RequireAuth проверяет Bearer JWT и кладёт user_id и role в контекст.
func (m *AuthMiddleware) RequireAuth(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		startTime := time.Now()

		authHeader := string(ctx.Request.Header.Peek("Authorization"))
		if authHeader == "" {
			utils.LogWarning("Middleware", "Отсутствует заголовок Authorization")
			reject(ctx, fasthttp.StatusUnauthorized, "требуется авторизация")
			utils.LogResponse("RequireAuth", fasthttp.StatusUnauthorized, time.Since(startTime))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.LogWarning("Middleware", "Неверный формат заголовка Authorization")
			reject(ctx, fasthttp.StatusUnauthorized, "неверный формат токена")
			utils.LogResponse("RequireAuth", fasthttp.StatusUnauthorized, time.Since(startTime))
			return
		}

		claims, err := m.authService.ValidateToken(parts[1])
		if err != nil {
			utils.LogWarning("Middleware", "Невалидный токен: %v", err)
			reject(ctx, fasthttp.StatusUnauthorized, "невалидный или истёкший токен")
			utils.LogResponse("RequireAuth", fasthttp.StatusUnauthorized, time.Since(startTime))
			return
		}

		ctx.SetUserValue("user_id", claims.UserID)
		ctx.SetUserValue("role", claims.Role)
		utils.LogDebug("Middleware", "Аутентифицирован пользователь: %s (роль: %s)", claims.UserID, claims.Role)

		next(ctx)
	}
}

// RequireAdmin пускает дальше только роль admin. Навешивается
// поверх RequireAuth.
func (m *AuthMiddleware) RequireAdmin(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return m.RequireAuth(func(ctx *fasthttp.RequestCtx) {
		role, _ := ctx.UserValue("role").(string)
		if role != models.RoleAdmin {
			userID, _ := ctx.UserValue("user_id").(string)
			utils.LogWarning("Middleware", "Пользователь %s (роль: %s) пытался открыть админский маршрут", userID, role)
			reject(ctx, fasthttp.StatusForbidden, "требуется роль администратора")
			return
		}
		next(ctx)
	})
}
