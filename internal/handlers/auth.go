package handlers

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"

	"bank-ledger/internal/models"
	"bank-ledger/internal/repository"
	"bank-ledger/internal/services"
	"bank-ledger/internal/utils"
)

type AuthHandler struct {
	authService *services.AuthService
	userRepo    *repository.UserRepository
}

func NewAuthHandler(authService *services.AuthService, userRepo *repository.UserRepository) *AuthHandler {
	utils.LogSuccess("AuthHandler", "Инициализирован обработчик аутентификации")
	return &AuthHandler{
		authService: authService,
		userRepo:    userRepo,
	}
}

// Register обрабатывает POST /register. Новые сотрудники получают
// роль teller; администратор заводится миграцией.
func (h *AuthHandler) Register(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()
	utils.LogRequest("POST", "/register", "anonymous")

	var req models.RegisterRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "неверный формат данных")
		utils.LogResponse("/register", fasthttp.StatusBadRequest, time.Since(startTime))
		return
	}

	if req.Name == "" || req.Password == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "имя и пароль обязательны")
		utils.LogResponse("/register", fasthttp.StatusBadRequest, time.Since(startTime))
		return
	}
	if len(req.Password) < 6 {
		writeError(ctx, fasthttp.StatusBadRequest, "пароль должен быть не менее 6 символов")
		utils.LogResponse("/register", fasthttp.StatusBadRequest, time.Since(startTime))
		return
	}

	passwordHash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, "внутренняя ошибка сервера")
		utils.LogResponse("/register", fasthttp.StatusInternalServerError, time.Since(startTime))
		return
	}

	user := &models.User{
		Name:         req.Name,
		PasswordHash: passwordHash,
		Role:         models.RoleTeller,
	}

	if err := h.userRepo.Create(ctx, user); err != nil {
		writeError(ctx, fasthttp.StatusConflict, "пользователь с таким именем уже существует")
		utils.LogResponse("/register", fasthttp.StatusConflict, time.Since(startTime))
		return
	}

	utils.LogSuccess("AuthHandler", "Пользователь зарегистрирован: %s", user.Name)
	writeJSON(ctx, fasthttp.StatusCreated, map[string]interface{}{
		"message":    "пользователь успешно зарегистрирован",
		"user_id":    user.ID,
		"name":       user.Name,
		"role":       user.Role,
		"created_at": user.CreatedAt,
	})
	utils.LogResponse("/register", fasthttp.StatusCreated, time.Since(startTime))
}

// Login обрабатывает POST /login.
func (h *AuthHandler) Login(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()
	utils.LogRequest("POST", "/login", "anonymous")

	var req models.LoginRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "неверный формат данных")
		utils.LogResponse("/login", fasthttp.StatusBadRequest, time.Since(startTime))
		return
	}

	user, err := h.userRepo.GetByName(ctx, req.Name)
	if err != nil {
		writeError(ctx, fasthttp.StatusUnauthorized, "неверное имя пользователя или пароль")
		utils.LogResponse("/login", fasthttp.StatusUnauthorized, time.Since(startTime))
		return
	}

	if err := h.authService.CheckPasswordHash(req.Password, user.PasswordHash); err != nil {
		writeError(ctx, fasthttp.StatusUnauthorized, "неверное имя пользователя или пароль")
		utils.LogResponse("/login", fasthttp.StatusUnauthorized, time.Since(startTime))
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.Role)
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, "внутренняя ошибка сервера")
		utils.LogResponse("/login", fasthttp.StatusInternalServerError, time.Since(startTime))
		return
	}

	utils.LogSuccess("AuthHandler", "Пользователь вошёл: %s (ID: %s)", user.Name, user.ID)
	writeJSON(ctx, fasthttp.StatusOK, map[string]interface{}{
		"message": "вход выполнен успешно",
		"token":   token,
		"user_id": user.ID,
		"name":    user.Name,
		"role":    user.Role,
	})
	utils.LogResponse("/login", fasthttp.StatusOK, time.Since(startTime))
}

// DeleteUser обрабатывает DELETE /users/me.
func (h *AuthHandler) DeleteUser(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	userID, ok := authUser(ctx)
	if !ok {
		utils.LogResponse("/users/me", fasthttp.StatusUnauthorized, time.Since(startTime))
		return
	}
	utils.LogRequest("DELETE", "/users/me", userID)

	if err := h.userRepo.Delete(ctx, userID); err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, "ошибка удаления пользователя")
		utils.LogResponse("/users/me", fasthttp.StatusInternalServerError, time.Since(startTime))
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, map[string]string{
		"message": "пользователь успешно удалён",
		"user_id": userID,
	})
	utils.LogResponse("/users/me", fasthttp.StatusOK, time.Since(startTime))
}
