package middleware

import (
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"bank-ledger/internal/models"
	"bank-ledger/internal/services"
)

func callWithAuth(m *AuthMiddleware, wrap func(fasthttp.RequestHandler) fasthttp.RequestHandler, header string) (*fasthttp.RequestCtx, bool) {
	passed := false
	handler := wrap(func(ctx *fasthttp.RequestCtx) {
		passed = true
		ctx.SetStatusCode(fasthttp.StatusOK)
	})

	ctx := &fasthttp.RequestCtx{}
	if header != "" {
		ctx.Request.Header.Set("Authorization", header)
	}
	handler(ctx)
	return ctx, passed
}

func TestRequireAuth(t *testing.T) {
	auth := services.NewAuthService("test-secret", time.Hour)
	m := NewAuthMiddleware(auth)

	token, err := auth.GenerateToken("user-1", models.RoleTeller)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	ctx, passed := callWithAuth(m, m.RequireAuth, "Bearer "+token)
	if !passed {
		t.Fatalf("валидный токен отклонён: %d %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	if got, _ := ctx.UserValue("user_id").(string); got != "user-1" {
		t.Errorf("user_id в контексте = %q, ожидалось user-1", got)
	}
	if got, _ := ctx.UserValue("role").(string); got != models.RoleTeller {
		t.Errorf("role в контексте = %q, ожидалось %q", got, models.RoleTeller)
	}
}

func TestRequireAuthRejects(t *testing.T) {
	auth := services.NewAuthService("test-secret", time.Hour)
	m := NewAuthMiddleware(auth)

	expired, _ := services.NewAuthService("test-secret", -time.Minute).GenerateToken("user-1", models.RoleTeller)
	foreign, _ := services.NewAuthService("other-secret", time.Hour).GenerateToken("user-1", models.RoleTeller)

	cases := []struct {
		name   string
		header string
	}{
		{"без заголовка", ""},
		{"не Bearer", "Basic abc"},
		{"мусор вместо токена", "Bearer не.токен.вовсе"},
		{"истёкший токен", "Bearer " + expired},
		{"чужая подпись", "Bearer " + foreign},
	}

	for _, c := range cases {
		ctx, passed := callWithAuth(m, m.RequireAuth, c.header)
		if passed {
			t.Errorf("%s: запрос прошёл дальше", c.name)
			continue
		}
		if got := ctx.Response.StatusCode(); got != fasthttp.StatusUnauthorized {
			t.Errorf("%s: статус = %d, ожидалось 401", c.name, got)
		}
	}
}

func TestRequireAdmin(t *testing.T) {
	auth := services.NewAuthService("test-secret", time.Hour)
	m := NewAuthMiddleware(auth)

	adminToken, _ := auth.GenerateToken("admin-1", models.RoleAdmin)
	tellerToken, _ := auth.GenerateToken("teller-1", models.RoleTeller)

	if ctx, passed := callWithAuth(m, m.RequireAdmin, "Bearer "+adminToken); !passed {
		t.Fatalf("администратор отклонён: %d %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}

	ctx, passed := callWithAuth(m, m.RequireAdmin, "Bearer "+tellerToken)
	if passed {
		t.Fatal("кассир прошёл на админский маршрут")
	}
	if got := ctx.Response.StatusCode(); got != fasthttp.StatusForbidden {
		t.Fatalf("статус = %d, ожидалось 403", got)
	}
}
