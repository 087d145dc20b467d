package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fasthttp/router"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/pressly/goose/v3"
	"github.com/valyala/fasthttp"

	"bank-ledger/internal/cache"
	"bank-ledger/internal/config"
	"bank-ledger/internal/handlers"
	"bank-ledger/internal/middleware"
	"bank-ledger/internal/repository"
	"bank-ledger/internal/services"
	"bank-ledger/internal/utils"
	"bank-ledger/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil && os.Getenv("ENV") != "docker" {
		log.Println("No .env file, using environment variables")
	}

	cfg := config.Load()

	dbPool, err := pgxpool.New(context.Background(), cfg.DBURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer dbPool.Close()

	dbForGoose := stdlib.OpenDBFromPool(dbPool)
	if err := goose.Up(dbForGoose, cfg.MigrationsDir); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	dbForGoose.Close()
	utils.LogSuccess("Main", "Миграции применены")

	// Репозитории
	userRepo := repository.NewUserRepository(dbPool)
	customerRepo := repository.NewCustomerRepository(dbPool)
	accountRepo := repository.NewAccountRepository(dbPool)
	ledgerRepo := repository.NewLedgerRepository(dbPool)
	auditRepo := repository.NewAuditRepository(dbPool)
	statsRepo := repository.NewStatsRepository(dbPool)

	// Worker Pool для асинхронных задач (аудит, инвалидация кеша)
	pool := worker.NewWorkerPool(cfg.WorkerCount, cfg.WorkerQueue, cfg.WorkerRetries)
	pool.Start()

	// Сервисы
	auditService := services.NewAuditService(auditRepo)
	auditService.SetWorkerPool(pool)

	authService := services.NewAuthService(cfg.JWTSecret, cfg.JWTExpiration)
	customerService := services.NewCustomerService(customerRepo, accountRepo, auditService)
	accountService := services.NewAccountService(accountRepo, customerRepo, auditService)
	transactionService := services.NewTransactionService(ledgerRepo, auditService)
	transactionService.SetWorkerPool(pool)
	statsService := services.NewStatsService(statsRepo)

	// Redis опционален: без него просто нет кеша балансов
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr)
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisCache.Ping(pingCtx); err != nil {
			utils.LogWarning("Main", "Redis недоступен (%v), кеширование отключено", err)
		} else {
			accountService.SetCache(redisCache)
			transactionService.SetCache(redisCache)
			statsService.SetCache(redisCache)
			utils.LogSuccess("Main", "Кеш Redis подключен: %s", cfg.RedisAddr)
		}
		cancel()
		defer redisCache.Close()
	}

	// NATS опционален: публикация событий аудита
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			utils.LogWarning("Main", "NATS недоступен (%v), публикация событий отключена", err)
		} else {
			auditService.SetNATS(nc)
			defer nc.Close()
		}
	}

	// Обработчики
	authHandler := handlers.NewAuthHandler(authService, userRepo)
	customerHandler := handlers.NewCustomerHandler(customerService)
	accountHandler := handlers.NewAccountHandler(accountService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	adminHandler := handlers.NewAdminHandler(auditRepo, statsService)

	authMw := middleware.NewAuthMiddleware(authService)

	r := router.New()
	r.GET("/health", handlers.Health)
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)
	r.DELETE("/users/me", authMw.RequireAuth(authHandler.DeleteUser))

	r.POST("/customers", authMw.RequireAuth(customerHandler.Create))
	r.GET("/customers", authMw.RequireAuth(customerHandler.List))
	r.GET("/customers/{id}", authMw.RequireAuth(customerHandler.Get))
	r.PUT("/customers/{id}", authMw.RequireAuth(customerHandler.Update))
	r.DELETE("/customers/{id}", authMw.RequireAdmin(customerHandler.Delete))

	r.POST("/accounts", authMw.RequireAuth(accountHandler.Open))
	r.GET("/accounts", authMw.RequireAuth(accountHandler.List))
	r.GET("/accounts/{id}", authMw.RequireAuth(accountHandler.Get))
	r.DELETE("/accounts/{id}", authMw.RequireAuth(accountHandler.Close))

	r.POST("/transactions", authMw.RequireAuth(transactionHandler.Create))
	r.POST("/transactions/transfer", authMw.RequireAuth(transactionHandler.Transfer))
	r.GET("/transactions", authMw.RequireAuth(transactionHandler.History))
	r.GET("/transactions/{id}", authMw.RequireAuth(transactionHandler.Get))
	r.PUT("/transactions/{id}", authMw.RequireAuth(transactionHandler.Amend))
	r.DELETE("/transactions/{id}", authMw.RequireAuth(transactionHandler.Delete))

	r.GET("/admin/audit", authMw.RequireAdmin(adminHandler.Audit))
	r.GET("/admin/stats", authMw.RequireAdmin(adminHandler.Stats))

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		utils.LogSuccess("Main", "Сервер запущен на %s", cfg.ListenAddr)
		if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	shutdownChannel := make(chan os.Signal, 1)
	signal.Notify(shutdownChannel, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChannel

	utils.LogInfo("Main", "Остановка сервера...")
	if err := server.Shutdown(); err != nil {
		utils.LogError("Main", "Ошибка остановки сервера", err)
	}
	if err := pool.Shutdown(cfg.ShutdownWindow); err != nil {
		utils.LogError("Main", "Ошибка остановки пула воркеров", err)
	}
	utils.LogSuccess("Main", "Сервер остановлен")
}
