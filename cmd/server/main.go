package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dkravtsov/marketplace-backend/internal/config"
	"github.com/dkravtsov/marketplace-backend/internal/db"
	httpHandlers "github.com/dkravtsov/marketplace-backend/internal/http/handlers"
	httpRouter "github.com/dkravtsov/marketplace-backend/internal/http/router"
	"github.com/dkravtsov/marketplace-backend/internal/logger"
	"github.com/dkravtsov/marketplace-backend/internal/repository"
	"github.com/dkravtsov/marketplace-backend/internal/repository/common"
	"github.com/dkravtsov/marketplace-backend/internal/service"
	"github.com/dkravtsov/marketplace-backend/internal/storage"
	"github.com/dkravtsov/marketplace-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Инициализируем вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	evidenceStorage, err := storage.NewEvidenceStorage(cfg.EvidencePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	txRunner := common.NewStore(dbConn)
	userRepo := repository.NewUserRepository(dbConn)
	serviceRepo := repository.NewServiceRepository(dbConn)
	ledgerRepo := repository.NewLedgerRepository(dbConn)
	purchaseRepo := repository.NewPurchaseRepository(dbConn)
	requestRepo := repository.NewRequestRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	catalogService := service.NewCatalogService(serviceRepo)
	escrowService := service.NewEscrowService(ledgerRepo, cfg.CommissionRate, cfg.DisputePenaltyRate)
	purchaseService := service.NewPurchaseService(txRunner, purchaseRepo, serviceRepo, escrowService, cfg.ProviderAcceptTTL)
	requestService := service.NewRequestService(txRunner, requestRepo, escrowService)
	disputeService := service.NewDisputeService(txRunner, disputeRepo, purchaseRepo, requestRepo, escrowService, evidenceStorage)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run()

	purchaseService.SetHub(hub)
	requestService.SetHub(hub)
	disputeService.SetHub(hub)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	balanceHandler := httpHandlers.NewBalanceHandler(escrowService)
	catalogHandler := httpHandlers.NewCatalogHandler(catalogService)
	purchaseHandler := httpHandlers.NewPurchaseHandler(purchaseService)
	requestHandler := httpHandlers.NewRequestHandler(requestService)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, balanceHandler, catalogHandler, purchaseHandler, requestHandler, disputeHandler, healthHandler, wsHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
