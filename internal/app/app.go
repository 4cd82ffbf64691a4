package app

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bizdesk/internal/config"
	"bizdesk/internal/handlers"
	"bizdesk/internal/pdf"
	"bizdesk/internal/realtime"
	"bizdesk/internal/repositories"
	"bizdesk/internal/routes"
	"bizdesk/internal/services"
	"bizdesk/internal/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "bizdesk/docs"
)

func Run() {
	cfg := config.LoadConfig()

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("Ошибка подключения к БД: ", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Ошибка закрытия БД: %v", err)
		}
	}()

	// === Repos ===
	oppRepo := repositories.NewOpportunityRepository(db)
	userRepo := repositories.NewUserRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)

	// === Services ===
	authService := services.NewAuthService()
	directory := services.NewDirectory(userRepo)
	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)
	telegramService := services.NewTelegramService(cfg.Telegram.BotToken, cfg.Telegram.DryRun)

	// SMS провайдер (Mobizon) из конфига
	mobizonClient := utils.NewClientWithOptions(
		cfg.Mobizon.APIKey,
		cfg.Mobizon.SenderID,
		cfg.Mobizon.DryRun,
	)

	notificationService := services.NewNotificationService(
		notificationRepo,
		directory,
		emailService,
		telegramService,
		mobizonClient,
	)

	proposalService := services.NewProposalService(oppRepo, directory, notificationService, cfg.Workflow)

	// realtime: каждый merge уходит всем открытым экранам возможности
	hub := realtime.NewProposalHub()
	proposalService.SetMergeHook(hub.Broadcast)

	reportService := services.NewReportService(oppRepo)

	// PDF генератор (положи DejaVuSans.ttf в assets/fonts/)
	pdfGen := pdf.NewDocumentGenerator("./files", "assets/fonts/DejaVuSans.ttf")

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(directory, authService)
	userHandler := handlers.NewUserHandler(directory)
	opportunityHandler := handlers.NewOpportunityHandler(oppRepo)
	proposalHandler := handlers.NewProposalHandler(proposalService, directory, oppRepo, pdfGen)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo)
	mentionHandler := handlers.NewMentionHandler(directory)
	reportHandler := handlers.NewReportHandler(reportService)
	wsHandler := handlers.NewWSHandler(hub, proposalService)

	// === Gin ===
	router := gin.Default()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Роуты (JWT/RBAC — внутри SetupRoutes)
	routes.SetupRoutes(
		router,
		authHandler,
		userHandler,
		opportunityHandler,
		proposalHandler,
		notificationHandler,
		mentionHandler,
		reportHandler,
		wsHandler,
	)

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Сервер запущен на %s", listenAddr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- router.Run(listenAddr)
	}()

	// на выходе дожимаем отложенные записи proposals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		proposalService.Flush()
		log.Fatal("Ошибка запуска сервера: ", err)
	case sig := <-sigCh:
		log.Printf("Получен сигнал %s, останавливаемся", sig)
		proposalService.Flush()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
