package config

import (
	"SpendSnap-Backend/internal/api/handlers"
	"SpendSnap-Backend/internal/api/routes"
	"SpendSnap-Backend/internal/middleware"
	"SpendSnap-Backend/internal/utils"
	"SpendSnap-Backend/internal/utils/storage"
	"SpendSnap-Backend/internal/worker"
	"SpendSnap-Backend/pkg/budget"
	"SpendSnap-Backend/pkg/category"
	"SpendSnap-Backend/pkg/expense"
	"SpendSnap-Backend/pkg/extraction"
	"SpendSnap-Backend/pkg/feedback"
	"SpendSnap-Backend/pkg/jwt"
	"SpendSnap-Backend/pkg/notification"
	"SpendSnap-Backend/pkg/ocr"
	"SpendSnap-Backend/pkg/user"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func NewApp(db *gorm.DB) (*fiber.App, *worker.Processor, error) {
	utils.InitValidator()
	app := fiber.New(fiber.Config{
		EnablePrintRoutes: true,
	})
	middlewares := middleware.NewMiddleware()
	validator := utils.Validate

	// setting up logging and limiter
	err := os.MkdirAll("./logs", os.ModePerm)
	if err != nil {
		log.Fatalf("error creating logs directory: %v", err)
	}
	file, err := os.OpenFile(
		"./logs/app.log",
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if err != nil {
		log.Fatalf("error opening file: %v", err)
	}
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "UTC",
		Output:     file,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Second,
	}))

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// utils
	s3 := storage.NewAwsS3()
	ocrTimeout := time.Duration(utils.GetConfigInt("OCR_TIMEOUT_SECONDS", 30)) * time.Second
	provider := ocr.NewHTTPProvider(utils.GetConfig("OCR_PROVIDER_URL"), ocrTimeout)

	// Repository
	userRepository := user.NewUserRepository(db)
	jobRepository := extraction.NewJobRepository(db)
	feedbackRepository := feedback.NewFeedbackRepository(db)
	expenseRepository := expense.NewExpenseRepository(db)
	budgetRepository := budget.NewBudgetRepository(db)
	categoryRepository := category.NewCategoryRepository(db)

	// Service
	jwtService := jwt.NewJWTService()
	userService := user.NewUserService(userRepository, jwtService)
	notifier := notification.NewMailNotifier(userRepository, slogger)
	amountTolerance := decimal.NewFromFloat(utils.GetConfigFloat("AMOUNT_TOLERANCE", 1.00))
	expenseService := expense.NewExpenseService(expenseRepository, amountTolerance)
	budgetService := budget.NewBudgetService(budgetRepository, expenseRepository, notifier)
	feedbackService := feedback.NewFeedbackService(feedbackRepository, jobRepository)
	categoryService := category.NewCategoryService(categoryRepository)
	retryLimit := utils.GetConfigInt("JOB_RETRY_LIMIT", 3)
	extractionService := extraction.NewExtractionService(
		jobRepository,
		s3,
		expenseService,
		feedbackService,
		budgetService,
		retryLimit,
	)

	if err := categoryService.SeedDefaults(context.Background()); err != nil {
		slogger.Warn("seeding default categories failed", "err", err)
	}

	// extraction worker
	extractorOpts := extraction.DefaultExtractorOptions()
	extractorOpts.MerchantMatchThreshold = utils.GetConfigFloat("MERCHANT_MATCH_THRESHOLD", extractorOpts.MerchantMatchThreshold)
	extractorOpts.DateHorizon = time.Duration(utils.GetConfigInt("DATE_HORIZON_DAYS", 365)) * 24 * time.Hour
	extractorOpts.KnownMerchants = utils.GetKnownMerchants()

	processor := worker.NewProcessor(
		jobRepository,
		s3,
		provider,
		notifier,
		extractorOpts,
		worker.Config{
			WorkerCount:    utils.GetConfigInt("WORKER_COUNT", 2),
			PollInterval:   time.Duration(utils.GetConfigInt("WORKER_POLL_SECONDS", 5)) * time.Second,
			OCRTimeout:     ocrTimeout,
			ReaperInterval: time.Duration(utils.GetConfigInt("REAPER_INTERVAL_SECONDS", 60)) * time.Second,
		},
		slogger,
	)

	// Handler
	userHandler := handlers.NewUserHandler(userService, validator)
	receiptHandler := handlers.NewReceiptHandler(extractionService, validator)
	feedbackHandler := handlers.NewFeedbackHandler(feedbackService, validator)
	expenseHandler := handlers.NewExpenseHandler(expenseService, budgetService, categoryService, validator)
	budgetHandler := handlers.NewBudgetHandler(budgetService, validator)

	// routes
	routesConfig := routes.Config{
		App:             app,
		UserHandler:     userHandler,
		ReceiptHandler:  receiptHandler,
		FeedbackHandler: feedbackHandler,
		ExpenseHandler:  expenseHandler,
		BudgetHandler:   budgetHandler,
		Middleware:      middlewares,
		JWTService:      jwtService,
	}
	routesConfig.Setup()
	return app, processor, nil
}
