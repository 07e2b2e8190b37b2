package routes

import (
	"SpendSnap-Backend/internal/api/handlers"
	"SpendSnap-Backend/internal/middleware"
	"SpendSnap-Backend/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

type Config struct {
	App             *fiber.App
	UserHandler     handlers.UserHandler
	ReceiptHandler  handlers.ReceiptHandler
	FeedbackHandler handlers.FeedbackHandler
	ExpenseHandler  handlers.ExpenseHandler
	BudgetHandler   handlers.BudgetHandler
	Middleware      middleware.Middleware
	JWTService      jwt.JWTService
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.User()
	c.Receipts()
	c.Expenses()
	c.Budgets()
	c.GuestRoute()
}

func (c *Config) User() {
	user := c.App.Group("/api/v1/users")
	// user routes
	{
		user.Post("/register", c.UserHandler.Register)
		user.Post("/login", c.UserHandler.Login)
		user.Get("/me", c.Middleware.AuthMiddleware(c.JWTService), c.UserHandler.Me)
		user.Post("/forget", c.UserHandler.ForgotPassword)
		user.Post("/reset", c.UserHandler.ResetPassword)
	}
}

func (c *Config) Receipts() {
	receipts := c.App.Group("/api/v1/receipts", c.Middleware.AuthMiddleware(c.JWTService))

	receipts.Post("", c.ReceiptHandler.UploadReceipt)
	receipts.Get("/:id/status", c.ReceiptHandler.GetJobStatus)
	receipts.Get("/:id/result", c.ReceiptHandler.GetJobResult)

	// review actions
	receipts.Post("/:id/accept", c.ReceiptHandler.AcceptJob)
	receipts.Post("/:id/reject", c.ReceiptHandler.RejectJob)
	receipts.Post("/:id/retry", c.ReceiptHandler.RetryJob)

	// correction feedback
	receipts.Post("/:id/feedback", c.FeedbackHandler.SubmitFeedback)
	receipts.Get("/:id/feedback", c.FeedbackHandler.GetFeedbackHistory)
}

func (c *Config) Expenses() {
	expenses := c.App.Group("/api/v1/expenses", c.Middleware.AuthMiddleware(c.JWTService))
	expenses.Post("", c.ExpenseHandler.AddExpense)
	expenses.Get("", c.ExpenseHandler.GetExpenses)

	c.App.Get("/api/v1/categories", c.Middleware.AuthMiddleware(c.JWTService), c.ExpenseHandler.GetCategories)
}

func (c *Config) Budgets() {
	budgets := c.App.Group("/api/v1/budgets", c.Middleware.AuthMiddleware(c.JWTService))
	budgets.Post("", c.BudgetHandler.CreateBudget)
	budgets.Get("", c.BudgetHandler.GetBudgets)
	budgets.Put("/:id", c.BudgetHandler.UpdateBudget)
	budgets.Delete("/:id", c.BudgetHandler.DeleteBudget)
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
}
