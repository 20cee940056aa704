package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/tamio/tamio-backend/internal/middleware"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(
	e *echo.Echo,
	userMiddleware *middleware.UserMiddleware,
	rateLimiter *middleware.RateLimiter,
	accountHandler *AccountHandler,
	clientHandler *ClientHandler,
	expenseHandler *ExpenseHandler,
	forecastHandler *ForecastHandler,
	scenarioHandler *ScenarioHandler,
	insightsHandler *InsightsHandler,
	ruleHandler *RuleHandler,
	obligationHandler *ObligationHandler,
) {
	// API version 1
	api := e.Group("/api/v1")
	api.Use(userMiddleware.Resolve())
	api.Use(rateLimiter.Middleware())

	// Cash accounts
	accounts := api.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetAccounts)
	accounts.GET("/:id", accountHandler.GetAccount)
	accounts.PUT("/:id", accountHandler.UpdateAccount)
	accounts.DELETE("/:id", accountHandler.DeleteAccount)

	// Clients
	clients := api.Group("/clients")
	clients.POST("", clientHandler.CreateClient)
	clients.GET("", clientHandler.GetClients)
	clients.GET("/:id", clientHandler.GetClient)
	clients.PUT("/:id", clientHandler.UpdateClient)
	clients.DELETE("/:id", clientHandler.DeleteClient)

	// Expense buckets
	expenses := api.Group("/expenses")
	expenses.POST("", expenseHandler.CreateExpense)
	expenses.GET("", expenseHandler.GetExpenses)
	expenses.GET("/:id", expenseHandler.GetExpense)
	expenses.PUT("/:id", expenseHandler.UpdateExpense)
	expenses.DELETE("/:id", expenseHandler.DeleteExpense)

	// Forecast
	api.GET("/forecast", forecastHandler.GetForecast)

	// Scenarios
	scenarios := api.Group("/scenarios")
	scenarios.POST("", scenarioHandler.CreateScenario)
	scenarios.GET("", scenarioHandler.GetScenarios)
	scenarios.GET("/:id", scenarioHandler.GetScenario)
	scenarios.POST("/:id/build", scenarioHandler.BuildScenario)
	scenarios.PATCH("/:id/status", scenarioHandler.UpdateScenarioStatus)

	// Insights and suggestions
	api.GET("/insights", insightsHandler.GetInsights)
	api.GET("/insights/:metric", insightsHandler.GetInsight)
	suggestions := api.Group("/suggestions")
	suggestions.GET("", insightsHandler.GetSuggestions)
	suggestions.POST("/:id/accept", insightsHandler.AcceptSuggestion)
	suggestions.POST("/:id/dismiss", insightsHandler.DismissSuggestion)
	suggestions.POST("/:id/defer", insightsHandler.DeferSuggestion)

	// Financial rules
	rules := api.Group("/rules")
	rules.POST("", ruleHandler.CreateRule)
	rules.GET("", ruleHandler.GetRules)
	rules.PUT("/:id", ruleHandler.UpdateRule)
	rules.DELETE("/:id", ruleHandler.DeleteRule)
	rules.POST("/evaluate", ruleHandler.EvaluateRules)

	// Obligations
	obligations := api.Group("/obligations")
	obligations.POST("", obligationHandler.CreateObligation)
	obligations.GET("", obligationHandler.GetObligations)
	obligations.GET("/:id", obligationHandler.GetObligation)
	obligations.PUT("/:id", obligationHandler.SupersedeObligation)
	obligations.POST("/payments", obligationHandler.RecordPayment)
}
