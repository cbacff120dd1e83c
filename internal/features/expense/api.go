package expense

import (
	"go-expense/internal/config"
	"go-expense/internal/features/user"
	"go-expense/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ExpenseApi struct {
	controller *ExpenseController
	config     *config.Config
}

func NewExpenseApi(controller *ExpenseController, config *config.Config) *ExpenseApi {
	return &ExpenseApi{
		controller: controller,
		config:     config,
	}
}

func (h *ExpenseApi) Setup(app *fiber.App) {
	expenses := app.Group("/api/expenses", middleware.AuthMiddleware(h.config.SkipAuth))

	expenses.Post("/", h.controller.SubmitExpense)
	expenses.Get("/my", h.controller.ListMine)
	expenses.Get("/team", middleware.RequireRole(user.RoleAdmin, user.RoleManager), h.controller.ListTeam)
	expenses.Get("/pending-approvals", middleware.RequireRole(user.RoleAdmin, user.RoleManager), h.controller.ListPendingApprovals)
	expenses.Get("/company", middleware.RequireRole(user.RoleAdmin), h.controller.ListCompanyApproved)
	expenses.Get("/export", middleware.RequireRole(user.RoleAdmin), h.controller.ExportCompanyExpenses)
	expenses.Put("/:id/status", middleware.RequireRole(user.RoleAdmin, user.RoleManager), h.controller.RecordDecision)
	expenses.Get("/:id/evaluation", h.controller.PreviewEvaluation)
}
