package workflow

import (
	"go-expense/internal/config"
	"go-expense/internal/features/user"
	"go-expense/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type WorkflowApi struct {
	controller *WorkflowController
	config     *config.Config
}

func NewWorkflowApi(controller *WorkflowController, config *config.Config) *WorkflowApi {
	return &WorkflowApi{
		controller: controller,
		config:     config,
	}
}

func (h *WorkflowApi) Setup(app *fiber.App) {
	workflows := app.Group("/api/workflows", middleware.AuthMiddleware(h.config.SkipAuth))

	workflows.Post("/", middleware.RequireRole(user.RoleAdmin), h.controller.CreateWorkflow)
	workflows.Get("/", middleware.RequireRole(user.RoleAdmin, user.RoleManager), h.controller.ListWorkflows)
	workflows.Get("/:id", middleware.RequireRole(user.RoleAdmin, user.RoleManager), h.controller.GetWorkflow)
}
