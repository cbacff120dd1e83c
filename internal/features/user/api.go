package user

import (
	"go-expense/internal/config"
	"go-expense/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type UserApi struct {
	controller *UserController
	config     *config.Config
}

func NewUserApi(controller *UserController, config *config.Config) *UserApi {
	return &UserApi{
		controller: controller,
		config:     config,
	}
}

func (h *UserApi) Setup(app *fiber.App) {
	users := app.Group("/api/users", middleware.AuthMiddleware(h.config.SkipAuth))

	users.Post("/", middleware.RequireRole(RoleAdmin), h.controller.CreateUser)
	users.Get("/", middleware.RequireRole(RoleAdmin, RoleManager), h.controller.ListUsers)
	users.Put("/:id/manager", middleware.RequireRole(RoleAdmin), h.controller.AssignManager)
}
