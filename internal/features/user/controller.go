package user

import (
	"go-expense/internal/common/apperrors"
	"go-expense/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserController struct {
	Service UserService
}

func NewUserController(service UserService) *UserController {
	return &UserController{Service: service}
}

// CreateUser godoc
// @Summary Create a company user
// @Description Admin creates an employee or manager within their company
// @Tags users
// @Accept json
// @Produce json
// @Router /api/users [post]
func (c *UserController) CreateUser(ctx *fiber.Ctx) error {
	var input CreateUserInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	companyID, err := primitive.ObjectIDFromHex(claims.CompanyID)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid company context"})
	}

	created, err := c.Service.CreateUser(ctx.UserContext(), companyID, input)
	if err != nil {
		return ctx.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"data": created})
}

// ListUsers godoc
// @Summary List company users
// @Tags users
// @Produce json
// @Router /api/users [get]
func (c *UserController) ListUsers(ctx *fiber.Ctx) error {
	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	companyID, err := primitive.ObjectIDFromHex(claims.CompanyID)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid company context"})
	}

	users, err := c.Service.ListCompanyUsers(ctx.UserContext(), companyID)
	if err != nil {
		return ctx.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"data": users})
}

// AssignManager godoc
// @Summary Assign a manager to a user
// @Tags users
// @Accept json
// @Router /api/users/{id}/manager [put]
func (c *UserController) AssignManager(ctx *fiber.Ctx) error {
	userID, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	var body struct {
		ManagerID string `json:"manager_id"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	managerID, err := primitive.ObjectIDFromHex(body.ManagerID)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid manager id"})
	}

	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	companyID, err := primitive.ObjectIDFromHex(claims.CompanyID)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid company context"})
	}

	if err := c.Service.AssignManager(ctx.UserContext(), companyID, userID, managerID); err != nil {
		return ctx.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"message": "Manager assigned successfully"})
}
