package workflow

import (
	"go-expense/internal/common/apperrors"
	"go-expense/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WorkflowController struct {
	Service WorkflowService
}

func NewWorkflowController(service WorkflowService) *WorkflowController {
	return &WorkflowController{Service: service}
}

func companyFromClaims(ctx *fiber.Ctx) (primitive.ObjectID, error) {
	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	return primitive.ObjectIDFromHex(claims.CompanyID)
}

// CreateWorkflow godoc
// @Summary Create an approval workflow
// @Description Admin creates a workflow; rule parameters are validated here, not at evaluation time
// @Tags workflows
// @Accept json
// @Produce json
// @Router /api/workflows [post]
func (c *WorkflowController) CreateWorkflow(ctx *fiber.Ctx) error {
	var input CreateWorkflowInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	companyID, err := companyFromClaims(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid company context"})
	}

	wf, err := c.Service.CreateWorkflow(ctx.UserContext(), companyID, input)
	if err != nil {
		return ctx.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"data": wf})
}

// ListWorkflows godoc
// @Summary List company workflows
// @Tags workflows
// @Produce json
// @Router /api/workflows [get]
func (c *WorkflowController) ListWorkflows(ctx *fiber.Ctx) error {
	companyID, err := companyFromClaims(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid company context"})
	}

	workflows, err := c.Service.ListWorkflows(ctx.UserContext(), companyID)
	if err != nil {
		return ctx.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"data": workflows})
}

// GetWorkflow godoc
// @Summary Get a workflow by id
// @Tags workflows
// @Produce json
// @Router /api/workflows/{id} [get]
func (c *WorkflowController) GetWorkflow(ctx *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid workflow id"})
	}

	companyID, err := companyFromClaims(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid company context"})
	}

	wf, err := c.Service.GetWorkflow(ctx.UserContext(), companyID, id)
	if err != nil {
		return ctx.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"data": wf})
}
