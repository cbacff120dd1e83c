package expense

import (
	"go-expense/internal/common/apperrors"
	"go-expense/internal/features/user"
	"go-expense/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ExpenseController struct {
	Service     ExpenseService
	UserService user.UserService
}

func NewExpenseController(service ExpenseService, userService user.UserService) *ExpenseController {
	return &ExpenseController{
		Service:     service,
		UserService: userService,
	}
}

func (c *ExpenseController) actor(ctx *fiber.Ctx) (*user.User, error) {
	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, apperrors.Validation("invalid user context")
	}
	return c.UserService.GetUser(ctx.UserContext(), userID)
}

// SubmitExpense godoc
// @Summary Submit an expense claim
// @Description Creates a claim; its approval workflow is attached at creation time
// @Tags expenses
// @Accept json
// @Produce json
// @Router /api/expenses [post]
func (c *ExpenseController) SubmitExpense(ctx *fiber.Ctx) error {
	var input SubmitExpenseInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	submitter, err := c.actor(ctx)
	if err != nil {
		return ctx.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	expense, err := c.Service.SubmitExpense(ctx.UserContext(), submitter, input)
	if err != nil {
		return ctx.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{"data": expense})
}

// RecordDecision godoc
// @Summary Approve or reject a claim
// @Description Records one approver's decision and transitions the claim if warranted
// @Tags expenses
// @Accept json
// @Produce json
// @Router /api/expenses/{id}/status [put]
func (c *ExpenseController) RecordDecision(ctx *fiber.Ctx) error {
	claimID, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid expense id"})
	}

	var body struct {
		Status  string `json:"status"`
		Comment string `json:"comment"`
	}
	if err := ctx.BodyParser(&body); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	approverID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user context"})
	}

	updated, err := c.Service.RecordDecision(ctx.UserContext(), claimID, approverID, Decision(body.Status), body.Comment)
	if err != nil {
		return ctx.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"data": updated})
}

// PreviewEvaluation godoc
// @Summary Preview a claim's evaluation
// @Description Read-only: what the evaluator would decide and who is being waited on
// @Tags expenses
// @Produce json
// @Router /api/expenses/{id}/evaluation [get]
func (c *ExpenseController) PreviewEvaluation(ctx *fiber.Ctx) error {
	claimID, err := primitive.ObjectIDFromHex(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid expense id"})
	}

	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	companyID, err := primitive.ObjectIDFromHex(claims.CompanyID)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid company context"})
	}

	preview, err := c.Service.PreviewEvaluation(ctx.UserContext(), companyID, claimID)
	if err != nil {
		return ctx.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"data": preview})
}

// ListMine godoc
// @Summary List my expenses
// @Tags expenses
// @Produce json
// @Router /api/expenses/my [get]
func (c *ExpenseController) ListMine(ctx *fiber.Ctx) error {
	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user context"})
	}

	expenses, err := c.Service.ListMine(ctx.UserContext(), userID)
	if err != nil {
		return ctx.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"data": expenses})
}

// ListTeam godoc
// @Summary List team expenses
// @Description Managers see direct reports, admins see the whole company
// @Tags expenses
// @Produce json
// @Router /api/expenses/team [get]
func (c *ExpenseController) ListTeam(ctx *fiber.Ctx) error {
	actor, err := c.actor(ctx)
	if err != nil {
		return ctx.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	expenses, err := c.Service.ListTeam(ctx.UserContext(), actor)
	if err != nil {
		return ctx.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"data": expenses})
}

// ListPendingApprovals godoc
// @Summary List claims waiting on the caller
// @Tags expenses
// @Produce json
// @Router /api/expenses/pending-approvals [get]
func (c *ExpenseController) ListPendingApprovals(ctx *fiber.Ctx) error {
	approver, err := c.actor(ctx)
	if err != nil {
		return ctx.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	expenses, err := c.Service.ListPendingFor(ctx.UserContext(), approver)
	if err != nil {
		return ctx.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"data": expenses})
}

// ListCompanyApproved godoc
// @Summary List the company's approved expenses
// @Tags expenses
// @Produce json
// @Router /api/expenses/company [get]
func (c *ExpenseController) ListCompanyApproved(ctx *fiber.Ctx) error {
	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	companyID, err := primitive.ObjectIDFromHex(claims.CompanyID)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid company context"})
	}

	expenses, err := c.Service.ListCompanyApproved(ctx.UserContext(), companyID)
	if err != nil {
		return ctx.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"data": expenses})
}

// ExportCompanyExpenses godoc
// @Summary Export company expenses as xlsx
// @Tags expenses
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /api/expenses/export [get]
func (c *ExpenseController) ExportCompanyExpenses(ctx *fiber.Ctx) error {
	claims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	companyID, err := primitive.ObjectIDFromHex(claims.CompanyID)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid company context"})
	}

	expenses, err := c.Service.ListCompanyApproved(ctx.UserContext(), companyID)
	if err != nil {
		return ctx.Status(apperrors.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
	}

	file, err := BuildExpenseReport(expenses)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	ctx.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set("Content-Disposition", `attachment; filename="expenses.xlsx"`)
	return ctx.Send(buf.Bytes())
}
