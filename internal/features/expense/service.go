package expense

import (
	"context"
	"strings"
	"time"

	"go-expense/internal/common/apperrors"
	"go-expense/internal/features/user"
	"go-expense/internal/features/workflow"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ExpenseService interface {
	SubmitExpense(ctx context.Context, submitter *user.User, input SubmitExpenseInput) (*Expense, error)

	// RecordDecision is the single state-transition entry point, invoked
	// once per human approval or rejection.
	RecordDecision(ctx context.Context, claimID, approverID primitive.ObjectID, decision Decision, comment string) (*Expense, error)

	// PreviewEvaluation answers "what would happen" without mutating
	// anything, for pending-approval list rendering.
	PreviewEvaluation(ctx context.Context, companyID, claimID primitive.ObjectID) (*EvaluationPreview, error)

	ListMine(ctx context.Context, submitterID primitive.ObjectID) ([]Expense, error)
	ListTeam(ctx context.Context, actor *user.User) ([]Expense, error)
	ListPendingFor(ctx context.Context, approver *user.User) ([]Expense, error)
	ListCompanyApproved(ctx context.Context, companyID primitive.ObjectID) ([]Expense, error)
}

type SubmitExpenseInput struct {
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Category        string  `json:"category"`
	Description     string  `json:"description"`
	ExpenseDate     string  `json:"expense_date"`
	ReceiptImageURL string  `json:"receipt_image_url"`
	ReceiptHash     string  `json:"receipt_hash"`
}

type EvaluationPreview struct {
	Status           Status               `json:"status"`
	Outcome          Outcome              `json:"outcome"`
	CurrentApprovers []primitive.ObjectID `json:"current_approvers"`
}

type ExpenseServiceImpl struct {
	Repo            ExpenseRepository
	WorkflowService workflow.WorkflowService
	WorkflowRepo    workflow.WorkflowRepository
	UserRepo        user.UserRepository
	Logger          *zap.Logger
}

func NewExpenseService(
	repo ExpenseRepository,
	workflowService workflow.WorkflowService,
	workflowRepo workflow.WorkflowRepository,
	userRepo user.UserRepository,
	logger *zap.Logger,
) ExpenseService {
	return &ExpenseServiceImpl{
		Repo:            repo,
		WorkflowService: workflowService,
		WorkflowRepo:    workflowRepo,
		UserRepo:        userRepo,
		Logger:          logger,
	}
}

func (s *ExpenseServiceImpl) SubmitExpense(ctx context.Context, submitter *user.User, input SubmitExpenseInput) (*Expense, error) {
	if input.Amount <= 0 {
		return nil, apperrors.Validation("amount must be positive")
	}
	currency := strings.ToUpper(input.Currency)
	if len(currency) != 3 {
		return nil, apperrors.Validation("currency must be a 3-letter code")
	}
	if input.Category == "" || input.Description == "" {
		return nil, apperrors.Validation("category and description are required")
	}
	expenseDate, err := time.Parse("2006-01-02", input.ExpenseDate)
	if err != nil {
		return nil, apperrors.Validation("expense date must be YYYY-MM-DD")
	}

	// The workflow reference is fixed here and never swapped mid-flight
	wf, err := s.WorkflowService.EnsureForSubmitter(ctx, submitter)
	if err != nil {
		return nil, err
	}

	expense := &Expense{
		ID:                   primitive.NewObjectID(),
		CompanyID:            submitter.CompanyID,
		SubmittedBy:          submitter.ID,
		Amount:               input.Amount,
		Currency:             currency,
		Category:             input.Category,
		Description:          input.Description,
		ExpenseDate:          expenseDate,
		ReceiptImageURL:      input.ReceiptImageURL,
		ReceiptHash:          input.ReceiptHash,
		Status:               StatusPending,
		CurrentApproverIndex: 0,
		ApprovalHistory:      []HistoryEntry{},
		Version:              1,
		CreatedAt:            time.Now(),
		UpdatedAt:            time.Now(),
	}
	if wf != nil {
		expense.WorkflowID = &wf.ID
	}

	if err := s.Repo.Create(ctx, expense); err != nil {
		return nil, apperrors.Transient("creating expense", err)
	}

	s.Logger.Info("Expense submitted",
		zap.String("expense_id", expense.ID.Hex()),
		zap.String("company_id", expense.CompanyID.Hex()),
		zap.Float64("amount", expense.Amount))

	return expense, nil
}

func (s *ExpenseServiceImpl) RecordDecision(ctx context.Context, claimID, approverID primitive.ObjectID, decision Decision, comment string) (*Expense, error) {
	if decision != DecisionApproved && decision != DecisionRejected {
		return nil, apperrors.Validation("invalid decision %q", decision)
	}
	if decision == DecisionRejected && strings.TrimSpace(comment) == "" {
		return nil, apperrors.Validation("a comment is required when rejecting a claim")
	}

	claim, err := s.Repo.GetByID(ctx, claimID)
	if err != nil {
		return nil, apperrors.Transient("loading expense", err)
	}
	if claim == nil {
		return nil, apperrors.NotFound("expense %s not found", claimID.Hex())
	}
	if claim.Status != StatusPending {
		// Re-deciding a closed claim is an upstream bug, not a retry case
		return nil, apperrors.Conflict("expense is already %s", claim.Status)
	}

	entry := HistoryEntry{
		ApproverID: approverID,
		Decision:   decision,
		Comment:    comment,
		DecidedAt:  time.Now(),
	}

	newStatus := claim.Status
	newIndex := claim.CurrentApproverIndex

	if decision == DecisionRejected {
		// Rejection is unconditional and immediate; no evaluator call
		newStatus = StatusRejected
	} else {
		wf, err := s.loadWorkflow(ctx, claim)
		if err != nil {
			return nil, err
		}

		outcome, err := Evaluate(wf, append(claim.ApprovalHistory, entry))
		if err != nil {
			s.Logger.Error("Workflow evaluation failed",
				zap.String("expense_id", claim.ID.Hex()),
				zap.Error(err))
			return nil, err
		}

		switch outcome.Verdict {
		case VerdictApprove:
			newStatus = StatusApproved
		case VerdictPending:
			// The cursor only tracks sequential progress; advancing it
			// for the other rules would skip approvers who have not
			// decided yet.
			if wf != nil && wf.Rules.Type == workflow.RuleSequential {
				newIndex++
			}
		}
	}

	updated, err := s.Repo.ApplyDecision(ctx, claim.ID, claim.Version, entry, newStatus, newIndex)
	if err != nil {
		if err == ErrVersionConflict {
			return nil, s.classifyConflict(ctx, claimID)
		}
		return nil, apperrors.Transient("persisting decision", err)
	}

	s.Logger.Info("Decision recorded",
		zap.String("expense_id", updated.ID.Hex()),
		zap.String("company_id", updated.CompanyID.Hex()),
		zap.String("decision", string(decision)),
		zap.String("status", string(updated.Status)))

	return updated, nil
}

// classifyConflict re-reads a claim after a failed compare-and-set to
// distinguish a lost race from a deleted or already-terminal claim.
func (s *ExpenseServiceImpl) classifyConflict(ctx context.Context, claimID primitive.ObjectID) error {
	current, err := s.Repo.GetByID(ctx, claimID)
	if err != nil {
		return apperrors.Transient("reloading expense after version conflict", err)
	}
	if current == nil {
		return apperrors.NotFound("expense %s not found", claimID.Hex())
	}
	if current.Status != StatusPending {
		return apperrors.Conflict("expense is already %s", current.Status)
	}
	return apperrors.Conflict("expense was modified concurrently, reload and retry")
}

func (s *ExpenseServiceImpl) loadWorkflow(ctx context.Context, claim *Expense) (*workflow.Workflow, error) {
	if claim.WorkflowID == nil {
		return nil, nil
	}
	wf, err := s.WorkflowRepo.GetByID(ctx, *claim.WorkflowID)
	if err != nil {
		return nil, apperrors.Transient("loading workflow", err)
	}
	// A dangling workflow reference degrades to auto-approve, same as no
	// workflow at all
	return wf, nil
}

func (s *ExpenseServiceImpl) PreviewEvaluation(ctx context.Context, companyID, claimID primitive.ObjectID) (*EvaluationPreview, error) {
	claim, err := s.Repo.GetByID(ctx, claimID)
	if err != nil {
		return nil, apperrors.Transient("loading expense", err)
	}
	if claim == nil || claim.CompanyID != companyID {
		return nil, apperrors.NotFound("expense %s not found", claimID.Hex())
	}

	wf, err := s.loadWorkflow(ctx, claim)
	if err != nil {
		return nil, err
	}

	outcome, err := Evaluate(wf, claim.ApprovalHistory)
	if err != nil {
		return nil, err
	}

	return &EvaluationPreview{
		Status:           claim.Status,
		Outcome:          outcome,
		CurrentApprovers: CurrentApprovers(wf, claim.ApprovalHistory, claim.CurrentApproverIndex),
	}, nil
}

func (s *ExpenseServiceImpl) ListMine(ctx context.Context, submitterID primitive.ObjectID) ([]Expense, error) {
	return s.Repo.ListBySubmitter(ctx, submitterID)
}

// ListTeam returns a manager's direct reports' expenses, or the whole
// company's employee and manager expenses for an admin.
func (s *ExpenseServiceImpl) ListTeam(ctx context.Context, actor *user.User) ([]Expense, error) {
	var members []user.User
	var err error

	switch actor.Role {
	case user.RoleManager:
		members, err = s.UserRepo.ListDirectReports(ctx, actor.ID)
	case user.RoleAdmin:
		all, listErr := s.UserRepo.ListByCompany(ctx, actor.CompanyID)
		if listErr != nil {
			err = listErr
			break
		}
		for _, u := range all {
			if u.Role != user.RoleAdmin {
				members = append(members, u)
			}
		}
	default:
		return nil, apperrors.Validation("only managers and admins can view team expenses")
	}
	if err != nil {
		return nil, apperrors.Transient("listing team members", err)
	}
	if len(members) == 0 {
		return []Expense{}, nil
	}

	ids := make([]primitive.ObjectID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	return s.Repo.ListBySubmitters(ctx, actor.CompanyID, ids)
}

// ListPendingFor returns the pending claims the approver is currently
// waited on for, computed from each claim's workflow and history.
func (s *ExpenseServiceImpl) ListPendingFor(ctx context.Context, approver *user.User) ([]Expense, error) {
	pending, err := s.Repo.ListPendingByCompany(ctx, approver.CompanyID)
	if err != nil {
		return nil, apperrors.Transient("listing pending expenses", err)
	}

	result := []Expense{}
	for _, claim := range pending {
		wf, err := s.loadWorkflow(ctx, &claim)
		if err != nil {
			return nil, err
		}
		for _, id := range CurrentApprovers(wf, claim.ApprovalHistory, claim.CurrentApproverIndex) {
			if id == approver.ID {
				result = append(result, claim)
				break
			}
		}
	}
	return result, nil
}

func (s *ExpenseServiceImpl) ListCompanyApproved(ctx context.Context, companyID primitive.ObjectID) ([]Expense, error) {
	return s.Repo.ListByCompanyAndStatus(ctx, companyID, StatusApproved)
}
