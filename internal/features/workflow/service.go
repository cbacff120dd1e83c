package workflow

import (
	"context"
	"time"

	"go-expense/internal/common/apperrors"
	"go-expense/internal/features/user"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type WorkflowService interface {
	CreateWorkflow(ctx context.Context, companyID primitive.ObjectID, input CreateWorkflowInput) (*Workflow, error)
	GetWorkflow(ctx context.Context, companyID, id primitive.ObjectID) (*Workflow, error)
	ListWorkflows(ctx context.Context, companyID primitive.ObjectID) ([]Workflow, error)

	// EnsureForSubmitter materializes the workflow a new claim will be
	// governed by. The reference is fixed at claim creation and never
	// swapped mid-flight.
	EnsureForSubmitter(ctx context.Context, submitter *user.User) (*Workflow, error)
}

type CreateWorkflowInput struct {
	Name  string      `json:"name"`
	Steps []StepInput `json:"steps"`
	Rules RulesInput  `json:"rules"`
}

type StepInput struct {
	ApproverID string `json:"approver_id"`
}

type RulesInput struct {
	Type               string `json:"type"`
	PercentageApproval int    `json:"percentage_approval"`
	SpecificApprover   string `json:"specific_approver"`
	HybridOperator     string `json:"hybrid_operator"`
}

type WorkflowServiceImpl struct {
	Repo     WorkflowRepository
	UserRepo user.UserRepository
	Logger   *zap.Logger
}

func NewWorkflowService(repo WorkflowRepository, userRepo user.UserRepository, logger *zap.Logger) WorkflowService {
	return &WorkflowServiceImpl{
		Repo:     repo,
		UserRepo: userRepo,
		Logger:   logger,
	}
}

func (s *WorkflowServiceImpl) CreateWorkflow(ctx context.Context, companyID primitive.ObjectID, input CreateWorkflowInput) (*Workflow, error) {
	if input.Name == "" {
		return nil, apperrors.Validation("workflow name is required")
	}

	ruleType := RuleType(input.Rules.Type)
	switch ruleType {
	case RuleSequential, RulePercentage, RuleSpecificApprover, RuleHybrid:
	default:
		return nil, apperrors.Validation("invalid rule type %q", input.Rules.Type)
	}

	// Threshold and specific-approver constraints are enforced here, at
	// creation time, so the evaluator never sees a malformed rule.
	if ruleType == RulePercentage || ruleType == RuleHybrid {
		if input.Rules.PercentageApproval < 1 || input.Rules.PercentageApproval > 100 {
			return nil, apperrors.Validation("percentage approval must be between 1 and 100")
		}
	}

	var specificApprover primitive.ObjectID
	if ruleType == RuleSpecificApprover || ruleType == RuleHybrid {
		if input.Rules.SpecificApprover == "" {
			return nil, apperrors.Validation("specific approver is required for this rule type")
		}
		oid, err := primitive.ObjectIDFromHex(input.Rules.SpecificApprover)
		if err != nil {
			return nil, apperrors.Validation("invalid specific approver id")
		}
		approver, err := s.UserRepo.GetByID(ctx, oid)
		if err != nil {
			return nil, apperrors.Transient("looking up specific approver", err)
		}
		if approver == nil || approver.CompanyID != companyID {
			return nil, apperrors.Validation("specific approver does not belong to this company")
		}
		specificApprover = oid
	}

	if ruleType != RuleSpecificApprover && len(input.Steps) == 0 {
		return nil, apperrors.Validation("%s workflows require at least one approval step", ruleType)
	}

	steps := make([]Step, 0, len(input.Steps))
	for i, stepInput := range input.Steps {
		oid, err := primitive.ObjectIDFromHex(stepInput.ApproverID)
		if err != nil {
			return nil, apperrors.Validation("invalid approver id in step %d", i+1)
		}
		approver, err := s.UserRepo.GetByID(ctx, oid)
		if err != nil {
			return nil, apperrors.Transient("looking up step approver", err)
		}
		if approver == nil || approver.CompanyID != companyID {
			return nil, apperrors.Validation("approver in step %d does not belong to this company", i+1)
		}
		steps = append(steps, Step{
			ID:         uuid.NewString(),
			StepNumber: i + 1,
			ApproverID: oid,
		})
	}

	operator := HybridOperator(input.Rules.HybridOperator)
	if ruleType == RuleHybrid {
		if operator == "" {
			operator = OperatorOr
		}
		if operator != OperatorAnd && operator != OperatorOr {
			return nil, apperrors.Validation("hybrid operator must be AND or OR")
		}
	}

	wf := &Workflow{
		ID:        primitive.NewObjectID(),
		CompanyID: companyID,
		Name:      input.Name,
		Steps:     steps,
		Rules: Rules{
			Type:               ruleType,
			PercentageApproval: input.Rules.PercentageApproval,
			SpecificApprover:   specificApprover,
			HybridOperator:     operator,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.Repo.Create(ctx, wf); err != nil {
		return nil, apperrors.Transient("creating workflow", err)
	}

	s.Logger.Info("Workflow created",
		zap.String("workflow_id", wf.ID.Hex()),
		zap.String("company_id", companyID.Hex()),
		zap.String("rule_type", string(ruleType)))

	return wf, nil
}

func (s *WorkflowServiceImpl) GetWorkflow(ctx context.Context, companyID, id primitive.ObjectID) (*Workflow, error) {
	wf, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Transient("loading workflow", err)
	}
	if wf == nil || wf.CompanyID != companyID {
		return nil, apperrors.NotFound("workflow %s not found", id.Hex())
	}
	return wf, nil
}

func (s *WorkflowServiceImpl) ListWorkflows(ctx context.Context, companyID primitive.ObjectID) ([]Workflow, error) {
	return s.Repo.ListByCompany(ctx, companyID)
}

// EnsureForSubmitter applies the provisioning precedence: an employee with
// a manager gets manager-then-admin, a manager goes straight to the admin,
// and everyone else falls back to the company's persisted default workflow
// (created empty if absent, which auto-approves).
func (s *WorkflowServiceImpl) EnsureForSubmitter(ctx context.Context, submitter *user.User) (*Workflow, error) {
	admin, err := s.UserRepo.FindAdmin(ctx, submitter.CompanyID)
	if err != nil {
		return nil, apperrors.Transient("looking up company admin", err)
	}

	switch {
	case submitter.Role == user.RoleEmployee && submitter.ManagerID != nil && admin != nil:
		return s.createSequential(ctx, submitter.CompanyID, "Hierarchical Approval",
			[]primitive.ObjectID{*submitter.ManagerID, admin.ID})

	case submitter.Role == user.RoleManager && admin != nil:
		return s.createSequential(ctx, submitter.CompanyID, "Manager to Admin",
			[]primitive.ObjectID{admin.ID})
	}

	return s.ensureDefault(ctx, submitter.CompanyID)
}

func (s *WorkflowServiceImpl) createSequential(ctx context.Context, companyID primitive.ObjectID, name string, approvers []primitive.ObjectID) (*Workflow, error) {
	steps := make([]Step, 0, len(approvers))
	for i, approverID := range approvers {
		steps = append(steps, Step{
			ID:         uuid.NewString(),
			StepNumber: i + 1,
			ApproverID: approverID,
		})
	}

	wf := &Workflow{
		ID:        primitive.NewObjectID(),
		CompanyID: companyID,
		Name:      name,
		Steps:     steps,
		Rules:     Rules{Type: RuleSequential},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.Repo.Create(ctx, wf); err != nil {
		return nil, apperrors.Transient("creating workflow", err)
	}
	return wf, nil
}

func (s *WorkflowServiceImpl) ensureDefault(ctx context.Context, companyID primitive.ObjectID) (*Workflow, error) {
	existing, err := s.Repo.FindDefault(ctx, companyID)
	if err != nil {
		return nil, apperrors.Transient("looking up default workflow", err)
	}
	if existing != nil {
		return existing, nil
	}

	// Steps are populated later when managers are assigned; until then a
	// claim governed by this workflow auto-approves.
	wf := &Workflow{
		ID:        primitive.NewObjectID(),
		CompanyID: companyID,
		Name:      "Default Approval Workflow",
		Steps:     []Step{},
		Rules:     Rules{Type: RuleSequential},
		IsDefault: true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.Repo.Create(ctx, wf); err != nil {
		return nil, apperrors.Transient("creating default workflow", err)
	}

	s.Logger.Info("Default workflow created", zap.String("company_id", companyID.Hex()))
	return wf, nil
}
