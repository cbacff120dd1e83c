package expense

import (
	"context"
	"testing"
	"time"

	"go-expense/internal/common/apperrors"
	"go-expense/internal/features/user"
	"go-expense/internal/features/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// fakeExpenseRepo implements the compare-and-set contract in memory
type fakeExpenseRepo struct {
	expenses map[primitive.ObjectID]*Expense

	// forceConflict makes the next ApplyDecision lose the race
	forceConflict bool
}

func newFakeExpenseRepo() *fakeExpenseRepo {
	return &fakeExpenseRepo{expenses: make(map[primitive.ObjectID]*Expense)}
}

func (f *fakeExpenseRepo) Create(_ context.Context, e *Expense) error {
	copied := *e
	f.expenses[e.ID] = &copied
	return nil
}

func (f *fakeExpenseRepo) GetByID(_ context.Context, id primitive.ObjectID) (*Expense, error) {
	e, ok := f.expenses[id]
	if !ok {
		return nil, nil
	}
	copied := *e
	copied.ApprovalHistory = append([]HistoryEntry(nil), e.ApprovalHistory...)
	return &copied, nil
}

func (f *fakeExpenseRepo) ApplyDecision(_ context.Context, id primitive.ObjectID, expectedVersion int64, entry HistoryEntry, status Status, approverIndex int) (*Expense, error) {
	if f.forceConflict {
		f.forceConflict = false
		return nil, ErrVersionConflict
	}
	e, ok := f.expenses[id]
	if !ok || e.Version != expectedVersion || e.Status != StatusPending {
		return nil, ErrVersionConflict
	}
	e.ApprovalHistory = append(e.ApprovalHistory, entry)
	e.Status = status
	e.CurrentApproverIndex = approverIndex
	e.Version++
	e.UpdatedAt = time.Now()
	copied := *e
	return &copied, nil
}

func (f *fakeExpenseRepo) ListBySubmitter(_ context.Context, _ primitive.ObjectID) ([]Expense, error) {
	return nil, nil
}
func (f *fakeExpenseRepo) ListBySubmitters(_ context.Context, _ primitive.ObjectID, _ []primitive.ObjectID) ([]Expense, error) {
	return nil, nil
}
func (f *fakeExpenseRepo) ListPendingByCompany(_ context.Context, companyID primitive.ObjectID) ([]Expense, error) {
	var out []Expense
	for _, e := range f.expenses {
		if e.CompanyID == companyID && e.Status == StatusPending {
			out = append(out, *e)
		}
	}
	return out, nil
}
func (f *fakeExpenseRepo) ListByCompanyAndStatus(_ context.Context, _ primitive.ObjectID, _ Status) ([]Expense, error) {
	return nil, nil
}
func (f *fakeExpenseRepo) ListPendingOlderThan(_ context.Context, _ time.Time) ([]Expense, error) {
	return nil, nil
}
func (f *fakeExpenseRepo) EnsureIndexes(_ context.Context) error { return nil }

type fakeWorkflowRepo struct {
	workflows map[primitive.ObjectID]*workflow.Workflow
}

func newFakeWorkflowRepo() *fakeWorkflowRepo {
	return &fakeWorkflowRepo{workflows: make(map[primitive.ObjectID]*workflow.Workflow)}
}

func (f *fakeWorkflowRepo) Create(_ context.Context, wf *workflow.Workflow) error {
	f.workflows[wf.ID] = wf
	return nil
}
func (f *fakeWorkflowRepo) GetByID(_ context.Context, id primitive.ObjectID) (*workflow.Workflow, error) {
	return f.workflows[id], nil
}
func (f *fakeWorkflowRepo) FindDefault(_ context.Context, _ primitive.ObjectID) (*workflow.Workflow, error) {
	return nil, nil
}
func (f *fakeWorkflowRepo) ListByCompany(_ context.Context, _ primitive.ObjectID) ([]workflow.Workflow, error) {
	return nil, nil
}

// fixedWorkflowService always hands back the same workflow at submission
type fixedWorkflowService struct {
	wf *workflow.Workflow
}

func (f *fixedWorkflowService) CreateWorkflow(_ context.Context, _ primitive.ObjectID, _ workflow.CreateWorkflowInput) (*workflow.Workflow, error) {
	return nil, nil
}
func (f *fixedWorkflowService) GetWorkflow(_ context.Context, _, _ primitive.ObjectID) (*workflow.Workflow, error) {
	return f.wf, nil
}
func (f *fixedWorkflowService) ListWorkflows(_ context.Context, _ primitive.ObjectID) ([]workflow.Workflow, error) {
	return nil, nil
}
func (f *fixedWorkflowService) EnsureForSubmitter(_ context.Context, _ *user.User) (*workflow.Workflow, error) {
	return f.wf, nil
}

type testEnv struct {
	service      ExpenseService
	expenseRepo  *fakeExpenseRepo
	workflowRepo *fakeWorkflowRepo
	companyID    primitive.ObjectID
}

func newTestEnv(t *testing.T, wf *workflow.Workflow) *testEnv {
	t.Helper()
	expenseRepo := newFakeExpenseRepo()
	workflowRepo := newFakeWorkflowRepo()
	if wf != nil {
		workflowRepo.workflows[wf.ID] = wf
	}
	companyID := primitive.NewObjectID()
	if wf != nil {
		companyID = wf.CompanyID
	}

	service := NewExpenseService(expenseRepo, &fixedWorkflowService{wf: wf}, workflowRepo, nil, zap.NewNop())
	return &testEnv{
		service:      service,
		expenseRepo:  expenseRepo,
		workflowRepo: workflowRepo,
		companyID:    companyID,
	}
}

func (env *testEnv) pendingClaim(t *testing.T, wf *workflow.Workflow) *Expense {
	t.Helper()
	claim := &Expense{
		ID:              primitive.NewObjectID(),
		CompanyID:       env.companyID,
		SubmittedBy:     primitive.NewObjectID(),
		Amount:          125.50,
		Currency:        "USD",
		Category:        "Travel",
		Description:     "client visit",
		ExpenseDate:     time.Now(),
		Status:          StatusPending,
		ApprovalHistory: []HistoryEntry{},
		Version:         1,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if wf != nil {
		claim.WorkflowID = &wf.ID
	}
	require.NoError(t, env.expenseRepo.Create(context.Background(), claim))
	return claim
}

func TestRecordDecisionSequentialScenario(t *testing.T) {
	ctx := context.Background()
	a, b, c := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	wf := sequentialWorkflow(a, b, c)
	env := newTestEnv(t, wf)
	claim := env.pendingClaim(t, wf)

	// A approves: still pending, cursor moves to step 2
	updated, err := env.service.RecordDecision(ctx, claim.ID, a, DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, updated.Status)
	assert.Equal(t, 1, updated.CurrentApproverIndex)

	// B approves: still pending, cursor moves to step 3
	updated, err = env.service.RecordDecision(ctx, claim.ID, b, DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, updated.Status)
	assert.Equal(t, 2, updated.CurrentApproverIndex)

	// C approves: all steps done, terminal
	updated, err = env.service.RecordDecision(ctx, claim.ID, c, DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, updated.Status)
	assert.Len(t, updated.ApprovalHistory, 3)
}

func TestRecordDecisionPercentageScenario(t *testing.T) {
	ctx := context.Background()
	approvers := make([]primitive.ObjectID, 5)
	for i := range approvers {
		approvers[i] = primitive.NewObjectID()
	}
	wf := workflowWithRules(workflow.Rules{Type: workflow.RulePercentage, PercentageApproval: 60}, approvers...)
	env := newTestEnv(t, wf)
	claim := env.pendingClaim(t, wf)

	updated, err := env.service.RecordDecision(ctx, claim.ID, approvers[0], DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, updated.Status)

	updated, err = env.service.RecordDecision(ctx, claim.ID, approvers[1], DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, updated.Status)

	// Third of five reaches 60%
	updated, err = env.service.RecordDecision(ctx, claim.ID, approvers[2], DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, updated.Status)
}

func TestRecordDecisionIndexAdvancesOnlyForSequential(t *testing.T) {
	ctx := context.Background()
	approvers := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()}

	rules := map[string]workflow.Rules{
		"percentage": {Type: workflow.RulePercentage, PercentageApproval: 100},
		"specific":   {Type: workflow.RuleSpecificApprover, SpecificApprover: approvers[2]},
		"hybrid":     {Type: workflow.RuleHybrid, PercentageApproval: 100, SpecificApprover: approvers[2], HybridOperator: workflow.OperatorAnd},
	}

	for name, r := range rules {
		t.Run(name, func(t *testing.T) {
			wf := workflowWithRules(r, approvers...)
			env := newTestEnv(t, wf)
			claim := env.pendingClaim(t, wf)

			updated, err := env.service.RecordDecision(ctx, claim.ID, approvers[0], DecisionApproved, "")
			require.NoError(t, err)
			assert.Equal(t, StatusPending, updated.Status)
			assert.Equal(t, 0, updated.CurrentApproverIndex, "cursor must not move for non-sequential rules")
		})
	}
}

func TestRecordDecisionRejectionIsImmediate(t *testing.T) {
	ctx := context.Background()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	wf := sequentialWorkflow(a, b)
	env := newTestEnv(t, wf)
	claim := env.pendingClaim(t, wf)

	updated, err := env.service.RecordDecision(ctx, claim.ID, a, DecisionRejected, "missing receipt")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, updated.Status)

	// The rejection comment stays in history for audit
	require.Len(t, updated.ApprovalHistory, 1)
	assert.Equal(t, DecisionRejected, updated.ApprovalHistory[0].Decision)
	assert.Equal(t, "missing receipt", updated.ApprovalHistory[0].Comment)
}

func TestRecordDecisionRejectionRequiresComment(t *testing.T) {
	ctx := context.Background()
	a := primitive.NewObjectID()
	wf := sequentialWorkflow(a)
	env := newTestEnv(t, wf)
	claim := env.pendingClaim(t, wf)

	_, err := env.service.RecordDecision(ctx, claim.ID, a, DecisionRejected, "   ")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	// Nothing was mutated
	current, getErr := env.expenseRepo.GetByID(ctx, claim.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StatusPending, current.Status)
	assert.Empty(t, current.ApprovalHistory)
}

func TestRecordDecisionInvalidDecisionValue(t *testing.T) {
	ctx := context.Background()
	wf := sequentialWorkflow(primitive.NewObjectID())
	env := newTestEnv(t, wf)
	claim := env.pendingClaim(t, wf)

	_, err := env.service.RecordDecision(ctx, claim.ID, primitive.NewObjectID(), Decision("Maybe"), "")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestRecordDecisionTerminalClaimConflicts(t *testing.T) {
	ctx := context.Background()
	a := primitive.NewObjectID()
	wf := sequentialWorkflow(a)
	env := newTestEnv(t, wf)
	claim := env.pendingClaim(t, wf)

	updated, err := env.service.RecordDecision(ctx, claim.ID, a, DecisionApproved, "")
	require.NoError(t, err)
	require.Equal(t, StatusApproved, updated.Status)

	// Re-deciding a closed claim must fail and leave history untouched
	_, err = env.service.RecordDecision(ctx, claim.ID, a, DecisionRejected, "changed my mind")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	current, getErr := env.expenseRepo.GetByID(ctx, claim.ID)
	require.NoError(t, getErr)
	assert.Len(t, current.ApprovalHistory, 1)
	assert.Equal(t, StatusApproved, current.Status)
}

func TestRecordDecisionMissingClaim(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.service.RecordDecision(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), DecisionApproved, "")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestRecordDecisionVersionConflictSurfacesAsConflict(t *testing.T) {
	ctx := context.Background()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	wf := sequentialWorkflow(a, b)
	env := newTestEnv(t, wf)
	claim := env.pendingClaim(t, wf)

	env.expenseRepo.forceConflict = true

	_, err := env.service.RecordDecision(ctx, claim.ID, a, DecisionApproved, "")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	// The claim is still pending; the caller may reload and retry
	current, getErr := env.expenseRepo.GetByID(ctx, claim.ID)
	require.NoError(t, getErr)
	assert.Equal(t, StatusPending, current.Status)
	assert.Empty(t, current.ApprovalHistory)
}

func TestRecordDecisionNoWorkflowAutoApproves(t *testing.T) {
	env := newTestEnv(t, nil)
	claim := env.pendingClaim(t, nil)

	updated, err := env.service.RecordDecision(context.Background(), claim.ID, primitive.NewObjectID(), DecisionApproved, "")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, updated.Status)
}

func TestPreviewEvaluationDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	wf := sequentialWorkflow(a, b)
	env := newTestEnv(t, wf)
	claim := env.pendingClaim(t, wf)

	preview, err := env.service.PreviewEvaluation(ctx, env.companyID, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, preview.Status)
	assert.Equal(t, VerdictPending, preview.Outcome.Verdict)
	assert.Equal(t, []primitive.ObjectID{a}, preview.CurrentApprovers)

	current, getErr := env.expenseRepo.GetByID(ctx, claim.ID)
	require.NoError(t, getErr)
	assert.Equal(t, int64(1), current.Version)
}

func TestPreviewEvaluationScopedToCompany(t *testing.T) {
	wf := sequentialWorkflow(primitive.NewObjectID())
	env := newTestEnv(t, wf)
	claim := env.pendingClaim(t, wf)

	_, err := env.service.PreviewEvaluation(context.Background(), primitive.NewObjectID(), claim.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestSubmitExpenseAttachesWorkflow(t *testing.T) {
	wf := sequentialWorkflow(primitive.NewObjectID())
	env := newTestEnv(t, wf)

	submitter := &user.User{
		ID:        primitive.NewObjectID(),
		CompanyID: env.companyID,
		Role:      user.RoleEmployee,
	}

	created, err := env.service.SubmitExpense(context.Background(), submitter, SubmitExpenseInput{
		Amount:      42.00,
		Currency:    "usd",
		Category:    "Meals",
		Description: "team lunch",
		ExpenseDate: "2026-08-01",
	})
	require.NoError(t, err)
	require.NotNil(t, created.WorkflowID)
	assert.Equal(t, wf.ID, *created.WorkflowID)
	assert.Equal(t, StatusPending, created.Status)
	assert.Equal(t, "USD", created.Currency)
	assert.Equal(t, int64(1), created.Version)
}

func TestSubmitExpenseValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	submitter := &user.User{ID: primitive.NewObjectID(), CompanyID: env.companyID, Role: user.RoleEmployee}

	tests := []struct {
		name  string
		input SubmitExpenseInput
	}{
		{"zero amount", SubmitExpenseInput{Amount: 0, Currency: "USD", Category: "x", Description: "y", ExpenseDate: "2026-08-01"}},
		{"bad currency", SubmitExpenseInput{Amount: 10, Currency: "DOLLARS", Category: "x", Description: "y", ExpenseDate: "2026-08-01"}},
		{"missing category", SubmitExpenseInput{Amount: 10, Currency: "USD", Description: "y", ExpenseDate: "2026-08-01"}},
		{"bad date", SubmitExpenseInput{Amount: 10, Currency: "USD", Category: "x", Description: "y", ExpenseDate: "01/08/2026"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.service.SubmitExpense(context.Background(), submitter, tt.input)
			require.Error(t, err)
			assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
		})
	}
}
