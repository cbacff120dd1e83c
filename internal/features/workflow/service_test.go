package workflow

import (
	"context"
	"testing"

	"go-expense/internal/common/apperrors"
	"go-expense/internal/features/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memWorkflowRepo struct {
	workflows map[primitive.ObjectID]*Workflow
}

func newMemWorkflowRepo() *memWorkflowRepo {
	return &memWorkflowRepo{workflows: make(map[primitive.ObjectID]*Workflow)}
}

func (m *memWorkflowRepo) Create(_ context.Context, wf *Workflow) error {
	m.workflows[wf.ID] = wf
	return nil
}

func (m *memWorkflowRepo) GetByID(_ context.Context, id primitive.ObjectID) (*Workflow, error) {
	return m.workflows[id], nil
}

func (m *memWorkflowRepo) FindDefault(_ context.Context, companyID primitive.ObjectID) (*Workflow, error) {
	for _, wf := range m.workflows {
		if wf.CompanyID == companyID && wf.IsDefault {
			return wf, nil
		}
	}
	return nil, nil
}

func (m *memWorkflowRepo) ListByCompany(_ context.Context, companyID primitive.ObjectID) ([]Workflow, error) {
	var out []Workflow
	for _, wf := range m.workflows {
		if wf.CompanyID == companyID {
			out = append(out, *wf)
		}
	}
	return out, nil
}

type memUserRepo struct {
	users map[primitive.ObjectID]*user.User
}

func newMemUserRepo(users ...*user.User) *memUserRepo {
	m := &memUserRepo{users: make(map[primitive.ObjectID]*user.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUserRepo) Create(_ context.Context, u *user.User) error {
	m.users[u.ID] = u
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*user.User, error) {
	return m.users[id], nil
}

func (m *memUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUserRepo) FindAdmin(_ context.Context, companyID primitive.ObjectID) (*user.User, error) {
	for _, u := range m.users {
		if u.CompanyID == companyID && u.Role == user.RoleAdmin {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUserRepo) ListByCompany(_ context.Context, companyID primitive.ObjectID) ([]user.User, error) {
	var out []user.User
	for _, u := range m.users {
		if u.CompanyID == companyID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memUserRepo) ListDirectReports(_ context.Context, managerID primitive.ObjectID) ([]user.User, error) {
	var out []user.User
	for _, u := range m.users {
		if u.ManagerID != nil && *u.ManagerID == managerID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memUserRepo) SetManager(_ context.Context, id, managerID primitive.ObjectID) error {
	if u, ok := m.users[id]; ok {
		u.ManagerID = &managerID
	}
	return nil
}

func (m *memUserRepo) EnsureIndexes(_ context.Context) error { return nil }

func newTestService(users ...*user.User) (WorkflowService, *memWorkflowRepo) {
	repo := newMemWorkflowRepo()
	return NewWorkflowService(repo, newMemUserRepo(users...), zap.NewNop()), repo
}

func companyUser(companyID primitive.ObjectID, role string) *user.User {
	return &user.User{
		ID:        primitive.NewObjectID(),
		CompanyID: companyID,
		Role:      role,
	}
}

func TestCreateWorkflowValidation(t *testing.T) {
	companyID := primitive.NewObjectID()
	approver := companyUser(companyID, user.RoleManager)
	outsider := companyUser(primitive.NewObjectID(), user.RoleManager)
	service, _ := newTestService(approver, outsider)

	validStep := []StepInput{{ApproverID: approver.ID.Hex()}}

	tests := []struct {
		name  string
		input CreateWorkflowInput
	}{
		{
			"missing name",
			CreateWorkflowInput{Steps: validStep, Rules: RulesInput{Type: "sequential"}},
		},
		{
			"unknown rule type",
			CreateWorkflowInput{Name: "w", Steps: validStep, Rules: RulesInput{Type: "majority_vote"}},
		},
		{
			"threshold too low",
			CreateWorkflowInput{Name: "w", Steps: validStep, Rules: RulesInput{Type: "percentage", PercentageApproval: 0}},
		},
		{
			"threshold too high",
			CreateWorkflowInput{Name: "w", Steps: validStep, Rules: RulesInput{Type: "percentage", PercentageApproval: 101}},
		},
		{
			"specific approver missing",
			CreateWorkflowInput{Name: "w", Rules: RulesInput{Type: "specific_approver"}},
		},
		{
			"specific approver from another company",
			CreateWorkflowInput{Name: "w", Rules: RulesInput{Type: "specific_approver", SpecificApprover: outsider.ID.Hex()}},
		},
		{
			"sequential needs steps",
			CreateWorkflowInput{Name: "w", Rules: RulesInput{Type: "sequential"}},
		},
		{
			"step approver from another company",
			CreateWorkflowInput{Name: "w", Steps: []StepInput{{ApproverID: outsider.ID.Hex()}}, Rules: RulesInput{Type: "sequential"}},
		},
		{
			"malformed step approver id",
			CreateWorkflowInput{Name: "w", Steps: []StepInput{{ApproverID: "not-an-oid"}}, Rules: RulesInput{Type: "sequential"}},
		},
		{
			"bad hybrid operator",
			CreateWorkflowInput{
				Name:  "w",
				Steps: validStep,
				Rules: RulesInput{Type: "hybrid", PercentageApproval: 50, SpecificApprover: approver.ID.Hex(), HybridOperator: "XOR"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateWorkflow(context.Background(), companyID, tt.input)
			require.Error(t, err)
			assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
		})
	}
}

func TestCreateWorkflowSequential(t *testing.T) {
	companyID := primitive.NewObjectID()
	first := companyUser(companyID, user.RoleManager)
	second := companyUser(companyID, user.RoleAdmin)
	service, repo := newTestService(first, second)

	wf, err := service.CreateWorkflow(context.Background(), companyID, CreateWorkflowInput{
		Name: "Two-step",
		Steps: []StepInput{
			{ApproverID: first.ID.Hex()},
			{ApproverID: second.ID.Hex()},
		},
		Rules: RulesInput{Type: "sequential"},
	})
	require.NoError(t, err)
	require.Len(t, wf.Steps, 2)
	assert.Equal(t, 1, wf.Steps[0].StepNumber)
	assert.Equal(t, first.ID, wf.Steps[0].ApproverID)
	assert.Equal(t, 2, wf.Steps[1].StepNumber)
	assert.Equal(t, second.ID, wf.Steps[1].ApproverID)
	assert.NotEmpty(t, wf.Steps[0].ID)
	assert.Contains(t, repo.workflows, wf.ID)
}

func TestCreateWorkflowHybridDefaultsToOr(t *testing.T) {
	companyID := primitive.NewObjectID()
	approver := companyUser(companyID, user.RoleManager)
	service, _ := newTestService(approver)

	wf, err := service.CreateWorkflow(context.Background(), companyID, CreateWorkflowInput{
		Name:  "Hybrid",
		Steps: []StepInput{{ApproverID: approver.ID.Hex()}},
		Rules: RulesInput{Type: "hybrid", PercentageApproval: 50, SpecificApprover: approver.ID.Hex()},
	})
	require.NoError(t, err)
	assert.Equal(t, OperatorOr, wf.Rules.HybridOperator)
	assert.Equal(t, approver.ID, wf.Rules.SpecificApprover)
}

func TestCreateWorkflowSpecificApproverWithoutSteps(t *testing.T) {
	companyID := primitive.NewObjectID()
	cfo := companyUser(companyID, user.RoleAdmin)
	service, _ := newTestService(cfo)

	// Specific-approver workflows are the one type that can run without
	// any steps
	wf, err := service.CreateWorkflow(context.Background(), companyID, CreateWorkflowInput{
		Name:  "CFO sign-off",
		Rules: RulesInput{Type: "specific_approver", SpecificApprover: cfo.ID.Hex()},
	})
	require.NoError(t, err)
	assert.Empty(t, wf.Steps)
	assert.Equal(t, cfo.ID, wf.Rules.SpecificApprover)
}

func TestEnsureForSubmitterEmployeeWithManager(t *testing.T) {
	companyID := primitive.NewObjectID()
	admin := companyUser(companyID, user.RoleAdmin)
	manager := companyUser(companyID, user.RoleManager)
	employee := companyUser(companyID, user.RoleEmployee)
	employee.ManagerID = &manager.ID
	service, _ := newTestService(admin, manager, employee)

	wf, err := service.EnsureForSubmitter(context.Background(), employee)
	require.NoError(t, err)
	require.Len(t, wf.Steps, 2)
	assert.Equal(t, RuleSequential, wf.Rules.Type)
	assert.Equal(t, manager.ID, wf.Steps[0].ApproverID)
	assert.Equal(t, admin.ID, wf.Steps[1].ApproverID)
}

func TestEnsureForSubmitterManagerGoesToAdmin(t *testing.T) {
	companyID := primitive.NewObjectID()
	admin := companyUser(companyID, user.RoleAdmin)
	manager := companyUser(companyID, user.RoleManager)
	service, _ := newTestService(admin, manager)

	wf, err := service.EnsureForSubmitter(context.Background(), manager)
	require.NoError(t, err)
	require.Len(t, wf.Steps, 1)
	assert.Equal(t, admin.ID, wf.Steps[0].ApproverID)
}

func TestEnsureForSubmitterFallsBackToDefault(t *testing.T) {
	companyID := primitive.NewObjectID()
	admin := companyUser(companyID, user.RoleAdmin)
	orphan := companyUser(companyID, user.RoleEmployee) // no manager assigned
	service, repo := newTestService(admin, orphan)

	wf, err := service.EnsureForSubmitter(context.Background(), orphan)
	require.NoError(t, err)
	assert.True(t, wf.IsDefault)
	assert.Empty(t, wf.Steps)

	// A second submitter reuses the persisted default instead of creating
	// another one
	again, err := service.EnsureForSubmitter(context.Background(), orphan)
	require.NoError(t, err)
	assert.Equal(t, wf.ID, again.ID)
	assert.Len(t, repo.workflows, 1)
}

func TestEnsureForSubmitterAdminUsesDefault(t *testing.T) {
	companyID := primitive.NewObjectID()
	admin := companyUser(companyID, user.RoleAdmin)
	service, _ := newTestService(admin)

	wf, err := service.EnsureForSubmitter(context.Background(), admin)
	require.NoError(t, err)
	assert.True(t, wf.IsDefault)
}

func TestGetWorkflowScopedToCompany(t *testing.T) {
	companyID := primitive.NewObjectID()
	approver := companyUser(companyID, user.RoleManager)
	service, _ := newTestService(approver)

	wf, err := service.CreateWorkflow(context.Background(), companyID, CreateWorkflowInput{
		Name:  "w",
		Steps: []StepInput{{ApproverID: approver.ID.Hex()}},
		Rules: RulesInput{Type: "sequential"},
	})
	require.NoError(t, err)

	got, err := service.GetWorkflow(context.Background(), companyID, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, wf.ID, got.ID)

	_, err = service.GetWorkflow(context.Background(), primitive.NewObjectID(), wf.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}
