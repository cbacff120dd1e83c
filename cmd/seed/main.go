package main

import (
	"context"
	"time"

	"go-expense/internal/config"
	"go-expense/internal/database"
	"go-expense/internal/features/company"
	"go-expense/internal/features/user"
	"go-expense/internal/features/workflow"
	"go-expense/internal/logger"
	"go-expense/pkg/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Seed provisions a demo company with an admin, a manager, two
// employees reporting to the manager, and a percentage workflow.
func Seed(
	lc fx.Lifecycle,
	companyRepo company.CompanyRepository,
	userRepo user.UserRepository,
	workflowRepo workflow.WorkflowRepository,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				logger.Info("Seeding demo data...")

				seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := seed(seedCtx, companyRepo, userRepo, workflowRepo); err != nil {
					logger.Error("Seeding failed", zap.Error(err))
					return
				}
				logger.Info("Seeding finished")
			}()
			return nil
		},
	})
}

func seed(
	ctx context.Context,
	companyRepo company.CompanyRepository,
	userRepo user.UserRepository,
	workflowRepo workflow.WorkflowRepository,
) error {
	now := time.Now()

	demoCompany := &company.Company{
		ID:              primitive.NewObjectID(),
		Name:            "Acme Corp",
		Country:         "United States",
		DefaultCurrency: "USD",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := companyRepo.Create(ctx, demoCompany); err != nil {
		return err
	}

	password, err := utils.HashPassword("password123")
	if err != nil {
		return err
	}

	admin := &user.User{
		ID:        primitive.NewObjectID(),
		CompanyID: demoCompany.ID,
		Name:      "Alice Admin",
		Email:     "admin@acme.test",
		Password:  password,
		Role:      user.RoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	manager := &user.User{
		ID:        primitive.NewObjectID(),
		CompanyID: demoCompany.ID,
		Name:      "Mark Manager",
		Email:     "manager@acme.test",
		Password:  password,
		Role:      user.RoleManager,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, u := range []*user.User{admin, manager} {
		if err := userRepo.Create(ctx, u); err != nil {
			return err
		}
	}

	employees := []struct {
		name  string
		email string
	}{
		{"Eve Employee", "eve@acme.test"},
		{"Evan Employee", "evan@acme.test"},
	}
	for _, e := range employees {
		emp := &user.User{
			ID:        primitive.NewObjectID(),
			CompanyID: demoCompany.ID,
			Name:      e.name,
			Email:     e.email,
			Password:  password,
			Role:      user.RoleEmployee,
			ManagerID: &manager.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := userRepo.Create(ctx, emp); err != nil {
			return err
		}
	}

	quorum := &workflow.Workflow{
		ID:        primitive.NewObjectID(),
		CompanyID: demoCompany.ID,
		Name:      "Finance Quorum",
		Steps: []workflow.Step{
			{ID: uuid.NewString(), StepNumber: 1, ApproverID: manager.ID},
			{ID: uuid.NewString(), StepNumber: 2, ApproverID: admin.ID},
		},
		Rules: workflow.Rules{
			Type:               workflow.RulePercentage,
			PercentageApproval: 60,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	return workflowRepo.Create(ctx, quorum)
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,
			company.NewCompanyRepository,
			user.NewUserRepository,
			workflow.NewWorkflowRepository,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
