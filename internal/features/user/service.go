package user

import (
	"context"
	"time"

	"go-expense/internal/common/apperrors"
	"go-expense/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type UserService interface {
	CreateUser(ctx context.Context, companyID primitive.ObjectID, input CreateUserInput) (*User, error)
	GetUser(ctx context.Context, id primitive.ObjectID) (*User, error)
	ListCompanyUsers(ctx context.Context, companyID primitive.ObjectID) ([]User, error)
	AssignManager(ctx context.Context, companyID, userID, managerID primitive.ObjectID) error
}

type CreateUserInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	ManagerID string `json:"manager_id"`
}

type UserServiceImpl struct {
	Repo   UserRepository
	Logger *zap.Logger
}

func NewUserService(repo UserRepository, logger *zap.Logger) UserService {
	return &UserServiceImpl{
		Repo:   repo,
		Logger: logger,
	}
}

func (s *UserServiceImpl) CreateUser(ctx context.Context, companyID primitive.ObjectID, input CreateUserInput) (*User, error) {
	if input.Name == "" || input.Email == "" || input.Password == "" {
		return nil, apperrors.Validation("name, email and password are required")
	}
	if !ValidRole(input.Role) {
		return nil, apperrors.Validation("invalid role %q", input.Role)
	}

	existing, err := s.Repo.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, apperrors.Transient("looking up user by email", err)
	}
	if existing != nil {
		return nil, apperrors.Conflict("a user with email %s already exists", input.Email)
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	newUser := &User{
		ID:        primitive.NewObjectID(),
		CompanyID: companyID,
		Name:      input.Name,
		Email:     input.Email,
		Password:  hashed,
		Role:      input.Role,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if input.ManagerID != "" {
		managerOID, err := primitive.ObjectIDFromHex(input.ManagerID)
		if err != nil {
			return nil, apperrors.Validation("invalid manager id")
		}
		manager, err := s.Repo.GetByID(ctx, managerOID)
		if err != nil {
			return nil, apperrors.Transient("looking up manager", err)
		}
		if manager == nil || manager.CompanyID != companyID {
			return nil, apperrors.Validation("manager does not belong to this company")
		}
		newUser.ManagerID = &managerOID
	}

	if err := s.Repo.Create(ctx, newUser); err != nil {
		return nil, apperrors.Transient("creating user", err)
	}

	s.Logger.Info("User created",
		zap.String("user_id", newUser.ID.Hex()),
		zap.String("company_id", companyID.Hex()),
		zap.String("role", newUser.Role))

	return newUser, nil
}

func (s *UserServiceImpl) GetUser(ctx context.Context, id primitive.ObjectID) (*User, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Transient("loading user", err)
	}
	if u == nil {
		return nil, apperrors.NotFound("user %s not found", id.Hex())
	}
	return u, nil
}

func (s *UserServiceImpl) ListCompanyUsers(ctx context.Context, companyID primitive.ObjectID) ([]User, error) {
	return s.Repo.ListByCompany(ctx, companyID)
}

func (s *UserServiceImpl) AssignManager(ctx context.Context, companyID, userID, managerID primitive.ObjectID) error {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.CompanyID != companyID {
		return apperrors.NotFound("user %s not found", userID.Hex())
	}

	manager, err := s.GetUser(ctx, managerID)
	if err != nil {
		return err
	}
	if manager.CompanyID != companyID {
		return apperrors.Validation("manager does not belong to this company")
	}
	if manager.Role == RoleEmployee {
		return apperrors.Validation("an employee cannot be assigned as a manager")
	}

	return s.Repo.SetManager(ctx, userID, managerID)
}
