package auth

import (
	"context"
	"strings"
	"time"

	"go-expense/internal/common/apperrors"
	"go-expense/internal/features/company"
	"go-expense/internal/features/user"
	"go-expense/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type AuthService interface {
	Signup(ctx context.Context, input SignupInput) (*user.User, error)
	Login(ctx context.Context, email, password string) (string, *user.User, error)
}

// SignupInput creates a new company tenant with its first admin user.
// The default currency is supplied directly; country/currency lookups are
// handled by the web layer, not here.
type SignupInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	CompanyName     string `json:"company_name"`
	Country         string `json:"country"`
	DefaultCurrency string `json:"default_currency"`
}

type AuthServiceImpl struct {
	UserRepo    user.UserRepository
	CompanyRepo company.CompanyRepository
	Logger      *zap.Logger
}

func NewAuthService(userRepo user.UserRepository, companyRepo company.CompanyRepository, logger *zap.Logger) AuthService {
	return &AuthServiceImpl{
		UserRepo:    userRepo,
		CompanyRepo: companyRepo,
		Logger:      logger,
	}
}

func (s *AuthServiceImpl) Signup(ctx context.Context, input SignupInput) (*user.User, error) {
	if input.Name == "" || input.Email == "" || input.Password == "" {
		return nil, apperrors.Validation("name, email and password are required")
	}
	if len(input.Password) < 6 {
		return nil, apperrors.Validation("password must be at least 6 characters")
	}

	existing, err := s.UserRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		return nil, apperrors.Transient("looking up user by email", err)
	}
	if existing != nil {
		return nil, apperrors.Conflict("a user with email %s already exists", input.Email)
	}

	companyName := input.CompanyName
	if companyName == "" {
		companyName = input.Name + "'s Company"
	}

	currency := strings.ToUpper(input.DefaultCurrency)
	if currency == "" {
		currency = "USD"
	}

	newCompany := &company.Company{
		ID:              primitive.NewObjectID(),
		Name:            companyName,
		Country:         input.Country,
		DefaultCurrency: currency,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := s.CompanyRepo.Create(ctx, newCompany); err != nil {
		return nil, apperrors.Transient("creating company", err)
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	// The first user of a company is always its admin
	newUser := &user.User{
		ID:        primitive.NewObjectID(),
		CompanyID: newCompany.ID,
		Name:      input.Name,
		Email:     input.Email,
		Password:  hashed,
		Role:      user.RoleAdmin,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.UserRepo.Create(ctx, newUser); err != nil {
		return nil, apperrors.Transient("creating admin user", err)
	}

	s.Logger.Info("Company signed up",
		zap.String("company_id", newCompany.ID.Hex()),
		zap.String("admin_id", newUser.ID.Hex()))

	return newUser, nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, *user.User, error) {
	u, err := s.UserRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, apperrors.Transient("looking up user by email", err)
	}
	if u == nil || !utils.CheckPassword(u.Password, password) {
		return "", nil, apperrors.Validation("invalid email or password")
	}

	token, err := utils.GenerateToken(u.ID, u.CompanyID, u.Role)
	if err != nil {
		return "", nil, err
	}

	return token, u, nil
}
