package user

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role values are fixed; the reporting line (ManagerID) feeds workflow provisioning
const (
	RoleAdmin    = "Admin"
	RoleManager  = "Manager"
	RoleEmployee = "Employee"
)

type User struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	CompanyID  primitive.ObjectID  `bson:"company_id" json:"company_id"`
	Name       string              `bson:"name" json:"name"`
	Email      string              `bson:"email" json:"email"`
	Password   string              `bson:"password" json:"-"`
	Role       string              `bson:"role" json:"role"`
	ManagerID  *primitive.ObjectID `bson:"manager_id,omitempty" json:"manager_id,omitempty"`
	Department string              `bson:"department,omitempty" json:"department,omitempty"`
	CreatedAt  time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time           `bson:"updated_at" json:"updated_at"`
}

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleManager || role == RoleEmployee
}
