package company

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Company is the tenant every user, workflow and expense belongs to
type Company struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	Country         string             `bson:"country" json:"country"`
	DefaultCurrency string             `bson:"default_currency" json:"default_currency"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}
