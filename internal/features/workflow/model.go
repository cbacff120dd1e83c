package workflow

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RuleType selects how a claim's approval history is evaluated.
// The tag is explicit and exhaustive; an unrecognized value is a
// data-integrity bug, not a recoverable condition.
type RuleType string

const (
	RuleSequential       RuleType = "sequential"
	RulePercentage       RuleType = "percentage"
	RuleSpecificApprover RuleType = "specific_approver"
	RuleHybrid           RuleType = "hybrid"
)

type HybridOperator string

const (
	OperatorAnd HybridOperator = "AND"
	OperatorOr  HybridOperator = "OR"
)

// Workflow is immutable configuration once a claim references it, so
// in-flight evaluations stay consistent.
type Workflow struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CompanyID primitive.ObjectID `bson:"company_id" json:"company_id"`
	Name      string             `bson:"name" json:"name"`
	Steps     []Step             `bson:"steps" json:"steps"`
	Rules     Rules              `bson:"rules" json:"rules"`
	IsDefault bool               `bson:"is_default" json:"is_default"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Step names one required approver. StepNumber is 1-based; insertion
// order defines evaluation order for the sequential rule.
type Step struct {
	ID         string             `bson:"id" json:"id"`
	StepNumber int                `bson:"step_number" json:"step_number"`
	ApproverID primitive.ObjectID `bson:"approver_id" json:"approver_id"`
}

type Rules struct {
	Type RuleType `bson:"type" json:"type"`
	// PercentageApproval is the quorum threshold in [1,100], used by
	// percentage and hybrid rules.
	PercentageApproval int `bson:"percentage_approval,omitempty" json:"percentage_approval,omitempty"`
	// SpecificApprover is the designated user for specific_approver and
	// hybrid rules.
	SpecificApprover primitive.ObjectID `bson:"specific_approver,omitempty" json:"specific_approver,omitempty"`
	HybridOperator   HybridOperator     `bson:"hybrid_operator,omitempty" json:"hybrid_operator,omitempty"`
}
