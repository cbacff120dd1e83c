package expense

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status is terminal once it leaves Pending
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// Decision is a single approver's action on a claim
type Decision string

const (
	DecisionApproved Decision = "Approved"
	DecisionRejected Decision = "Rejected"
)

// HistoryEntry is append-only; one entry per approval action taken.
// A rejection's comment is the claim's terminal reason and is kept for audit.
type HistoryEntry struct {
	ApproverID primitive.ObjectID `bson:"approver_id" json:"approver_id"`
	Decision   Decision           `bson:"decision" json:"decision"`
	Comment    string             `bson:"comment,omitempty" json:"comment,omitempty"`
	DecidedAt  time.Time          `bson:"decided_at" json:"decided_at"`
}

// Expense is the claim document. Version backs the optimistic
// concurrency check on decision updates.
type Expense struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	CompanyID   primitive.ObjectID  `bson:"company_id" json:"company_id"`
	SubmittedBy primitive.ObjectID  `bson:"submitted_by" json:"submitted_by"`
	WorkflowID  *primitive.ObjectID `bson:"workflow_id,omitempty" json:"workflow_id,omitempty"`

	Amount      float64   `bson:"amount" json:"amount"`
	Currency    string    `bson:"currency" json:"currency"`
	Category    string    `bson:"category" json:"category"`
	Description string    `bson:"description" json:"description"`
	ExpenseDate time.Time `bson:"expense_date" json:"expense_date"`

	ReceiptImageURL string `bson:"receipt_image_url,omitempty" json:"receipt_image_url,omitempty"`
	ReceiptHash     string `bson:"receipt_hash,omitempty" json:"receipt_hash,omitempty"`

	Status Status `bson:"status" json:"status"`
	// CurrentApproverIndex is a cursor into the workflow's steps,
	// meaningful only for the sequential rule. It drives the "who's
	// next" display, not the evaluator's count-based decision.
	CurrentApproverIndex int            `bson:"current_approver_index" json:"current_approver_index"`
	ApprovalHistory      []HistoryEntry `bson:"approval_history" json:"approval_history"`
	Version              int64          `bson:"version" json:"version"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
