package expense

import (
	"context"
	"errors"
	"time"

	"go-expense/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrVersionConflict means another decision landed on the claim between
// our read and write. The caller may reload and reapply.
var ErrVersionConflict = errors.New("expense was modified concurrently")

type ExpenseRepository interface {
	Create(ctx context.Context, expense *Expense) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Expense, error)

	// ApplyDecision appends the history entry and sets the new status and
	// approver index in one compare-and-set update keyed on the document
	// version. Returns ErrVersionConflict when the expected version no
	// longer matches.
	ApplyDecision(ctx context.Context, id primitive.ObjectID, expectedVersion int64, entry HistoryEntry, status Status, approverIndex int) (*Expense, error)

	ListBySubmitter(ctx context.Context, submitterID primitive.ObjectID) ([]Expense, error)
	ListBySubmitters(ctx context.Context, companyID primitive.ObjectID, submitterIDs []primitive.ObjectID) ([]Expense, error)
	ListPendingByCompany(ctx context.Context, companyID primitive.ObjectID) ([]Expense, error)
	ListByCompanyAndStatus(ctx context.Context, companyID primitive.ObjectID, status Status) ([]Expense, error)
	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]Expense, error)
	EnsureIndexes(ctx context.Context) error
}

type ExpenseRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewExpenseRepository(mongodb *database.MongodbDB) ExpenseRepository {
	return &ExpenseRepositoryImpl{
		Collection: mongodb.DB.Collection("expenses"),
	}
}

func (r *ExpenseRepositoryImpl) Create(ctx context.Context, expense *Expense) error {
	_, err := r.Collection.InsertOne(ctx, expense)
	return err
}

func (r *ExpenseRepositoryImpl) GetByID(ctx context.Context, id primitive.ObjectID) (*Expense, error) {
	var expense Expense
	err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&expense)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &expense, nil
}

func (r *ExpenseRepositoryImpl) ApplyDecision(ctx context.Context, id primitive.ObjectID, expectedVersion int64, entry HistoryEntry, status Status, approverIndex int) (*Expense, error) {
	filter := bson.M{
		"_id":     id,
		"version": expectedVersion,
		"status":  StatusPending,
	}
	update := bson.M{
		"$push": bson.M{"approval_history": entry},
		"$set": bson.M{
			"status":                 status,
			"current_approver_index": approverIndex,
			"updated_at":             time.Now(),
		},
		"$inc": bson.M{"version": 1},
	}

	var updated Expense
	err := r.Collection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			// Either the claim is gone or someone else won the race;
			// the service re-reads to tell the two apart.
			return nil, ErrVersionConflict
		}
		return nil, err
	}
	return &updated, nil
}

func (r *ExpenseRepositoryImpl) ListBySubmitter(ctx context.Context, submitterID primitive.ObjectID) ([]Expense, error) {
	return r.list(ctx, bson.M{"submitted_by": submitterID})
}

func (r *ExpenseRepositoryImpl) ListBySubmitters(ctx context.Context, companyID primitive.ObjectID, submitterIDs []primitive.ObjectID) ([]Expense, error) {
	return r.list(ctx, bson.M{
		"company_id":   companyID,
		"submitted_by": bson.M{"$in": submitterIDs},
	})
}

func (r *ExpenseRepositoryImpl) ListPendingByCompany(ctx context.Context, companyID primitive.ObjectID) ([]Expense, error) {
	return r.list(ctx, bson.M{"company_id": companyID, "status": StatusPending})
}

func (r *ExpenseRepositoryImpl) ListByCompanyAndStatus(ctx context.Context, companyID primitive.ObjectID, status Status) ([]Expense, error) {
	return r.list(ctx, bson.M{"company_id": companyID, "status": status})
}

func (r *ExpenseRepositoryImpl) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]Expense, error) {
	return r.list(ctx, bson.M{
		"status":     StatusPending,
		"created_at": bson.M{"$lt": cutoff},
	})
}

func (r *ExpenseRepositoryImpl) list(ctx context.Context, filter bson.M) ([]Expense, error) {
	cursor, err := r.Collection.Find(ctx, filter,
		options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var expenses []Expense
	if err = cursor.All(ctx, &expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *ExpenseRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "submitted_by", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	return err
}
